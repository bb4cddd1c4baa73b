package escl

import (
	"encoding/xml"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/status"
)

func testContext() *protocol.Context {
	return &protocol.Context{
		BaseURI: "http://192.168.1.20:8080/eSCL/",
		Params: protocol.ScanParams{
			XOff: 0, YOff: 0,
			Wid: 2550, Hei: 3508,
			XRes: 300, YRes: 300,
			Source:    "Flatbed",
			ColorMode: "RGB24",
		},
	}
}

func TestScanQueryShape(t *testing.T) {
	h := New().(*Handler)
	req := h.ScanQuery(testContext())

	assert.Equal(t, http.MethodPost, req.Method)
	assert.Equal(t, "http://192.168.1.20:8080/eSCL/ScanJobs", req.URL)

	var settings struct {
		XMLName xml.Name `xml:"ScanSettings"`
		Height  int32    `xml:"ScanRegions>ScanRegion>Height"`
		Width   int32    `xml:"ScanRegions>ScanRegion>Width"`
		Source  string   `xml:"InputSource"`
		Format  string   `xml:"DocumentFormatExt"`
	}
	require.NoError(t, xml.Unmarshal(req.Body, &settings))
	assert.Equal(t, int32(3508), settings.Height)
	assert.Equal(t, int32(2550), settings.Width)
	assert.Equal(t, "Flatbed", settings.Source)
	assert.Equal(t, "image/jpeg", settings.Format)
}

func TestScanDecodeCreated(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()

	result := h.ScanDecode(ctx, &httpactivity.Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{"Location": []string{"/eSCL/ScanJobs/1"}},
	})

	assert.Equal(t, protocol.OpLoad, result.Next)
	assert.Equal(t, status.Good, result.Status)
	assert.Equal(t, "/eSCL/ScanJobs/1", result.Data.Location)
}

func TestScanDecodeCreatedWithoutLocation(t *testing.T) {
	h := New().(*Handler)
	result := h.ScanDecode(testContext(), &httpactivity.Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{},
	})

	assert.Equal(t, protocol.OpFinish, result.Next)
	assert.Equal(t, status.IOError, result.Status)
	assert.Error(t, result.Err)
}

func TestScanDecodeBusyRetries(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()

	result := h.ScanDecode(ctx, &httpactivity.Response{StatusCode: http.StatusServiceUnavailable})

	assert.Equal(t, protocol.OpScan, result.Next)
	assert.Equal(t, time.Second, result.Delay)
	assert.Equal(t, 1, ctx.FailedAttempt)
}

func TestScanDecodeBusyExhaustsRetryBudget(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()
	busy := &httpactivity.Response{StatusCode: http.StatusServiceUnavailable}

	// The first nine busy responses keep retrying with the standard pause.
	for i := 0; i < retryAttempts-1; i++ {
		result := h.ScanDecode(ctx, busy)
		assert.Equal(t, protocol.OpScan, result.Next)
		assert.Equal(t, retryDelay, result.Delay)
		assert.Equal(t, status.Good, result.Status)
	}

	// The tenth exhausts the budget: terminal IO_ERROR, no further retry.
	result := h.ScanDecode(ctx, busy)
	assert.Equal(t, protocol.OpFinish, result.Next)
	assert.Equal(t, status.IOError, result.Status)
	assert.Error(t, result.Err)
	assert.Equal(t, retryAttempts, ctx.FailedAttempt)
}

func TestLoadDecodeBusyExhaustsRetryBudget(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()
	ctx.Location = "/eSCL/ScanJobs/1"
	busy := &httpactivity.Response{StatusCode: http.StatusServiceUnavailable}

	for i := 0; i < retryAttempts-1; i++ {
		result := h.LoadDecode(ctx, busy)
		assert.Equal(t, protocol.OpLoad, result.Next)
		assert.Equal(t, retryDelay, result.Delay)
	}

	result := h.LoadDecode(ctx, busy)
	assert.Equal(t, protocol.OpFinish, result.Next)
	assert.Equal(t, status.IOError, result.Status)
	assert.Error(t, result.Err)

	// A delivered page resets the counter, so a later busy streak gets the
	// full budget again.
	ctx.FailedAttempt = retryAttempts - 1
	result = h.LoadDecode(ctx, &httpactivity.Response{StatusCode: http.StatusOK, Body: []byte{0xFF}})
	assert.Equal(t, protocol.OpLoad, result.Next)
	assert.Zero(t, ctx.FailedAttempt)

	result = h.LoadDecode(ctx, busy)
	assert.Equal(t, protocol.OpLoad, result.Next)
	assert.Equal(t, 1, ctx.FailedAttempt)
}

func TestLoadDecodePage(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()
	ctx.FailedAttempt = 3

	result := h.LoadDecode(ctx, &httpactivity.Response{
		StatusCode: http.StatusOK,
		Body:       []byte{0xFF, 0xD8},
	})

	assert.Equal(t, protocol.OpLoad, result.Next)
	assert.Equal(t, []byte{0xFF, 0xD8}, result.Data.Image)
	assert.Zero(t, ctx.FailedAttempt)
}

func TestLoadDecodeExhaustedMovesToCheck(t *testing.T) {
	h := New().(*Handler)
	result := h.LoadDecode(testContext(), &httpactivity.Response{StatusCode: http.StatusNotFound})

	assert.Equal(t, protocol.OpCheck, result.Next)
	assert.Equal(t, status.Good, result.Status)
}

func TestLoadDecodeErrorFinishes(t *testing.T) {
	h := New().(*Handler)
	result := h.LoadDecode(testContext(), &httpactivity.Response{StatusCode: http.StatusInternalServerError})

	assert.Equal(t, protocol.OpFinish, result.Next)
	assert.Equal(t, status.IOError, result.Status)
}

func TestStatusDecodeAbortedJobDegradesToIOError(t *testing.T) {
	h := New().(*Handler)
	body := []byte(`<?xml version="1.0"?>
<ScannerStatus>
  <State>Idle</State>
  <Jobs><JobInfo><JobUri>/eSCL/ScanJobs/1</JobUri><JobState>Aborted</JobState></JobInfo></Jobs>
</ScannerStatus>`)

	result := h.StatusDecode(testContext(), &httpactivity.Response{StatusCode: http.StatusOK, Body: body})

	assert.Equal(t, protocol.OpCleanup, result.Next)
	assert.Equal(t, status.IOError, result.Status)
}

func TestCancelQueryResolvesRelativeLocation(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()
	ctx.Location = "/eSCL/ScanJobs/1"

	req := h.CancelQuery(ctx)
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "http://192.168.1.20:8080/eSCL/ScanJobs/1", req.URL)
}

func TestLoadQueryAppendsNextDocument(t *testing.T) {
	h := New().(*Handler)
	ctx := testContext()
	ctx.Location = "http://192.168.1.20:8080/eSCL/ScanJobs/1"

	req := h.LoadQuery(ctx)
	assert.Equal(t, "http://192.168.1.20:8080/eSCL/ScanJobs/1/NextDocument", req.URL)
}

func TestCapabilitiesDecode(t *testing.T) {
	h := New().(*Handler)
	body := []byte(`<?xml version="1.0"?>
<ScannerCapabilities>
  <MakeAndModel>Kyocera ECOSYS M2040dn</MakeAndModel>
  <Manufacturer>Kyocera</Manufacturer>
  <Platen>
    <PlatenInputCaps>
      <MinWidth>16</MinWidth>
      <MaxWidth>2550</MaxWidth>
      <MinHeight>32</MinHeight>
      <MaxHeight>3508</MaxHeight>
      <SettingProfiles>
        <SettingProfile>
          <ColorModes><ColorMode>RGB24</ColorMode><ColorMode>Grayscale8</ColorMode></ColorModes>
          <SupportedResolutions>
            <DiscreteResolutions>
              <DiscreteResolution><XResolution>200</XResolution></DiscreteResolution>
              <DiscreteResolution><XResolution>300</XResolution></DiscreteResolution>
            </DiscreteResolutions>
          </SupportedResolutions>
        </SettingProfile>
      </SettingProfiles>
    </PlatenInputCaps>
  </Platen>
</ScannerCapabilities>`)

	caps, err := h.CapabilitiesDecode(testContext(), &httpactivity.Response{StatusCode: http.StatusOK, Body: body})
	require.NoError(t, err)

	src, ok := caps.Sources["Flatbed"]
	require.True(t, ok)
	assert.Equal(t, int32(2550), src.MaxWidthPx)
	assert.Equal(t, int32(3508), src.MaxHeightPx)
	assert.Equal(t, []int32{200, 300}, src.Resolutions)
	assert.Equal(t, []string{"RGB24", "Grayscale8"}, src.ColorModes)
	assert.Equal(t, "Kyocera", h.Manufacturer())
	assert.Equal(t, "Kyocera ECOSYS M2040dn", h.Model())
}

func TestCapabilitiesDecodeRejectsNoSources(t *testing.T) {
	h := New().(*Handler)
	_, err := h.CapabilitiesDecode(testContext(), &httpactivity.Response{
		StatusCode: http.StatusOK,
		Body:       []byte(`<?xml version="1.0"?><ScannerCapabilities></ScannerCapabilities>`),
	})
	assert.Error(t, err)
}

func TestDummyDecodeForCancelAndCleanup(t *testing.T) {
	result := protocol.DummyDecode(&httpactivity.Response{StatusCode: http.StatusOK})
	assert.Equal(t, protocol.OpFinish, result.Next)
	assert.Zero(t, result.Delay)
	assert.Nil(t, result.Data.Image)
}
