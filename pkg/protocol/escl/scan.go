package escl

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"net/http"
	"time"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/status"
)

// ScanQuery implements protocol.Handler: POST a ScanSettings document
// describing the job's geometry, resolution, source, and color mode.
func (h *Handler) ScanQuery(ctx *protocol.Context) httpactivity.Request {
	settings := scanSettings{
		Version: "2.63",
		ScanRegion: scanRegion{
			Height:            ctx.Params.Hei,
			Width:             ctx.Params.Wid,
			XOffset:           ctx.Params.XOff,
			YOffset:           ctx.Params.YOff,
			ContentRegionUnit: "escl:ThreeHundredthsOfInches",
		},
		InputSource:    ctx.Params.Source,
		ColorMode:      ctx.Params.ColorMode,
		XResolution:    ctx.Params.XRes,
		YResolution:    ctx.Params.YRes,
		DocumentFormat: "image/jpeg",
	}

	body, _ := xml.Marshal(settings)
	body = append([]byte(xml.Header), body...)

	return httpactivity.Request{
		Method: http.MethodPost,
		URL:    joinURL(ctx.BaseURI, "ScanJobs"),
		Header: http.Header{"Content-Type": []string{"text/xml"}},
		Body:   body,
	}
}

// ScanDecode implements protocol.Handler. A successful ScanJobs POST
// returns 201 Created with a Location header naming the job resource that
// subsequent LOAD/CANCEL/CLEANUP requests address.
func (h *Handler) ScanDecode(ctx *protocol.Context, resp *httpactivity.Response) protocol.Result {
	switch resp.StatusCode {
	case http.StatusCreated:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return protocol.Result{
				Next:   protocol.OpFinish,
				Status: status.IOError,
				Err:    fmt.Errorf("escl: ScanJobs: 201 response carried no Location header"),
			}
		}
		return protocol.Result{
			Next:   protocol.OpLoad,
			Status: status.Good,
			Data:   protocol.ResultData{Location: loc},
		}

	case http.StatusServiceUnavailable:
		ctx.FailedAttempt++
		if ctx.FailedAttempt >= retryAttempts {
			return protocol.Result{
				Next:   protocol.OpFinish,
				Status: status.IOError,
				Err:    fmt.Errorf("escl: ScanJobs: scanner still busy after %d attempts", ctx.FailedAttempt),
			}
		}
		return protocol.Result{Next: protocol.OpScan, Delay: retryDelay, Status: status.Good}

	default:
		return protocol.Result{
			Next:   protocol.OpFinish,
			Status: status.IOError,
			Err:    fmt.Errorf("escl: ScanJobs: HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(resp.Body)),
		}
	}
}

// retryAttempts and retryDelay bound the protocol-directed retry budget for
// scanner-busy responses, counted in Context.FailedAttempt (which the state
// machine resets on every SCAN/LOAD success). Distinct from the HTTP
// activity wrapper's own transport retry budget, but sized the same.
const (
	retryAttempts = 10
	retryDelay    = 1 * time.Second
)
