package discovery

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeScannerTXTRequiresResourcePath(t *testing.T) {
	_, err := DecodeScannerTXT(TXTRecordMap{"ty": "Canon MG3600"})
	assert.ErrorIs(t, err, ErrMissingRequired)
}

func TestDecodeScannerTXTParsesOptionalFields(t *testing.T) {
	txt := TXTRecordMap{
		TXTKeyResourcePath: "eSCL",
		TXTKeyModel:        "Canon MG3600 series",
		TXTKeyUUID:         "4509a320-00a0-008f-00b6-002507510eca",
		TXTKeyVers:         "2.63",
		TXTKeyPDL:          "application/pdf,image/jpeg",
	}

	info, err := DecodeScannerTXT(txt)
	require.NoError(t, err)

	assert.Equal(t, "eSCL", info.ResourcePath)
	assert.Equal(t, "Canon MG3600 series", info.Model)
	assert.Equal(t, "4509a320-00a0-008f-00b6-002507510eca", info.UUID)
	assert.Equal(t, "2.63", info.Version)
	assert.Equal(t, "application/pdf,image/jpeg", info.PDL)
}

func TestTXTRecordRoundTrip(t *testing.T) {
	txt := TXTRecordMap{TXTKeyResourcePath: "eSCL", TXTKeyModel: "Test Scanner"}
	strs := TXTRecordsToStrings(txt)
	decoded := StringsToTXTRecords(strs)
	assert.Equal(t, txt, decoded)
}

func TestStringsToTXTRecordsHandlesBareFlags(t *testing.T) {
	txt := StringsToTXTRecords([]string{"rs=eSCL", "bareflag"})
	assert.Equal(t, "eSCL", txt[TXTKeyResourcePath])
	v, ok := txt["bareflag"]
	assert.True(t, ok)
	assert.Empty(t, v)
}

func TestResourceURI(t *testing.T) {
	assert.Equal(t, "http://scanner.local:8080/eSCL/", resourceURI(false, "scanner.local", 8080, "eSCL"))
	assert.Equal(t, "https://scanner.local:443/eSCL/", resourceURI(true, "scanner.local", 443, "/eSCL/"))
}
