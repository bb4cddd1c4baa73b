package discovery

import (
	"fmt"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// ScannerInfo is the decoded content of a scanner's DNS-SD TXT record.
type ScannerInfo struct {
	ResourcePath   string
	Model          string
	Note           string
	UUID           string
	Version        string
	Representation string
	AdminURL       string
	PDL            string
	ColorSpaces    string
}

// DecodeScannerTXT parses TXT records from an eSCL scanner announcement.
// Only the resource path is required; every other field is advisory.
func DecodeScannerTXT(txt TXTRecordMap) (*ScannerInfo, error) {
	rs, ok := txt[TXTKeyResourcePath]
	if !ok || rs == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyResourcePath)
	}

	return &ScannerInfo{
		ResourcePath:   rs,
		Model:          txt[TXTKeyModel],
		Note:           txt[TXTKeyNote],
		UUID:           txt[TXTKeyUUID],
		Version:        txt[TXTKeyVers],
		Representation: txt[TXTKeyRepresentation],
		AdminURL:       txt[TXTKeyAdminURL],
		PDL:            txt[TXTKeyPDL],
		ColorSpaces:    txt[TXTKeyColor],
	}, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			txt[parts[0]] = ""
		}
	}
	return txt
}

// resourceURI builds the base scan resource URI from a host:port and the
// TXT-advertised resource path.
func resourceURI(secure bool, host string, port uint16, resourcePath string) string {
	scheme := "http"
	if secure {
		scheme = "https"
	}
	path := strings.Trim(resourcePath, "/")
	return fmt.Sprintf("%s://%s:%d/%s/", scheme, host, port, path)
}
