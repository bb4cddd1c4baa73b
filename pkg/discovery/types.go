package discovery

import (
	"errors"
	"time"
)

// Service type constants for mDNS/DNS-SD scanner discovery.
const (
	// ServiceTypeESCL is the service type advertised by HTTP eSCL scanners.
	ServiceTypeESCL = "_uscan._tcp"

	// ServiceTypeESCLS is the service type advertised by HTTPS eSCL scanners.
	ServiceTypeESCLS = "_uscans._tcp"

	// Domain is the mDNS domain scanners are browsed in.
	Domain = "local"
)

// TXT record key constants, per the eSCL DNS-SD TXT record conventions.
const (
	TXTKeyTxtVers        = "txtvers" // TXT record schema version
	TXTKeyResourcePath   = "rs"      // resource path under the endpoint root, e.g. "eSCL"
	TXTKeyModel          = "ty"      // human-readable model/type string
	TXTKeyNote           = "note"    // optional free-form location/note string
	TXTKeyUUID           = "UUID"    // stable device UUID
	TXTKeyVers           = "vers"    // protocol version, e.g. "2.63"
	TXTKeyRepresentation = "representation"
	TXTKeyAdminURL       = "adminurl"
	TXTKeyPDL            = "pdl" // supported page description languages
	TXTKeyColor          = "cs"  // supported color spaces
)

// Timing constants.
const (
	// BrowseTimeout is the default value of BrowserConfig.BrowseTimeout.
	BrowseTimeout = 10 * time.Second

	// InitialScanWindow is how long after Start the browser still considers
	// itself mid-initial-scan; InitScanInProgress reports true until it
	// elapses.
	InitialScanWindow = 3 * time.Second
)

// Discovery errors.
var (
	ErrMissingRequired = errors.New("missing required TXT field")
	ErrInvalidTXTRecord = errors.New("invalid TXT record format")
	ErrNotFound         = errors.New("service not found")
	ErrBrowseTimeout    = errors.New("browse timeout")
	ErrAlreadyStarted   = errors.New("browser already started")
)

// Endpoint describes a single discovered scan endpoint: a base URI plus the
// protocol name the endpoint prober should use to drive it (see pkg/protocol's
// Registry). Devices seen through zeroconf carry exactly one endpoint today,
// but the type is a slice field on Found to leave room for a device exposing
// both an HTTP and HTTPS endpoint for the same resource.
type Endpoint struct {
	// URI is the base address of the scan resource, e.g.
	// "http://scanner.local:8080/eSCL/".
	URI string

	// Protocol names the protocol handler that understands this endpoint,
	// e.g. "eSCL".
	Protocol string
}

// Found describes a scanner discovered or re-announced via mDNS.
type Found struct {
	// Name is the device name, used as the registry key. Derived from the
	// TXT "ty" model string when present, falling back to the mDNS instance
	// name.
	Name string

	// Endpoints lists the endpoints this announcement carries for Name.
	Endpoints []Endpoint

	// Model is the human-readable model/type string (TXT "ty").
	Model string

	// UUID is the device's stable identifier (TXT "UUID"), when advertised.
	UUID string
}

// isHexString reports whether s consists entirely of hex digits.
func isHexString(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if !((r >= '0' && r <= '9') || (r >= 'a' && r <= 'f') || (r >= 'A' && r <= 'F')) {
			return false
		}
	}
	return true
}
