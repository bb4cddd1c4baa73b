// Package discovery implements mDNS/DNS-SD discovery of network scan
// endpoints.
//
// # eSCL Discovery
//
// Scanners advertise themselves under two service types:
//
//	_uscan._tcp   - plain HTTP eSCL
//	_uscans._tcp  - HTTPS eSCL
//
// TXT records carry the resource path ("rs"), model string ("ty"), protocol
// version ("vers"), and an optional device UUID ("UUID"). The Browser
// aggregates announcements into Found events, keyed by device name, and
// reports removal when a service's last address disappears.
//
// # Initial Scan
//
// Like the zeroconf collaborator described in the device subsystem's
// contract, a Browser distinguishes devices found during its initial
// settling window from those found afterward, and reports when that window
// has closed via Listener.OnInitScanFinished. The device registry's
// readiness barrier blocks on this signal.
package discovery
