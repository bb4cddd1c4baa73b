package discovery

import (
	"context"
	"time"

	"github.com/enbility/zeroconf/v3/api"
)

// Listener receives scanner discovery events. It is the contract the device
// subsystem's lifecycle glue implements to learn about found/removed
// scanners and the end of the browser's initial settling window; see
// device_event_found / device_event_removed / device_event_init_scan_finished
// in the original device management design this mirrors.
type Listener interface {
	// OnFound is called for a newly discovered or re-announced scanner.
	// initScan is true while the browser is still in its initial scan window.
	OnFound(found Found, initScan bool)

	// OnRemoved is called when a scanner's last known address disappears.
	OnRemoved(name string)

	// OnInitScanFinished is called exactly once, when the browser's initial
	// scan window closes.
	OnInitScanFinished()
}

// Browser discovers eSCL scanners over mDNS and reports them to a Listener.
type Browser interface {
	// Start begins browsing in the background and returns immediately.
	// Events are delivered to listener until ctx is cancelled or Stop is
	// called.
	Start(ctx context.Context, listener Listener) error

	// InitScanInProgress reports whether the browser is still within its
	// initial scan window.
	InitScanInProgress() bool

	// Stop stops browsing.
	Stop()
}

// BrowserConfig configures browser behavior.
type BrowserConfig struct {
	// BrowseTimeout is kept in the configuration. Default: 10 seconds.
	// ZeroconfBrowser does not apply it; each browse runs until its context
	// is cancelled.
	BrowseTimeout time.Duration

	// InitialScanWindow bounds how long InitScanInProgress reports true
	// after Start. Default: 3 seconds.
	InitialScanWindow time.Duration

	// Interface restricts browsing to a single named network interface.
	// Empty string means all interfaces.
	Interface string

	// ConnectionFactory creates multicast connections.
	// Set this in tests to inject mock connections.
	ConnectionFactory api.ConnectionFactory

	// InterfaceProvider lists network interfaces.
	// Set this in tests to inject mock interface lists.
	InterfaceProvider api.InterfaceProvider
}

// DefaultBrowserConfig returns the default browser configuration.
func DefaultBrowserConfig() BrowserConfig {
	return BrowserConfig{
		BrowseTimeout:     BrowseTimeout,
		InitialScanWindow: InitialScanWindow,
	}
}
