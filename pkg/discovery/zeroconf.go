package discovery

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
)

// ZeroconfBrowser implements Browser using github.com/enbility/zeroconf/v3.
type ZeroconfBrowser struct {
	config BrowserConfig

	mu        sync.Mutex
	started   bool
	stopped   bool
	cancel    context.CancelFunc
	scanEnds  time.Time
	inInitial bool
}

// NewZeroconfBrowser creates a new mDNS scanner browser.
func NewZeroconfBrowser(config BrowserConfig) *ZeroconfBrowser {
	if config.BrowseTimeout <= 0 {
		config.BrowseTimeout = BrowseTimeout
	}
	if config.InitialScanWindow <= 0 {
		config.InitialScanWindow = InitialScanWindow
	}
	return &ZeroconfBrowser{config: config}
}

// Start implements Browser.
func (b *ZeroconfBrowser) Start(ctx context.Context, listener Listener) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	b.inInitial = true
	b.scanEnds = time.Now().Add(b.config.InitialScanWindow)
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	b.mu.Unlock()

	go b.run(ctx, listener, ServiceTypeESCL, false)
	go b.run(ctx, listener, ServiceTypeESCLS, true)

	go func() {
		timer := time.NewTimer(b.config.InitialScanWindow)
		defer timer.Stop()
		select {
		case <-timer.C:
			b.mu.Lock()
			b.inInitial = false
			b.mu.Unlock()
			listener.OnInitScanFinished()
		case <-ctx.Done():
		}
	}()

	return nil
}

// InitScanInProgress implements Browser.
func (b *ZeroconfBrowser) InitScanInProgress() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inInitial
}

// Stop implements Browser.
func (b *ZeroconfBrowser) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.stopped = true
	if b.cancel != nil {
		b.cancel()
	}
}

func (b *ZeroconfBrowser) run(ctx context.Context, listener Listener, serviceType string, secure bool) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)

	opts := b.browserOptions()

	go func() {
		// addrs tracks known addresses per instance so a removal is only
		// reported once the last address for that instance disappears.
		addrs := make(map[string][]string)

		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				found, addr := b.entryToFound(entry, secure)
				if found == nil {
					continue
				}
				existing := addrs[entry.Instance]
				addrs[entry.Instance] = mergeAddresses(existing, []string{addr})

				b.mu.Lock()
				initScan := b.inInitial
				b.mu.Unlock()

				listener.OnFound(*found, initScan)

			case entry, ok := <-removed:
				if !ok {
					continue
				}
				remaining := removeAddress(addrs[entry.Instance], entry)
				addrs[entry.Instance] = remaining
				if len(remaining) == 0 {
					name := deviceNameFromInstance(entry.Instance, StringsToTXTRecords(entry.Text))
					listener.OnRemoved(name)
				}

			case <-ctx.Done():
				return
			}
		}
	}()

	_ = zeroconf.Browse(ctx, serviceType, Domain, entries, removed, opts...)
}

func (b *ZeroconfBrowser) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if b.config.Interface != "" {
		if iface, err := net.InterfaceByName(b.config.Interface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}
	if b.config.ConnectionFactory != nil {
		opts = append(opts, zeroconf.WithClientConnFactory(b.config.ConnectionFactory))
	}
	if b.config.InterfaceProvider != nil {
		opts = append(opts, zeroconf.WithClientInterfaceProvider(b.config.InterfaceProvider))
	}

	return opts
}

// entryToFound converts a zeroconf entry into a Found event plus the single
// address it was just resolved on (for address bookkeeping).
func (b *ZeroconfBrowser) entryToFound(entry *zeroconf.ServiceEntry, secure bool) (*Found, string) {
	txt := StringsToTXTRecords(entry.Text)
	info, err := DecodeScannerTXT(txt)
	if err != nil {
		return nil, ""
	}

	var addr string
	switch {
	case len(entry.AddrIPv4) > 0:
		addr = entry.AddrIPv4[0].String()
	case len(entry.AddrIPv6) > 0:
		addr = entry.AddrIPv6[0].String()
	}

	name := deviceNameFromInstance(entry.Instance, txt)

	return &Found{
		Name: name,
		Endpoints: []Endpoint{{
			URI:      resourceURI(secure, entry.HostName, uint16(entry.Port), info.ResourcePath),
			Protocol: "eSCL",
		}},
		Model: info.Model,
		UUID:  info.UUID,
	}, addr
}

// deviceNameFromInstance derives the registry name for a device: the TXT
// model string when present, otherwise the mDNS instance name.
func deviceNameFromInstance(instance string, txt TXTRecordMap) string {
	if model, ok := txt[TXTKeyModel]; ok && model != "" {
		return model
	}
	return strings.TrimSpace(instance)
}

// mergeAddresses adds new addresses to existing list, avoiding duplicates.
func mergeAddresses(existing, new []string) []string {
	seen := make(map[string]bool, len(existing))
	for _, addr := range existing {
		seen[addr] = true
	}
	for _, addr := range new {
		if !seen[addr] {
			existing = append(existing, addr)
			seen[addr] = true
		}
	}
	return existing
}

// removeAddress removes the addresses carried by a removed zeroconf entry.
func removeAddress(addresses []string, entry *zeroconf.ServiceEntry) []string {
	toRemove := make(map[string]bool)
	for _, ip := range entry.AddrIPv4 {
		toRemove[ip.String()] = true
	}
	for _, ip := range entry.AddrIPv6 {
		toRemove[ip.String()] = true
	}

	result := make([]string, 0, len(addresses))
	for _, addr := range addresses {
		if !toRemove[addr] {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure ZeroconfBrowser implements Browser.
var _ Browser = (*ZeroconfBrowser)(nil)
