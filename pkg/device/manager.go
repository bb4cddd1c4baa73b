package device

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/escl-core/netscan/pkg/config"
	"github.com/escl-core/netscan/pkg/decoder"
	"github.com/escl-core/netscan/pkg/decoder/jpeg"
	"github.com/escl-core/netscan/pkg/discovery"
	"github.com/escl-core/netscan/pkg/eloop"
	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/protocol/escl"
	"github.com/escl-core/netscan/pkg/registry"
	"github.com/escl-core/netscan/pkg/status"
)

// ReadyTimeout bounds how long List and Open wait for the device table to
// settle after startup (DEVICE_TABLE_READY_TIMEOUT in the original design).
const ReadyTimeout = 5 * time.Second

// Info describes one listed device for the frontend.
type Info struct {
	Name   string
	Vendor string
	Model  string
	Type   string
}

// ManagerConfig carries the Manager's collaborators. Zero values select
// working defaults: NoopLogger, http.DefaultClient, the JPEG decoder, no
// mDNS browser (static devices only), and the default ready timeout.
type ManagerConfig struct {
	Logger       log.Logger
	Conf         *config.Config
	HTTPClient   *http.Client
	Browser      discovery.Browser
	NewDecoder   func() decoder.Decoder
	ReadyTimeout time.Duration
}

// Manager owns the device subsystem: the event loop, the device registry,
// the protocol handler registry, and the discovery glue. It is the Go
// rendition of device_management_init/cleanup plus the device_event_*
// entry points.
type Manager struct {
	loop      *eloop.Loop
	registry  *registry.Registry
	protocols *protocol.Registry
	logger    log.Logger
	conf      *config.Config
	browser   discovery.Browser
	httpCli   *http.Client
	newDec    func() decoder.Decoder
	readyWait time.Duration

	ctx       context.Context
	cancelCtx context.CancelFunc

	mu      sync.Mutex
	started bool
}

// NewManager builds a Manager; call Init to start it.
func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = log.NoopLogger{}
	}
	if cfg.Conf == nil {
		cfg.Conf = config.Default()
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.NewDecoder == nil {
		cfg.NewDecoder = func() decoder.Decoder { return jpeg.New() }
	}
	if cfg.ReadyTimeout == 0 {
		cfg.ReadyTimeout = ReadyTimeout
	}

	protocols := protocol.NewRegistry()
	protocols.Register("eSCL", escl.New)

	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		loop:      eloop.New(),
		registry:  registry.New(),
		protocols: protocols,
		logger:    cfg.Logger,
		conf:      cfg.Conf,
		browser:   cfg.Browser,
		httpCli:   cfg.HTTPClient,
		newDec:    cfg.NewDecoder,
		readyWait: cfg.ReadyTimeout,
		ctx:       ctx,
		cancelCtx: cancel,
	}
}

// Init starts the event loop, imports statically configured devices, and
// begins mDNS browsing if a browser was supplied.
func (m *Manager) Init() error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = true
	m.mu.Unlock()

	m.loop.Start()

	for _, sd := range m.conf.Devices {
		sd := sd
		m.loop.Call(func() {
			m.addDevice(sd.Name, []Endpoint{{URI: sd.URI, Protocol: sd.Protocol}}, true)
		})
	}

	if m.browser != nil {
		if err := m.browser.Start(m.ctx, m); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup tears the subsystem down: stop browsing, purge every device, stop
// the event loop.
func (m *Manager) Cleanup() {
	m.cancelCtx()
	if m.browser != nil {
		m.browser.Stop()
	}

	m.loop.CallSync(func() {
		for _, member := range m.registry.Purge() {
			d := member.(*Device)
			d.halt()
		}
	})
	m.registry.Broadcast()

	m.loop.Stop()
}

// OnFound implements discovery.Listener: a scanner appeared (or was
// re-announced) on the network.
func (m *Manager) OnFound(found discovery.Found, initScan bool) {
	endpoints := make([]Endpoint, 0, len(found.Endpoints))
	for _, ep := range found.Endpoints {
		endpoints = append(endpoints, Endpoint{URI: ep.URI, Protocol: ep.Protocol})
	}
	m.loop.Call(func() {
		m.addDevice(found.Name, endpoints, initScan)
	})
}

// OnRemoved implements discovery.Listener: a scanner's announcement expired.
func (m *Manager) OnRemoved(name string) {
	m.loop.Call(func() {
		if member, ok := m.registry.Find(name); ok {
			m.delDevice(member.(*Device))
		}
	})
}

// OnInitScanFinished implements discovery.Listener: the browser's initial
// scan window closed, so List/Open waiters may be able to proceed.
func (m *Manager) OnInitScanFinished() {
	m.registry.Broadcast()
}

// addDevice creates and registers a device, then kicks off probing. A
// duplicate name is a no-op (spec.md §8 law 8). Runs only on the event-loop
// goroutine.
func (m *Manager) addDevice(name string, endpoints []Endpoint, initScan bool) {
	var dev *Device
	_, added := m.registry.Add(name, func() registry.Member {
		d := &Device{
			name:     name,
			manager:  m,
			logger:   m.logger,
			opts:     &options.Options{},
			protoCtx: &protocol.Context{},
		}
		d.cond = sync.NewCond(&d.mu)
		d.refcnt.Store(1)
		d.flags = registry.Listed
		if initScan {
			d.flags |= registry.InitWait
		}
		d.endpoints = make([]Endpoint, 0, len(endpoints))
		for _, ep := range endpoints {
			d.endpoints = append(d.endpoints, normalizeEndpointURI(ep))
		}
		d.httpActivity = httpactivity.NewActivity(m.httpCli)
		d.decoder = m.newDec()
		dev = d
		return d
	})
	if !added {
		return
	}

	dev.probe()
}

// delDevice removes a device from the registry and halts it: no new HTTP
// requests will be submitted for it, and its registry reference is dropped.
// Runs only on the event-loop goroutine.
func (m *Manager) delDevice(d *Device) {
	m.registry.Del(d.name)
	d.halt()
	m.registry.Broadcast()
}

// halt cancels any in-flight I/O and marks the device HALTED. A job caught
// mid-flight can no longer make progress once its HTTP activity is gone, so
// it is driven to DONE here; a blocked reader then wakes and observes the
// job status.
func (d *Device) halt() {
	d.httpActivity.Cancel()
	if d.timer != nil {
		d.timer.Cancel()
		d.timer = nil
	}

	if d.state().Working() {
		d.mu.Lock()
		if d.jobStatus != status.Cancelled {
			d.jobStatus = status.IOError
			d.jobStatusSet = true
		}
		d.mu.Unlock()
		d.setState(StateDone)
	}

	d.mu.Lock()
	d.setFlags(registry.Halted, registry.Listed|registry.Ready|registry.InitWait)
	d.mu.Unlock()
	d.broadcast()

	d.unref()
}

// List blocks until the registry is ready and discovery's initial scan has
// settled (bounded by the ready timeout), then returns the READY devices
// sorted by name.
func (m *Manager) List() []Info {
	m.waitReady()

	members := m.registry.Collect(registry.Ready)
	infos := make([]Info, 0, len(members))
	for _, member := range members {
		d := member.(*Device)
		d.mu.Lock()
		infos = append(infos, Info{
			Name:   d.name,
			Vendor: d.vendor,
			Model:  d.model,
			Type:   d.protoHandler.Name() + " network scanner",
		})
		d.mu.Unlock()
	}

	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// waitReady blocks on the registry readiness barrier, additionally requiring
// the mDNS browser (if any) to have finished its initial scan.
func (m *Manager) waitReady() bool {
	deadline := time.Now().Add(m.readyWait)
	extra := func() bool {
		return m.browser == nil || !m.browser.InitScanInProgress()
	}
	return m.registry.WaitReady(m.ctx, deadline, extra)
}

// Loop exposes the manager's event loop, for tests that need to observe
// event-loop-ordered side effects.
func (m *Manager) Loop() *eloop.Loop { return m.loop }
