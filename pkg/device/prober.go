package device

import (
	"strings"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/registry"
)

// normalizeEndpointURI fixes up trailing-slash-sensitive URIs before probing.
// eSCL resource paths are joined with a trailing slash on the base URI.
func normalizeEndpointURI(ep Endpoint) Endpoint {
	if ep.Protocol == "eSCL" && !strings.HasSuffix(ep.URI, "/") {
		ep.URI += "/"
	}
	return ep
}

// probe walks the device's endpoint list, one endpoint per call: select a
// protocol handler for the current endpoint, record its base URI, and fetch
// capabilities. The capabilities callback either publishes the device as
// READY or advances to the next endpoint; exhausting the list evicts the
// device from the registry. Runs only on the event-loop goroutine.
func (d *Device) probe() {
	for d.endpointCursor < len(d.endpoints) {
		ep := d.endpoints[d.endpointCursor]

		if d.protoHandler == nil || d.protoHandler.Name() != ep.Protocol {
			h := d.manager.protocols.New(ep.Protocol)
			if h == nil {
				d.logger.Log(log.Event{
					DeviceName: d.name,
					Layer:      log.LayerDiscovery,
					Category:   log.CategoryError,
					Error: &log.ErrorEventData{
						Message: "unknown protocol " + ep.Protocol,
						Context: "probe",
					},
				})
				d.endpointCursor++
				continue
			}
			d.protoHandler = h
		}

		d.protoCtx.BaseURI = ep.URI
		req := d.protoHandler.CapabilitiesQuery(d.protoCtx)
		d.httpActivity.Submit(d.manager.ctx, req, func(resp *httpactivity.Response, err error) {
			d.manager.loop.Call(func() { d.probeCallback(resp, err) })
		})
		return
	}

	// Every endpoint failed: evict silently. Probing errors never surface
	// to the frontend (spec.md §7).
	d.manager.delDevice(d)
}

// probeCallback handles the capabilities response for the endpoint the
// cursor points at. Runs only on the event-loop goroutine.
func (d *Device) probeCallback(resp *httpactivity.Response, err error) {
	if err == nil {
		caps, derr := d.protoHandler.CapabilitiesDecode(d.protoCtx, resp)
		if derr == nil {
			d.publishReady(caps)
			return
		}
		err = derr
	}

	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerDiscovery,
		Category:   log.CategoryError,
		Error: &log.ErrorEventData{
			Message: err.Error(),
			Context: "probe " + d.protoCtx.BaseURI,
		},
	})

	d.endpointCursor++
	d.probe()
}

// describer is the optional identity surface a protocol handler may expose
// once its capabilities were decoded (the eSCL handler does).
type describer interface {
	Manufacturer() string
	Model() string
}

// publishReady installs the decoded capabilities, applies option defaults,
// marks the device READY, installs the state-machine transport error
// handler, and wakes anyone blocked on the registry readiness barrier.
// Runs only on the event-loop goroutine.
func (d *Device) publishReady(caps *options.Capabilities) {
	d.opts.Caps = caps
	if err := d.opts.SetDefaults(); err != nil {
		d.logger.Log(log.Event{
			DeviceName: d.name,
			Layer:      log.LayerDiscovery,
			Category:   log.CategoryError,
			Error:      &log.ErrorEventData{Message: err.Error(), Context: "probe defaults"},
		})
		d.endpointCursor++
		d.probe()
		return
	}

	d.mu.Lock()
	d.vendor = "AirScan"
	d.model = d.name
	if id, ok := d.protoHandler.(describer); ok {
		if id.Manufacturer() != "" {
			d.vendor = id.Manufacturer()
		}
		if id.Model() != "" && !d.manager.conf.ModelIsNetname {
			d.model = id.Model()
		}
	}
	d.setFlags(registry.Ready, registry.InitWait)
	d.mu.Unlock()

	// Transport errors from here on flow into the state machine; probing
	// errors stayed on the probe path above (spec.md §9 open question 2).
	d.httpActivity.SetOnError(func(err error) {
		d.manager.loop.Call(func() { d.httpOnError(err) })
	})

	d.manager.registry.Broadcast()
}
