package device

import (
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/pollable"
	"github.com/escl-core/netscan/pkg/registry"
	"github.com/escl-core/netscan/pkg/status"
)

// Open waits for the device table to settle, then opens the named device
// (or the first READY device, sorted by name, when name is empty). The
// device must be CLOSED; opening an already-open device fails with
// DEVICE_BUSY.
func (m *Manager) Open(name string) (*Device, error) {
	m.waitReady()

	var d *Device
	if name == "" {
		infos := m.List()
		if len(infos) == 0 {
			return nil, status.New(status.Inval)
		}
		name = infos[0].Name
	}
	member, ok := m.registry.Find(name)
	if !ok {
		return nil, status.New(status.Inval)
	}
	d = member.(*Device)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasFlags(registry.Ready) {
		return nil, status.New(status.Inval)
	}
	if d.state() != StateClosed {
		return nil, status.New(status.DeviceBusy)
	}

	p, err := pollable.New()
	if err != nil {
		return nil, status.Wrap(status.NoMem, err)
	}
	d.pollable = p

	d.stmState.Store(int32(StateIdle))
	d.cond.Broadcast()
	d.ref()
	return d, nil
}

// Close cancels any job still in progress (waiting for it to wind down),
// releases the read pipeline, and returns the device to CLOSED.
func (d *Device) Close() {
	if d.state() == StateClosed {
		return
	}

	d.cancelReq()

	d.mu.Lock()
	for d.state().Working() {
		d.cond.Wait()
	}

	d.setFlags(0, registry.Scanning|registry.Reading)
	d.decoder.Reset()
	d.lineBuf = nil
	d.curImage = false
	d.queue = nil
	if d.pollable != nil {
		d.pollable.Close()
		d.pollable = nil
	}
	d.stmState.Store(int32(StateClosed))
	d.cond.Broadcast()
	d.mu.Unlock()

	d.unref()
}

// Start begins a scan job. If a previous job is still winding down but has
// undelivered pages queued, the new "job" consumes those pages instead of
// contacting the scanner again (ADF multi-page reads). Otherwise the job
// fields are reset and SCAN is scheduled on the event loop; Start returns
// once the state machine has left IDLE, with the READING flag set.
func (d *Device) Start() error {
	d.mu.Lock()

	if d.hasFlags(registry.Scanning) || d.state() == StateClosed {
		d.mu.Unlock()
		return status.New(status.Inval)
	}

	params, err := d.opts.GetParameters()
	if err != nil || params.Lines <= 0 || params.PixelsPerLine <= 0 {
		d.mu.Unlock()
		return status.New(status.Inval)
	}
	d.params = params

	d.setFlags(registry.Scanning, 0)
	d.pollable.Reset()
	d.nonBlocking = false

	// A previous job may still be winding down; synchronize with it.
	for d.state().Working() && len(d.queue) == 0 {
		d.cond.Wait()
	}

	// More buffered pages: the new job just decodes the next one.
	if len(d.queue) > 0 {
		d.setFlags(registry.Reading, 0)
		d.mu.Unlock()
		return nil
	}

	d.resetJobLocked()
	d.mu.Unlock()

	// The event loop only writes stmState during a working job, so setting
	// IDLE here (from DONE or IDLE) cannot race with it.
	d.stmState.Store(int32(StateIdle))
	d.manager.loop.Call(d.stmStartScan)

	d.mu.Lock()
	for d.state() == StateIdle {
		d.cond.Wait()
	}
	d.setFlags(registry.Reading, 0)
	d.mu.Unlock()
	return nil
}

// Cancel requests cooperative cancellation of the job in progress. It never
// blocks and is idempotent; cancellation is observed on a subsequent Read.
func (d *Device) Cancel() {
	d.cancelReq()
}

// GetOption reads the current value of opt.
func (d *Device) GetOption(opt options.Option) (any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.GetOption(opt)
}

// SetOption writes a new value for opt. Rejected while a scan is in
// progress.
func (d *Device) SetOption(opt options.Option, value any) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasFlags(registry.Scanning) {
		return status.New(status.Inval)
	}
	return d.opts.SetOption(opt, value)
}

// GetOptionDescriptor returns the descriptor for opt.
func (d *Device) GetOptionDescriptor(opt options.Option) (options.Descriptor, error) {
	return d.opts.GetOptionDescriptor(opt)
}

// GetParameters returns the image geometry the next (or current) scan
// promises. During a job it reports the captured promise rather than
// recomputing from options.
func (d *Device) GetParameters() (options.Parameters, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.hasFlags(registry.Scanning) {
		return d.params, nil
	}
	return d.opts.GetParameters()
}
