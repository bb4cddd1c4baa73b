package device

import (
	"context"
	"strconv"

	"github.com/escl-core/netscan/pkg/eloop"
	"github.com/escl-core/netscan/pkg/geometry"
	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/protocol"
	"github.com/escl-core/netscan/pkg/status"
)

// setJobStatus applies the first-error-wins policy from spec.md §4.9. The
// caller must hold d.mu.
func (d *Device) setJobStatus(code status.Code) {
	switch code {
	case status.Good:
		return
	case status.Cancelled:
		// A stored error outranks the cancel that follows it: the error is
		// what the frontend must see, the cancel is just teardown.
		if d.jobStatusSet && d.jobStatus != status.Good && d.jobStatus != status.Cancelled {
			return
		}
		if d.jobStatus != status.Cancelled {
			d.purgeQueueLocked()
		}
		d.jobStatus = status.Cancelled
		d.jobStatusSet = true
	default:
		if d.imagesReceived > 0 {
			return
		}
		if d.jobStatusSet && d.jobStatus != status.Good {
			return
		}
		d.jobStatus = code
		d.jobStatusSet = true
	}
}

// purgeQueueLocked discards every not-yet-decoded image, since a cancelled
// job's in-flight images are never delivered. The caller must hold d.mu.
func (d *Device) purgeQueueLocked() {
	d.queue = nil
}

// resetJobLocked reinitialises job fields for a fresh start, per
// spec.md §4.8 start's "otherwise" branch. The caller must hold d.mu.
func (d *Device) resetJobLocked() {
	d.jobStatus = status.Good
	d.jobStatusSet = false
	d.protoCtx.Location = ""
	d.protoCtx.FailedAttempt = 0
	d.imagesReceived = 0
	d.queue = nil
}

// stmStartScan computes the scan geometry, populates the protocol scan
// parameters, and submits PROTO_OP_SCAN. Runs only on the event-loop
// goroutine (called via Manager.loop.Call), per spec.md §4.6.
func (d *Device) stmStartScan() {
	src := d.opts.Caps.Sources[d.opts.Source]

	wx := geometry.Compute(d.opts.TLX, d.opts.BRX, src.MinWidthPx, src.MaxWidthPx, d.opts.Resolution, d.opts.Caps.Units)
	wy := geometry.Compute(d.opts.TLY, d.opts.BRY, src.MinHeightPx, src.MaxHeightPx, d.opts.Resolution, d.opts.Caps.Units)

	d.mu.Lock()
	d.skipX = wx.Skip
	d.skipY = wy.Skip
	d.mu.Unlock()

	d.protoCtx.Params = protocol.ScanParams{
		XOff:      wx.Off,
		YOff:      wy.Off,
		Wid:       wx.Len,
		Hei:       wy.Len,
		XRes:      d.opts.Resolution,
		YRes:      d.opts.Resolution,
		Source:    d.opts.Source,
		ColorMode: d.opts.ColorMode,
	}

	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerJob,
		Category:   log.CategoryTrace,
		Trace: &log.TraceEvent{
			Subject: "scan-params",
			Fields: []log.TraceField{
				{Key: "x_off", Value: itoa(wx.Off)},
				{Key: "y_off", Value: itoa(wy.Off)},
				{Key: "wid", Value: itoa(wx.Len)},
				{Key: "hei", Value: itoa(wy.Len)},
				{Key: "source", Value: d.opts.Source},
				{Key: "color_mode", Value: d.opts.ColorMode},
			},
		},
	})

	d.setState(StateScanning)
	d.submitOp(protocol.OpScan)
}

// submitOp builds the HTTP request for op via the current protocol handler
// and submits it, routing the eventual outcome back onto the event loop as
// an opCallback. Must run on the event-loop goroutine.
func (d *Device) submitOp(op protocol.Op) {
	var req httpactivity.Request
	switch op {
	case protocol.OpScan:
		req = d.protoHandler.ScanQuery(d.protoCtx)
	case protocol.OpLoad:
		req = d.protoHandler.LoadQuery(d.protoCtx)
	case protocol.OpCheck:
		req = d.protoHandler.StatusQuery(d.protoCtx)
	case protocol.OpCancel:
		req = d.protoHandler.CancelQuery(d.protoCtx)
	case protocol.OpCleanup:
		req = d.protoHandler.CleanupQuery(d.protoCtx)
	default:
		return
	}

	d.httpActivity.Submit(context.Background(), req, func(resp *httpactivity.Response, err error) {
		if err != nil {
			// A cancelled or otherwise failed completion outside of the
			// onError path: the op was superseded (e.g. by cancelPerform's
			// own Activity.Cancel), so there is nothing more to do here.
			return
		}
		d.manager.loop.Call(func() { d.opCallback(op, resp) })
	})
}

// decodeOp dispatches op to its decoder on the protocol handler.
func (d *Device) decodeOp(op protocol.Op, resp *httpactivity.Response) protocol.Result {
	switch op {
	case protocol.OpScan:
		return d.protoHandler.ScanDecode(d.protoCtx, resp)
	case protocol.OpLoad:
		return d.protoHandler.LoadDecode(d.protoCtx, resp)
	case protocol.OpCheck:
		return d.protoHandler.StatusDecode(d.protoCtx, resp)
	case protocol.OpCancel, protocol.OpCleanup:
		return protocol.DummyDecode(resp)
	default:
		return protocol.Result{Next: protocol.OpFinish, Status: status.IOError}
	}
}

// opCallback is the universal op-completion callback (device_stm_op_callback
// in the original): decode, persist side effects, apply status, handle
// terminal/cancel/delay cases, and advance. Runs only on the event-loop
// goroutine.
func (d *Device) opCallback(op protocol.Op, resp *httpactivity.Response) {
	result := d.decodeOp(op, resp)

	d.mu.Lock()
	switch {
	case op == protocol.OpScan && result.Data.Location != "":
		d.protoCtx.Location = result.Data.Location
		d.protoCtx.FailedAttempt = 0
	case op == protocol.OpLoad && result.Data.Image != nil:
		d.queue = append(d.queue, imageBlob{data: result.Data.Image})
		d.imagesReceived++
		d.protoCtx.FailedAttempt = 0
	}
	d.setJobStatus(result.Status)
	imagesReceived := d.imagesReceived
	d.mu.Unlock()

	if op == protocol.OpLoad && result.Data.Image != nil {
		d.pollable.Signal()
	}
	d.broadcast()

	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerJob,
		Category:   log.CategoryOp,
		Op: &log.OpEvent{
			Op:             op.String(),
			Status:         result.Status.String(),
			Delay:          result.Delay,
			ImagesReceived: imagesReceived,
		},
	})

	if result.Next == protocol.OpFinish {
		if imagesReceived == 0 {
			d.mu.Lock()
			d.setJobStatus(status.IOError)
			d.mu.Unlock()
			d.broadcast()
		}
		d.setState(StateDone)
		return
	}

	if d.state() == StateCancelWait {
		if !d.cancelPerform() {
			d.setState(StateDone)
		}
		return
	}

	switch result.Next {
	case protocol.OpCancel:
		d.setState(StateCancelling)
	case protocol.OpCleanup:
		d.setState(StateCleanup)
	}

	if result.Delay != 0 {
		d.protoOp = result.Next
		if d.timer != nil {
			d.timer.Cancel()
		}
		d.timer = eloop.NewTimer(d.manager.loop, result.Delay, d.timerCallback)
		return
	}

	d.submitOp(result.Next)
}

// timerCallback resubmits the op parked by a retry/delay result (the delay
// timer callback from spec.md §4.6). Runs on the event-loop goroutine by
// construction (eloop.Timer delivers via Loop.Call).
func (d *Device) timerCallback() {
	d.timer = nil
	// A timer that fired just before cancellation disarmed it must not
	// resubmit over the CANCEL already in flight.
	if s := d.state(); !s.Working() || s == StateCancelling {
		return
	}
	d.submitOp(d.protoOp)
}

// cancelReq is the frontend's cooperative cancel entry point
// (device_stm_cancel_req): CAS SCANNING→CANCEL_REQ, idempotent and
// asynchronous (spec.md invariant 5). On success it posts the cancel event
// to the event loop; on failure (not currently SCANNING) it is a no-op.
func (d *Device) cancelReq() {
	if !d.stmState.CompareAndSwap(int32(StateScanning), int32(StateCancelReq)) {
		return
	}
	d.broadcast()
	d.manager.loop.Call(d.cancelEventCallback)
}

// cancelEventCallback is the cancel event's handler on the event loop: try
// to cancel now; if the scanner hasn't returned a job location yet, mark the
// job cancelled and park in CANCEL_WAIT for a retry at the next op
// completion. The early status store guarantees the reader observes
// CANCELLED even if the job then concludes without a location.
func (d *Device) cancelEventCallback() {
	if !d.cancelPerform() {
		d.mu.Lock()
		d.setJobStatus(status.Cancelled)
		d.mu.Unlock()
		d.setState(StateCancelWait)
	}
}

// cancelPerform requires a known job location (the scanner accepted SCAN).
// If present: cancel the in-flight HTTP activity, transition to CANCELLING,
// submit PROTO_OP_CANCEL, mark the job CANCELLED, and return true. Otherwise
// return false so the caller parks in CANCEL_WAIT. Runs on the event-loop
// goroutine.
func (d *Device) cancelPerform() bool {
	d.mu.Lock()
	hasLocation := d.protoCtx.Location != ""
	d.mu.Unlock()
	if !hasLocation {
		return false
	}

	d.httpActivity.Cancel()
	if d.timer != nil {
		d.timer.Cancel()
		d.timer = nil
	}

	d.setState(StateCancelling)

	d.mu.Lock()
	d.setJobStatus(status.Cancelled)
	d.mu.Unlock()
	d.broadcast()

	d.submitOp(protocol.OpCancel)
	return true
}

// httpOnError is installed on the HTTP activity once probing succeeds
// (spec.md §4.3): log, mark the job IO_ERROR, and attempt cancellation via
// the same path as an explicit cancel; if no cancel is possible, go
// straight to DONE.
func (d *Device) httpOnError(err error) {
	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerHTTP,
		Category:   log.CategoryError,
		Error:      &log.ErrorEventData{Message: err.Error(), Context: "transport"},
	})

	// The transport error is stored unconditionally (it must surface on the
	// read that would have consumed the missing page, even after earlier
	// pages were delivered); only an already-cancelled job outranks it.
	d.mu.Lock()
	if d.jobStatus != status.Cancelled {
		d.jobStatus = status.IOError
		d.jobStatusSet = true
	}
	d.mu.Unlock()
	d.broadcast()

	if !d.cancelPerform() {
		d.setState(StateDone)
	}
}

func itoa(v int32) string {
	return strconv.Itoa(int(v))
}
