package device

import (
	"github.com/escl-core/netscan/pkg/decoder"
	"github.com/escl-core/netscan/pkg/log"
	"github.com/escl-core/netscan/pkg/registry"
	"github.com/escl-core/netscan/pkg/status"
)

// readNextLocked pulls the next image blob off the queue and prepares the
// decoder and line buffer for it, computing the clip window that maps the
// decoded frame onto the promised geometry (spec.md §4.7 device_read_next).
// The caller must hold d.mu.
func (d *Device) readNextLocked() status.Code {
	if len(d.queue) == 0 {
		return status.EOF
	}
	blob := d.queue[0]
	d.queue = d.queue[1:]

	if err := d.decoder.Begin(blob.data); err != nil {
		d.logReadError(err, "decode begin")
		return status.IOError
	}

	params, err := d.decoder.Params()
	if err != nil {
		d.logReadError(err, "decode params")
		return status.IOError
	}
	bpp, err := d.decoder.BytesPerPixel()
	if err != nil {
		d.logReadError(err, "decode params")
		return status.IOError
	}

	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerReader,
		Category:   log.CategoryTrace,
		Trace: &log.TraceEvent{
			Subject: "image-params",
			Fields: []log.TraceField{
				{Key: "content_type", Value: d.decoder.ContentType()},
				{Key: "format", Value: params.Format},
				{Key: "lines", Value: itoa(params.Lines)},
				{Key: "pixels_per_line", Value: itoa(params.PixelsPerLine)},
			},
		},
	})

	if params.Format != d.params.Format {
		d.logReadError(nil, "decoded format "+params.Format+" does not match promised "+d.params.Format)
		return status.IOError
	}

	var lineCapacity int32
	if d.skipX >= params.PixelsPerLine || d.skipY >= params.Lines {
		// The skip residual swallows the whole frame; every promised line
		// comes out blank.
		d.skipLines = params.Lines
		d.readSkipBytes = 0
		lineCapacity = d.params.BytesPerLine
	} else {
		win := decoder.Window{
			XOff: d.skipX,
			YOff: d.skipY,
			Wid:  params.PixelsPerLine - d.skipX,
			Hei:  params.Lines - d.skipY,
		}
		if err := d.decoder.SetWindow(&win); err != nil {
			d.logReadError(err, "decode window")
			return status.IOError
		}

		// The decoder may have snapped the window origin to a coarser
		// boundary; compensate with a byte skip on X and whole-line skips
		// on Y.
		d.readSkipBytes = 0
		if win.XOff != d.skipX {
			d.readSkipBytes = (d.skipX - win.XOff) * int32(bpp)
		}
		d.skipLines = 0
		if win.YOff != d.skipY {
			d.skipLines = d.skipY - win.YOff
		}
		lineCapacity = d.params.BytesPerLine
		if decoded := win.Wid * int32(bpp); decoded > lineCapacity {
			lineCapacity = decoded
		}
	}

	d.lineBuf = make([]byte, lineCapacity)
	for i := range d.lineBuf {
		d.lineBuf[i] = 0xFF
	}
	d.lineCap = lineCapacity
	d.bytesPerPixel = int32(bpp)
	d.lineNum = 0
	d.lineOff = d.params.BytesPerLine // no bytes available yet
	d.lineEnd = d.params.Lines - d.skipLines
	d.curImage = true

	if d.pollable != nil {
		d.pollable.Signal()
	}
	return status.Good
}

// readDecodeLineLocked refills the line buffer with the next promised line:
// a blank 0xFF line inside the skip regions, a decoded line otherwise
// (spec.md §4.7 device_read_decode_line). The caller must hold d.mu.
func (d *Device) readDecodeLineLocked() status.Code {
	if d.lineNum == d.params.Lines {
		return status.EOF
	}

	if d.lineNum < d.skipLines || d.lineNum >= d.lineEnd {
		for i := int32(0); i < d.params.BytesPerLine; i++ {
			d.lineBuf[i] = 0xFF
		}
	} else {
		if err := d.decoder.ReadLine(d.lineBuf); err != nil {
			d.logReadError(err, "decode line")
			return status.IOError
		}
	}

	d.lineOff = d.readSkipBytes
	d.lineNum++
	return status.Good
}

// Read is the frontend read entry point (sane_read). It fills data with up
// to len(data) bytes of the current page, blocking for state-machine
// progress unless non-blocking mode is selected, and guarantees exactly
// BytesPerLine × Lines bytes per page across calls.
func (d *Device) Read(data []byte) (int, error) {
	d.mu.Lock()

	if !d.hasFlags(registry.Reading) {
		d.mu.Unlock()
		return 0, status.New(status.Inval)
	}

	if !d.curImage {
		for d.state().Working() && len(d.queue) == 0 {
			if d.nonBlocking {
				d.mu.Unlock()
				return 0, nil
			}
			d.cond.Wait()
		}

		if d.jobStatusSet && d.jobStatus == status.Cancelled {
			return d.finishReadLocked(0, status.Cancelled)
		}

		if len(d.queue) == 0 {
			// The machine left the working band with nothing queued; the
			// job status must carry the reason.
			code := d.jobStatus
			if code == status.Good {
				code = status.IOError
			}
			return d.finishReadLocked(0, code)
		}

		if code := d.readNextLocked(); code != status.Good {
			d.setJobStatus(status.IOError)
			return d.finishReadLocked(0, code)
		}
	}

	n := 0
	code := status.Good
	for n < len(data) {
		if d.lineOff == d.params.BytesPerLine {
			code = d.readDecodeLineLocked()
			if code != status.Good {
				break
			}
			continue
		}
		sz := int(d.params.BytesPerLine - d.lineOff)
		if sz > len(data)-n {
			sz = len(data) - n
		}
		copy(data[n:n+sz], d.lineBuf[d.lineOff:d.lineOff+int32(sz)])
		n += sz
		d.lineOff += int32(sz)
	}

	if code == status.IOError {
		d.setJobStatus(status.IOError)
		d.mu.Unlock()
		d.cancelReq()
		d.mu.Lock()
	}

	// An EOF that coincides with delivered bytes is reported as GOOD so the
	// next call observes EOF cleanly.
	if code == status.EOF && n > 0 {
		code = status.Good
	}

	if code != status.Good {
		return d.finishReadLocked(n, code)
	}

	d.mu.Unlock()
	return n, nil
}

// finishReadLocked tears down the read pipeline once a call concludes with a
// non-GOOD status: flags are cleared, the decoder and line buffer released,
// and — if the state machine has reached DONE and the queue is drained — the
// device returns to IDLE, ready for the next start. Called with d.mu held;
// releases it.
func (d *Device) finishReadLocked(n int, code status.Code) (int, error) {
	d.setFlags(0, registry.Scanning|registry.Reading)
	d.decoder.Reset()
	d.lineBuf = nil
	d.curImage = false
	drained := len(d.queue) == 0
	d.mu.Unlock()

	// DONE is terminal for the event loop, so the reader may perform the
	// DONE→IDLE drain transition itself.
	if drained && d.state() == StateDone {
		d.setState(StateIdle)
	}

	return n, status.New(code)
}

// SetIOMode selects blocking or non-blocking reads. Valid only while a scan
// is in progress.
func (d *Device) SetIOMode(nonBlocking bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasFlags(registry.Scanning) {
		return status.New(status.Inval)
	}
	d.nonBlocking = nonBlocking
	return nil
}

// SelectFd returns the pollable readiness file descriptor, integrating the
// reader with a frontend select/poll loop. Valid only while a scan is in
// progress.
func (d *Device) SelectFd() (uintptr, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.hasFlags(registry.Scanning) || d.pollable == nil {
		return 0, status.New(status.Inval)
	}
	return d.pollable.Fd(), nil
}

func (d *Device) logReadError(err error, context string) {
	msg := context
	if err != nil {
		msg = err.Error()
	}
	d.logger.Log(log.Event{
		DeviceName: d.name,
		Layer:      log.LayerReader,
		Category:   log.CategoryError,
		Error:      &log.ErrorEventData{Message: msg, Context: context},
	})
}
