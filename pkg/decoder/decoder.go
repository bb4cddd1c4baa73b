// Package decoder defines the image decoder contract the streaming reader
// (pkg/device) drives: begin decoding a blob, read its promised
// parameters, optionally clip to a window, and pull it out line by line.
// pkg/decoder/jpeg provides the concrete implementation used for eSCL's
// image/jpeg pages.
package decoder

import "errors"

// ErrNotStarted is returned by calls made before Begin, or after Reset.
var ErrNotStarted = errors.New("decoder: no image in progress")

// Window requests that the decoder limit its output to a sub-rectangle of
// the full decoded image, in decoded-pixel coordinates. A decoder that
// cannot address the exact requested origin may snap Off fields to a
// coarser value it can honour; the caller (pkg/device's streaming reader)
// compensates for any such snap via byte/line skipping.
type Window struct {
	XOff, YOff int32
	Wid, Hei   int32
}

// Params mirrors the geometry and pixel format of a decoded image.
type Params struct {
	Format        string
	Lines         int32
	PixelsPerLine int32
	Depth         int32
}

// Decoder decodes one image blob at a time. Begin/Reset bracket a single
// image's lifetime; ReadLine yields at most Params().Lines rows (or the
// window's height once SetWindow is applied), and a caller may stop early
// and Reset without reading the rest.
type Decoder interface {
	// Begin starts decoding a new image blob.
	Begin(data []byte) error

	// Params returns the full (pre-windowing) image parameters. Valid only
	// between Begin and Reset.
	Params() (Params, error)

	// BytesPerPixel returns the pixel stride implied by the decoded frame
	// format.
	BytesPerPixel() (int, error)

	// SetWindow restricts decoding to win. The decoder may adjust win's
	// XOff/YOff downward to the nearest origin it supports; callers must
	// re-read win after the call to detect any such adjustment.
	SetWindow(win *Window) error

	// ReadLine decodes one more row of the (possibly windowed) image into
	// buf, which must be at least BytesPerPixel()*window-width bytes.
	ReadLine(buf []byte) error

	// ContentType names the decoded format, for logging.
	ContentType() string

	// Reset discards any in-progress image, returning the decoder to its
	// pre-Begin state.
	Reset()
}
