// Package jpeg implements decoder.Decoder over the standard library's
// image/jpeg codec. No third-party JPEG library appears anywhere in the
// example corpus, so this component is stdlib-only (see DESIGN.md).
package jpeg

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/escl-core/netscan/pkg/decoder"
)

// Decoder decodes one eSCL page (image/jpeg) at a time into an
// already-materialized image.Image, then serves ReadLine/SetWindow against
// it. Because the whole frame is decoded up front, SetWindow never needs
// to snap its requested origin to a coarser one: every window this decoder
// is asked for is honoured exactly.
type Decoder struct {
	img  image.Image
	win  decoder.Window
	line int32
	set  bool
}

// New constructs a Decoder ready for Begin.
func New() *Decoder {
	return &Decoder{}
}

// Begin implements decoder.Decoder.
func (d *Decoder) Begin(data []byte) error {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("jpeg: decode: %w", err)
	}
	d.img = img
	b := img.Bounds()
	d.win = decoder.Window{XOff: 0, YOff: 0, Wid: int32(b.Dx()), Hei: int32(b.Dy())}
	d.line = 0
	d.set = true
	return nil
}

// Params implements decoder.Decoder.
func (d *Decoder) Params() (decoder.Params, error) {
	if !d.set {
		return decoder.Params{}, decoder.ErrNotStarted
	}
	b := d.img.Bounds()
	return decoder.Params{
		Format:        d.format(),
		Lines:         int32(b.Dy()),
		PixelsPerLine: int32(b.Dx()),
		Depth:         8,
	}, nil
}

// BytesPerPixel implements decoder.Decoder.
func (d *Decoder) BytesPerPixel() (int, error) {
	if !d.set {
		return 0, decoder.ErrNotStarted
	}
	if d.format() == "gray" {
		return 1, nil
	}
	return 3, nil
}

// format reports "gray" for a single-channel source JPEG (eSCL Grayscale
// color mode, which image/jpeg decodes to *image.Gray) and "RGB"
// otherwise.
func (d *Decoder) format() string {
	if _, ok := d.img.(*image.Gray); ok {
		return "gray"
	}
	return "RGB"
}

// SetWindow implements decoder.Decoder. Since the full frame is already
// materialized, any requested window is honoured exactly with no snapping.
func (d *Decoder) SetWindow(win *decoder.Window) error {
	if !d.set {
		return decoder.ErrNotStarted
	}
	d.win = *win
	d.line = 0
	return nil
}

// ReadLine implements decoder.Decoder.
func (d *Decoder) ReadLine(buf []byte) error {
	if !d.set {
		return decoder.ErrNotStarted
	}
	if d.line >= d.win.Hei {
		return fmt.Errorf("jpeg: read past end of window (%d lines)", d.win.Hei)
	}

	b := d.img.Bounds()
	y := b.Min.Y + int(d.win.YOff) + int(d.line)
	xStart := b.Min.X + int(d.win.XOff)
	gray := d.format() == "gray"

	bpp := 3
	if gray {
		bpp = 1
	}
	need := int(d.win.Wid) * bpp
	if len(buf) < need {
		return fmt.Errorf("jpeg: line buffer too small: have %d, need %d", len(buf), need)
	}

	for i := 0; i < int(d.win.Wid); i++ {
		if gray {
			yy, _, _, _ := d.img.At(xStart+i, y).RGBA()
			buf[i] = byte(yy >> 8)
			continue
		}
		r, g, b8, _ := d.img.At(xStart+i, y).RGBA()
		buf[i*3+0] = byte(r >> 8)
		buf[i*3+1] = byte(g >> 8)
		buf[i*3+2] = byte(b8 >> 8)
	}

	d.line++
	return nil
}

// ContentType implements decoder.Decoder.
func (d *Decoder) ContentType() string { return "image/jpeg" }

// Reset implements decoder.Decoder.
func (d *Decoder) Reset() {
	d.img = nil
	d.win = decoder.Window{}
	d.line = 0
	d.set = false
}
