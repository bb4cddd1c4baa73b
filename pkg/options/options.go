// Package options implements the device option/capability model (devopt):
// the scanner's advertised capabilities, the frontend-settable scan
// options, and the derived SANE-style image parameters they produce. The ID
// ranges and Access bitmask follow the attribute convention used elsewhere
// in this codebase for capability/value blocks.
package options

import (
	"fmt"
	"sort"

	"github.com/escl-core/netscan/pkg/geometry"
)

// Option identifies a settable scan option.
type Option int

const (
	// OptResolution is the scan resolution, in DPI.
	OptResolution Option = iota + 1
	// OptTLX is the top-left X coordinate of the scan window, in fixed-point mm.
	OptTLX
	// OptTLY is the top-left Y coordinate of the scan window, in fixed-point mm.
	OptTLY
	// OptBRX is the bottom-right X coordinate of the scan window, in fixed-point mm.
	OptBRX
	// OptBRY is the bottom-right Y coordinate of the scan window, in fixed-point mm.
	OptBRY
	// OptSource selects the scan source (e.g. "Flatbed", "ADF").
	OptSource
	// OptColorMode selects the colour mode (e.g. "Color", "Gray").
	OptColorMode
)

// Access flags mirror read/write permission on an option.
type Access uint8

const (
	AccessRead Access = 1 << iota
	AccessWrite
	AccessReadWrite = AccessRead | AccessWrite
)

// SourceCaps describes one scan source's geometry and resolution limits, as
// reported by ScannerCapabilities.
type SourceCaps struct {
	MinWidthPx   int32
	MaxWidthPx   int32
	MinHeightPx  int32
	MaxHeightPx  int32
	Resolutions  []int32
	ColorModes   []string
}

// Capabilities is the decoded capability block for one device.
type Capabilities struct {
	// Units is the protocol's native reference resolution (DPI) that
	// window offsets/lengths in SourceCaps are expressed at.
	Units int32
	// Sources maps source name (as used in OptSource) to its capabilities.
	Sources map[string]*SourceCaps
}

// Descriptor describes one option for a frontend's options dialog.
type Descriptor struct {
	Option Option
	Name   string
	Access Access
}

// Parameters mirrors a SANE_Parameters block: the image geometry promised to
// the frontend before a scan starts.
type Parameters struct {
	Format        string
	Lines         int32
	BytesPerLine  int32
	PixelsPerLine int32
	Depth         int32
}

// Options owns the current capability block, option values, and computed
// Parameters for one device.
type Options struct {
	Caps *Capabilities

	Resolution int32
	TLX, TLY   geometry.FixedMM
	BRX, BRY   geometry.FixedMM
	Source     string
	ColorMode  string
}

// SourceNames returns the device's source names in a stable sorted order.
func (o *Options) SourceNames() []string {
	names := make([]string, 0, len(o.Caps.Sources))
	for name := range o.Caps.Sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// SetDefaults populates Options with the device's first source/resolution
// and a full-page default window, following devopt_set_defaults in the
// original implementation.
func (o *Options) SetDefaults() error {
	names := o.SourceNames()
	if len(names) == 0 {
		return fmt.Errorf("options: capabilities report no sources")
	}
	o.Source = names[0]
	src := o.Caps.Sources[o.Source]

	if len(src.Resolutions) == 0 {
		return fmt.Errorf("options: source %q reports no resolutions", o.Source)
	}
	o.Resolution = src.Resolutions[0]

	if len(src.ColorModes) > 0 {
		o.ColorMode = src.ColorModes[0]
	}

	o.TLX, o.TLY = 0, 0
	o.BRX = geometry.FixedMM(int64(src.MaxWidthPx) * 65536 * 254 / int64(o.Caps.Units) / 10)
	o.BRY = geometry.FixedMM(int64(src.MaxHeightPx) * 65536 * 254 / int64(o.Caps.Units) / 10)
	return nil
}

// GetOption reads the current value of opt.
func (o *Options) GetOption(opt Option) (any, error) {
	switch opt {
	case OptResolution:
		return o.Resolution, nil
	case OptTLX:
		return o.TLX, nil
	case OptTLY:
		return o.TLY, nil
	case OptBRX:
		return o.BRX, nil
	case OptBRY:
		return o.BRY, nil
	case OptSource:
		return o.Source, nil
	case OptColorMode:
		return o.ColorMode, nil
	default:
		return nil, fmt.Errorf("options: unknown option %d", opt)
	}
}

// SetOption writes a new value for opt, validating against capabilities
// where applicable. Callers (the frontend facade) are responsible for
// rejecting SetOption while a scan is in progress.
func (o *Options) SetOption(opt Option, value any) error {
	switch opt {
	case OptResolution:
		v, ok := value.(int32)
		if !ok {
			return fmt.Errorf("options: resolution must be int32")
		}
		o.Resolution = v
	case OptTLX:
		v, ok := value.(geometry.FixedMM)
		if !ok {
			return fmt.Errorf("options: tl_x must be FixedMM")
		}
		o.TLX = v
	case OptTLY:
		v, ok := value.(geometry.FixedMM)
		if !ok {
			return fmt.Errorf("options: tl_y must be FixedMM")
		}
		o.TLY = v
	case OptBRX:
		v, ok := value.(geometry.FixedMM)
		if !ok {
			return fmt.Errorf("options: br_x must be FixedMM")
		}
		o.BRX = v
	case OptBRY:
		v, ok := value.(geometry.FixedMM)
		if !ok {
			return fmt.Errorf("options: br_y must be FixedMM")
		}
		o.BRY = v
	case OptSource:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("options: source must be string")
		}
		if _, ok := o.Caps.Sources[v]; !ok {
			return fmt.Errorf("options: unknown source %q", v)
		}
		o.Source = v
	case OptColorMode:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("options: colormode must be string")
		}
		o.ColorMode = v
	default:
		return fmt.Errorf("options: unknown option %d", opt)
	}
	return nil
}

// GetOptionDescriptor returns the descriptor for opt.
func (o *Options) GetOptionDescriptor(opt Option) (Descriptor, error) {
	switch opt {
	case OptResolution:
		return Descriptor{Option: opt, Name: "resolution", Access: AccessReadWrite}, nil
	case OptTLX:
		return Descriptor{Option: opt, Name: "tl-x", Access: AccessReadWrite}, nil
	case OptTLY:
		return Descriptor{Option: opt, Name: "tl-y", Access: AccessReadWrite}, nil
	case OptBRX:
		return Descriptor{Option: opt, Name: "br-x", Access: AccessReadWrite}, nil
	case OptBRY:
		return Descriptor{Option: opt, Name: "br-y", Access: AccessReadWrite}, nil
	case OptSource:
		return Descriptor{Option: opt, Name: "source", Access: AccessReadWrite}, nil
	case OptColorMode:
		return Descriptor{Option: opt, Name: "mode", Access: AccessReadWrite}, nil
	default:
		return Descriptor{}, fmt.Errorf("options: unknown option %d", opt)
	}
}

// GetParameters computes the Parameters the current options promise: the
// frontend's window converted to pixels at the current resolution. The
// promise deliberately ignores the device's min/max window clamping — the
// scanner may be asked for more area than this (see pkg/geometry), and the
// streaming reader clips the excess so the frontend receives exactly these
// dimensions.
func (o *Options) GetParameters() (Parameters, error) {
	if _, ok := o.Caps.Sources[o.Source]; !ok {
		return Parameters{}, fmt.Errorf("options: unknown source %q", o.Source)
	}

	wid := geometry.MMToPixels(o.BRX-o.TLX, o.Resolution)
	hei := geometry.MMToPixels(o.BRY-o.TLY, o.Resolution)

	bytesPerPixel := int32(1)
	format := "gray"
	if o.ColorMode == "" || o.ColorMode == "Color" || o.ColorMode == "RGB24" {
		bytesPerPixel = 3
		format = "RGB"
	}

	return Parameters{
		Format:        format,
		Lines:         hei,
		PixelsPerLine: wid,
		BytesPerLine:  wid * bytesPerPixel,
		Depth:         8,
	}, nil
}
