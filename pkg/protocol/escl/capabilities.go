package escl

import (
	"encoding/xml"
	"fmt"
	"net/http"

	"github.com/escl-core/netscan/pkg/httpactivity"
	"github.com/escl-core/netscan/pkg/options"
	"github.com/escl-core/netscan/pkg/protocol"
)

// nativeUnits is the reference resolution, in DPI, that eSCL window
// dimensions (MinWidth/MaxWidth/...) are expressed at.
const nativeUnits = 300

// CapabilitiesQuery implements protocol.Handler.
func (h *Handler) CapabilitiesQuery(ctx *protocol.Context) httpactivity.Request {
	return httpactivity.Request{
		Method: http.MethodGet,
		URL:    joinURL(ctx.BaseURI, "ScannerCapabilities"),
	}
}

// CapabilitiesDecode implements protocol.Handler.
func (h *Handler) CapabilitiesDecode(ctx *protocol.Context, resp *httpactivity.Response) (*options.Capabilities, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("escl: ScannerCapabilities: HTTP %d", resp.StatusCode)
	}

	var doc capabilitiesDoc
	if err := xml.Unmarshal(resp.Body, &doc); err != nil {
		return nil, fmt.Errorf("escl: ScannerCapabilities: %w", err)
	}

	caps := &options.Capabilities{
		Units:   nativeUnits,
		Sources: make(map[string]*options.SourceCaps),
	}

	if doc.Platen != nil {
		src, err := sourceCapsFrom(doc.Platen.InputSourceCaps)
		if err != nil {
			return nil, fmt.Errorf("escl: Platen: %w", err)
		}
		caps.Sources["Flatbed"] = src
	}
	if doc.Adf != nil {
		src, err := sourceCapsFrom(doc.Adf.InputSourceCaps)
		if err != nil {
			return nil, fmt.Errorf("escl: Adf: %w", err)
		}
		caps.Sources["ADF"] = src
	}

	if len(caps.Sources) == 0 {
		return nil, fmt.Errorf("escl: ScannerCapabilities: no input sources advertised")
	}

	h.manufacturer = doc.Manufacturer
	h.model = doc.MakeAndModel

	return caps, nil
}

func sourceCapsFrom(in inputSourceCaps) (*options.SourceCaps, error) {
	if in.MaxWidth == 0 || in.MaxHeight == 0 {
		return nil, fmt.Errorf("missing window geometry")
	}

	src := &options.SourceCaps{
		MinWidthPx:  in.MinWidth,
		MaxWidthPx:  in.MaxWidth,
		MinHeightPx: in.MinHeight,
		MaxHeightPx: in.MaxHeight,
	}

	seenRes := make(map[int32]bool)
	seenMode := make(map[string]bool)
	for _, profile := range in.SettingProfiles {
		for _, res := range profile.SupportedResolutions {
			if !seenRes[res] {
				seenRes[res] = true
				src.Resolutions = append(src.Resolutions, res)
			}
		}
		for _, mode := range profile.ColorModes {
			if !seenMode[mode] {
				seenMode[mode] = true
				src.ColorModes = append(src.ColorModes, mode)
			}
		}
	}

	if len(src.Resolutions) == 0 {
		src.Resolutions = []int32{nativeUnits}
	}
	if len(src.ColorModes) == 0 {
		src.ColorModes = []string{"RGB24"}
	}

	return src, nil
}

// Manufacturer returns the vendor string decoded from capabilities, for the
// frontend device listing.
func (h *Handler) Manufacturer() string { return h.manufacturer }

// Model returns the make-and-model string decoded from capabilities.
func (h *Handler) Model() string { return h.model }
