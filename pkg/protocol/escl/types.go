// Package escl implements the eSCL (AirScan) HTTP+XML protocol as a
// protocol.Handler: ScannerCapabilities, ScanJobs, NextDocument,
// ScannerStatus, and job deletion, following the wire shapes the Mopria
// eSCL specification defines and the original sane-airscan backend
// (airscan-escl.c, referenced in spec.md's design) drives.
package escl

import "encoding/xml"

// capabilitiesDoc is the decoded shape of a GET ScannerCapabilities
// response. Field names follow the eSCL schema's local element names;
// namespace prefixes (scan:, pwg:) are ignored by encoding/xml, which
// matches on local name when no namespace is declared on the struct tag.
type capabilitiesDoc struct {
	XMLName      xml.Name `xml:"ScannerCapabilities"`
	MakeAndModel string   `xml:"MakeAndModel"`
	Manufacturer string   `xml:"Manufacturer"`
	Platen       *platen  `xml:"Platen"`
	Adf          *adf     `xml:"Adf"`
}

type platen struct {
	InputSourceCaps inputSourceCaps `xml:"PlatenInputCaps"`
}

type adf struct {
	InputSourceCaps inputSourceCaps `xml:"AdfSimplexInputCaps"`
}

type inputSourceCaps struct {
	MinWidth            int32                `xml:"MinWidth"`
	MaxWidth             int32                `xml:"MaxWidth"`
	MinHeight            int32                `xml:"MinHeight"`
	MaxHeight            int32                `xml:"MaxHeight"`
	SettingProfiles      []settingProfile     `xml:"SettingProfiles>SettingProfile"`
}

type settingProfile struct {
	ColorModes          []string `xml:"ColorModes>ColorMode"`
	SupportedResolutions []int32 `xml:"SupportedResolutions>DiscreteResolutions>DiscreteResolution>XResolution"`
}

// scanSettings is the POST body for ScanJobs: the requested scan region,
// resolution, source, and color mode.
type scanSettings struct {
	XMLName        xml.Name   `xml:"ScanSettings"`
	Version        string     `xml:"Version"`
	ScanRegion     scanRegion `xml:"ScanRegions>ScanRegion"`
	InputSource    string     `xml:"InputSource"`
	ColorMode      string     `xml:"ColorMode"`
	XResolution    int32      `xml:"XResolution"`
	YResolution    int32      `xml:"YResolution"`
	DocumentFormat string     `xml:"DocumentFormatExt"`
}

type scanRegion struct {
	Height            int32  `xml:"Height"`
	Width             int32  `xml:"Width"`
	XOffset           int32  `xml:"XOffset"`
	YOffset           int32  `xml:"YOffset"`
	ContentRegionUnit string `xml:"ContentRegionUnits"`
}

// statusDoc is the decoded shape of a GET ScannerStatus response.
type statusDoc struct {
	XMLName xml.Name `xml:"ScannerStatus"`
	State   string   `xml:"State"`
	Jobs    []jobInfo `xml:"Jobs>JobInfo"`
}

type jobInfo struct {
	JobURI   string `xml:"JobUri"`
	JobState string `xml:"JobState"`
}
