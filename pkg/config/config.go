// Package config loads the scanner backend's configuration: the static
// device table for scanners that mDNS cannot find, and presentation knobs
// for the frontend device listing.
package config

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
)

// StaticDevice is one statically configured scanner: discovery is skipped
// and the device is added directly with this single endpoint.
type StaticDevice struct {
	Name     string `yaml:"name"`
	URI      string `yaml:"uri"`
	Protocol string `yaml:"protocol"`
}

// Config is the process-wide configuration.
type Config struct {
	// Devices lists statically configured scanners, imported at startup.
	Devices []StaticDevice `yaml:"devices"`

	// ModelIsNetname selects the network name instead of the scanner's
	// advertised make-and-model as the model string in device listings.
	ModelIsNetname bool `yaml:"model-is-netname"`

	// LogFile, when set, enables the CBOR activity log at this path.
	LogFile string `yaml:"log-file"`

	// InsecureTLS disables certificate verification for https:// scanner
	// endpoints. Most _uscans._tcp scanners present self-signed
	// certificates, so deployments commonly need this.
	InsecureTLS bool `yaml:"insecure-tls"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{}
}

// Load reads and parses the YAML configuration at path. A missing file is
// not an error; it yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if d.Name == "" || d.URI == "" {
			return nil, fmt.Errorf("config: device %d: name and uri are required", i)
		}
		if d.Protocol == "" {
			d.Protocol = "eSCL"
		}
	}

	return cfg, nil
}
