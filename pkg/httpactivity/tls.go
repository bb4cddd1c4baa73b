package httpactivity

import (
	"crypto/tls"
	"crypto/x509"
)

// DefaultESCLPort is the conventional port for eSCL-over-HTTPS endpoints
// advertised under _uscans._tcp.
const DefaultESCLPort = 443

// TLSConfig configures the optional HTTPS transport used for an
// https://-scheme scanner endpoint. Most eSCL scanners that advertise
// _uscans._tcp present a self-signed or device-generated certificate with no
// relation to any browser-trusted CA; verification is still the default,
// and skipping it (InsecureSkipVerify) is opt-in.
type TLSConfig struct {
	// RootCAs, when set, is the pool used to verify the scanner's
	// certificate. Leave nil to fall back to the system pool.
	RootCAs *x509.CertPool

	// ServerName overrides the SNI/verification name, for scanners reached
	// by bare IP address.
	ServerName string

	// InsecureSkipVerify disables certificate verification entirely. Many
	// deployments set this because the scanner's cert is self-signed and
	// there is no practical CA to pin.
	InsecureSkipVerify bool
}

// NewClientTLSConfig builds a *tls.Config for dialing an https:// eSCL
// endpoint per cfg. A nil cfg yields the stock verifying configuration.
func NewClientTLSConfig(cfg *TLSConfig) *tls.Config {
	if cfg == nil {
		return &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS12,
		RootCAs:            cfg.RootCAs,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
}
