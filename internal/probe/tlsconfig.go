package probe

import (
	"crypto/tls"
	"fmt"
)

// BuildTLSConfig creates the TLS configuration shared by the TCP and QUIC
// transports. TLS 1.0 is the minimum so legacy-only servers still answer;
// QUIC raises it to 1.3 on its own.
func BuildTLSConfig(insecureSkipVerify bool) *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: insecureSkipVerify,
		MinVersion:         tls.VersionTLS10,
	}
}

// TLSVersionString converts a TLS version to its dotted form
func TLSVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS13:
		return "1.3"
	case tls.VersionTLS12:
		return "1.2"
	case tls.VersionTLS11:
		return "1.1"
	case tls.VersionTLS10:
		return "1.0"
	default:
		return fmt.Sprintf("0x%04x", version)
	}
}
