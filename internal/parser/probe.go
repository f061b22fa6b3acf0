package parser

import (
	"fmt"
	"strconv"
	"strings"
)

// Protocol is the scheme a probe is issued with
type Protocol int

const (
	HTTP Protocol = iota
	HTTPS
)

// String returns the URL scheme for the protocol
func (p Protocol) String() string {
	switch p {
	case HTTP:
		return "http"
	case HTTPS:
		return "https"
	default:
		return fmt.Sprintf("protocol(%d)", int(p))
	}
}

// Probe is a protocol/port pair applied to every input host
type Probe struct {
	Protocol Protocol
	Port     uint16
}

// HTTPProbe returns a plain HTTP probe for port
func HTTPProbe(port uint16) Probe {
	return Probe{Protocol: HTTP, Port: port}
}

// HTTPSProbe returns an HTTPS probe for port
func HTTPSProbe(port uint16) Probe {
	return Probe{Protocol: HTTPS, Port: port}
}

// IsDefaultPort reports whether port is the conventional port for protocol
// (80 for HTTP, 443 for HTTPS).
func IsDefaultPort(protocol Protocol, port uint16) bool {
	switch protocol {
	case HTTP:
		return port == 80
	case HTTPS:
		return port == 443
	default:
		return false
	}
}

// IsDefaultPort reports whether the probe uses its protocol's default port
func (p Probe) IsDefaultPort() bool {
	return IsDefaultPort(p.Protocol, p.Port)
}

// String renders the probe in the same "proto:port" form ParseProbe accepts
func (p Probe) String() string {
	return fmt.Sprintf("%s:%d", p.Protocol, p.Port)
}

// DefaultProbes returns the built-in probe set: http:80 followed by https:443.
// A new slice is returned on every call.
func DefaultProbes() []Probe {
	return []Probe{HTTPProbe(80), HTTPSProbe(443)}
}

// ParseProbe parses a single "<http|https>:<port>" token.
// The protocol keyword is case-sensitive and the port must be a plain
// decimal number between 0 and 65535.
func ParseProbe(token string) (Probe, error) {
	parts := strings.Split(token, ":")
	if len(parts) != 2 || !isDecimal(parts[1]) {
		return Probe{}, probeError(token)
	}

	port, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return Probe{}, probeError(token)
	}

	switch parts[0] {
	case "http":
		return HTTPProbe(uint16(port)), nil
	case "https":
		return HTTPSProbe(uint16(port)), nil
	default:
		return Probe{}, probeError(token)
	}
}

// ParseProbes parses every token independently. Valid probes and error
// messages are both returned in input order; one bad token never stops the
// others from being parsed.
func ParseProbes(tokens []string) ([]Probe, []string) {
	probes := []Probe{}
	errs := []string{}
	for _, token := range tokens {
		p, err := ParseProbe(token)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		probes = append(probes, p)
	}
	return probes, errs
}

// ProbeErrors collects every probe token that failed to parse
type ProbeErrors struct {
	Messages []string
}

func (e *ProbeErrors) Error() string {
	return fmt.Sprintf("invalid probe arguments: %s", strings.Join(e.Messages, "; "))
}

// ResolveProbes builds the probe set for a run. Parsed tokens come first,
// then the defaults when includeDefaults is set. If any token is invalid no
// probes are returned and the error is a *ProbeErrors listing all of them.
func ResolveProbes(tokens []string, includeDefaults bool) ([]Probe, error) {
	probes, errs := ParseProbes(tokens)
	if len(errs) > 0 {
		return nil, &ProbeErrors{Messages: errs}
	}

	if includeDefaults {
		probes = append(probes, DefaultProbes()...)
	}
	return probes, nil
}

func probeError(token string) error {
	return fmt.Errorf("Error parsing probe: %s", token)
}

// isDecimal reports whether s is a non-empty run of ASCII digits.
// strconv accepts a leading sign, which a port never has.
func isDecimal(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
