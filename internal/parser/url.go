package parser

import (
	"strconv"
)

// Target pairs an input host with one probe
type Target struct {
	Host  string
	Probe Probe
}

// URL materializes the target with ToURL
func (t Target) URL() string {
	return ToURL(t.Host, t.Probe)
}

// ToURL builds the URL for host under probe. The port is left out when it is
// the protocol's default, so "demo.com" with http:80 becomes "http://demo.com"
// and with http:8080 becomes "http://demo.com:8080". The host is used as-is.
func ToURL(host string, probe Probe) string {
	scheme := probe.Protocol.String()
	if probe.IsDefaultPort() {
		return scheme + "://" + host
	}
	return scheme + "://" + host + ":" + strconv.Itoa(int(probe.Port))
}

// Expand returns one target per probe for host, in probe order
func Expand(host string, probes []Probe) []Target {
	targets := make([]Target, 0, len(probes))
	for _, p := range probes {
		targets = append(targets, Target{Host: host, Probe: p})
	}
	return targets
}
