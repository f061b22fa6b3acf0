package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ProxyFile is the proxy section of a config file
type ProxyFile struct {
	All   string `yaml:"all"`
	HTTP  string `yaml:"http"`
	HTTPS string `yaml:"https"`
}

// FileConfig mirrors the command line flags in a YAML file. Pointer fields
// distinguish "absent" from a zero value.
type FileConfig struct {
	Probes          []string  `yaml:"probes"`
	SuppressDefault *bool     `yaml:"suppress_default"`
	Timeout         *int      `yaml:"timeout"`
	ResponseTimeout *int      `yaml:"response_timeout"`
	Concurrency     *int      `yaml:"concurrency"`
	RateLimit       *int      `yaml:"rate_limit"`
	Insecure        *bool     `yaml:"insecure"`
	FollowRedirects *bool     `yaml:"follow_redirects"`
	MaxRedirects    *int      `yaml:"max_redirects"`
	HTTP3           *bool     `yaml:"http3"`
	ResolveIP       *bool     `yaml:"resolve_ip"`
	Proxy           ProxyFile `yaml:"proxy"`
}

// LoadFile reads a YAML config file, expanding ${VAR} environment references
// first. Unknown keys are rejected.
func LoadFile(path string) (*FileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	data = []byte(os.ExpandEnv(string(data)))

	var fc FileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return &fc, nil
}

// Apply copies every value present in the file into cfg, skipping the flags
// in set, which were given on the command line.
func (f *FileConfig) Apply(cfg *Config, set map[string]bool) {
	if len(f.Probes) > 0 && !set["probe"] {
		cfg.Probes = append([]string(nil), f.Probes...)
	}
	applyBool(&cfg.SuppressDefault, f.SuppressDefault, set["suppress_default"])
	applyInt(&cfg.Timeout, f.Timeout, set["timeout"])
	applyInt(&cfg.ResponseTimeout, f.ResponseTimeout, set["response-timeout"])
	applyInt(&cfg.Concurrency, f.Concurrency, set["concurrency"])
	applyInt(&cfg.RateLimit, f.RateLimit, set["rate-limit"])
	applyBool(&cfg.InsecureSkipVerify, f.Insecure, set["insecure"])
	applyBool(&cfg.FollowRedirects, f.FollowRedirects, set["follow-redirects"])
	applyInt(&cfg.MaxRedirects, f.MaxRedirects, set["max-redirects"])
	applyBool(&cfg.HTTP3, f.HTTP3, set["http3"])
	applyBool(&cfg.ResolveIP, f.ResolveIP, set["resolve-ip"])

	// Proxies given on the command line replace the whole proxy section so
	// file and flag values never mix into an invalid combination.
	if !set["proxy-all"] && !set["proxy-http"] && !set["proxy-https"] {
		cfg.ProxyAll = f.Proxy.All
		cfg.ProxyHTTP = f.Proxy.HTTP
		cfg.ProxyHTTPS = f.Proxy.HTTPS
	}
}

func applyBool(dst *bool, v *bool, setOnCLI bool) {
	if v != nil && !setOnCLI {
		*dst = *v
	}
}

func applyInt(dst *int, v *int, setOnCLI bool) {
	if v != nil && !setOnCLI {
		*dst = *v
	}
}
