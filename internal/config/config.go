package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"hprobe/internal/parser"
)

// Config holds the CLI configuration
type Config struct {
	InputFile          string
	OutputFile         string
	JSON               bool
	Probes             []string // Raw "proto:port" tokens from -p or the config file
	SuppressDefault    bool
	ResolveIP          bool
	ConfigFile         string
	ProxyAll           string
	ProxyHTTP          string
	ProxyHTTPS         string
	InsecureSkipVerify bool
	FollowRedirects    bool
	MaxRedirects       int
	HTTP3              bool
	Timeout            int // Connect timeout in milliseconds
	ResponseTimeout    int // Response header timeout in milliseconds, 0 disables it
	Concurrency        int
	RateLimit          int // Requests per second across the whole run, 0 disables it
	Debug              bool
	Silent             bool
	DebugLogFile       string
	Version            bool

	// ProbeSet is resolved from Probes and SuppressDefault by Validate
	ProbeSet []parser.Probe

	Logger          *slog.Logger
	DebugLogger     *slog.Logger // Debug file logger (if DebugLogFile is set)
	debugFileHandle *os.File
}

// New creates a new Config with default values
func New() *Config {
	return &Config{
		FollowRedirects: true,
		MaxRedirects:    10,
		Timeout:         1000,
		ResponseTimeout: 10000,
		Concurrency:     20,
		Logger:          slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
}

// ParseFlags parses the process command line into a validated config
func ParseFlags() (*Config, error) {
	return Parse(os.Args[1:])
}

// Parse parses args into a config. A config file given with -cfg fills in
// every flag not set on the command line. The result is validated and its
// probe set resolved before it is returned.
func Parse(args []string) (*Config, error) {
	cfg := New()

	fs := flag.NewFlagSet("hprobe", flag.ContinueOnError)
	formatter := RegisterFlags(fs, cfg)
	fs.SetOutput(io.Discard)
	fs.Usage = func() {}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, err
		}
		return nil, fmt.Errorf("invalid arguments: %w", err)
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}

	if cfg.Version {
		return cfg, nil
	}

	if cfg.ConfigFile != "" {
		file, err := LoadFile(cfg.ConfigFile)
		if err != nil {
			return nil, err
		}
		file.Apply(cfg, formatter.SetFlags(fs))
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := cfg.setupLogging(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the numeric limits and flag combinations and resolves the
// probe set. Every probe token error is reported together.
func (c *Config) Validate() error {
	if c.Concurrency < 1 {
		return fmt.Errorf("-c/--concurrency must be a positive integer: %d", c.Concurrency)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("-t/--timeout must not be negative: %d", c.Timeout)
	}
	if c.ResponseTimeout < 0 {
		return fmt.Errorf("-rt/--response-timeout must not be negative: %d", c.ResponseTimeout)
	}
	if c.RateLimit < 0 {
		return fmt.Errorf("-rl/--rate-limit must not be negative: %d", c.RateLimit)
	}
	if c.MaxRedirects < 0 {
		return fmt.Errorf("-maxr/--max-redirects must not be negative: %d", c.MaxRedirects)
	}
	if c.ProxyAll != "" && (c.ProxyHTTP != "" || c.ProxyHTTPS != "") {
		return fmt.Errorf("--proxy-all is mutually exclusive with --proxy-http and --proxy-https")
	}
	if c.HTTP3 && c.HasProxy() {
		return fmt.Errorf("--http3 cannot be combined with a proxy")
	}

	probes, err := parser.ResolveProbes(c.Probes, !c.SuppressDefault)
	if err != nil {
		return err
	}
	c.ProbeSet = probes
	return nil
}

// HasProxy reports whether any proxy flag is set
func (c *Config) HasProxy() bool {
	return c.ProxyAll != "" || c.ProxyHTTP != "" || c.ProxyHTTPS != ""
}

// ConnectTimeout returns the connect-phase timeout
func (c *Config) ConnectTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Millisecond
}

// ResponseHeaderTimeout returns how long to wait for response headers once
// the request is written
func (c *Config) ResponseHeaderTimeout() time.Duration {
	return time.Duration(c.ResponseTimeout) * time.Millisecond
}

// Usage writes the grouped flag help to w
func Usage(w io.Writer) {
	fs := flag.NewFlagSet("hprobe", flag.ContinueOnError)
	RegisterFlags(fs, New()).PrintUsage(w)
}

// setupLogging creates the stderr logger and the optional debug file logger
func (c *Config) setupLogging() error {
	logLevel := slog.LevelInfo
	if c.Debug {
		logLevel = slog.LevelDebug
	}
	if c.Silent {
		logLevel = slog.LevelError
	}

	c.Logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	if c.DebugLogFile != "" {
		debugFile, err := os.Create(c.DebugLogFile)
		if err != nil {
			return fmt.Errorf("failed to create debug log file: %w", err)
		}
		c.debugFileHandle = debugFile
		c.DebugLogger = slog.New(slog.NewTextHandler(debugFile, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
		c.Logger.Info("debug logging enabled", "file", c.DebugLogFile)
	}

	return nil
}

// Close cleans up the config's resources
func (c *Config) Close() error {
	if c.debugFileHandle != nil {
		return c.debugFileHandle.Close()
	}
	return nil
}
