package probe

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"hprobe/internal/config"
	"hprobe/internal/parser"
)

// newTestProber builds a prober from the default config after applying mutate
func newTestProber(t *testing.T, mutate func(*config.Config)) *Prober {
	t.Helper()
	cfg := config.New()
	if mutate != nil {
		mutate(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	p, err := NewProber(cfg)
	if err != nil {
		t.Fatalf("NewProber() error = %v", err)
	}
	t.Cleanup(func() { p.Close() })
	return p
}

// serverTarget returns the target that addresses server on 127.0.0.1
func serverTarget(t *testing.T, server *httptest.Server, protocol parser.Protocol) parser.Target {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, err := strconv.ParseUint(u.Port(), 10, 16)
	if err != nil {
		t.Fatal(err)
	}
	return parser.Target{Host: u.Hostname(), Probe: parser.Probe{Protocol: protocol, Port: uint16(port)}}
}

// closedAddr returns a loopback address nothing is listening on
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestProbeURL_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "hprobe/") {
			t.Errorf("User-Agent = %q, want hprobe/ prefix", ua)
		}
		w.Write([]byte("hello"))
	}))
	defer server.Close()

	p := newTestProber(t, nil)
	target := serverTarget(t, server, parser.HTTP)

	result := p.ProbeURL(t.Context(), target)
	if result.Failed() {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.URL != server.URL {
		t.Errorf("URL = %q, want %q", result.URL, server.URL)
	}
	if result.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", result.StatusCode)
	}
	if result.Input != "127.0.0.1" || result.Scheme != "http" {
		t.Errorf("Input/Scheme = %q/%q", result.Input, result.Scheme)
	}
	if result.Protocol != "HTTP/1.1" {
		t.Errorf("Protocol = %q, want HTTP/1.1", result.Protocol)
	}
	if result.IP != "" {
		t.Errorf("IP = %q, want empty without -rip", result.IP)
	}
}

func TestProbeURL_ErrorStatusIsAResponse(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusInternalServerError} {
		t.Run(strconv.Itoa(code), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(code)
			}))
			defer server.Close()

			result := newTestProber(t, nil).ProbeURL(t.Context(), serverTarget(t, server, parser.HTTP))
			if result.Failed() {
				t.Fatalf("status %d reported as failure: %s", code, result.Error)
			}
			if result.StatusCode != code {
				t.Errorf("StatusCode = %d, want %d", result.StatusCode, code)
			}
		})
	}
}

func TestProbeURL_ConnectionRefused(t *testing.T) {
	host, portStr, _ := net.SplitHostPort(closedAddr(t))
	port, _ := strconv.ParseUint(portStr, 10, 16)
	target := parser.Target{Host: host, Probe: parser.HTTPProbe(uint16(port))}

	result := newTestProber(t, nil).ProbeURL(t.Context(), target)
	if !result.Failed() {
		t.Fatal("expected failure for closed port")
	}
	if !strings.HasPrefix(result.Error, "Request failed: ") {
		t.Errorf("Error = %q, want Request failed prefix", result.Error)
	}
	if result.StatusCode != 0 {
		t.Errorf("StatusCode = %d, want 0", result.StatusCode)
	}
}

func TestProbeURL_ResponseTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := newTestProber(t, func(cfg *config.Config) { cfg.ResponseTimeout = 50 })

	start := time.Now()
	result := p.ProbeURL(t.Context(), serverTarget(t, server, parser.HTTP))
	if !result.Failed() {
		t.Fatal("expected timeout failure from hung server")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("probe took %v, response timeout not applied", elapsed)
	}
}

func TestProbeURL_ConnectTimeout(t *testing.T) {
	// accepts connections but never answers the TLS ClientHello
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	var mu sync.Mutex
	var conns []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}
	}()
	defer func() {
		mu.Lock()
		defer mu.Unlock()
		for _, c := range conns {
			c.Close()
		}
	}()

	port := uint16(ln.Addr().(*net.TCPAddr).Port)
	target := parser.Target{Host: "127.0.0.1", Probe: parser.HTTPSProbe(port)}
	p := newTestProber(t, func(cfg *config.Config) {
		cfg.Timeout = 50
		cfg.ResponseTimeout = 0
	})

	start := time.Now()
	result := p.ProbeURL(t.Context(), target)
	elapsed := time.Since(start)

	if !result.Failed() {
		t.Fatal("expected handshake timeout failure")
	}
	if elapsed > time.Second {
		t.Errorf("request took %v, connect timeout not applied", elapsed)
	}
}

func TestProbeURL_Redirects(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/end" {
			http.Redirect(w, r, "/end", http.StatusFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name       string
		follow     bool
		wantStatus int
		wantFinal  string
	}{
		{"followed", true, http.StatusOK, server.URL + "/end"},
		{"not followed", false, http.StatusFound, server.URL},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProber(t, func(cfg *config.Config) { cfg.FollowRedirects = tt.follow })
			result := p.ProbeURL(t.Context(), serverTarget(t, server, parser.HTTP))
			if result.Failed() {
				t.Fatalf("unexpected error: %s", result.Error)
			}
			if result.StatusCode != tt.wantStatus {
				t.Errorf("StatusCode = %d, want %d", result.StatusCode, tt.wantStatus)
			}
			if strings.TrimSuffix(result.FinalURL, "/") != tt.wantFinal {
				t.Errorf("FinalURL = %q, want %q", result.FinalURL, tt.wantFinal)
			}
		})
	}
}

func TestProbeURL_TLS(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()
	target := serverTarget(t, server, parser.HTTPS)

	t.Run("self-signed rejected", func(t *testing.T) {
		result := newTestProber(t, nil).ProbeURL(t.Context(), target)
		if !result.Failed() {
			t.Error("expected certificate verification failure")
		}
	})

	t.Run("insecure accepted", func(t *testing.T) {
		p := newTestProber(t, func(cfg *config.Config) { cfg.InsecureSkipVerify = true })
		result := p.ProbeURL(t.Context(), target)
		if result.Failed() {
			t.Fatalf("unexpected error: %s", result.Error)
		}
		if result.TLSVersion == "" || result.CipherSuite == "" {
			t.Errorf("TLS details missing: version=%q cipher=%q", result.TLSVersion, result.CipherSuite)
		}
	})
}

func TestProbeURL_ResolveIP(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	p := newTestProber(t, func(cfg *config.Config) { cfg.ResolveIP = true })
	result := p.ProbeURL(t.Context(), serverTarget(t, server, parser.HTTP))
	if result.Failed() {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.IP != "127.0.0.1" {
		t.Errorf("IP = %q, want 127.0.0.1", result.IP)
	}
}

func TestProbeURL_MalformedHost(t *testing.T) {
	target := parser.Target{Host: "bad host", Probe: parser.HTTPProbe(80)}

	result := newTestProber(t, nil).ProbeURL(t.Context(), target)
	if !result.Failed() {
		t.Fatal("expected failure for malformed host")
	}
	if result.URL != "http://bad host" {
		t.Errorf("URL = %q, want the materialized URL", result.URL)
	}
}

func TestProbeURL_CancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	result := newTestProber(t, nil).ProbeURL(ctx, serverTarget(t, server, parser.HTTP))
	if !result.Failed() {
		t.Error("expected failure with cancelled context")
	}
}

func TestProbeURL_RateLimitWaitCancelled(t *testing.T) {
	p := newTestProber(t, func(cfg *config.Config) { cfg.RateLimit = 1 })
	// consume the single burst token
	if err := p.client.Wait(t.Context()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	result := p.ProbeURL(ctx, parser.Target{Host: "example.com", Probe: parser.HTTPProbe(80)})
	if !strings.HasPrefix(result.Error, "rate limit wait cancelled") {
		t.Errorf("Error = %q, want rate limit wait cancelled", result.Error)
	}
}
