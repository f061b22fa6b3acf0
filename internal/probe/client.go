package probe

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"golang.org/x/net/http2"
	"golang.org/x/time/rate"

	"hprobe/internal/config"
)

// Client is the HTTP client shared read-only by every worker for a run
type Client struct {
	httpClient *http.Client
	transport  *http.Transport
	h3         *http3.Transport
	limiter    *rate.Limiter
	proxy      func(*http.Request) (*url.URL, error)
}

// NewClient creates the shared client from cfg. An invalid proxy URL is
// returned as an error before any request is made.
func NewClient(cfg *config.Config) (*Client, error) {
	proxy, err := proxyFunc(cfg)
	if err != nil {
		return nil, err
	}

	tlsConfig := BuildTLSConfig(cfg.InsecureSkipVerify)

	dialer := &net.Dialer{
		Timeout:   cfg.ConnectTimeout(),
		KeepAlive: 30 * time.Second,
	}

	c := &Client{proxy: proxy}
	transport := &http.Transport{
		Proxy:                 proxy,
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSClientConfig:       tlsConfig,
		TLSHandshakeTimeout:   cfg.ConnectTimeout(),
		ResponseHeaderTimeout: cfg.ResponseHeaderTimeout(),
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("failed to enable HTTP/2: %w", err)
	}
	c.transport = transport

	var roundTripper http.RoundTripper = transport
	if cfg.HTTP3 {
		var quicConfig *quic.Config
		if cfg.Timeout > 0 {
			quicConfig = &quic.Config{HandshakeIdleTimeout: cfg.ConnectTimeout()}
		}
		c.h3 = &http3.Transport{
			TLSClientConfig: tlsConfig.Clone(),
			QUICConfig:      quicConfig,
		}
		roundTripper = schemeRoundTripper{plain: transport, secure: c.h3}
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), 1)
	}

	c.httpClient = &http.Client{
		Transport:     roundTripper,
		CheckRedirect: redirectPolicy(cfg.FollowRedirects, cfg.MaxRedirects),
	}

	return c, nil
}

// GetHTTPClient returns the underlying HTTP client
func (c *Client) GetHTTPClient() *http.Client {
	return c.httpClient
}

// Wait blocks until the global rate limit allows another request. It
// returns immediately when no rate limit is configured.
func (c *Client) Wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// viaProxy reports whether req is sent through a proxy, in which case the
// connection's peer is the proxy rather than the target
func (c *Client) viaProxy(req *http.Request) bool {
	u, err := c.proxy(req)
	return err == nil && u != nil
}

// Close releases idle connections and the QUIC transport
func (c *Client) Close() error {
	c.transport.CloseIdleConnections()
	if c.h3 != nil {
		return c.h3.Close()
	}
	return nil
}

// schemeRoundTripper sends https requests over QUIC and everything else
// over TCP
type schemeRoundTripper struct {
	plain  http.RoundTripper
	secure http.RoundTripper
}

func (s schemeRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.URL.Scheme == "https" {
		return s.secure.RoundTrip(req)
	}
	return s.plain.RoundTrip(req)
}

// proxyFunc builds the transport's proxy selector. --proxy-all wins for
// every scheme; otherwise --proxy-http and --proxy-https apply per scheme.
// Without any proxy flag the standard proxy environment variables are used.
func proxyFunc(cfg *config.Config) (func(*http.Request) (*url.URL, error), error) {
	if !cfg.HasProxy() {
		return http.ProxyFromEnvironment, nil
	}

	all, err := parseProxyURL("all", cfg.ProxyAll)
	if err != nil {
		return nil, err
	}
	httpProxy, err := parseProxyURL("http", cfg.ProxyHTTP)
	if err != nil {
		return nil, err
	}
	httpsProxy, err := parseProxyURL("https", cfg.ProxyHTTPS)
	if err != nil {
		return nil, err
	}

	return func(req *http.Request) (*url.URL, error) {
		switch {
		case all != nil:
			return all, nil
		case req.URL.Scheme == "https":
			return httpsProxy, nil
		default:
			return httpProxy, nil
		}
	}, nil
}

// parseProxyURL validates a proxy URL. An empty string means no proxy.
func parseProxyURL(kind, raw string) (*url.URL, error) {
	if raw == "" {
		return nil, nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("Error parsing proxy %s: %s", kind, raw)
	}
	switch u.Scheme {
	case "http", "https", "socks5", "socks5h":
		return u, nil
	default:
		return nil, fmt.Errorf("Error parsing proxy %s: %s", kind, raw)
	}
}
