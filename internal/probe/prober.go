package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strconv"
	"time"

	"hprobe/internal/config"
	"hprobe/internal/output"
	"hprobe/internal/parser"
	"hprobe/pkg/version"
)

// Prober issues one GET per target and folds the outcome into a ProbeResult
type Prober struct {
	client *Client
	config *config.Config
	// Bounds HTTP/3 requests, which have no response header timeout of their own
	requestTimeout time.Duration
}

// NewProber creates a new Prober instance
func NewProber(cfg *config.Config) (*Prober, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	p := &Prober{
		client: client,
		config: cfg,
	}
	if cfg.HTTP3 && cfg.Timeout > 0 && cfg.ResponseTimeout > 0 {
		p.requestTimeout = cfg.ConnectTimeout() + cfg.ResponseHeaderTimeout()
	}
	return p, nil
}

// Close cleans up all resources used by the prober
func (p *Prober) Close() error {
	return p.client.Close()
}

// ProbeURL sends a single GET for target. Every failure (DNS, refused
// connection, TLS, timeout, cancellation) is reported in the result's Error
// field; the response body is never read.
func (p *Prober) ProbeURL(ctx context.Context, target parser.Target) output.ProbeResult {
	probeURL := target.URL()
	port := strconv.Itoa(int(target.Probe.Port))

	result := output.ProbeResult{
		Timestamp: time.Now().Format(time.RFC3339),
		URL:       probeURL,
		Input:     target.Host,
		Scheme:    target.Probe.Protocol.String(),
		Port:      port,
	}

	if err := p.client.Wait(ctx); err != nil {
		result.Error = fmt.Sprintf("rate limit wait cancelled: %v", err)
		p.logFailure(probeURL, err)
		return result
	}

	if p.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.requestTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probeURL, nil)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to create request: %v", err)
		p.logFailure(probeURL, err)
		return result
	}
	req.Header.Set("User-Agent", version.UserAgent())

	// Both transports report the connection, QUIC with a UDP address
	var peer *remoteIP
	if p.config.ResolveIP && !p.client.viaProxy(req) {
		peer = &remoteIP{}
		req = req.WithContext(httptrace.WithClientTrace(req.Context(), peer.trace()))
	}

	startTime := time.Now()
	resp, err := p.client.GetHTTPClient().Do(req)
	elapsed := time.Since(startTime)

	if err != nil {
		// url.Error repeats the method and URL, which the result already carries
		var urlErr *url.Error
		if errors.As(err, &urlErr) {
			err = urlErr.Err
		}
		result.Error = fmt.Sprintf("Request failed: %v", err)
		p.logFailure(probeURL, err, "duration", elapsed)
		return result
	}
	resp.Body.Close()

	result.StatusCode = resp.StatusCode
	result.Protocol = resp.Proto
	result.Time = elapsed.String()
	if resp.Request != nil && resp.Request.URL != nil {
		result.FinalURL = resp.Request.URL.String()
	}
	if resp.TLS != nil {
		result.TLSVersion = TLSVersionString(resp.TLS.Version)
		result.CipherSuite = tls.CipherSuiteName(resp.TLS.CipherSuite)
	}
	if peer != nil {
		result.IP = peer.IP()
	}

	p.config.Logger.Debug("probe completed",
		"url", probeURL,
		"status", result.StatusCode,
		"duration", elapsed,
	)
	if p.config.DebugLogger != nil {
		p.config.DebugLogger.Info("request succeeded",
			"url", probeURL,
			"final_url", result.FinalURL,
			"protocol", result.Protocol,
			"status_code", result.StatusCode,
			"duration", elapsed,
		)
	}

	return result
}

// logFailure records a failed probe at debug level; the failure itself is
// reported through the result
func (p *Prober) logFailure(probeURL string, err error, args ...any) {
	attrs := append([]any{"url", probeURL, "error", err}, args...)
	p.config.Logger.Debug("request failed", attrs...)
	if p.config.DebugLogger != nil {
		p.config.DebugLogger.Error("request failed", attrs...)
	}
}
