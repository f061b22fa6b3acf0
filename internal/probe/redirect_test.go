package probe

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"
)

func TestNormalizeRedirectURL(t *testing.T) {
	tests := []struct {
		name    string
		current string
		next    string
		want    string
	}{
		{"same scheme unchanged", "http://example.com/page", "http://example.com/other", "http://example.com/other"},
		{"http to https drops carried port 80", "http://example.com", "https://example.com:80", "https://example.com"},
		{"no explicit port passes through", "http://example.com", "https://example.com/page", "https://example.com/page"},
		{"https to http drops carried port 443", "https://example.com", "http://example.com:443", "http://example.com"},
		{"custom port preserved", "http://example.com:8080", "https://example.com:8080", "https://example.com:8080"},
		{"explicit default port on current", "http://example.com:80", "https://example.com:80", "https://example.com"},
		{"path and query preserved", "http://example.com/page", "https://example.com:80/new-path?q=1", "https://example.com/new-path?q=1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			current, _ := url.Parse(tt.current)
			next, _ := url.Parse(tt.next)
			if got := normalizeRedirectURL(current, next).String(); got != tt.want {
				t.Errorf("normalizeRedirectURL(%q, %q) = %q, want %q", tt.current, tt.next, got, tt.want)
			}
		})
	}
}

func redirectChain(t *testing.T, n int) []*http.Request {
	t.Helper()
	via := make([]*http.Request, 0, n)
	for i := 0; i < n; i++ {
		req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
		if err != nil {
			t.Fatal(err)
		}
		via = append(via, req)
	}
	return via
}

func TestRedirectPolicy_Disabled(t *testing.T) {
	policy := redirectPolicy(false, 10)
	next, _ := http.NewRequest(http.MethodGet, "https://example.com/", nil)
	if err := policy(next, redirectChain(t, 1)); !errors.Is(err, http.ErrUseLastResponse) {
		t.Errorf("expected ErrUseLastResponse, got %v", err)
	}
}

func TestRedirectPolicy_Limit(t *testing.T) {
	policy := redirectPolicy(true, 2)
	next, _ := http.NewRequest(http.MethodGet, "http://example.com/next", nil)

	if err := policy(next, redirectChain(t, 2)); err != nil {
		t.Errorf("second redirect should be allowed, got %v", err)
	}
	err := policy(next, redirectChain(t, 3))
	if err == nil || !strings.Contains(err.Error(), "stopped after 2 redirects") {
		t.Errorf("expected redirect limit error, got %v", err)
	}
}

func TestRedirectPolicy_NormalizesSchemeChange(t *testing.T) {
	policy := redirectPolicy(true, 10)
	next, _ := http.NewRequest(http.MethodGet, "https://example.com:80/login", nil)
	if err := policy(next, redirectChain(t, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.URL.String() != "https://example.com/login" {
		t.Errorf("URL = %q, want https://example.com/login", next.URL.String())
	}
}
