package probe

import (
	"fmt"
	"net/http"
	"net/url"
)

// redirectPolicy returns the CheckRedirect function for the shared client.
// With follow disabled the first response is kept as the result.
func redirectPolicy(follow bool, maxRedirects int) func(req *http.Request, via []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !follow {
			return http.ErrUseLastResponse
		}
		if len(via) > maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		req.URL = normalizeRedirectURL(via[len(via)-1].URL, req.URL)
		return nil
	}
}

// normalizeRedirectURL fixes port issues when scheme changes during redirect
// e.g., http://host:80 -> https://host:80 should become https://host:443
// This prevents "http: server gave HTTP response to HTTPS client" errors
func normalizeRedirectURL(currentURL, nextURL *url.URL) *url.URL {
	if currentURL.Scheme == nextURL.Scheme {
		return nextURL
	}

	currentPort := currentURL.Port()
	nextPort := nextURL.Port()
	if nextPort == "" {
		return nextURL
	}

	currentDefaultPort := "80"
	if currentURL.Scheme == "https" {
		currentDefaultPort = "443"
	}

	// The old scheme's default port carried over; drop it so the new
	// scheme's default applies
	if (currentPort == "" || currentPort == currentDefaultPort) && nextPort == currentDefaultPort {
		normalized := *nextURL
		normalized.Host = nextURL.Hostname()
		return &normalized
	}

	return nextURL
}
