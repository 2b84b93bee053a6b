package adapters

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/your-org/genie/internal/apperr"
)

// NewHTTPClient returns a client routed through proxyURL when one is given.
func NewHTTPClient(proxyURL string) (*http.Client, error) {
	proxyURL = strings.TrimSpace(proxyURL)
	if proxyURL == "" {
		return &http.Client{}, nil
	}
	u, err := url.Parse(proxyURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: invalid proxy url %q", apperr.ErrConfiguration, proxyURL)
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyURL(u)
	return &http.Client{Transport: transport}, nil
}
