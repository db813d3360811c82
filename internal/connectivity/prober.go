package connectivity

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"
)

// HTTPProber checks reachability by requesting the smallest catalog page.
type HTTPProber struct {
	URL    string
	Client *http.Client
}

const probeTimeout = 3 * time.Second

// NewHTTPProber builds a prober against the API origin base.
func NewHTTPProber(base *url.URL) *HTTPProber {
	rel := &url.URL{Path: "/api/products", RawQuery: "page=0&size=1"}
	return &HTTPProber{
		URL:    base.ResolveReference(rel).String(),
		Client: &http.Client{Timeout: probeTimeout},
	}
}

// Probe maps the request outcome to a Reading. Failing to resolve or dial
// means no connection; any other transport failure means connected but
// unreachable; any HTTP response means reachable.
func (p *HTTPProber) Probe(ctx context.Context) Reading {
	client := p.Client
	if client == nil {
		client = &http.Client{Timeout: probeTimeout}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.URL, nil)
	if err != nil {
		return Reading{Connected: true, Reachable: Unreachable}
	}
	resp, err := client.Do(req)
	if err != nil {
		return classify(err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return Reading{Connected: true, Reachable: Reachable}
}

func classify(err error) Reading {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return Reading{Connected: false, Reachable: Unreachable}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return Reading{Connected: false, Reachable: Unreachable}
	}
	return Reading{Connected: true, Reachable: Unreachable}
}
