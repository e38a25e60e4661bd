// Package probe checks whether media exists at the public content endpoint.
package probe

import (
	"context"
	"io"
	"net/http"
	"time"
)

// HTTPProber issues HEAD requests; only a 200 counts as existing.
type HTTPProber struct {
	client *http.Client
}

// New returns a prober. The caller bounds each attempt through the context;
// timeout is a backstop for callers that do not.
func New(timeout time.Duration) *HTTPProber {
	return &HTTPProber{client: &http.Client{Timeout: timeout}}
}

// NewWithClient wraps an existing client.
func NewWithClient(client *http.Client) *HTTPProber {
	return &HTTPProber{client: client}
}

func (p *HTTPProber) Exists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode == http.StatusOK
}
