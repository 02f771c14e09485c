// Package httpclient builds the outbound HTTP client handed to the
// extraction service SDKs.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/FranksOps/procura/pkg/proxy"
)

type contextKey string

const proxyKey contextKey = "proxy_url"

// Config defines the setup for the HTTP Client.
type Config struct {
	Timeout      time.Duration
	MaxRedirects int
	// Proxies, when non-empty, rotates every request across the pool.
	Proxies *proxy.Pool
	// OnProxyFailure is called after a request through a proxy fails at
	// the transport level.
	OnProxyFailure func(*url.URL)
	// Transport overrides the base transport. Mostly for tests.
	Transport *http.Transport
}

// Client wraps a standard http.Client to provide configurable timeouts,
// redirect policies and proxy rotation.
type Client struct {
	*http.Client
}

// New creates a new HTTP client based on the provided configuration.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 90 * time.Second
	}

	c := &http.Client{
		Timeout: cfg.Timeout,
	}

	if cfg.MaxRedirects >= 0 {
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= cfg.MaxRedirects {
				return fmt.Errorf("httpclient: stopped after %d redirects", cfg.MaxRedirects)
			}
			return nil
		}
	} else {
		// Don't follow any redirects if max < 0
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	base := cfg.Transport
	if base == nil {
		dt, ok := http.DefaultTransport.(*http.Transport)
		if !ok {
			return nil, errors.New("httpclient: default transport is not *http.Transport")
		}
		base = dt.Clone()
	}
	// The proxy is chosen per request and carried on the context, so one
	// transport serves the whole pool.
	base.Proxy = func(req *http.Request) (*url.URL, error) {
		if u, ok := req.Context().Value(proxyKey).(*url.URL); ok && u != nil {
			return u, nil
		}
		return http.ProxyFromEnvironment(req)
	}

	if cfg.Proxies != nil && cfg.Proxies.Len() > 0 {
		c.Transport = &rotatingTransport{
			base:      base,
			pool:      cfg.Proxies,
			onFailure: cfg.OnProxyFailure,
		}
	} else {
		c.Transport = base
	}

	return &Client{Client: c}, nil
}

// Do executes an HTTP request. The provided context.Context should control
// the overarching request timeout/cancellation independent of the client timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("httpclient: context cannot be nil")
	}

	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, fmt.Errorf("httpclient: %w", err)
	}
	return resp, nil
}

type rotatingTransport struct {
	base      http.RoundTripper
	pool      *proxy.Pool
	onFailure func(*url.URL)
}

func (t *rotatingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	active := t.pool.Next()
	if active == nil {
		// Every proxy is cooling down; go direct rather than stall.
		return t.base.RoundTrip(req)
	}

	req = req.WithContext(context.WithValue(req.Context(), proxyKey, active))
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		_ = t.pool.MarkFailure(active)
		if t.onFailure != nil {
			t.onFailure(active)
		}
		return nil, err
	}
	_ = t.pool.MarkSuccess(active)
	return resp, nil
}
