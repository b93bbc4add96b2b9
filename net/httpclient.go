// Package net provides the HTTP client used to drive traffic at the
// balancer under test, and the classification of request outcomes.
package net

import (
	"context"
	"net/http"
	"time"
)

// Options are mostly passed to the http.Transport of the same name.
// Options.Timeout can be used as default for all timeouts that are not
// set.
type Options struct {
	// DisableKeepAlives see https://golang.org/pkg/net/http/#Transport.DisableKeepAlives
	DisableKeepAlives bool
	// MaxIdleConns see https://golang.org/pkg/net/http/#Transport.MaxIdleConns
	MaxIdleConns int
	// MaxIdleConnsPerHost see https://golang.org/pkg/net/http/#Transport.MaxIdleConnsPerHost
	MaxIdleConnsPerHost int
	// MaxConnsPerHost see https://golang.org/pkg/net/http/#Transport.MaxConnsPerHost
	MaxConnsPerHost int
	// Timeout sets all timeouts that are set to 0 to the given
	// value. Basically it's the default timeout value. It is also
	// used as the per-request deadline.
	Timeout time.Duration
	// TLSHandshakeTimeout see
	// https://golang.org/pkg/net/http/#Transport.TLSHandshakeTimeout,
	// if not set or set to 0, its using Options.Timeout.
	TLSHandshakeTimeout time.Duration
	// IdleConnTimeout see
	// https://golang.org/pkg/net/http/#Transport.IdleConnTimeout,
	// if not set or set to 0, its using Options.Timeout.
	IdleConnTimeout time.Duration
	// ResponseHeaderTimeout see
	// https://golang.org/pkg/net/http/#Transport.ResponseHeaderTimeout,
	// if not set or set to 0, its using Options.Timeout.
	ResponseHeaderTimeout time.Duration
}

// Client wraps an http.Client with the transport defaults of the
// harness. It closes idle connections in the background until Close is
// called.
type Client struct {
	client  http.Client
	timeout time.Duration
	quit    chan struct{}
}

// NewClient creates a Client with the given options.
func NewClient(options Options) *Client {
	if options.Timeout == 0 {
		options.Timeout = 5 * time.Second
	}
	if options.TLSHandshakeTimeout == 0 {
		options.TLSHandshakeTimeout = options.Timeout
	}
	if options.IdleConnTimeout == 0 {
		options.IdleConnTimeout = options.Timeout
	}
	if options.ResponseHeaderTimeout == 0 {
		options.ResponseHeaderTimeout = options.Timeout
	}

	htransport := &http.Transport{
		DisableKeepAlives:     options.DisableKeepAlives,
		MaxIdleConns:          options.MaxIdleConns,
		MaxIdleConnsPerHost:   options.MaxIdleConnsPerHost,
		MaxConnsPerHost:       options.MaxConnsPerHost,
		ResponseHeaderTimeout: options.ResponseHeaderTimeout,
		TLSHandshakeTimeout:   options.TLSHandshakeTimeout,
		IdleConnTimeout:       options.IdleConnTimeout,
	}

	quit := make(chan struct{})
	go func() {
		for {
			select {
			case <-time.After(options.IdleConnTimeout):
				htransport.CloseIdleConnections()
			case <-quit:
				htransport.CloseIdleConnections()
				return
			}
		}
	}()

	return &Client{
		client:  http.Client{Transport: htransport, Timeout: options.Timeout},
		timeout: options.Timeout,
		quit:    quit,
	}
}

// Timeout returns the default per-request deadline of the client.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Get issues a GET to the given URL. The client's default timeout
// applies in addition to any deadline carried by the context. The
// caller owns the response body.
func (c *Client) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	return c.client.Do(req)
}

// Close stops the background idle connection closer.
func (c *Client) Close() {
	close(c.quit)
}
