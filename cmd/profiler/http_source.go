package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/meigma/unzip"
)

// newHTTPSource opens the archive through range requests. The data URL
// "local" serves data from an in-process server.
func newHTTPSource(cfg config, data []byte) (unzip.Source, func(), error) {
	if cfg.dataURL == "" {
		return nil, nil, errors.New("data-url is required for HTTP source")
	}

	url := cfg.dataURL
	stopServer := func() {}
	if cfg.dataURL == "local" {
		server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			nethttp.ServeContent(w, r, "profile.zip", time.Time{}, bytes.NewReader(data))
		}))
		url = server.URL + "/profile.zip"
		stopServer = server.Close
	}

	src, err := unzip.OpenURL(context.Background(), url, unzip.WithHTTPClient(newHTTPClient(cfg)))
	if err != nil {
		stopServer()
		return nil, nil, err
	}
	cleanup := func() {
		_ = src.Close()
		stopServer()
	}
	return src, cleanup, nil
}

func newHTTPClient(cfg config) *nethttp.Client {
	transport := nethttp.DefaultTransport
	if base, ok := transport.(*nethttp.Transport); ok {
		transport = base.Clone()
	}
	if cfg.dataHTTPLatency > 0 || cfg.dataHTTPBPS > 0 {
		transport = &slowLink{
			base:    transport,
			latency: cfg.dataHTTPLatency,
			budget:  newBandwidth(cfg.dataHTTPBPS),
		}
	}
	return &nethttp.Client{Transport: transport}
}

// bandwidth is a byte budget shared by every response of one client, so
// concurrent range requests split the configured rate instead of each
// getting all of it. A nil bandwidth is unlimited.
type bandwidth struct {
	mu   sync.Mutex
	rate float64 // bytes per second
	next time.Time
}

func newBandwidth(bytesPerSecond int64) *bandwidth {
	if bytesPerSecond <= 0 {
		return nil
	}
	return &bandwidth{rate: float64(bytesPerSecond)}
}

// take reserves n bytes and blocks until the link has carried them.
func (b *bandwidth) take(ctx context.Context, n int) error {
	if b == nil || n <= 0 {
		return nil
	}
	cost := time.Duration(float64(n) / b.rate * float64(time.Second))
	now := time.Now()

	b.mu.Lock()
	if b.next.Before(now) {
		b.next = now
	}
	b.next = b.next.Add(cost)
	until := b.next
	b.mu.Unlock()

	return sleepCtx(ctx, time.Until(until))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// slowLink is a RoundTripper with fixed request latency and a shared
// bandwidth budget.
type slowLink struct {
	base    nethttp.RoundTripper
	latency time.Duration
	budget  *bandwidth
}

func (l *slowLink) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	ctx := req.Context()
	if err := sleepCtx(ctx, l.latency); err != nil {
		return nil, err
	}
	resp, err := l.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if l.budget != nil && resp.Body != nil {
		resp.Body = &meteredBody{ReadCloser: resp.Body, ctx: ctx, budget: l.budget}
	}
	return resp, nil
}

type meteredBody struct {
	io.ReadCloser
	ctx    context.Context //nolint:containedctx // scoped to one response
	budget *bandwidth
}

func (m *meteredBody) Read(p []byte) (int, error) {
	n, err := m.ReadCloser.Read(p)
	if werr := m.budget.take(m.ctx, n); werr != nil && err == nil {
		err = werr
	}
	return n, err
}
