package main

import (
	"context"
	"io"
	nethttp "net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unzip"
)

type roundTripFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripFunc) RoundTrip(req *nethttp.Request) (*nethttp.Response, error) {
	return f(req)
}

func TestBandwidthShared(t *testing.T) {
	t.Parallel()

	b := newBandwidth(1000)
	start := time.Now()

	var wg sync.WaitGroup
	for range 2 {
		wg.Go(func() {
			assert.NoError(t, b.take(context.Background(), 100))
		})
	}
	wg.Wait()

	// Two 100 byte reads at 1000 B/s need 200ms together.
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestBandwidthUnlimited(t *testing.T) {
	t.Parallel()

	b := newBandwidth(0)
	assert.Nil(t, b)
	assert.NoError(t, b.take(context.Background(), 1<<30))
}

func TestBandwidthCanceled(t *testing.T) {
	t.Parallel()

	b := newBandwidth(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, b.take(ctx, 1<<20), context.Canceled)
}

func TestSlowLinkLatencyCanceled(t *testing.T) {
	t.Parallel()

	called := false
	link := &slowLink{
		base: roundTripFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			called = true
			return nil, nil
		}),
		latency: time.Hour,
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req, err := nethttp.NewRequestWithContext(ctx, nethttp.MethodGet, "http://example.invalid/a.zip", nil)
	require.NoError(t, err)

	_, err = link.RoundTrip(req)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestSlowLinkMetersBody(t *testing.T) {
	t.Parallel()

	link := &slowLink{
		base: roundTripFunc(func(*nethttp.Request) (*nethttp.Response, error) {
			return &nethttp.Response{StatusCode: nethttp.StatusOK, Body: io.NopCloser(strings.NewReader(strings.Repeat("x", 200)))}, nil
		}),
		budget: newBandwidth(1000),
	}
	req, err := nethttp.NewRequest(nethttp.MethodGet, "http://example.invalid/a.zip", nil)
	require.NoError(t, err)

	start := time.Now()
	resp, err := link.RoundTrip(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())

	assert.Len(t, body, 200)
	assert.GreaterOrEqual(t, time.Since(start), 180*time.Millisecond)
}

func TestHTTPSourceLocal(t *testing.T) {
	t.Parallel()

	cfg := config{
		files:           4,
		fileSize:        64,
		dirCount:        2,
		compression:     "deflate",
		pattern:         "compressible",
		randomSeed:      1,
		dataURL:         "local",
		dataHTTPLatency: time.Millisecond,
		dataHTTPBPS:     1 << 20,
	}
	data, err := buildArchive(cfg)
	require.NoError(t, err)

	src, cleanup, err := newHTTPSource(cfg, data)
	require.NoError(t, err)
	defer cleanup()

	info, err := unzip.Inspect(src)
	require.NoError(t, err)
	assert.Len(t, info.Entries(), 6)
}

func TestHTTPSourceRequiresURL(t *testing.T) {
	t.Parallel()

	_, _, err := newHTTPSource(config{}, nil)
	assert.Error(t, err)
}
