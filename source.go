package unzip

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meigma/unzip/internal/archive"
)

// Re-export archive types for the public API.
type (
	// Source is an archive that can be opened once per worker.
	Source = archive.Source

	// Entry is the metadata of one item in the central directory.
	Entry = archive.Entry

	// DateTime is an entry timestamp as stored in the archive.
	DateTime = archive.DateTime
)

// SourceOption configures OpenFile and OpenURL.
type SourceOption func(*sourceConfig)

type sourceConfig struct {
	logger  *slog.Logger
	client  *http.Client
	headers http.Header
}

// WithSourceLogger sets the logger for source setup.
// If not set, logging is disabled.
func WithSourceLogger(logger *slog.Logger) SourceOption {
	return func(c *sourceConfig) {
		c.logger = logger
	}
}

// WithHTTPClient sets the HTTP client used by OpenURL.
// Ignored by OpenFile.
func WithHTTPClient(client *http.Client) SourceOption {
	return func(c *sourceConfig) {
		c.client = client
	}
}

// WithHTTPHeader sets a header on every request made by OpenURL.
// Ignored by OpenFile.
func WithHTTPHeader(key, value string) SourceOption {
	return func(c *sourceConfig) {
		if c.headers == nil {
			c.headers = make(http.Header)
		}
		c.headers.Set(key, value)
	}
}

func newSourceConfig(opts []SourceOption) sourceConfig {
	var cfg sourceConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// OpenFile opens a local archive. Large files are memory mapped where the
// platform supports it. The caller must Close the source.
func OpenFile(path string, opts ...SourceOption) (Source, error) {
	cfg := newSourceConfig(opts)
	src, err := archive.OpenFile(path, cfg.logger)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// OpenURL opens a remote archive served with HTTP range requests.
// The server must support ranges; the archive size is probed immediately.
func OpenURL(ctx context.Context, url string, opts ...SourceOption) (Source, error) {
	cfg := newSourceConfig(opts)
	var httpOpts []archive.HTTPOption
	if cfg.client != nil {
		httpOpts = append(httpOpts, archive.WithHTTPClient(cfg.client))
	}
	for key := range cfg.headers {
		httpOpts = append(httpOpts, archive.WithHTTPHeader(key, cfg.headers.Get(key)))
	}
	src, err := archive.OpenURL(ctx, url, httpOpts...)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// NewBytesSource serves an archive held in memory. data must not be
// modified while the source is in use.
func NewBytesSource(name string, data []byte) Source {
	return archive.NewBytesSource(name, data)
}
