package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// HTTPSource serves a remote archive through HTTP range requests. The
// server must honour single byte ranges.
type HTTPSource struct {
	sharedSource
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*rangeReader)

// WithHTTPClient sets the client used for requests.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(r *rangeReader) {
		r.client = client
	}
}

// WithHTTPHeader sets a header sent with every request.
func WithHTTPHeader(key, value string) HTTPOption {
	return func(r *rangeReader) {
		if r.headers == nil {
			r.headers = make(http.Header)
		}
		r.headers.Set(key, value)
	}
}

// OpenURL probes url for its size and range support. ctx bounds the probe
// and every later range request.
func OpenURL(ctx context.Context, url string, opts ...HTTPOption) (*HTTPSource, error) {
	r := &rangeReader{ctx: ctx, url: url, client: http.DefaultClient}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.DefaultClient
	}
	size, etag, err := r.probe()
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", url, err)
	}
	r.size = size
	r.etag = etag
	return &HTTPSource{
		sharedSource: sharedSource{name: url, ra: r, size: size},
	}, nil
}

// Close is a no-op; connections belong to the HTTP client.
func (s *HTTPSource) Close() error {
	return nil
}

// rangeReader implements io.ReaderAt over HTTP. It is safe for concurrent use.
type rangeReader struct {
	ctx     context.Context
	url     string
	client  *http.Client
	headers http.Header
	size    int64
	etag    string
}

// ReadAt reads len(p) bytes at off. Short reads at the end of the content
// return io.EOF as io.ReaderAt requires.
func (r *rangeReader) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, fmt.Errorf("read at %d: negative offset", off)
	}
	if off >= r.size {
		return 0, io.EOF
	}
	end := off + int64(len(p)) - 1
	want := len(p)
	if end >= r.size {
		end = r.size - 1
		want = int(end - off + 1)
	}

	req, err := r.newRequest(http.MethodGet)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", off, end))
	if r.etag != "" {
		req.Header.Set("If-Match", r.etag)
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()
	}()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusRequestedRangeNotSatisfiable:
		return 0, io.EOF
	case http.StatusPreconditionFailed:
		return 0, errors.New("remote archive changed during extraction")
	case http.StatusOK:
		return 0, errors.New("range requests not supported")
	default:
		return 0, fmt.Errorf("range request failed: %s", resp.Status)
	}

	n, err := io.ReadFull(resp.Body, p[:want])
	if err != nil {
		return n, err
	}
	if want < len(p) {
		return n, io.EOF
	}
	return n, nil
}

// probe issues a one-byte range request to learn the total size and
// confirm range support.
func (r *rangeReader) probe() (size int64, etag string, err error) {
	req, err := r.newRequest(http.MethodGet)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Range", "bytes=0-0")
	resp, err := r.client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusPartialContent {
		if resp.StatusCode == http.StatusOK {
			return 0, "", errors.New("range requests not supported")
		}
		return 0, "", fmt.Errorf("range probe failed: %s", resp.Status)
	}
	crange := resp.Header.Get("Content-Range")
	if crange == "" {
		return 0, "", errors.New("range probe missing Content-Range")
	}
	size, err = parseContentRange(crange)
	if err != nil {
		return 0, "", err
	}
	// Weak validators cannot be used with If-Match.
	etag = resp.Header.Get("ETag")
	if strings.HasPrefix(etag, "W/") {
		etag = ""
	}
	return size, etag, nil
}

func (r *rangeReader) newRequest(method string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.ctx, method, r.url, http.NoBody)
	if err != nil {
		return nil, err
	}
	for key, values := range r.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	return req, nil
}

// parseContentRange extracts the complete length from "bytes a-b/size".
func parseContentRange(value string) (int64, error) {
	value = strings.TrimSpace(value)
	rest, ok := strings.CutPrefix(value, "bytes ")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	_, total, ok := strings.Cut(rest, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	size, err := strconv.ParseInt(total, 10, 64)
	if err != nil || size < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return size, nil
}
