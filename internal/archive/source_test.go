package archive

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unzip/internal/testutil"
)

func TestFileSource(t *testing.T) {
	t.Parallel()

	big := bytes.Repeat([]byte{0xAB}, 2*mmapThreshold)
	tests := []struct {
		name       string
		content    []byte
		wantMapped bool
	}{
		{name: "small file uses pread", content: []byte("small")},
		{name: "large file is mapped", content: big, wantMapped: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := testutil.WriteZip(t, t.TempDir(), "a.zip", testutil.File{Name: "data.bin", Content: tt.content})
			src, err := OpenFile(path, nil)
			require.NoError(t, err)
			defer func() { assert.NoError(t, src.Close()) }()

			if tt.wantMapped && !src.Mapped() {
				t.Log("mmap unavailable, served through pread")
			}
			if !tt.wantMapped {
				assert.False(t, src.Mapped())
			}
			assert.Equal(t, path, src.Name())

			r, err := src.Open()
			require.NoError(t, err)
			got, err := readEntry(r, 0, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.content, got)
		})
	}
}

func TestOpenFileErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := OpenFile(filepath.Join(dir, "missing.zip"), nil)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = OpenFile(dir, nil)
	assert.ErrorContains(t, err, "is a directory")
}

func TestFileSourceCloseIdempotent(t *testing.T) {
	t.Parallel()

	path := testutil.WriteZip(t, t.TempDir(), "a.zip", testutil.Text("x", "y"))
	src, err := OpenFile(path, nil)
	require.NoError(t, err)
	require.NoError(t, src.Close())
	assert.NoError(t, src.Close())
}

func TestHTTPSource(t *testing.T) {
	t.Parallel()

	data := testutil.BuildZip(t, "remote",
		testutil.Text("remote/a.txt", "served over http"),
		testutil.Text("remote/b.txt", "second file"),
	)
	var requests atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		assert.Equal(t, "token", r.Header.Get("X-Auth"))
		http.ServeContent(w, r, "a.zip", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	src, err := OpenURL(context.Background(), server.URL, WithHTTPClient(server.Client()), WithHTTPHeader("X-Auth", "token"))
	require.NoError(t, err)
	defer src.Close()
	assert.Equal(t, int64(len(data)), src.Size())

	r, err := src.Open()
	require.NoError(t, err)
	assert.Equal(t, "remote", r.Comment())
	got, err := readEntry(r, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, "second file", string(got))
	assert.Greater(t, requests.Load(), int32(1))
}

func TestHTTPSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("whole body"))
	}))
	t.Cleanup(server.Close)

	_, err := OpenURL(context.Background(), server.URL)
	assert.ErrorContains(t, err, "range requests not supported")
}

func TestRangeReaderReadAt(t *testing.T) {
	t.Parallel()

	data := []byte("hello world")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "data", time.Time{}, bytes.NewReader(data))
	}))
	t.Cleanup(server.Close)

	src, err := OpenURL(context.Background(), server.URL)
	require.NoError(t, err)
	ra := src.ra

	tests := []struct {
		name    string
		bufSize int
		offset  int64
		wantN   int
		wantErr error
		want    string
	}{
		{name: "middle", bufSize: 5, offset: 6, wantN: 5, want: "world"},
		{name: "past end returns EOF", bufSize: 10, offset: int64(len(data) - 3), wantN: 3, wantErr: io.EOF, want: "rld"},
		{name: "at end", bufSize: 4, offset: int64(len(data)), wantN: 0, wantErr: io.EOF},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			buf := make([]byte, tt.bufSize)
			n, err := ra.ReadAt(buf, tt.offset)
			assert.Equal(t, tt.wantErr, err)
			assert.Equal(t, tt.wantN, n)
			assert.Equal(t, tt.want, string(buf[:n]))
		})
	}
}

func TestParseContentRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{value: "bytes 0-0/1234", want: 1234},
		{value: " bytes 0-9/10 ", want: 10},
		{value: "bytes 0-0/*", wantErr: true},
		{value: "items 0-0/10", wantErr: true},
		{value: "bytes 0-0", wantErr: true},
		{value: "bytes 0-0/-5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Parallel()
			got, err := parseContentRange(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
