package archive

import (
	"bytes"
	"fmt"
	"io"
	"sync"
)

// Reader is random access to the entries of one archive.
//
// Entry metadata is immutable. Each stream returned by Open or OpenDecrypt
// has its own read position, so a Reader may serve several streams, but a
// single stream must not be shared between goroutines.
type Reader interface {
	// Len returns the number of entries in the central directory.
	Len() int
	// Entry returns the metadata of entry i.
	Entry(i int) Entry
	// Open returns the decoded content of entry i. Encrypted entries fail
	// with ziptype.ErrPasswordRequired.
	Open(i int) (io.ReadCloser, error)
	// OpenDecrypt is Open for encrypted entries. A password that does not
	// decrypt the entry yields ziptype.ErrInvalidPassword, either here or
	// from the stream.
	OpenDecrypt(i int, password []byte) (io.ReadCloser, error)
	// ValidatedPath returns the entry's name cleaned and checked to stay
	// inside an extraction root; false means the entry must not be written.
	ValidatedPath(i int) (string, bool)
	// Comment returns the archive comment.
	Comment() string
}

// Source is the archive container. Open returns a new independent Reader
// and may be called concurrently, once per worker.
type Source interface {
	// Name identifies the source in messages.
	Name() string
	Open() (Reader, error)
	Close() error
}

// sharedSource parses the central directory once and hands every Open
// caller a reader over the same immutable catalog. The underlying
// io.ReaderAt must be safe for concurrent use.
type sharedSource struct {
	name string
	ra   io.ReaderAt
	size int64

	once sync.Once
	cat  *catalog
	err  error
}

func (s *sharedSource) Name() string {
	return s.name
}

// Size returns the size of the container in bytes.
func (s *sharedSource) Size() int64 {
	return s.size
}

func (s *sharedSource) Open() (Reader, error) {
	s.once.Do(func() {
		s.cat, s.err = parse(s.ra, s.size)
		if s.err != nil {
			s.err = fmt.Errorf("open archive %s: %w", s.name, s.err)
		}
	})
	if s.err != nil {
		return nil, s.err
	}
	return &Zip{cat: s.cat}, nil
}

// BytesSource serves an archive held in memory.
type BytesSource struct {
	sharedSource
}

// NewBytesSource wraps data; the slice must not be modified afterwards.
func NewBytesSource(name string, data []byte) *BytesSource {
	return &BytesSource{sharedSource{
		name: name,
		ra:   bytes.NewReader(data),
		size: int64(len(data)),
	}}
}

// Close is a no-op.
func (s *BytesSource) Close() error {
	return nil
}
