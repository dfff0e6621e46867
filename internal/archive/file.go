package archive

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/meigma/unzip/internal/platform"
)

// mmapThreshold is the size above which a local archive is memory-mapped.
const mmapThreshold = 1 << 20

// FileSource serves an archive from a local file. Large files are
// memory-mapped once and every reader wraps the same mapping; smaller files
// are read with pread through the shared descriptor.
type FileSource struct {
	sharedSource
	file      *os.File
	mapped    []byte
	closeOnce sync.Once
	closeErr  error
}

// OpenFile opens the archive at path. Call Close when all readers are done.
func OpenFile(path string, logger *slog.Logger) (*FileSource, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	if info.IsDir() {
		_ = f.Close()
		return nil, fmt.Errorf("open archive %s: is a directory", path)
	}

	s := &FileSource{
		sharedSource: sharedSource{name: path, ra: f, size: info.Size()},
		file:         f,
	}
	if err := platform.AdviseSequential(f); err != nil {
		logger.Debug("fadvise sequential failed", "path", path, "error", err)
	}
	if info.Size() > mmapThreshold && info.Size() == int64(int(info.Size())) {
		b, err := platform.Mmap(f, int(info.Size()))
		if err != nil {
			logger.Debug("mmap failed, using pread", "path", path, "error", err)
		} else {
			s.mapped = b
			s.ra = bytes.NewReader(b)
		}
	}
	logger.Debug("archive opened", "path", path, "size", info.Size(), "mmap", s.mapped != nil)
	return s, nil
}

// Mapped reports whether the archive is served from a memory mapping.
func (s *FileSource) Mapped() bool {
	return s.mapped != nil
}

// Close releases the mapping and the descriptor. Readers must not be used
// afterwards.
func (s *FileSource) Close() error {
	s.closeOnce.Do(func() {
		if s.mapped != nil {
			s.closeErr = platform.Munmap(s.mapped)
			s.mapped = nil
		}
		if err := s.file.Close(); err != nil && s.closeErr == nil {
			s.closeErr = err
		}
	})
	return s.closeErr
}
