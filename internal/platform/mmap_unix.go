//go:build unix

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Mmap maps the first size bytes of f read-only. The mapping stays valid
// after f is closed and must be released with Munmap.
func Mmap(f *os.File, size int) ([]byte, error) {
	if size <= 0 {
		return nil, ErrMmapUnsupported
	}
	b, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, err
	}
	_ = adviseMapping(b) //nolint:errcheck // advisory
	return b, nil
}

// Munmap releases a mapping returned by Mmap.
func Munmap(b []byte) error {
	return unix.Munmap(b)
}
