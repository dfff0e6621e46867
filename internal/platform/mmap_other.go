//go:build !unix

package platform

import "os"

// Mmap is not supported on this platform.
func Mmap(*os.File, int) ([]byte, error) {
	return nil, ErrMmapUnsupported
}

// Munmap is a no-op on this platform.
func Munmap([]byte) error {
	return nil
}
