//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// Preallocate reserves size bytes for f without changing its length, which
// reduces fragmentation for large outputs.
func Preallocate(f *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	return unix.Fallocate(int(f.Fd()), unix.FALLOC_FL_KEEP_SIZE, 0, size)
}

// DropCache tells the kernel the first size bytes of f will not be read
// again soon.
func DropCache(f *os.File, size int64) error {
	return unix.Fadvise(int(f.Fd()), 0, size, unix.FADV_DONTNEED)
}

// AdviseSequential announces a front-to-back read of f.
func AdviseSequential(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
}

func adviseMapping(b []byte) error {
	if err := unix.Madvise(b, unix.MADV_SEQUENTIAL); err != nil {
		return err
	}
	return unix.Madvise(b, unix.MADV_WILLNEED)
}
