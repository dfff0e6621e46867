//go:build !linux

package platform

import "os"

// Preallocate is a no-op on this platform.
func Preallocate(*os.File, int64) error { return nil }

// DropCache is a no-op on this platform.
func DropCache(*os.File, int64) error { return nil }

// AdviseSequential is a no-op on this platform.
func AdviseSequential(*os.File) error { return nil }

func adviseMapping([]byte) error { return nil }
