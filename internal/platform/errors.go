package platform

import "errors"

// ErrMmapUnsupported is returned when a file cannot be memory-mapped here.
var ErrMmapUnsupported = errors.New("memory mapping not supported")
