// Package platform wraps operating system I/O hints and memory mapping.
//
// Every hint is advisory: callers ignore the returned errors beyond logging
// them, and on platforms without the underlying syscall the functions are
// no-ops.
package platform
