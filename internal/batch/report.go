package batch

import (
	"fmt"
	"io"
	"sync"
)

// Reporter prints per-entry messages gated by a quiet level:
// 0 prints everything, 1 prints errors only, 2 prints nothing.
//
// A nil Reporter is silent. Reporter is safe for concurrent use; each
// message is written with a single call.
type Reporter struct {
	mu    sync.Mutex
	quiet int
	out   io.Writer
	diag  io.Writer
}

// NewReporter returns a Reporter writing progress to out and errors to diag.
// Either writer may be nil.
func NewReporter(quiet int, out, diag io.Writer) *Reporter {
	return &Reporter{quiet: quiet, out: out, diag: diag}
}

// Verbose reports whether per-file progress messages are printed.
func (r *Reporter) Verbose() bool {
	return r != nil && r.quiet <= 0 && r.out != nil
}

// Extracting announces a file that has been written.
func (r *Reporter) Extracting(name string) {
	if r.Verbose() {
		r.print(r.out, "  extracting: %s\n", name)
	}
}

// Skipping announces a file left untouched by the overwrite policy.
func (r *Reporter) Skipping(name, reason string) {
	if r.Verbose() {
		r.print(r.out, "    skipping: %s (%s)\n", name, reason)
	}
}

// TestOK announces an entry that passed the integrity test.
func (r *Reporter) TestOK(name string) {
	if r.Verbose() {
		r.print(r.out, "    testing: %s  OK\n", name)
	}
}

// Error reports a per-entry failure that does not stop the run.
func (r *Reporter) Error(name string, err error) {
	if r == nil || r.quiet >= 2 || r.diag == nil {
		return
	}
	r.print(r.diag, "error: %s - %v\n", name, err)
}

func (r *Reporter) print(w io.Writer, format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, _ = fmt.Fprintf(w, format, args...) //nolint:errcheck // console output is best-effort
}
