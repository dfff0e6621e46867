package main

import (
	"io"
	"sync"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"

	"github.com/meigma/unzip"
)

var (
	warnColor  = color.New(color.FgYellow)
	errorColor = color.New(color.FgRed, color.Bold)
)

func errorLabel() string {
	return errorColor.Sprint("unzip:")
}

// console owns the terminal for one run: the progress bar on stderr and the
// writers that messages go through. Messages clear the bar before they are
// written so the two never interleave on a line.
type console struct {
	mu  sync.Mutex
	env *env
	bar *progressbar.ProgressBar
	max int

	finishOnce sync.Once
}

// newConsole returns a console for e. A bar labelled label is only drawn at
// quiet level 0, on a terminal, and when label is not empty.
func newConsole(e *env, quiet int, label string) *console {
	c := &console{env: e, max: -1}
	if label != "" && quiet == 0 && e.progress {
		c.bar = progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(e.stderr),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer: "#", SaucerHead: ">", SaucerPadding: "-",
				BarStart: "[", BarEnd: "]",
			}),
		)
	}
	return c
}

// progressFunc returns the callback driving the bar, or nil without one.
func (c *console) progressFunc() unzip.ProgressFunc {
	if c.bar == nil {
		return nil
	}
	return c.progress
}

func (c *console) progress(ev unzip.ProgressEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch ev.Stage {
	case unzip.StageCreatingDirs, unzip.StageExtracting, unzip.StageTesting:
		if ev.FilesTotal != c.max {
			c.max = ev.FilesTotal
			c.bar.ChangeMax(ev.FilesTotal)
		}
		if ev.Stage != unzip.StageCreatingDirs {
			_ = c.bar.Set(ev.FilesDone) //nolint:errcheck // display only
		}
	}
}

// finish removes the bar. It is safe to call more than once.
func (c *console) finish() {
	c.finishOnce.Do(func() {
		if c.bar == nil {
			return
		}
		c.mu.Lock()
		defer c.mu.Unlock()
		_ = c.bar.Finish() //nolint:errcheck // display only
	})
}

func (c *console) stdout() io.Writer {
	return c.writer(c.env.stdout)
}

func (c *console) stderr() io.Writer {
	return c.writer(c.env.stderr)
}

func (c *console) writer(w io.Writer) io.Writer {
	if c.bar == nil {
		return w
	}
	return &clearingWriter{c: c, w: w}
}

// clearingWriter wipes the progress bar before each write.
type clearingWriter struct {
	c *console
	w io.Writer
}

func (cw *clearingWriter) Write(p []byte) (int, error) {
	cw.c.mu.Lock()
	defer cw.c.mu.Unlock()
	_ = cw.c.bar.Clear() //nolint:errcheck // display only
	return cw.w.Write(p)
}

// warn prints a highlighted warning to stderr.
func (c *console) warn(lines ...string) {
	w := c.stderr()
	for _, line := range lines {
		_, _ = warnColor.Fprintln(w, line) //nolint:errcheck // console output is best-effort
	}
}
