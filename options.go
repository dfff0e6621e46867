package unzip

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/meigma/unzip/internal/batch"
	"github.com/meigma/unzip/internal/filter"
	"github.com/meigma/unzip/internal/overwrite"
	"github.com/meigma/unzip/internal/password"
	"github.com/meigma/unzip/internal/ziptype"
)

// Prompter asks the user for a password. It is called at most once per run,
// when the first encrypted entry is reached and no password was configured.
type Prompter = password.Prompter

// Option configures Extract, ExtractToPipe and Test.
type Option func(*config)

type config struct {
	outputDir       string
	junkPaths       bool
	lowercase       bool
	caseInsensitive bool
	include         []string
	exclude         []string
	flags           overwrite.Flags
	skipTimestamps  bool
	workers         int
	password        []byte
	prompter        Prompter
	quiet           int
	output          io.Writer
	diagnostics     io.Writer
	progress        ProgressFunc
	logger          *slog.Logger
}

// WithOutputDir sets the directory files are extracted into.
// It is created if missing. The default is the current directory.
func WithOutputDir(dir string) Option {
	return func(c *config) {
		c.outputDir = dir
	}
}

// WithJunkPaths writes every file directly into the output directory,
// dropping the directory part of its name.
func WithJunkPaths(junk bool) Option {
	return func(c *config) {
		c.junkPaths = junk
	}
}

// WithLowercase lowercases destination paths.
func WithLowercase(lower bool) Option {
	return func(c *config) {
		c.lowercase = lower
	}
}

// WithCaseInsensitive matches include and exclude patterns ignoring ASCII case.
func WithCaseInsensitive(fold bool) Option {
	return func(c *config) {
		c.caseInsensitive = fold
	}
}

// WithInclude restricts the run to entries matching at least one pattern.
// Patterns use *, ** and ? wildcards against the stored entry name.
func WithInclude(patterns ...string) Option {
	return func(c *config) {
		c.include = append(c.include, patterns...)
	}
}

// WithExclude drops entries matching any pattern. Exclusion wins over
// inclusion.
func WithExclude(patterns ...string) Option {
	return func(c *config) {
		c.exclude = append(c.exclude, patterns...)
	}
}

// WithOverwrite replaces existing files without asking.
func WithOverwrite(enabled bool) Option {
	return func(c *config) {
		c.flags.Overwrite = enabled
	}
}

// WithNeverOverwrite skips existing files and reports them as already
// existing. It cannot be combined with WithOverwrite.
func WithNeverOverwrite(enabled bool) Option {
	return func(c *config) {
		c.flags.NeverOverwrite = enabled
	}
}

// WithFreshen only replaces existing files that are older than the archive
// copy; missing files are not created.
func WithFreshen(enabled bool) Option {
	return func(c *config) {
		c.flags.Freshen = enabled
	}
}

// WithUpdate replaces existing files that are older than the archive copy
// and creates missing ones.
func WithUpdate(enabled bool) Option {
	return func(c *config) {
		c.flags.Update = enabled
	}
}

// WithSkipTimestamps leaves file and directory times at the time of writing.
func WithSkipTimestamps(skip bool) Option {
	return func(c *config) {
		c.skipTimestamps = skip
	}
}

// WithWorkers sets the number of extraction workers.
// Values < 0 force serial processing. Zero uses runtime.GOMAXPROCS.
// Values > 0 force a specific worker count. The count never exceeds the
// number of files.
func WithWorkers(n int) Option {
	return func(c *config) {
		c.workers = n
	}
}

// WithPassword sets the password for encrypted entries. The prompter is
// never used when a password is given.
func WithPassword(pw []byte) Option {
	return func(c *config) {
		c.password = pw
	}
}

// WithPrompter sets how a missing password is requested.
// Without a prompter and a password, encrypted entries are skipped.
func WithPrompter(p Prompter) Option {
	return func(c *config) {
		c.prompter = p
	}
}

// WithQuiet sets the message level: 0 prints every extracted or skipped
// file, 1 prints errors only, 2 prints nothing.
func WithQuiet(level int) Option {
	return func(c *config) {
		c.quiet = level
	}
}

// WithOutput sets where per-file messages are printed. Printing per-file
// messages forces a single worker so they appear in archive order.
func WithOutput(w io.Writer) Option {
	return func(c *config) {
		c.output = w
	}
}

// WithDiagnostics sets where per-entry errors are printed.
func WithDiagnostics(w io.Writer) Option {
	return func(c *config) {
		c.diagnostics = w
	}
}

// WithProgress sets a callback for progress events.
func WithProgress(fn ProgressFunc) Option {
	return func(c *config) {
		c.progress = fn
	}
}

// WithLogger sets the logger for debug records.
// If not set, logging is disabled.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		c.logger = logger
	}
}

func newConfig(opts []Option) (*config, error) {
	cfg := &config{outputDir: "."}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.flags.Overwrite && cfg.flags.NeverOverwrite {
		return nil, fmt.Errorf("%w: overwrite and never-overwrite", ziptype.ErrConflictingOptions)
	}
	return cfg, nil
}

func (c *config) filter() *filter.Filter {
	return filter.New(c.include, c.exclude, c.caseInsensitive)
}

func (c *config) processor(src Source) *batch.Processor {
	return batch.NewProcessor(src, password.New(c.password, c.prompter),
		batch.WithWorkers(c.workers),
		batch.WithReporter(batch.NewReporter(c.quiet, c.output, c.diagnostics)),
		batch.WithProgress(c.progress),
		batch.WithProcessorLogger(c.logger),
	)
}
