package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"

	"github.com/meigma/unzip"
)

type mode uint8

const (
	modeExtract mode = iota
	modeComment
	modeList
	modeTest
	modePipe
)

// label names the progress bar for modes that draw one.
func (m mode) label() string {
	switch m {
	case modeExtract:
		return "Extracting"
	case modeTest:
		return "Testing"
	default:
		return ""
	}
}

type options struct {
	archive  string
	patterns []string
	exclude  []string
	mode     mode
	verbose  bool

	dir            string
	overwrite      bool
	neverOverwrite bool
	freshen        bool
	update         bool
	junkPaths      bool
	caseFold       bool
	lowercase      bool
	skipTimestamps bool
	quiet          int
	threads        int
	password       string
	hasPassword    bool
	debug          bool
}

type usageError struct {
	err error
}

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var usage usageError
	switch {
	case errors.As(err, &usage), errors.Is(err, unzip.ErrConflictingOptions):
		return exitUsage
	case errors.Is(err, unzip.ErrIntegrity):
		return exitIntegrity
	default:
		return exitFailure
	}
}

func parseOptions(cmd *cli.Command, quiet int) (*options, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, usageError{errors.New("missing archive FILE")}
	}
	o := &options{
		archive:        args[0],
		patterns:       args[1:],
		exclude:        cmd.StringSlice("exclude"),
		dir:            cmd.String("directory"),
		overwrite:      cmd.Bool("overwrite"),
		neverOverwrite: cmd.Bool("never-overwrite"),
		freshen:        cmd.Bool("freshen"),
		update:         cmd.Bool("update"),
		junkPaths:      cmd.Bool("junk-paths"),
		caseFold:       cmd.Bool("case-insensitive"),
		lowercase:      cmd.Bool("lowercase"),
		skipTimestamps: cmd.Bool("skip-timestamps"),
		quiet:          quiet,
		threads:        cmd.Int("threads"),
		password:       cmd.String("password"),
		hasPassword:    cmd.IsSet("password"),
		debug:          cmd.Bool("debug"),
	}
	if o.overwrite && o.neverOverwrite {
		return nil, fmt.Errorf("%w: cannot specify both -o (overwrite) and -n (never overwrite)", unzip.ErrConflictingOptions)
	}
	if o.threads < 0 {
		return nil, usageError{fmt.Errorf("invalid thread count %d", o.threads)}
	}

	switch {
	case cmd.Bool("comment"):
		o.mode = modeComment
	case cmd.Bool("list") || cmd.Bool("verbose"):
		o.mode = modeList
		o.verbose = cmd.Bool("verbose")
	case cmd.Bool("test"):
		o.mode = modeTest
	case cmd.Bool("pipe"):
		o.mode = modePipe
	default:
		o.mode = modeExtract
	}
	return o, nil
}

func (o *options) logger(w io.Writer) *slog.Logger {
	if !o.debug {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (o *options) outputDir() string {
	if o.dir == "" {
		return "."
	}
	return o.dir
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func openSource(ctx context.Context, o *options, logger *slog.Logger) (unzip.Source, error) {
	if isURL(o.archive) {
		return unzip.OpenURL(ctx, o.archive, unzip.WithSourceLogger(logger))
	}
	return unzip.OpenFile(o.archive, unzip.WithSourceLogger(logger))
}

// execute runs the selected mode against the archive.
func execute(ctx context.Context, o *options, e *env) (err error) {
	logger := o.logger(e.stderr)
	src, err := openSource(ctx, o, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, src.Close())
	}()

	switch o.mode {
	case modeComment:
		return printComment(e.stdout, src)
	case modeList:
		return printListing(e.stdout, src, o.verbose)
	}

	ui := newConsole(e, o.quiet, o.mode.label())
	defer ui.finish()

	opts := []unzip.Option{
		unzip.WithInclude(o.patterns...),
		unzip.WithExclude(o.exclude...),
		unzip.WithCaseInsensitive(o.caseFold),
		unzip.WithWorkers(o.threads),
		unzip.WithQuiet(o.quiet),
		unzip.WithDiagnostics(ui.stderr()),
		unzip.WithLogger(logger),
	}
	opts = append(opts, passwordOptions(o, e, ui)...)

	switch o.mode {
	case modeTest:
		opts = append(opts, unzip.WithOutput(ui.stdout()), unzip.WithProgress(ui.progressFunc()))
		return runTest(ctx, o, e, ui, src, opts)
	case modePipe:
		_, err := unzip.ExtractToPipe(ctx, src, e.stdout, opts...)
		return err
	default:
		opts = append(opts,
			unzip.WithOutput(ui.stdout()),
			unzip.WithProgress(ui.progressFunc()),
			unzip.WithOutputDir(o.outputDir()),
			unzip.WithOverwrite(o.overwrite),
			unzip.WithNeverOverwrite(o.neverOverwrite),
			unzip.WithFreshen(o.freshen),
			unzip.WithUpdate(o.update),
			unzip.WithJunkPaths(o.junkPaths),
			unzip.WithLowercase(o.lowercase),
			unzip.WithSkipTimestamps(o.skipTimestamps),
		)
		return runExtract(ctx, o, e, ui, src, opts)
	}
}

func runExtract(ctx context.Context, o *options, e *env, ui *console, src unzip.Source, opts []unzip.Option) error {
	sum, err := unzip.Extract(ctx, src, opts...)
	ui.finish()
	if err != nil {
		return err
	}
	if o.quiet < 2 {
		fmt.Fprintf(e.stdout, "Extracted %d files (%s) to %s\n", sum.Extracted, humanize.IBytes(sum.Bytes), o.outputDir())
		if sum.Skipped > 0 {
			fmt.Fprintf(e.stdout, "Skipped %d files\n", sum.Skipped)
		}
	}
	return nil
}

func runTest(ctx context.Context, o *options, e *env, ui *console, src unzip.Source, opts []unzip.Option) error {
	sum, err := unzip.Test(ctx, src, opts...)
	ui.finish()
	if err != nil && !errors.Is(err, unzip.ErrIntegrity) {
		return err
	}
	if o.quiet < 2 {
		if sum.Failed == 0 {
			fmt.Fprintf(e.stdout, "No errors detected in compressed data of %s.  %d files tested.\n", o.archive, sum.Tested)
		} else {
			fmt.Fprintf(e.stdout, "%d error(s) detected in %s.  %d files tested.\n", sum.Failed, o.archive, sum.Tested)
		}
	}
	return err
}
