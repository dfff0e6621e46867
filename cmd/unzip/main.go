// Command unzip lists, tests and extracts ZIP archives with an Info-ZIP
// compatible command line. File entries are written by parallel workers.
//
// Usage:
//
//	unzip [options] FILE [PATTERN...]
//
// FILE may be a local path or an http(s) URL served with range support.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"
	"golang.org/x/term"
)

// Exit codes.
const (
	exitOK        = 0
	exitFailure   = 1
	exitIntegrity = 2
	exitUsage     = 10
)

// env holds everything the command touches outside its arguments, so tests
// can run it without a terminal.
type env struct {
	stdout io.Writer
	stderr io.Writer

	// interactive is true when a password can be read from the user.
	interactive bool
	// progress is true when a progress bar may be drawn on stderr.
	progress bool
	// readPassword reads one line without echo.
	readPassword func() ([]byte, error)
}

func osEnv() *env {
	stdin := int(os.Stdin.Fd())
	return &env{
		stdout:       os.Stdout,
		stderr:       os.Stderr,
		interactive:  term.IsTerminal(stdin),
		progress:     term.IsTerminal(int(os.Stderr.Fd())),
		readPassword: func() ([]byte, error) { return term.ReadPassword(stdin) },
	}
}

func main() {
	os.Exit(run(context.Background(), os.Args, osEnv()))
}

// run executes the command line and returns the process exit code.
func run(ctx context.Context, args []string, e *env) int {
	err := newCommand(e).Run(ctx, args)
	if err == nil {
		return exitOK
	}
	code := exitCode(err)
	if code != exitIntegrity {
		fmt.Fprintf(e.stderr, "%s %v\n", errorLabel(), err)
	}
	return code
}

func newCommand(e *env) *cli.Command {
	var quiet int
	return &cli.Command{
		Name:                      "unzip",
		Usage:                     "list, test and extract compressed files in a ZIP archive",
		ArgsUsage:                 "FILE [PATTERN...]",
		UseShortOptionHandling:    true,
		DisableSliceFlagSeparator: true,
		Writer:                    e.stdout,
		ErrWriter:                 e.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "directory", Aliases: []string{"d"}, Usage: "extract files into `EXDIR`"},
			&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "list archive files (short format)"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "list archive files (verbose format)"},
			&cli.BoolFlag{Name: "test", Aliases: []string{"t"}, Usage: "test compressed archive data"},
			&cli.BoolFlag{Name: "pipe", Aliases: []string{"p"}, Usage: "extract files to stdout, no messages"},
			&cli.BoolFlag{Name: "comment", Aliases: []string{"z"}, Usage: "display archive comment only"},
			&cli.BoolFlag{Name: "overwrite", Aliases: []string{"o"}, Usage: "overwrite files without prompting"},
			&cli.BoolFlag{Name: "never-overwrite", Aliases: []string{"n"}, Usage: "never overwrite existing files"},
			&cli.BoolFlag{Name: "freshen", Aliases: []string{"f"}, Usage: "freshen existing files, create none"},
			&cli.BoolFlag{Name: "update", Aliases: []string{"u"}, Usage: "update files, create if necessary"},
			&cli.BoolFlag{Name: "junk-paths", Aliases: []string{"j"}, Usage: "junk paths (do not make directories)"},
			&cli.BoolFlag{Name: "case-insensitive", Aliases: []string{"C"}, Usage: "match filenames case-insensitively"},
			&cli.BoolFlag{Name: "lowercase", Aliases: []string{"L"}, Usage: "make extracted names lowercase"},
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "quieter output (-qq for silence)",
				Config:  cli.BoolConfig{Count: &quiet},
			},
			&cli.IntFlag{
				Name:    "threads",
				Aliases: []string{"T"},
				Usage:   "use `NUM` extraction workers (0 = one per CPU)",
				Sources: cli.EnvVars("UNZIP_THREADS"),
			},
			&cli.StringSliceFlag{Name: "exclude", Aliases: []string{"x"}, Usage: "exclude files matching `PATTERN`"},
			&cli.StringFlag{Name: "password", Aliases: []string{"P"}, Usage: "use `PASSWORD` to decrypt (insecure)"},
			&cli.BoolFlag{Name: "skip-timestamps", Usage: "do not restore file and directory times"},
			&cli.BoolFlag{Name: "debug", Usage: "write debug logs to stderr"},
		},
		OnUsageError: func(_ context.Context, _ *cli.Command, err error, _ bool) error {
			return usageError{err}
		},
		ExitErrHandler: func(context.Context, *cli.Command, error) {},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := parseOptions(cmd, quiet)
			if err != nil {
				return err
			}
			return execute(ctx, opts, e)
		},
	}
}
