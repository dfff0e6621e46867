package main

import (
	"context"
	"fmt"

	"github.com/meigma/unzip"
)

const promptText = "Enter password for encrypted files: "

// passwordOptions turns -P or an interactive terminal into unzip options.
// A password given on the command line is used as is, with a warning at
// quiet level 0. Otherwise the user is prompted once, on first need.
func passwordOptions(o *options, e *env, ui *console) []unzip.Option {
	if o.hasPassword {
		if o.quiet == 0 {
			ui.warn(
				"Warning: Using -P option is insecure. Password is visible in process list.",
				"Consider using interactive password prompt instead (just press Enter when prompted).",
			)
		}
		return []unzip.Option{unzip.WithPassword([]byte(o.password))}
	}
	if !e.interactive || e.readPassword == nil {
		return nil
	}
	return []unzip.Option{unzip.WithPrompter(terminalPrompter(e, ui))}
}

func terminalPrompter(e *env, ui *console) unzip.Prompter {
	return func(ctx context.Context) ([]byte, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		w := ui.stderr()
		fmt.Fprint(w, promptText)
		pw, err := e.readPassword()
		fmt.Fprintln(w)
		if err != nil {
			return nil, fmt.Errorf("read password: %w", err)
		}
		return pw, nil
	}
}
