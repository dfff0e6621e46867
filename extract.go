package unzip

import (
	"context"
	"errors"
	"io"

	"github.com/meigma/unzip/internal/batch"
)

// Summary reports the outcome of an extraction.
type Summary struct {
	// Extracted is the number of files written.
	Extracted int
	// Skipped is the number of files not written: filtered out, refused by
	// the overwrite policy, or not decryptable. Entries with unsafe names
	// are dropped without being counted.
	Skipped int
	// Bytes is the number of content bytes written.
	Bytes uint64
}

// TestSummary reports the outcome of an integrity test.
type TestSummary struct {
	// Tested is the number of file entries checked.
	Tested int
	// Failed is the number of entries that did not decode cleanly.
	Failed int
	// Skipped is the number of entries excluded by the filters.
	Skipped int
}

// Extract writes the selected entries of src below the output directory.
//
// Directories are created first and in archive order, files are written by
// one or more workers, and directory times are restored once every file is
// in place. Per-entry problems (an existing file, a wrong password) are
// counted in the Summary; any other failure stops the run and is returned
// together with the counts so far. Files already written stay on disk.
func Extract(ctx context.Context, src Source, opts ...Option) (_ Summary, err error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return Summary{}, err
	}

	proc := cfg.processor(src)
	plan, err := proc.Plan(batch.PlanOptions{
		Filter:    cfg.filter(),
		JunkPaths: cfg.junkPaths,
		Lowercase: cfg.lowercase,
	})
	if err != nil {
		return Summary{}, err
	}

	sink := batch.NewFileSink(cfg.outputDir,
		batch.WithOverwriteFlags(cfg.flags),
		batch.WithSkipTimestamps(cfg.skipTimestamps),
		batch.WithSinkLogger(cfg.logger),
	)
	defer func() {
		err = errors.Join(err, sink.Close())
	}()

	stats, err := proc.Process(ctx, plan, sink)
	return summaryFrom(stats), err
}

// ExtractToPipe writes the content of every selected file entry to w, in
// archive order, with nothing created on disk. Output, overwrite and path
// options are ignored. An entry the password does not decrypt is counted
// as skipped; bytes it produced before the failure remain in w.
func ExtractToPipe(ctx context.Context, src Source, w io.Writer, opts ...Option) (Summary, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return Summary{}, err
	}

	proc := cfg.processor(src)
	plan, err := proc.Plan(batch.PlanOptions{Filter: cfg.filter(), Pipe: true})
	if err != nil {
		return Summary{}, err
	}
	stats, err := proc.Process(ctx, plan, batch.NewPipeSink(w))
	return summaryFrom(stats), err
}

// Test reads every selected file entry to completion and verifies it. It
// returns ErrIntegrity when at least one entry failed; failures are printed
// to the diagnostics writer unless quiet is 2.
func Test(ctx context.Context, src Source, opts ...Option) (TestSummary, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return TestSummary{}, err
	}
	stats, err := cfg.processor(src).Test(ctx, cfg.filter())
	return TestSummary{Tested: stats.Tested, Failed: stats.Failed, Skipped: stats.Skipped}, err
}

func summaryFrom(s batch.Stats) Summary {
	return Summary{Extracted: s.Extracted, Skipped: s.Skipped, Bytes: s.Bytes}
}
