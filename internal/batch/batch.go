// Package batch plans an extraction run and executes it with a fixed pool of
// workers, each reading its own contiguous chunk of jobs through its own
// archive reader.
package batch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/unzip/internal/archive"
	"github.com/meigma/unzip/internal/overwrite"
	"github.com/meigma/unzip/internal/password"
	"github.com/meigma/unzip/internal/ziptype"
)

// bufferSize is the decode buffer owned by each worker.
const bufferSize = 256 << 10

// Processor runs extraction plans against one archive source.
type Processor struct {
	source    archive.Source
	passwords *password.Coordinator
	reporter  *Reporter
	progress  ziptype.ProgressFunc
	workers   int // 0 = auto, <0 = serial, >0 = fixed count
	logger    *slog.Logger
}

// log returns the logger, falling back to a discard logger if nil.
func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers for parallel extraction.
// Values < 0 force serial processing. Zero uses runtime.GOMAXPROCS.
// Values > 0 force a specific worker count. The count never exceeds the
// number of jobs.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithReporter sets where per-entry messages are printed.
// Per-file messages force serial processing so they stay in archive order.
func WithReporter(r *Reporter) ProcessorOption {
	return func(p *Processor) {
		p.reporter = r
	}
}

// WithProgress sets a callback for progress events.
func WithProgress(fn ziptype.ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithProcessorLogger sets the logger for batch processing operations.
// If not set, logging is disabled.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor reading from source. Encrypted entries
// take their password from passwords; a nil coordinator means none is
// available.
func NewProcessor(source archive.Source, passwords *password.Coordinator, opts ...ProcessorOption) *Processor {
	if passwords == nil {
		passwords = password.New(nil, nil)
	}
	p := &Processor{
		source:    source,
		passwords: passwords,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Plan enumerates the archive once and builds an extraction plan.
func (p *Processor) Plan(opts PlanOptions) (*Plan, error) {
	p.emit(ziptype.ProgressEvent{Stage: ziptype.StagePlanning})
	r, err := p.source.Open()
	if err != nil {
		return nil, err
	}
	plan := BuildPlan(r, opts)
	p.log().Debug("plan built",
		"entries", r.Len(),
		"dirs", len(plan.Dirs),
		"jobs", len(plan.Jobs),
		"filtered", plan.Filtered,
		"unsafe", plan.Unsafe,
		"collisions", plan.Collisions,
		"encrypted", plan.Encrypted)
	if plan.Unsafe > 0 {
		p.log().Debug("entries dropped", "count", plan.Unsafe, "cause", ziptype.ErrInsecurePath)
	}
	return plan, nil
}

// Process executes plan against sink.
//
// Directories are prepared sequentially before any job is dispatched. Jobs
// are split into contiguous chunks, one per worker. A job that cannot be
// decrypted is counted as skipped; any other error stops every worker at its
// next job boundary and is returned. Sink.Finalize runs only after all
// workers have returned successfully.
//
// The returned Stats are valid even when an error is returned.
func (p *Processor) Process(ctx context.Context, plan *Plan, sink Sink) (Stats, error) {
	run := &run{p: p, plan: plan, sink: sink}
	run.counts.skipped.Add(int64(plan.Filtered))
	if f, ok := sink.(interface{ Flags() overwrite.Flags }); ok {
		run.skipReason = f.Flags().SkipReason()
	}

	p.emit(ziptype.ProgressEvent{Stage: ziptype.StageCreatingDirs, FilesTotal: len(plan.Jobs), BytesTotal: plan.TotalBytes})
	if err := sink.Prepare(plan); err != nil {
		return run.counts.snapshot(), err
	}

	workers, reason := p.workerCount(plan, sink)
	p.log().Debug("dispatching jobs", "jobs", len(plan.Jobs), "workers", workers, "reason", reason)

	var err error
	if workers <= 1 {
		err = run.worker(ctx, plan.Jobs)
	} else {
		err = run.parallel(ctx, workers)
	}
	if err != nil {
		return run.counts.snapshot(), err
	}

	p.emit(ziptype.ProgressEvent{
		Stage:      ziptype.StageFinalizing,
		BytesDone:  run.counts.bytes.Load(),
		BytesTotal: plan.TotalBytes,
		FilesDone:  len(plan.Jobs),
		FilesTotal: len(plan.Jobs),
	})
	sink.Finalize(plan)
	return run.counts.snapshot(), nil
}

// workerCount decides how many workers to use and why.
func (p *Processor) workerCount(plan *Plan, sink Sink) (int, string) {
	jobs := len(plan.Jobs)
	if p.workers < 0 {
		return 1, "serial requested"
	}
	if jobs < 2 {
		return 1, "fewer than two jobs"
	}
	if plan.Collisions {
		return 1, "colliding destinations"
	}
	if s, ok := sink.(interface{ Serial() bool }); ok && s.Serial() {
		return 1, "sink is serial"
	}
	if p.reporter.Verbose() {
		return 1, "per-file messages"
	}
	if plan.Encrypted {
		if _, ok := p.passwords.Cached(); !ok {
			if p.passwords.CanPrompt() {
				return 1, "password prompt pending"
			}
			return 1, "no password available"
		}
	}
	n := p.workers
	if n == 0 {
		n = runtime.GOMAXPROCS(0)
	}
	return min(n, jobs), "parallel"
}

func (p *Processor) emit(ev ziptype.ProgressEvent) {
	if p.progress != nil {
		p.progress(ev)
	}
}

// run holds the state shared by the workers of one Process call.
type run struct {
	p          *Processor
	plan       *Plan
	sink       Sink
	skipReason string

	counts    counters
	filesDone atomic.Int64
}

func (r *run) parallel(ctx context.Context, workers int) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range partition(len(r.plan.Jobs), workers) {
		r.p.log().Debug("worker chunk", "start", c.start, "end", c.end)
		g.Go(func() error {
			return r.worker(gctx, r.plan.Jobs[c.start:c.end])
		})
	}
	return g.Wait()
}

// worker processes jobs in order with its own reader and buffer.
func (r *run) worker(ctx context.Context, jobs []FileJob) error {
	if len(jobs) == 0 {
		return nil
	}
	reader, err := r.p.source.Open()
	if err != nil {
		return err
	}
	buf := make([]byte, bufferSize)
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.job(ctx, reader, &jobs[i], buf); err != nil {
			return err
		}
		r.done(&jobs[i])
	}
	return nil
}

func (r *run) job(ctx context.Context, reader archive.Reader, job *FileJob, buf []byte) error {
	rep := r.p.reporter
	switch r.sink.Decide(job) {
	case overwrite.Skip:
		r.counts.skipped.Add(1)
		rep.Skipping(job.Name, r.skipReason)
		return nil
	case overwrite.SkipQuietly:
		r.counts.skipped.Add(1)
		return nil
	case overwrite.Write:
	}

	rc, err := r.p.open(ctx, reader, job)
	if err != nil {
		return r.entryError(job, err)
	}
	defer rc.Close()

	w, err := r.sink.Writer(job)
	if err != nil {
		return err
	}
	n, err := io.CopyBuffer(w, rc, buf)
	if err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return r.entryError(job, err)
	}
	if err := w.Commit(); err != nil {
		return err
	}
	r.counts.extracted.Add(1)
	r.counts.bytes.Add(uint64(n)) //nolint:gosec // n is non-negative
	rep.Extracting(job.Name)
	return nil
}

// open returns the decoded content of job, resolving the password first
// for encrypted entries.
func (p *Processor) open(ctx context.Context, reader archive.Reader, job *FileJob) (io.ReadCloser, error) {
	if !job.Encrypted {
		return reader.Open(job.Index)
	}
	pw, err := p.passwords.Password(ctx)
	if err != nil {
		return nil, err
	}
	return reader.OpenDecrypt(job.Index, pw)
}

// entryError counts password failures as skipped and passes everything
// else through as fatal.
func (r *run) entryError(job *FileJob, err error) error {
	if ziptype.IsPasswordError(err) {
		r.counts.skipped.Add(1)
		r.p.reporter.Error(job.Name, err)
		return nil
	}
	return fmt.Errorf("batch: %s: %w", job.Name, err)
}

func (r *run) done(job *FileJob) {
	if r.p.progress == nil {
		return
	}
	r.p.emit(ziptype.ProgressEvent{
		Stage:      ziptype.StageExtracting,
		Path:       job.Name,
		BytesDone:  r.counts.bytes.Load(),
		BytesTotal: r.plan.TotalBytes,
		FilesDone:  int(r.filesDone.Add(1)),
		FilesTotal: len(r.plan.Jobs),
	})
}
