package batch

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/meigma/unzip/internal/overwrite"
	"github.com/meigma/unzip/internal/pathutil"
	"github.com/meigma/unzip/internal/platform"
	"github.com/meigma/unzip/internal/sizing"
	"github.com/meigma/unzip/internal/ziptype"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644
)

// FileSink writes jobs below an output directory.
//
// All filesystem access goes through an os.Root opened on the output
// directory, so no path can resolve outside of it. Files are written to a
// temporary file in the destination directory and renamed to the final path
// on Commit; a partially written file is never visible at the final path.
type FileSink struct {
	destDir   string
	flags     overwrite.Flags
	skipTimes bool
	logger    *slog.Logger

	root *os.Root
}

// FileSinkOption configures a FileSink.
type FileSinkOption func(*FileSink)

// WithOverwriteFlags sets the policy for files that already exist.
// By default, existing files are skipped.
func WithOverwriteFlags(flags overwrite.Flags) FileSinkOption {
	return func(s *FileSink) {
		s.flags = flags
	}
}

// WithSkipTimestamps leaves file and directory times at the time of writing.
func WithSkipTimestamps(skip bool) FileSinkOption {
	return func(s *FileSink) {
		s.skipTimes = skip
	}
}

// WithSinkLogger sets the logger for best-effort failures.
func WithSinkLogger(logger *slog.Logger) FileSinkOption {
	return func(s *FileSink) {
		s.logger = logger
	}
}

// NewFileSink creates a FileSink that writes to destDir.
// The directory is created by Prepare.
func NewFileSink(destDir string, opts ...FileSinkOption) *FileSink {
	s := &FileSink{destDir: destDir}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *FileSink) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Flags returns the overwrite policy in effect.
func (s *FileSink) Flags() overwrite.Flags {
	return s.flags
}

// Prepare creates the output directory, every directory entry of the plan
// and the parent directory of every job, in plan order.
func (s *FileSink) Prepare(plan *Plan) error {
	if err := os.MkdirAll(s.destDir, dirPerm); err != nil {
		return fmt.Errorf("create output directory %s: %w", s.destDir, err)
	}
	root, err := os.OpenRoot(s.destDir)
	if err != nil {
		return fmt.Errorf("open output directory %s: %w", s.destDir, err)
	}
	s.root = root

	created := make(map[string]struct{}, len(plan.Dirs))
	mkdir := func(rel string) error {
		if rel == "" {
			return nil
		}
		if _, ok := created[rel]; ok {
			return nil
		}
		if err := root.MkdirAll(filepath.FromSlash(rel), dirPerm); err != nil {
			return fmt.Errorf("create directory %s: %w", filepath.Join(s.destDir, filepath.FromSlash(rel)), err)
		}
		created[rel] = struct{}{}
		return nil
	}
	for _, d := range plan.Dirs {
		if err := mkdir(d.Rel); err != nil {
			return err
		}
	}
	for i := range plan.Jobs {
		if err := mkdir(pathutil.Dir(plan.Jobs[i].Rel)); err != nil {
			return err
		}
	}
	return nil
}

// Decide stats the destination and applies the overwrite policy.
func (s *FileSink) Decide(job *FileJob) overwrite.Decision {
	st := overwrite.State{ArchiveModTime: job.ModTime}
	info, err := s.root.Stat(filepath.FromSlash(job.Rel))
	if err == nil {
		st.Exists = true
		st.DiskModTime = info.ModTime()
	} else if !errors.Is(err, fs.ErrNotExist) {
		s.log().Debug("stat destination", "path", job.Rel, "error", err)
	}
	return overwrite.Decide(st, s.flags)
}

// Writer returns a Committer that writes to a temp file next to the
// destination and renames it on Commit.
func (s *FileSink) Writer(job *FileJob) (Committer, error) {
	destRel := filepath.FromSlash(job.Rel)
	tempFile, tempRel, err := createTempFile(s.root, filepath.Dir(destRel), ".unzip-")
	if err != nil {
		return nil, fmt.Errorf("create file %s: %w", s.path(destRel), err)
	}
	if size, err := sizing.ToInt64(job.Size, ziptype.ErrSizeOverflow); err == nil && size > 0 {
		if err := platform.Preallocate(tempFile, size); err != nil {
			s.log().Debug("preallocate", "path", job.Rel, "error", err)
		}
	}
	return &fileCommitter{
		job:      job,
		destRel:  destRel,
		tempFile: tempFile,
		tempRel:  tempRel,
		sink:     s,
	}, nil
}

// Finalize restores directory timestamps, deepest first, so that writing a
// child does not disturb a parent that was already restored.
func (s *FileSink) Finalize(plan *Plan) {
	if s.skipTimes {
		return
	}
	for _, d := range slices.Backward(plan.Dirs) {
		if d.ModTime.IsZero() {
			continue
		}
		if err := s.root.Chtimes(filepath.FromSlash(d.Rel), d.ModTime, d.ModTime); err != nil {
			s.log().Debug("restore directory time", "path", d.Rel, "error", err)
		}
	}
}

// Close releases the output directory handle.
func (s *FileSink) Close() error {
	if s.root == nil {
		return nil
	}
	err := s.root.Close()
	s.root = nil
	return err
}

func (s *FileSink) path(rel string) string {
	return filepath.Join(s.destDir, rel)
}

// fileCommitter writes to a temp file and renames on Commit.
type fileCommitter struct {
	job      *FileJob
	destRel  string
	tempFile *os.File
	tempRel  string
	written  int64
	sink     *FileSink
}

// Write implements io.Writer.
func (c *fileCommitter) Write(p []byte) (int, error) {
	n, err := c.tempFile.Write(p)
	c.written += int64(n)
	return n, err
}

// Commit closes the temp file, applies metadata, and renames to the final path.
// Metadata failures are logged and otherwise ignored.
func (c *fileCommitter) Commit() error {
	root := c.sink.root
	log := c.sink.log()

	if err := platform.DropCache(c.tempFile, c.written); err != nil {
		log.Debug("drop page cache", "path", c.job.Rel, "error", err)
	}
	if err := c.tempFile.Close(); err != nil {
		_ = root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("close file %s: %w", c.sink.path(c.destRel), err)
	}

	if c.job.HasMode {
		if err := root.Chmod(c.tempRel, c.job.Mode.Perm()); err != nil {
			log.Debug("restore mode", "path", c.job.Rel, "error", err)
		}
	}
	if !c.sink.skipTimes && !c.job.ModTime.IsZero() {
		if err := root.Chtimes(c.tempRel, c.job.ModTime, c.job.ModTime); err != nil {
			log.Debug("restore time", "path", c.job.Rel, "error", err)
		}
	}

	if err := root.Rename(c.tempRel, c.destRel); err != nil {
		_ = root.Remove(c.tempRel) //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("rename to %s: %w", c.sink.path(c.destRel), err)
	}
	return nil
}

// Discard closes and removes the temp file.
func (c *fileCommitter) Discard() error {
	_ = c.tempFile.Close() //nolint:errcheck // best-effort cleanup
	return c.sink.root.Remove(c.tempRel)
}

func createTempFile(root *os.Root, dir, prefix string) (*os.File, string, error) {
	const attempts = 10
	for range attempts {
		name, err := randomSuffix()
		if err != nil {
			return nil, "", err
		}
		relPath := filepath.Join(dir, prefix+name)
		f, err := root.OpenFile(relPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm)
		if err == nil {
			return f, relPath, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", err
		}
	}
	return nil, "", errors.New("create temp file: exhausted retries")
}

func randomSuffix() (string, error) {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// PipeSink concatenates the content of every job onto one writer.
// Nothing is created on disk and the overwrite policy does not apply.
type PipeSink struct {
	w io.Writer
}

// NewPipeSink returns a PipeSink writing to w.
func NewPipeSink(w io.Writer) *PipeSink {
	return &PipeSink{w: w}
}

// Prepare is a no-op.
func (*PipeSink) Prepare(*Plan) error { return nil }

// Decide always writes.
func (*PipeSink) Decide(*FileJob) overwrite.Decision { return overwrite.Write }

// Writer returns the shared stream.
func (s *PipeSink) Writer(*FileJob) (Committer, error) {
	return pipeCommitter{s.w}, nil
}

// Finalize is a no-op.
func (*PipeSink) Finalize(*Plan) {}

// Serial reports that jobs must not be interleaved.
func (*PipeSink) Serial() bool { return true }

// pipeCommitter passes bytes straight through; what was written stays written.
type pipeCommitter struct {
	io.Writer
}

func (pipeCommitter) Commit() error  { return nil }
func (pipeCommitter) Discard() error { return nil }
