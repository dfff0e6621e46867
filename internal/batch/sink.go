package batch

import (
	"io"

	"github.com/meigma/unzip/internal/overwrite"
)

// Sink receives decoded entry content during extraction.
//
// Implementations determine where content is written (a directory tree or a
// single stream) and decide per job whether it should be written at all.
type Sink interface {
	// Prepare runs once, before any job is dispatched. Directory sinks
	// create the output root and every directory in the plan here.
	Prepare(plan *Plan) error

	// Decide resolves the overwrite decision for a job.
	Decide(job *FileJob) overwrite.Decision

	// Writer returns a writer for the job's content.
	// The returned Committer must have Commit() called after the entry was
	// read to completion, or Discard() called on any error.
	Writer(job *FileJob) (Committer, error)

	// Finalize runs once after every worker has returned without error.
	Finalize(plan *Plan)
}

// Committer is a writer that can be committed or discarded.
//
// A file-based implementation writes to a temp file and renames it on
// Commit, or deletes it on Discard.
type Committer interface {
	io.Writer

	// Commit finalizes the write, making content visible at its path.
	Commit() error

	// Discard aborts the write and cleans up any temporary resources.
	Discard() error
}
