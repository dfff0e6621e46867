package batch

import (
	"io/fs"
	"strings"
	"time"

	"github.com/meigma/unzip/internal/archive"
	"github.com/meigma/unzip/internal/filter"
	"github.com/meigma/unzip/internal/pathutil"
	"github.com/meigma/unzip/internal/sizing"
)

// DirRecord is a directory created before dispatch. Its timestamp is
// restored after every file has been written.
type DirRecord struct {
	// Rel is the slash-separated path relative to the output root.
	Rel     string
	ModTime time.Time // zero when the archive has no timestamp
}

// FileJob is one file entry scheduled for extraction.
type FileJob struct {
	Index int
	// Name is the entry name as stored in the archive, used in messages.
	Name string
	// Rel is the slash-separated destination relative to the output root.
	// It is empty in pipe mode.
	Rel       string
	Size      uint64
	ModTime   time.Time // zero when the archive has no timestamp
	Mode      fs.FileMode
	HasMode   bool
	Encrypted bool
}

// Plan is the result of one pass over the central directory.
type Plan struct {
	Dirs []DirRecord
	Jobs []FileJob

	// Filtered counts file entries rejected by the include/exclude filter.
	// They are reported as skipped.
	Filtered int
	// Unsafe counts entries whose names escape the output root. They are
	// dropped without being counted as skipped.
	Unsafe int
	// Collisions is true when two jobs share a destination path. Their
	// outcome depends on order, so such plans run serially.
	Collisions bool
	// Encrypted is true when at least one job needs a password.
	Encrypted bool
	// TotalBytes is the declared uncompressed size of all jobs.
	TotalBytes uint64
}

// PlanOptions selects and names the entries of a plan.
type PlanOptions struct {
	Filter    *filter.Filter
	JunkPaths bool
	Lowercase bool
	// Pipe plans for stream output: no directories and no destination paths.
	Pipe bool
}

// BuildPlan splits the entries of r into directories and file jobs.
//
// The filter applies to file entries only, matched against the stored name.
// Destination paths come from the reader's containment-checked path, reduced
// to the base name in junk mode and lowercased on request. Entries that
// escape the output root are dropped and counted in Unsafe.
func BuildPlan(r archive.Reader, opts PlanOptions) *Plan {
	plan := &Plan{}
	seen := make(map[string]struct{})
	for i := range r.Len() {
		e := r.Entry(i)
		if e.IsDir {
			if opts.Pipe || opts.JunkPaths {
				continue
			}
			rel, ok := destination(r, i, opts)
			if !ok {
				plan.Unsafe++
				continue
			}
			plan.Dirs = append(plan.Dirs, DirRecord{Rel: rel, ModTime: e.ModTime()})
			continue
		}

		if !opts.Filter.Match(e.Name) {
			plan.Filtered++
			continue
		}

		job := FileJob{
			Index:     i,
			Name:      e.Name,
			Size:      e.Size,
			ModTime:   e.ModTime(),
			Mode:      e.Mode,
			HasMode:   e.HasMode,
			Encrypted: e.Encrypted,
		}
		if !opts.Pipe {
			rel, ok := destination(r, i, opts)
			if !ok {
				plan.Unsafe++
				continue
			}
			job.Rel = rel
			if _, dup := seen[rel]; dup {
				plan.Collisions = true
			}
			seen[rel] = struct{}{}
		}
		plan.Jobs = append(plan.Jobs, job)
		plan.TotalBytes = sizing.SaturatingAdd(plan.TotalBytes, e.Size)
		if e.Encrypted {
			plan.Encrypted = true
		}
	}
	return plan
}

func destination(r archive.Reader, i int, opts PlanOptions) (string, bool) {
	rel, ok := r.ValidatedPath(i)
	if !ok {
		return "", false
	}
	if opts.JunkPaths {
		rel = pathutil.Base(rel)
	}
	if opts.Lowercase {
		rel = strings.ToLower(rel)
	}
	return rel, true
}
