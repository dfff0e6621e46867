// Package overwrite decides what happens when an extracted file may collide
// with one already on disk.
package overwrite

import "time"

// Decision is the outcome for a single output path.
type Decision uint8

const (
	// Write creates or replaces the output file.
	Write Decision = iota
	// Skip leaves the existing file alone and reports it.
	Skip
	// SkipQuietly leaves the path alone without reporting it.
	SkipQuietly
)

// String returns the string representation of the decision.
func (d Decision) String() string {
	switch d {
	case Write:
		return "write"
	case Skip:
		return "skip"
	case SkipQuietly:
		return "skip quietly"
	default:
		return "unknown"
	}
}

// Flags mirrors the user's overwrite switches.
type Flags struct {
	Overwrite      bool
	NeverOverwrite bool
	// Freshen only replaces existing files that are older than the archive copy.
	Freshen bool
	// Update behaves like Freshen but also creates missing files.
	Update bool
}

// State describes the output path at decision time.
type State struct {
	Exists bool
	// DiskModTime is ignored unless Exists is set.
	DiskModTime time.Time
	// ArchiveModTime is the entry's timestamp; the zero value means unknown.
	ArchiveModTime time.Time
}

// Decide applies the overwrite rules in order:
//
//  1. missing path: SkipQuietly under Freshen, otherwise Write
//  2. existing path under Freshen or Update: Write only if the archive copy is
//     strictly newer, otherwise SkipQuietly
//  3. existing path with NeverOverwrite: Skip
//  4. existing path with Overwrite: Write
//  5. existing path otherwise: Skip
func Decide(st State, f Flags) Decision {
	if !st.Exists {
		if f.Freshen {
			return SkipQuietly
		}
		return Write
	}
	if f.Freshen || f.Update {
		if st.ArchiveModTime.IsZero() || !st.ArchiveModTime.After(st.DiskModTime) {
			return SkipQuietly
		}
		return Write
	}
	if f.NeverOverwrite {
		return Skip
	}
	if f.Overwrite {
		return Write
	}
	return Skip
}

// SkipReason is the parenthetical shown next to a reported skip.
func (f Flags) SkipReason() string {
	if f.NeverOverwrite {
		return "already exists"
	}
	return "use -o to overwrite"
}
