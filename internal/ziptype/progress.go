// Package ziptype holds types shared between the public API and the internal
// extraction packages.
package ziptype

// ProgressEvent represents a progress update during extraction or testing.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of bytes written so far.
	BytesDone uint64

	// BytesTotal is the total uncompressed size of the selected entries.
	// Zero indicates the total is unknown.
	BytesTotal uint64

	// FilesDone is the number of file entries finished (written or skipped).
	FilesDone int

	// FilesTotal is the total number of file entries in the run.
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for extraction and testing.
const (
	// StagePlanning indicates the central directory is being enumerated.
	StagePlanning ProgressStage = iota

	// StageCreatingDirs indicates output directories are being created.
	StageCreatingDirs

	// StageExtracting indicates file entries are being written.
	StageExtracting

	// StageFinalizing indicates directory timestamps are being restored.
	StageFinalizing

	// StageTesting indicates entries are being verified without writing.
	StageTesting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StagePlanning:
		return "planning"
	case StageCreatingDirs:
		return "creating directories"
	case StageExtracting:
		return "extracting"
	case StageFinalizing:
		return "finalizing"
	case StageTesting:
		return "testing"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
