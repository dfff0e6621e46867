package unzip

import "github.com/meigma/unzip/internal/ziptype"

// Re-export progress types from internal/ziptype.
type (
	// ProgressEvent represents a progress update during extraction or testing.
	ProgressEvent = ziptype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = ziptype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// Implementations must be safe for concurrent calls.
	ProgressFunc = ziptype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StagePlanning indicates the central directory is being enumerated.
	StagePlanning = ziptype.StagePlanning

	// StageCreatingDirs indicates output directories are being created.
	StageCreatingDirs = ziptype.StageCreatingDirs

	// StageExtracting indicates file entries are being written.
	StageExtracting = ziptype.StageExtracting

	// StageFinalizing indicates directory timestamps are being restored.
	StageFinalizing = ziptype.StageFinalizing

	// StageTesting indicates entries are being verified without writing.
	StageTesting = ziptype.StageTesting
)
