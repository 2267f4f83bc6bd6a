package cats

import "github.com/meigma/cats/internal/cattype"

// Re-export progress types.
type (
	// ProgressEvent represents a progress update during pack or unpack.
	ProgressEvent = cattype.ProgressEvent

	// ProgressStage identifies the current phase of an operation.
	ProgressStage = cattype.ProgressStage

	// ProgressFunc receives progress updates during operations.
	// Implementations must be safe for concurrent calls.
	ProgressFunc = cattype.ProgressFunc
)

// Re-export progress stage constants.
const (
	// StageWalking indicates the source directory tree is being walked.
	StageWalking = cattype.StageWalking

	// StageStoring indicates a file's content was added to the data region.
	StageStoring = cattype.StageStoring

	// StageWritingArchive indicates the archive file is being written.
	StageWritingArchive = cattype.StageWritingArchive

	// StageDecodingHeader indicates the archive header is being decoded.
	StageDecodingHeader = cattype.StageDecodingHeader

	// StageExtracting indicates files are being written to disk.
	StageExtracting = cattype.StageExtracting
)
