package cattype

// ProgressEvent represents a progress update during pack or unpack.
type ProgressEvent struct {
	// Stage identifies the current phase of the operation.
	Stage ProgressStage

	// Path is the entry currently being processed, if applicable.
	Path string

	// BytesDone is the number of data bytes handled so far.
	BytesDone uint64

	// FilesDone is the number of files handled so far.
	FilesDone int

	// FilesTotal is the total number of files.
	// Zero indicates the total is unknown (e.g., while walking).
	FilesTotal int
}

// ProgressStage identifies the current phase of an operation.
type ProgressStage uint8

// Progress stages for pack and unpack.
const (
	// StageWalking indicates the source directory tree is being walked.
	StageWalking ProgressStage = iota

	// StageStoring indicates a file's content was added to the data region.
	StageStoring

	// StageWritingArchive indicates the archive file is being written.
	StageWritingArchive

	// StageDecodingHeader indicates the archive header is being decoded.
	StageDecodingHeader

	// StageExtracting indicates files are being written to disk.
	StageExtracting
)

// String returns the string representation of the stage.
func (s ProgressStage) String() string {
	switch s {
	case StageWalking:
		return "walking"
	case StageStoring:
		return "storing"
	case StageWritingArchive:
		return "writing archive"
	case StageDecodingHeader:
		return "decoding header"
	case StageExtracting:
		return "extracting"
	default:
		return "unknown"
	}
}

// ProgressFunc receives progress updates during operations.
// Implementations must be safe for concurrent calls.
type ProgressFunc func(ProgressEvent)
