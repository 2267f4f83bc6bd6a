package cats

import "github.com/meigma/cats/internal/cattype"

type (
	// Error is the error type returned by every operation in this package.
	Error = cattype.Error

	// Kind identifies a failure class and its exit code.
	Kind = cattype.Kind
)

// Error kinds.
const (
	KindUnknownArgument         = cattype.KindUnknownArgument
	KindInvalidInputPath        = cattype.KindInvalidInputPath
	KindFailedToOpenInput       = cattype.KindFailedToOpenInput
	KindInvalidFileType         = cattype.KindInvalidFileType
	KindUnknownVersion          = cattype.KindUnknownVersion
	KindInvalidMetadata         = cattype.KindInvalidMetadata
	KindFailedToCompressData    = cattype.KindFailedToCompressData
	KindInvalidEntryName        = cattype.KindInvalidEntryName
	KindInvalidEntryData        = cattype.KindInvalidEntryData
	KindInvalidEntryType        = cattype.KindInvalidEntryType
	KindUnableToCreateDirectory = cattype.KindUnableToCreateDirectory
	KindErrorWritingFile        = cattype.KindErrorWritingFile
	KindErrorReadingFile        = cattype.KindErrorReadingFile
	KindErrorWritingMetadata    = cattype.KindErrorWritingMetadata
	KindErrorReadingMetadata    = cattype.KindErrorReadingMetadata
)

// Sentinel errors for errors.Is; only the Kind is compared.
var (
	// ErrUnknownArgument is returned for unrecognized command-line arguments.
	ErrUnknownArgument = cattype.ErrUnknownArgument

	// ErrInvalidInputPath is returned when an input path is missing or the wrong type.
	ErrInvalidInputPath = cattype.ErrInvalidInputPath

	// ErrFailedToOpenInput is returned when the input archive cannot be opened.
	ErrFailedToOpenInput = cattype.ErrFailedToOpenInput

	// ErrInvalidFileType is returned when the input does not start with Magic.
	ErrInvalidFileType = cattype.ErrInvalidFileType

	// ErrUnknownVersion is returned for archives with a version other than Version.
	ErrUnknownVersion = cattype.ErrUnknownVersion

	// ErrInvalidMetadata is returned for structurally invalid headers.
	ErrInvalidMetadata = cattype.ErrInvalidMetadata

	// ErrFailedToCompressData is returned when gzip compression fails.
	ErrFailedToCompressData = cattype.ErrFailedToCompressData

	// ErrInvalidEntryName is returned for names that are empty, "..", too
	// long, or contain '/', '\' or non-printable characters.
	ErrInvalidEntryName = cattype.ErrInvalidEntryName

	// ErrInvalidEntryData is returned when file data is out of range or fails to decompress.
	ErrInvalidEntryData = cattype.ErrInvalidEntryData

	// ErrInvalidEntryType is returned for unknown entry type tags.
	ErrInvalidEntryType = cattype.ErrInvalidEntryType

	// ErrUnableToCreateDirectory is returned when an output directory cannot be created.
	ErrUnableToCreateDirectory = cattype.ErrUnableToCreateDirectory

	// ErrErrorWritingFile is returned when a file cannot be written.
	ErrErrorWritingFile = cattype.ErrErrorWritingFile

	// ErrErrorReadingFile is returned when a file cannot be read.
	ErrErrorReadingFile = cattype.ErrErrorReadingFile

	// ErrErrorWritingMetadata is returned when the header cannot be encoded.
	ErrErrorWritingMetadata = cattype.ErrErrorWritingMetadata

	// ErrErrorReadingMetadata is returned when the header cannot be decoded.
	ErrErrorReadingMetadata = cattype.ErrErrorReadingMetadata
)

// ExitCode maps an error to a process exit code: 0 for nil, the Kind's
// code for an *Error, and -1 for anything else.
func ExitCode(err error) int {
	return cattype.ExitCode(err)
}
