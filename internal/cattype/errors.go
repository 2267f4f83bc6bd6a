package cattype

import (
	"errors"
	"fmt"

	"github.com/meigma/cats/internal/pathctx"
)

// Kind identifies a failure class. Each kind maps to a fixed process exit code.
type Kind uint8

const (
	KindUnknownArgument Kind = iota + 1
	KindInvalidInputPath
	KindFailedToOpenInput
	KindInvalidFileType
	KindUnknownVersion
	KindInvalidMetadata
	KindFailedToCompressData
	KindInvalidEntryName
	KindInvalidEntryData
	KindInvalidEntryType
	KindUnableToCreateDirectory
	KindErrorWritingFile
	KindErrorReadingFile
	KindErrorWritingMetadata
	KindErrorReadingMetadata
)

// ExitCode returns the process exit code for the kind.
// These values are relied on by scripts; do not renumber them.
func (k Kind) ExitCode() int {
	switch k {
	case KindUnknownArgument, KindInvalidInputPath, KindFailedToOpenInput, KindInvalidFileType:
		return -1
	case KindUnknownVersion:
		return 1
	case KindInvalidMetadata:
		return 2
	case KindFailedToCompressData:
		return -2
	case KindInvalidEntryName:
		return 100
	case KindInvalidEntryData:
		return 101
	case KindInvalidEntryType:
		return 102
	case KindUnableToCreateDirectory:
		return 200
	case KindErrorWritingFile:
		return 201
	case KindErrorReadingFile:
		return 202
	case KindErrorWritingMetadata:
		return 203
	case KindErrorReadingMetadata:
		return 204
	default:
		return -1
	}
}

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindUnknownArgument:
		return "UnknownArgument"
	case KindInvalidInputPath:
		return "InvalidInputPath"
	case KindFailedToOpenInput:
		return "FailedToOpenInput"
	case KindInvalidFileType:
		return "InvalidFileType"
	case KindUnknownVersion:
		return "UnknownVersion"
	case KindInvalidMetadata:
		return "InvalidMetadata"
	case KindFailedToCompressData:
		return "FailedToCompressData"
	case KindInvalidEntryName:
		return "InvalidEntryName"
	case KindInvalidEntryData:
		return "InvalidEntryData"
	case KindInvalidEntryType:
		return "InvalidEntryType"
	case KindUnableToCreateDirectory:
		return "UnableToCreateDirectory"
	case KindErrorWritingFile:
		return "ErrorWritingFile"
	case KindErrorReadingFile:
		return "ErrorReadingFile"
	case KindErrorWritingMetadata:
		return "ErrorWritingMetadata"
	case KindErrorReadingMetadata:
		return "ErrorReadingMetadata"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Error is the single error type returned by pack, unpack and archive reads.
//
// Metadata and layout failures carry a Context naming the field that failed.
// Filesystem failures carry the Path involved. Err holds the underlying cause,
// when there is one, and its text is rendered as the reason.
type Error struct {
	Kind    Kind
	Context *pathctx.Context
	Path    string
	Byte    uint8
	Err     error
}

// Sentinel values for errors.Is. Only the Kind is compared.
var (
	ErrUnknownArgument         = &Error{Kind: KindUnknownArgument}
	ErrInvalidInputPath        = &Error{Kind: KindInvalidInputPath}
	ErrFailedToOpenInput       = &Error{Kind: KindFailedToOpenInput}
	ErrInvalidFileType         = &Error{Kind: KindInvalidFileType}
	ErrUnknownVersion          = &Error{Kind: KindUnknownVersion}
	ErrInvalidMetadata         = &Error{Kind: KindInvalidMetadata}
	ErrFailedToCompressData    = &Error{Kind: KindFailedToCompressData}
	ErrInvalidEntryName        = &Error{Kind: KindInvalidEntryName}
	ErrInvalidEntryData        = &Error{Kind: KindInvalidEntryData}
	ErrInvalidEntryType        = &Error{Kind: KindInvalidEntryType}
	ErrUnableToCreateDirectory = &Error{Kind: KindUnableToCreateDirectory}
	ErrErrorWritingFile        = &Error{Kind: KindErrorWritingFile}
	ErrErrorReadingFile        = &Error{Kind: KindErrorReadingFile}
	ErrErrorWritingMetadata    = &Error{Kind: KindErrorWritingMetadata}
	ErrErrorReadingMetadata    = &Error{Kind: KindErrorReadingMetadata}
)

// Error renders a one-line, human-readable message.
func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownArgument:
		return "Unknown Argument" + e.reason()
	case KindInvalidInputPath:
		return fmt.Sprintf("Invalid input path '%s'", e.Path) + e.reason()
	case KindFailedToOpenInput:
		return fmt.Sprintf("Failed to read '%s' reason: %s", e.Path, e.cause())
	case KindInvalidFileType:
		return "Invalid filetype" + e.reason()
	case KindUnknownVersion:
		return "Unknown Version" + e.reason()
	case KindInvalidMetadata:
		return fmt.Sprintf("Invalid Metadata at '%s'", e.Context) + e.reason()
	case KindFailedToCompressData:
		return fmt.Sprintf("Failed to compress data for '%s' reason: %s", e.Context, e.cause())
	case KindInvalidEntryName:
		return fmt.Sprintf("Invalid filename at '%s'", e.Context) + e.reason()
	case KindInvalidEntryData:
		return fmt.Sprintf("Invalid entry data at '%s'", e.Context) + e.reason()
	case KindInvalidEntryType:
		return fmt.Sprintf("Invalid entry type %d at '%s'", e.Byte, e.Context) + e.reason()
	case KindUnableToCreateDirectory:
		return fmt.Sprintf("Unable to create directory '%s'", e.Path) + e.reason()
	case KindErrorWritingFile:
		return fmt.Sprintf("Failed to write '%s' reason: %s", e.Path, e.cause())
	case KindErrorReadingFile:
		return fmt.Sprintf("Failed to read '%s' reason: %s", e.Path, e.cause())
	case KindErrorWritingMetadata:
		return fmt.Sprintf("Failed to write metadata for '%s' reason: %s", e.Context, e.cause())
	case KindErrorReadingMetadata:
		return fmt.Sprintf("Failed to read metadata for '%s' reason: %s", e.Context, e.cause())
	default:
		return e.Kind.String() + e.reason()
	}
}

func (e *Error) cause() string {
	if e.Err == nil {
		return ""
	}
	return e.Err.Error()
}

// reason renders the optional cause for kinds whose message does not
// always carry one.
func (e *Error) reason() string {
	if e.Err == nil {
		return ""
	}
	return " reason: " + e.Err.Error()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same Kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ExitCode returns the process exit code for the error.
func (e *Error) ExitCode() int {
	return e.Kind.ExitCode()
}

// ExitCode maps any error to a process exit code: 0 for nil, the kind's
// code for an *Error anywhere in the chain, and -1 otherwise.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ce *Error
	if errors.As(err, &ce) {
		return ce.ExitCode()
	}
	return -1
}

// WrapContext converts a low-level failure into a context-carrying error of
// the given kind. It returns nil when err is nil and passes an *Error
// through unchanged so that the innermost context wins.
func WrapContext(err error, ctx *pathctx.Context, kind Kind) error {
	if err == nil {
		return nil
	}
	if ce, ok := err.(*Error); ok {
		return ce
	}
	return &Error{Kind: kind, Context: ctx, Err: err}
}

// WithContext returns an error of the given kind carrying ctx and an
// optional cause.
func WithContext(kind Kind, ctx *pathctx.Context, cause error) *Error {
	return &Error{Kind: kind, Context: ctx, Err: cause}
}

// WithPath returns an error of the given kind carrying a filesystem path and
// an optional cause.
func WithPath(kind Kind, path string, cause error) *Error {
	return &Error{Kind: kind, Path: path, Err: cause}
}

// InvalidEntryType returns an error for an unrecognized entry type tag.
func InvalidEntryType(ctx *pathctx.Context, tag uint8) *Error {
	return &Error{Kind: KindInvalidEntryType, Context: ctx, Byte: tag}
}
