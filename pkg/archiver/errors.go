package archiver

import "errors"

// Sentinel errors for package archiver.
// Every error returned by an Archiver wraps exactly one of them.
var (
	// ErrUnsupported means the zip format is not available in this build.
	ErrUnsupported = errors.New("archive support unavailable")

	// ErrNotFound means a required input path does not exist.
	ErrNotFound = errors.New("not found")

	// ErrIO means an archive could not be opened, created, read or finalized.
	ErrIO = errors.New("archive i/o")

	// ErrInvalidArgument means the caller supplied unusable input.
	ErrInvalidArgument = errors.New("invalid argument")
)
