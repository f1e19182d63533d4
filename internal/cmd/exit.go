package cmd

import (
	"errors"
	"fmt"
	"log"

	"github.com/nguyengg/tailzip/z"
)

const (
	// ExitOK is returned when the command succeeds.
	ExitOK = 0
	// ExitIO is returned when a blob cannot be opened, read, or written.
	ExitIO = 1
	// ExitNoData is returned when the embedded archive or the requested file is missing or unsupported.
	ExitNoData = 2
)

// Error is a failed command with the exit code and the short message that the process should end with.
//
// The underlying error is kept for logging and errors.Is.
type Error struct {
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode returns the process exit code for the error returned by a command.
//
// Errors that are not Error (such as flag parsing errors) are treated as ExitIO.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}

	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}

	return ExitIO
}

// openError classifies an error from locating the archive embedded in the named blob.
func openError(blob string, err error) error {
	if errors.Is(err, z.ErrNoDirectory) {
		return &Error{ExitNoData, "You need to embed patch data before running this program!", err}
	}

	return &Error{ExitIO, fmt.Sprintf("Error reading from file: %s", blob), err}
}

// lookupError classifies an error from finding or reading the named file in the archive embedded in blob.
func lookupError(blob, name string, err error) error {
	switch {
	case errors.Is(err, z.ErrNoDirectory):
		return &Error{ExitNoData, "Unable to find internal file list.", err}
	case errors.Is(err, z.ErrNotFound):
		return &Error{ExitNoData, fmt.Sprintf("Unable to find internal file: %s", name), err}
	case errors.Is(err, z.ErrUnsupportedAlgorithm):
		return &Error{ExitNoData, fmt.Sprintf("Unsupported compression algorithm used for: %s", name), err}
	default:
		return &Error{ExitIO, fmt.Sprintf("Error reading from file: %s", blob), err}
	}
}

// spliceError classifies an error from splicing the replacement archive.
func spliceError(err error) error {
	if errors.Is(err, z.ErrUnsupportedAlgorithm) {
		return &Error{ExitNoData, "Unsupported feature found in .zip file.", err}
	}

	return &Error{ExitIO, "Error reading replacement .zip", err}
}

// logCause logs the underlying error of a failed command since only the short message is printed on exit.
func logCause(logger *log.Logger, err error) {
	var e *Error
	if errors.As(err, &e) && e.Err != nil {
		err = e.Err
	}

	logger.Printf("error: %v", err)
}
