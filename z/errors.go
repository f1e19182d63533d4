package z

import "errors"

var (
	// ErrIO is returned when a read or write transfers fewer bytes than requested, or when a record cannot be
	// decoded because its fields are out of bounds.
	ErrIO = errors.New("short read or write")

	// ErrNoDirectory is returned if the end of central directory record is not found within the lookback window, or
	// if a central directory record has the wrong signature.
	//
	// This usually means the blob has no archive embedded in it yet.
	ErrNoDirectory = errors.New("central directory not found")

	// ErrNotFound is returned if no entry in the central directory has the requested name, or if the central
	// directory points to an invalid local file header.
	ErrNotFound = errors.New("file not found in archive")

	// ErrUnsupportedAlgorithm is returned if an entry uses a compression method other than store, or if an unknown
	// record is encountered while splicing.
	ErrUnsupportedAlgorithm = errors.New("unsupported algorithm")
)
