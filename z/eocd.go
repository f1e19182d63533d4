package z

import (
	"bytes"
	"fmt"
	"io"
)

const (
	// eocdRecordLen is the size of the end of central directory record including its signature.
	eocdRecordLen = 4 + eocdLen

	// maxCommentLength is the longest archive comment that can sit between the EOCD record and end of stream.
	maxCommentLength = 0xffff
)

var sigEOCD = []byte{0x50, 0x4b, 0x05, 0x06}

// FindEOCD searches the given src backwards for the end of central directory record.
//
// The record is 22 bytes long and can only be followed by a comment of up to 65535 bytes, so only the last
// 22+65535 bytes of src are scanned. The candidate closest to end of stream wins; that is, an archive without comment
// has its record found at size-22 before any earlier position is considered.
//
// Returns the record and its absolute offset in src. ErrNoDirectory is returned if the signature is not found in
// that window, ErrIO if the signature closest to end of stream is followed by fewer than 22 bytes. The read offset of
// src is left at an arbitrary position.
func FindEOCD(src io.ReadSeeker) (r EOCDRecord, offset int64, err error) {
	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return r, 0, fmt.Errorf("find EOCD: determine size error: %w: %w", ErrIO, err)
	}

	if size == 0 {
		return r, 0, fmt.Errorf("find EOCD: stream is empty: %w", ErrNoDirectory)
	}

	window := min(size, eocdRecordLen+maxCommentLength)
	start, err := src.Seek(size-window, io.SeekStart)
	if err != nil {
		return r, 0, fmt.Errorf("find EOCD: set read offset at %d from start error: %w: %w", size-window, ErrIO, err)
	}

	buf := make([]byte, window)
	if n, err := io.ReadFull(src, buf); err != nil {
		return r, 0, fmt.Errorf("find EOCD: insufficient read: need %d bytes, got %d: %w: %w", window, n, ErrIO, err)
	}

	i := bytes.LastIndex(buf, sigEOCD)
	if i == -1 {
		return r, 0, fmt.Errorf("find EOCD: no signature in last %d bytes: %w", window, ErrNoDirectory)
	}
	if n := window - int64(i); n < eocdRecordLen {
		return r, 0, fmt.Errorf("find EOCD: insufficient read at %d: need %d bytes, got %d: %w", start+int64(i), eocdRecordLen, n, ErrIO)
	}

	r.decode(buf[i+4 : i+eocdRecordLen])
	return r, start + int64(i), nil
}
