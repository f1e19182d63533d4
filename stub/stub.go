// Package stub determines how many leading bytes of a prefix blob must be kept when a new archive is spliced after it.
package stub

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/nguyengg/tailzip/z"
)

// ErrNotExecutable is returned by DOS if the blob does not start with an MZ header, or if the MZ header belongs to a
// PE (Windows) executable.
var ErrNotExecutable = errors.New("not a DOS executable")

// peHeaderOffset is where the MZ header keeps the offset of the PE header (e_lfanew).
const peHeaderOffset = 0x3c

// Sizer returns the number of bytes of r that precede any embedded archive.
//
// Every Sizer rewinds r to its first byte upon success so that it can be copied right away.
type Sizer func(r io.ReadSeeker) (int64, error)

// DOS returns the size of a DOS executable as declared by its MZ header.
//
// The header stores the number of 512-byte blocks and the number of bytes used in the last block, so anything after
// the declared end (such as a previously embedded archive) is excluded.
//
// PE executables also start with an MZ header, but theirs only declares the size of the DOS stub program so they are
// rejected with ErrNotExecutable; use Embedded for those instead.
func DOS(r io.ReadSeeker) (int64, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("seek MZ header error: %w", err)
	}

	buf := make([]byte, peHeaderOffset+4)
	n, err := io.ReadFull(r, buf)
	if n < 6 {
		return 0, fmt.Errorf("read MZ header: insufficient read, needs %d bytes, got %d: %w: %w", 6, n, z.ErrIO, err)
	}

	if magic := string(buf[:2]); magic != "MZ" && magic != "ZM" {
		return 0, fmt.Errorf("mismatched signature, got 0x%x: %w", buf[:2], ErrNotExecutable)
	}

	if n == len(buf) {
		ok, err := isPE(r, binary.LittleEndian.Uint32(buf[peHeaderOffset:]))
		if err != nil {
			return 0, err
		}
		if ok {
			return 0, fmt.Errorf("found PE header at 0x%x: %w", binary.LittleEndian.Uint32(buf[peHeaderOffset:]), ErrNotExecutable)
		}
	}

	size := DOSSize(binary.LittleEndian.Uint16(buf[2:4]), binary.LittleEndian.Uint16(buf[4:6]))

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind error: %w", err)
	}

	return size, nil
}

// isPE returns true if the PE signature "PE\0\0" is found at offset.
//
// Plain DOS executables may have anything at e_lfanew, so an offset past end of stream is not an error.
func isPE(r io.ReadSeeker, offset uint32) (bool, error) {
	if _, err := r.Seek(int64(offset), io.SeekStart); err != nil {
		return false, fmt.Errorf("seek PE header error: %w", err)
	}

	buf := make([]byte, 4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return false, nil
	}

	return string(buf) == "PE\x00\x00", nil
}

// DOSSize computes the size of a DOS executable from the last block length and block count fields of its MZ header.
func DOSSize(lastBlockLength, blockCount uint16) int64 {
	size := int64(blockCount) * 512
	if last := int64(lastBlockLength); last != 0 {
		size -= 512 - last
	}

	return max(0, size)
}

// Raw returns the length of r.
func Raw(r io.ReadSeeker) (int64, error) {
	size, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, fmt.Errorf("determine size error: %w", err)
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind error: %w", err)
	}

	return size, nil
}

// Embedded returns the offset at which the archive already embedded in r starts.
//
// The start is the smallest local file header offset in the central directory, or the central directory offset if the
// archive is empty. If r has no archive embedded in it, the length of r is returned instead.
func Embedded(r io.ReadSeeker) (int64, error) {
	a, err := z.Open(r)
	switch {
	case errors.Is(err, z.ErrNoDirectory):
		return Raw(r)
	case err != nil:
		return 0, err
	}

	size := a.CDOffset
	for fh, err := range a.Entries() {
		if err != nil {
			return 0, fmt.Errorf("read embedded archive error: %w", err)
		}

		size = min(size, fh.Offset)
	}

	if _, err = r.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind error: %w", err)
	}

	return size, nil
}

// Kinds lists the names accepted by Parse.
var Kinds = []string{"dos", "raw", "embedded"}

// Parse returns the Sizer with the given name (case-insensitive).
func Parse(kind string) (Sizer, error) {
	switch strings.ToLower(kind) {
	case "dos":
		return DOS, nil
	case "raw":
		return Raw, nil
	case "embedded":
		return Embedded, nil
	default:
		return nil, fmt.Errorf("unknown prefix size kind %q, must be one of %s", kind, strings.Join(Kinds, ", "))
	}
}
