// Package z reads and splices ZIP archives that are embedded at the tail of another blob.
//
// Only stored (uncompressed) entries can be extracted, and only single-disk, non-ZIP64 archives are supported.
package z

import (
	"archive/zip"
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
)

// Archive is a ZIP archive that was located in an io.ReadSeeker.
//
// Archive never closes the underlying io.ReadSeeker and is not safe for concurrent use since every method moves the
// shared read offset of the underlying io.ReadSeeker.
type Archive struct {
	// CDOffset is the absolute offset of the central directory in the stream.
	CDOffset int64
	// Count is the number of central directory records as declared by the EOCD record.
	Count int

	src io.ReadSeeker
}

// Open locates the central directory of the archive at the tail of src.
//
// ErrNoDirectory is returned if src has no end of central directory record in its last 64 KiB, which most likely
// means src does not have an archive embedded in it.
func Open(src io.ReadSeeker) (*Archive, error) {
	r, _, err := FindEOCD(src)
	if err != nil {
		return nil, err
	}

	return &Archive{
		CDOffset: int64(r.CDOffset),
		Count:    int(r.CDCount),
		src:      src,
	}, nil
}

// CDFileHeader extends zip.FileHeader with additional information from the central directory.
type CDFileHeader struct {
	zip.FileHeader

	// DiskNumber is the disk number where file starts.
	//
	// Since floppy disks aren't a thing anymore, this field is most likely unused.
	DiskNumber uint16

	// InternalAttrs is the internal file attributes.
	InternalAttrs uint16

	// Offset is the absolute offset of the local file header.
	Offset int64
}

func newCDFileHeader(h *cdFileHeader) CDFileHeader {
	fh := CDFileHeader{
		FileHeader: zip.FileHeader{
			CreatorVersion:     h.CreatorVersion,
			ReaderVersion:      h.ReaderVersion,
			Flags:              h.Flags,
			Method:             h.Method,
			ModifiedTime:       h.ModifiedTime,
			ModifiedDate:       h.ModifiedDate,
			CRC32:              h.CRC32,
			CompressedSize64:   uint64(h.CompressedSize),
			UncompressedSize64: uint64(h.UncompressedSize),
			ExternalAttrs:      h.ExternalAttrs,
		},
		DiskNumber:    h.DiskNumber,
		InternalAttrs: h.InternalAttrs,
		Offset:        int64(h.Offset),
	}
	fh.Modified = msDosTimeToTime(fh.ModifiedDate, fh.ModifiedTime)
	return fh
}

// Entries returns an iterator over the central directory file headers.
//
// The iterator stops after Count headers or at the first error.
func (a *Archive) Entries() iter.Seq2[CDFileHeader, error] {
	return func(yield func(CDFileHeader, error) bool) {
		if err := a.walk(true, func(h *cdFileHeader, name string, trailer []byte) bool {
			fh := newCDFileHeader(h)
			fh.Name = name
			fh.Extra, fh.Comment = trailer[:h.ExtraFieldLength], string(trailer[h.ExtraFieldLength:])
			return !yield(fh, nil)
		}); err != nil {
			yield(CDFileHeader{}, err)
		}
	}
}

// walk reads up to Count central directory file headers.
//
// For each header, visit is given the fixed-size part and the file name. The extra field and comment are passed as
// trailer only if withTrailer is true, otherwise they are skipped. walk stops as soon as visit returns true.
func (a *Archive) walk(withTrailer bool, visit func(h *cdFileHeader, name string, trailer []byte) bool) error {
	if _, err := a.src.Seek(a.CDOffset, io.SeekStart); err != nil {
		return fmt.Errorf("set read offset to start of central directory (0x%x) error: %w: %w", a.CDOffset, ErrIO, err)
	}

	var (
		br  = bufio.NewReaderSize(a.src, 16*1024)
		buf = make([]byte, 4+cdFileHeaderLen)
		h   cdFileHeader
	)

	for i := range a.Count {
		if n, err := io.ReadFull(br, buf[:4]); err != nil {
			return fmt.Errorf("read CD file header %d signature: insufficient read, got %d bytes: %w: %w", i, n, ErrIO, err)
		}
		if sig := readSignature(buf); sig != CentralDirectorySignature {
			return fmt.Errorf("CD file header %d: mismatched signature, got 0x%08x, expected 0x%08x: %w", i, uint32(sig), uint32(CentralDirectorySignature), ErrNoDirectory)
		}

		if n, err := io.ReadFull(br, buf[4:]); err != nil {
			return fmt.Errorf("read CD file header %d: insufficient read, needs %d bytes, got %d: %w: %w", i, cdFileHeaderLen, n, ErrIO, err)
		}
		h.decode(buf[4:])

		if h.FileNameLength > MaxNameLength {
			return fmt.Errorf("CD file header %d: file name is %d bytes long, exceeding limit of %d: %w", i, h.FileNameLength, MaxNameLength, ErrIO)
		}

		name := make([]byte, h.FileNameLength)
		if n, err := io.ReadFull(br, name); err != nil {
			return fmt.Errorf("read CD file header %d name: insufficient read, needs %d bytes, got %d: %w: %w", i, len(name), n, ErrIO, err)
		}

		var (
			trailerLen = int(h.ExtraFieldLength) + int(h.FileCommentLength)
			trailer    []byte
		)
		if withTrailer {
			trailer = make([]byte, trailerLen)
			if n, err := io.ReadFull(br, trailer); err != nil {
				return fmt.Errorf("read CD file header %d variable-size data: needs %d bytes, got %d: %w: %w", i, trailerLen, n, ErrIO, err)
			}
		}

		if visit(&h, string(name), trailer) {
			return nil
		}

		if !withTrailer {
			if n, err := br.Discard(trailerLen); err != nil {
				return fmt.Errorf("skip CD file header %d variable-size data: needs %d bytes, got %d: %w: %w", i, trailerLen, n, ErrIO, err)
			}
		}
	}

	return nil
}

// find returns the first central directory file header whose name satisfies match.
//
// match is called exactly once per header until it returns true.
func (a *Archive) find(match func(string) bool) (h cdFileHeader, name string, err error) {
	found := false
	if err = a.walk(false, func(fh *cdFileHeader, n string, _ []byte) bool {
		if found = match(n); found {
			h, name = *fh, n
		}
		return found
	}); err != nil {
		return h, "", err
	}

	if !found {
		return h, "", ErrNotFound
	}

	return h, name, nil
}

// Find returns the central directory file header of the named file.
//
// Names are compared case-insensitively and the first match wins. ErrNotFound is returned if no file matches.
func (a *Archive) Find(name string) (CDFileHeader, error) {
	h, stored, err := a.find(func(s string) bool {
		return strings.EqualFold(s, name)
	})
	if err != nil {
		return CDFileHeader{}, fmt.Errorf("find %q: %w", name, err)
	}

	fh := newCDFileHeader(&h)
	fh.Name = stored
	return fh, nil
}

// Entry describes the location of a stored file in the stream.
type Entry struct {
	// Name is the name of the file as stored in the central directory.
	Name string
	// Size is the uncompressed size of the file as declared by the central directory.
	Size int64
	// LocalOffset is the absolute offset of the local file header.
	LocalOffset int64
	// DataOffset is the absolute offset of the first content byte.
	DataOffset int64
}

// Lookup finds the named file and validates its local file header.
//
// Names are compared case-insensitively; if the archive has several files with the same name, the first one in the
// central directory wins. ErrNotFound is returned if no file matches or if the central directory points to an invalid
// local file header. ErrUnsupportedAlgorithm is returned if the file is not stored.
//
// Upon success, the read offset of the underlying io.ReadSeeker is at Entry.DataOffset.
func (a *Archive) Lookup(name string) (e Entry, err error) {
	h, stored, err := a.find(func(s string) bool {
		return strings.EqualFold(s, name)
	})
	if err != nil {
		return e, fmt.Errorf("find %q: %w", name, err)
	}

	e = Entry{
		Name:        stored,
		Size:        int64(h.UncompressedSize),
		LocalOffset: int64(h.Offset),
	}

	if _, err = a.src.Seek(e.LocalOffset, io.SeekStart); err != nil {
		return e, fmt.Errorf("set read offset to local file header of %q (0x%x) error: %w: %w", name, e.LocalOffset, ErrIO, err)
	}

	buf := make([]byte, 4+localFileHeaderLen)
	if n, err := io.ReadFull(a.src, buf[:4]); err != nil {
		return e, fmt.Errorf("read local file header signature of %q: insufficient read, got %d bytes: %w: %w", name, n, ErrIO, err)
	}
	if sig := readSignature(buf); sig != LocalFileSignature {
		return e, fmt.Errorf("central directory points to invalid local file header of %q (got %s): %w", name, sig, ErrNotFound)
	}

	if n, err := io.ReadFull(a.src, buf[4:]); err != nil {
		return e, fmt.Errorf("read local file header of %q: insufficient read, needs %d bytes, got %d: %w: %w", name, localFileHeaderLen, n, ErrIO, err)
	}

	var lh localFileHeader
	lh.decode(buf[4:])
	if lh.Method != Store || h.Method != Store {
		return e, fmt.Errorf("%q uses compression method %d: %w", name, max(lh.Method, h.Method), ErrUnsupportedAlgorithm)
	}

	skip := int64(lh.FileNameLength) + int64(lh.ExtraFieldLength)
	if e.DataOffset, err = a.src.Seek(skip, io.SeekCurrent); err != nil {
		return e, fmt.Errorf("skip local file header variable-size data of %q error: %w: %w", name, ErrIO, err)
	}

	return e, nil
}

// Seek finds the named file and moves the read offset of the underlying io.ReadSeeker to its first content byte.
//
// Returns the uncompressed size of the file. See Lookup for the possible errors.
func (a *Archive) Seek(name string) (int64, error) {
	e, err := a.Lookup(name)
	return e.Size, err
}

// Open returns an io.Reader to the content of the named file.
//
// The returned reader reads from the underlying io.ReadSeeker directly so it is invalidated by any subsequent call on
// the Archive.
func (a *Archive) Open(name string) (io.Reader, error) {
	n, err := a.Seek(name)
	if err != nil {
		return nil, err
	}

	return io.LimitReader(a.src, n), nil
}

// ReadFile returns the content of the named file.
func (a *Archive) ReadFile(name string) ([]byte, error) {
	n, err := a.Seek(name)
	if err != nil {
		return nil, err
	}

	data := make([]byte, n)
	if m, err := io.ReadFull(a.src, data); err != nil {
		return nil, fmt.Errorf("read content of %q: insufficient read, needs %d bytes, got %d: %w: %w", name, n, m, ErrIO, err)
	}

	return data, nil
}
