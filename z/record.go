package z

import (
	"encoding/binary"
	"fmt"
)

// Signature identifies the kind of a ZIP record by its leading 4 bytes.
type Signature uint32

const (
	// LocalFileSignature starts every local file header.
	LocalFileSignature Signature = 0x04034b50
	// CentralDirectorySignature starts every central directory file header.
	CentralDirectorySignature Signature = 0x02014b50
	// EOCDSignature starts the end of central directory record.
	EOCDSignature Signature = 0x06054b50
)

func (s Signature) String() string {
	switch s {
	case LocalFileSignature:
		return "local file header"
	case CentralDirectorySignature:
		return "central directory file header"
	case EOCDSignature:
		return "end of central directory"
	default:
		return fmt.Sprintf("unknown signature 0x%08x", uint32(s))
	}
}

// Store is the only compression method that can be extracted or spliced.
const Store uint16 = 0

// lengths of the fixed-size parts of each record, not counting the 4-byte signature.
const (
	localFileHeaderLen = 26
	cdFileHeaderLen    = 42
	eocdLen            = 18
)

// MaxNameLength is the longest file name that will be read from a central directory file header.
const MaxNameLength = 4095

func readSignature(b []byte) Signature {
	return Signature(binary.LittleEndian.Uint32(b))
}

// localFileHeader is the fixed-size part of a local file header.
//
// https://en.wikipedia.org/wiki/ZIP_(file_format)#Local_file_header
type localFileHeader struct {
	ReaderVersion    uint16
	Flags            uint16
	Method           uint16
	ModifiedTime     uint16
	ModifiedDate     uint16
	CRC32            uint32
	CompressedSize   uint32
	UncompressedSize uint32
	FileNameLength   uint16
	ExtraFieldLength uint16
}

func (h *localFileHeader) decode(b []byte) {
	_ = b[localFileHeaderLen-1]
	h.ReaderVersion = binary.LittleEndian.Uint16(b[0:2])
	h.Flags = binary.LittleEndian.Uint16(b[2:4])
	h.Method = binary.LittleEndian.Uint16(b[4:6])
	h.ModifiedTime = binary.LittleEndian.Uint16(b[6:8])
	h.ModifiedDate = binary.LittleEndian.Uint16(b[8:10])
	h.CRC32 = binary.LittleEndian.Uint32(b[10:14])
	h.CompressedSize = binary.LittleEndian.Uint32(b[14:18])
	h.UncompressedSize = binary.LittleEndian.Uint32(b[18:22])
	h.FileNameLength = binary.LittleEndian.Uint16(b[22:24])
	h.ExtraFieldLength = binary.LittleEndian.Uint16(b[24:26])
}

// cdFileHeader is the fixed-size part of a central directory file header.
//
// https://en.wikipedia.org/wiki/ZIP_(file_format)#Central_directory_file_header_(CDFH)
type cdFileHeader struct {
	CreatorVersion    uint16
	ReaderVersion     uint16
	Flags             uint16
	Method            uint16
	ModifiedTime      uint16
	ModifiedDate      uint16
	CRC32             uint32
	CompressedSize    uint32
	UncompressedSize  uint32
	FileNameLength    uint16
	ExtraFieldLength  uint16
	FileCommentLength uint16
	DiskNumber        uint16
	InternalAttrs     uint16
	ExternalAttrs     uint32
	Offset            uint32
}

func (h *cdFileHeader) decode(b []byte) {
	_ = b[cdFileHeaderLen-1]
	h.CreatorVersion = binary.LittleEndian.Uint16(b[0:2])
	h.ReaderVersion = binary.LittleEndian.Uint16(b[2:4])
	h.Flags = binary.LittleEndian.Uint16(b[4:6])
	h.Method = binary.LittleEndian.Uint16(b[6:8])
	h.ModifiedTime = binary.LittleEndian.Uint16(b[8:10])
	h.ModifiedDate = binary.LittleEndian.Uint16(b[10:12])
	h.CRC32 = binary.LittleEndian.Uint32(b[12:16])
	h.CompressedSize = binary.LittleEndian.Uint32(b[16:20])
	h.UncompressedSize = binary.LittleEndian.Uint32(b[20:24])
	h.FileNameLength = binary.LittleEndian.Uint16(b[24:26])
	h.ExtraFieldLength = binary.LittleEndian.Uint16(b[26:28])
	h.FileCommentLength = binary.LittleEndian.Uint16(b[28:30])
	h.DiskNumber = binary.LittleEndian.Uint16(b[30:32])
	h.InternalAttrs = binary.LittleEndian.Uint16(b[32:34])
	h.ExternalAttrs = binary.LittleEndian.Uint32(b[34:38])
	h.Offset = binary.LittleEndian.Uint32(b[38:42])
}

func (h *cdFileHeader) encode(b []byte) {
	_ = b[cdFileHeaderLen-1]
	binary.LittleEndian.PutUint16(b[0:2], h.CreatorVersion)
	binary.LittleEndian.PutUint16(b[2:4], h.ReaderVersion)
	binary.LittleEndian.PutUint16(b[4:6], h.Flags)
	binary.LittleEndian.PutUint16(b[6:8], h.Method)
	binary.LittleEndian.PutUint16(b[8:10], h.ModifiedTime)
	binary.LittleEndian.PutUint16(b[10:12], h.ModifiedDate)
	binary.LittleEndian.PutUint32(b[12:16], h.CRC32)
	binary.LittleEndian.PutUint32(b[16:20], h.CompressedSize)
	binary.LittleEndian.PutUint32(b[20:24], h.UncompressedSize)
	binary.LittleEndian.PutUint16(b[24:26], h.FileNameLength)
	binary.LittleEndian.PutUint16(b[26:28], h.ExtraFieldLength)
	binary.LittleEndian.PutUint16(b[28:30], h.FileCommentLength)
	binary.LittleEndian.PutUint16(b[30:32], h.DiskNumber)
	binary.LittleEndian.PutUint16(b[32:34], h.InternalAttrs)
	binary.LittleEndian.PutUint32(b[34:38], h.ExternalAttrs)
	binary.LittleEndian.PutUint32(b[38:42], h.Offset)
}

// trailerLen is the number of variable-size bytes that follow the fixed-size part.
func (h *cdFileHeader) trailerLen() int64 {
	return int64(h.FileNameLength) + int64(h.ExtraFieldLength) + int64(h.FileCommentLength)
}

// EOCDRecord models the end of central directory record of a ZIP file.
//
// See https://en.wikipedia.org/wiki/ZIP_(file_format)#End_of_central_directory_record_(EOCD).
type EOCDRecord struct {
	// DiskNumber is number of this disk.
	DiskNumber uint16
	// CDDiskOffset is disk where central directory starts.
	CDDiskOffset uint16
	// CDCountOnDisk is the number of central directory records on this disk.
	CDCountOnDisk uint16
	// CDCount is the total number of central directory records.
	CDCount uint16
	// CDSize is size of central directory in bytes.
	CDSize uint32
	// CDOffset is offset of start of central directory, relative to start of the stream.
	CDOffset uint32
	// CommentLength is the length of the comment that follows the record.
	CommentLength uint16
}

func (r *EOCDRecord) decode(b []byte) {
	_ = b[eocdLen-1]
	r.DiskNumber = binary.LittleEndian.Uint16(b[0:2])
	r.CDDiskOffset = binary.LittleEndian.Uint16(b[2:4])
	r.CDCountOnDisk = binary.LittleEndian.Uint16(b[4:6])
	r.CDCount = binary.LittleEndian.Uint16(b[6:8])
	r.CDSize = binary.LittleEndian.Uint32(b[8:12])
	r.CDOffset = binary.LittleEndian.Uint32(b[12:16])
	r.CommentLength = binary.LittleEndian.Uint16(b[16:18])
}

func (r *EOCDRecord) encode(b []byte) {
	_ = b[eocdLen-1]
	binary.LittleEndian.PutUint16(b[0:2], r.DiskNumber)
	binary.LittleEndian.PutUint16(b[2:4], r.CDDiskOffset)
	binary.LittleEndian.PutUint16(b[4:6], r.CDCountOnDisk)
	binary.LittleEndian.PutUint16(b[6:8], r.CDCount)
	binary.LittleEndian.PutUint32(b[8:12], r.CDSize)
	binary.LittleEndian.PutUint32(b[12:16], r.CDOffset)
	binary.LittleEndian.PutUint16(b[16:18], r.CommentLength)
}

// rebase adds delta to an absolute 32-bit offset field.
func rebase(offset uint32, delta int64) (uint32, error) {
	v := int64(offset) + delta
	if v < 0 || v > 0xffffffff {
		return 0, fmt.Errorf("rebase offset 0x%x by %d overflows 32 bits: %w", offset, delta, ErrIO)
	}

	return uint32(v), nil
}
