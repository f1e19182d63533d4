package z

import (
	"bufio"
	"fmt"
	"io"
)

// SpliceOptions customises Splice.
type SpliceOptions struct {
	// BufferSize is the length of the buffer being used for copying.
	//
	// Default to DefaultBufferSize.
	BufferSize int

	// OnRecord is called after each record of the source archive has been written in its entirety.
	//
	// size is the total number of bytes of the record including its variable-size data (and file content for local
	// file headers).
	OnRecord func(sig Signature, size int64)
}

// SpliceResult contains information about a successful Splice.
type SpliceResult struct {
	// PrefixSize is the number of bytes copied from the prefix, which is also how much every offset was rebased by.
	PrefixSize int64
	// Written is the total number of bytes written to dst.
	Written int64
	// Records is the number of records copied from the source archive.
	Records int
}

// Splice writes prefixSize bytes from prefix followed by the archive from src to dst.
//
// The archive is copied record by record from the start of src. Every local file header is copied verbatim, while the
// local file header offset of every central directory file header and the central directory offset of the end of
// central directory record are increased by prefixSize so that dst remains a valid ZIP archive. Copying stops after
// the end of central directory record and its comment.
//
// ErrUnsupportedAlgorithm is returned if src contains an unknown record (data descriptors, ZIP64 records, etc.) or a
// file that is not stored. Any short read or write returns ErrIO. dst is not cleaned up on failure.
func Splice(dst io.Writer, prefix io.Reader, prefixSize int64, src io.Reader, optFns ...func(*SpliceOptions)) (res SpliceResult, err error) {
	opts := &SpliceOptions{
		BufferSize: DefaultBufferSize,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	if prefixSize < 0 || prefixSize > 0xffffffff {
		return res, fmt.Errorf("splice: invalid prefix size %d: %w", prefixSize, ErrIO)
	}

	var (
		c   = newCopier(&CopyOptions{BufferSize: opts.BufferSize})
		cw  = &countingWriter{w: dst}
		bw  = bufio.NewWriterSize(cw, 16*1024)
		br  = bufio.NewReaderSize(src, 16*1024)
		buf = make([]byte, 4+cdFileHeaderLen)
	)

	defer func() {
		if ferr := bw.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("splice: flush error: %w: %w", ErrIO, ferr)
		}
		res.Written = cw.n
	}()

	if _, err = c.copyN(bw, prefix, prefixSize); err != nil {
		return res, fmt.Errorf("splice: copy prefix error: %w", err)
	}
	res.PrefixSize = prefixSize

	for {
		if n, err := io.ReadFull(br, buf[:4]); err != nil {
			return res, fmt.Errorf("splice: read signature of record %d: insufficient read, got %d bytes: %w: %w", res.Records, n, ErrIO, err)
		}

		var (
			sig     = readSignature(buf)
			fixed   []byte
			trailer int64
		)

		switch sig {
		case LocalFileSignature:
			fixed = buf[4 : 4+localFileHeaderLen]
			if err = readFixed(br, fixed, sig); err != nil {
				return res, err
			}

			var h localFileHeader
			h.decode(fixed)
			if h.Method != Store {
				return res, fmt.Errorf("splice: record %d uses compression method %d: %w", res.Records, h.Method, ErrUnsupportedAlgorithm)
			}
			trailer = int64(h.FileNameLength) + int64(h.ExtraFieldLength) + int64(h.CompressedSize)

		case CentralDirectorySignature:
			fixed = buf[4 : 4+cdFileHeaderLen]
			if err = readFixed(br, fixed, sig); err != nil {
				return res, err
			}

			var h cdFileHeader
			h.decode(fixed)
			if h.Offset, err = rebase(h.Offset, prefixSize); err != nil {
				return res, fmt.Errorf("splice: record %d: %w", res.Records, err)
			}
			h.encode(fixed)
			trailer = h.trailerLen()

		case EOCDSignature:
			fixed = buf[4 : 4+eocdLen]
			if err = readFixed(br, fixed, sig); err != nil {
				return res, err
			}

			var r EOCDRecord
			r.decode(fixed)
			if r.CDOffset, err = rebase(r.CDOffset, prefixSize); err != nil {
				return res, fmt.Errorf("splice: record %d: %w", res.Records, err)
			}
			r.encode(fixed)
			trailer = int64(r.CommentLength)

		default:
			return res, fmt.Errorf("splice: record %d has %s: %w", res.Records, sig, ErrUnsupportedAlgorithm)
		}

		if n, err := bw.Write(buf[:4+len(fixed)]); err != nil {
			return res, fmt.Errorf("splice: write %s: wrote %d bytes: %w: %w", sig, n, ErrIO, err)
		}

		if _, err = c.copyN(bw, br, trailer); err != nil {
			return res, fmt.Errorf("splice: copy %s variable-size data error: %w", sig, err)
		}

		res.Records++
		if opts.OnRecord != nil {
			opts.OnRecord(sig, 4+int64(len(fixed))+trailer)
		}

		if sig == EOCDSignature {
			return res, nil
		}
	}
}

func readFixed(r io.Reader, b []byte, sig Signature) error {
	if n, err := io.ReadFull(r, b); err != nil {
		return fmt.Errorf("splice: read %s: insufficient read, needs %d bytes, got %d: %w: %w", sig, len(b), n, ErrIO, err)
	}

	return nil
}

// countingWriter tallies the number of bytes written to w.
type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (n int, err error) {
	n, err = c.w.Write(p)
	c.n += int64(n)
	return
}
