package z

import (
	"fmt"
	"io"
)

// DefaultBufferSize is the default value of [CopyOptions.BufferSize].
const DefaultBufferSize = 4 * 1024

// CopyOptions customises CopyN.
type CopyOptions struct {
	// BufferSize is the length of the buffer being used for copying.
	//
	// Default to DefaultBufferSize.
	BufferSize int

	// ProgressReporter is called after every chunk with the total number of bytes copied so far.
	ProgressReporter func(written int64)
}

// CopyN copies exactly n bytes from src to dst.
//
// Unlike io.CopyN, a read that returns zero bytes before n bytes have been copied is a short read and ErrIO is
// returned even if src did not return an error. Copying zero bytes is a no-op.
func CopyN(dst io.Writer, src io.Reader, n int64, optFns ...func(*CopyOptions)) (int64, error) {
	opts := &CopyOptions{
		BufferSize: DefaultBufferSize,
	}
	for _, fn := range optFns {
		fn(opts)
	}

	return newCopier(opts).copyN(dst, src, n)
}

// copier owns the buffer for the duration of one CopyN or Splice call.
type copier struct {
	buf      []byte
	reporter func(int64)
}

func newCopier(opts *CopyOptions) *copier {
	size := opts.BufferSize
	if size <= 0 {
		size = DefaultBufferSize
	}

	return &copier{
		buf:      make([]byte, size),
		reporter: opts.ProgressReporter,
	}
}

func (c *copier) copyN(dst io.Writer, src io.Reader, n int64) (written int64, err error) {
	for written < n {
		next := c.buf[:min(int64(len(c.buf)), n-written)]

		nr, rerr := src.Read(next)
		if nr == 0 {
			if rerr != nil && rerr != io.EOF {
				return written, fmt.Errorf("copy: read error after %d of %d bytes: %w: %w", written, n, ErrIO, rerr)
			}

			return written, fmt.Errorf("copy: short read, got %d of %d bytes: %w", written, n, ErrIO)
		}

		switch nw, werr := dst.Write(next[:nr]); {
		case werr != nil:
			return written + int64(nw), fmt.Errorf("copy: write error after %d of %d bytes: %w: %w", written, n, ErrIO, werr)
		case nw != nr:
			return written + int64(nw), fmt.Errorf("copy: short write, expected %d bytes, wrote %d: %w: %w", nr, nw, ErrIO, io.ErrShortWrite)
		}

		written += int64(nr)
		if c.reporter != nil {
			c.reporter(written)
		}
	}

	return written, nil
}
