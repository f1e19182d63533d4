package z

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCopyN(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		n          int64
		bufferSize int
		want       string
		progress   []int64
	}{
		{
			name:       "exact",
			src:        "0123456789",
			n:          10,
			bufferSize: 4,
			want:       "0123456789",
			progress:   []int64{4, 8, 10},
		},
		{
			name:       "prefix only",
			src:        "0123456789",
			n:          5,
			bufferSize: 4,
			want:       "01234",
			progress:   []int64{4, 5},
		},
		{
			name:       "zero is no-op",
			src:        "",
			n:          0,
			bufferSize: 4,
			want:       "",
			progress:   nil,
		},
		{
			name:       "default buffer",
			src:        "0123456789",
			n:          10,
			bufferSize: 0,
			want:       "0123456789",
			progress:   []int64{10},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var progress []int64
			dst := &bytes.Buffer{}

			n, err := CopyN(dst, strings.NewReader(tt.src), tt.n, func(opts *CopyOptions) {
				opts.BufferSize = tt.bufferSize
				opts.ProgressReporter = func(written int64) {
					progress = append(progress, written)
				}
			})
			assert.NoErrorf(t, err, "CopyN() error = %v", err)
			assert.Equal(t, tt.n, n)
			assert.Equal(t, tt.want, dst.String())
			assert.Equal(t, tt.progress, progress)
		})
	}
}

type zeroReader struct{}

func (zeroReader) Read([]byte) (int, error) {
	return 0, nil
}

type shortWriter struct{}

func (shortWriter) Write(p []byte) (int, error) {
	return len(p) / 2, nil
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestCopyN_ShortTransfer(t *testing.T) {
	tests := []struct {
		name string
		dst  io.Writer
		src  io.Reader
	}{
		{
			name: "short read",
			dst:  io.Discard,
			src:  strings.NewReader("abc"),
		},
		{
			name: "zero read without error",
			dst:  io.Discard,
			src:  zeroReader{},
		},
		{
			name: "read error",
			dst:  io.Discard,
			src:  io.MultiReader(strings.NewReader("ab"), iotestErrReader{}),
		},
		{
			name: "short write",
			dst:  shortWriter{},
			src:  strings.NewReader("0123456789"),
		},
		{
			name: "write error",
			dst:  failingWriter{},
			src:  strings.NewReader("0123456789"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CopyN(tt.dst, tt.src, 10)
			assert.ErrorIsf(t, err, ErrIO, "CopyN() error = %v, want ErrIO", err)
		})
	}
}

type iotestErrReader struct{}

func (iotestErrReader) Read([]byte) (int, error) {
	return 0, errors.New("connection reset")
}
