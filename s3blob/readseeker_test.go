package s3blob

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/rand"
	"fmt"
	"hash/crc32"
	"io"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/nguyengg/tailzip/z"
	"github.com/stretchr/testify/assert"
)

// testClient implements Client by slicing into its in-memory data.
//
// calls keeps track of GetObject input parameters for asserting.
type testClient struct {
	data []byte

	// mu guards write access to calls.
	mu    sync.Mutex
	calls []s3.GetObjectInput
}

func randomTestClient(n int) *testClient {
	data := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, data); err != nil {
		panic(err)
	}

	return &testClient{data: data}
}

func (c *testClient) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = nil
}

func (c *testClient) GetObject(_ context.Context, input *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	c.mu.Lock()
	c.calls = append(c.calls, *input)
	c.mu.Unlock()

	rangeBytes := aws.ToString(input.Range)
	if rangeBytes == "" {
		return &s3.GetObjectOutput{
			Body: io.NopCloser(bytes.NewReader(c.data)),
		}, nil
	}

	values := strings.SplitN(strings.TrimPrefix(rangeBytes, "bytes="), "-", 2)
	if len(values) != 2 {
		return nil, fmt.Errorf("invalid range: %s", rangeBytes)
	}

	i, err := strconv.ParseInt(values[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid start byte in range `%s`: %w", rangeBytes, err)
	}

	j, err := strconv.ParseInt(values[1], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid end byte in range `%s`: %w", rangeBytes, err)
	}

	if i > j || j >= int64(len(c.data)) {
		return nil, fmt.Errorf("unsatisfiable range `%s` for %d bytes", rangeBytes, len(c.data))
	}

	return &s3.GetObjectOutput{
		Body: io.NopCloser(bytes.NewReader(c.data[i : j+1])),
	}, nil
}

func (c *testClient) HeadObject(_ context.Context, _ *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(c.data))),
	}, nil
}

func assertReadEqual(t *testing.T, r io.Reader, buf []byte, want []byte) {
	t.Helper()

	n, err := io.ReadFull(r, buf)
	assert.NoErrorf(t, err, "Read(buf) error = %v", err)
	assert.Equal(t, len(want), n)
	assert.Equal(t, want, buf[:n])
}

func TestReadSeeker_Read(t *testing.T) {
	tc := randomTestClient(1024)
	r, err := NewReadSeeker(tc, "bucket", "key", func(opts *Options) {
		opts.BufferSize = 200
	})
	assert.NoErrorf(t, err, "NewReadSeeker(...) error = %v", err)
	assert.Equal(t, int64(1024), r.Size())

	// because bufferSize is larger than 200 bytes, there ends up being only 1 GetObject call.
	buf := make([]byte, 100)
	assertReadEqual(t, r, buf, tc.data[:100])
	assertReadEqual(t, r, buf, tc.data[100:200])
	assert.Equalf(t, 1, len(tc.calls), "Read(buf) should have made only 1 GetObject call; got %d", len(tc.calls))
	assert.Equal(t, "bytes=0-199", aws.ToString(tc.calls[0].Range))

	// reads larger than bufferSize are served in one call.
	tc.clear()
	buf = make([]byte, 824)
	assertReadEqual(t, r, buf, tc.data[200:])
	assert.Equalf(t, 1, len(tc.calls), "Read(buf) should have made only 1 GetObject call; got %d", len(tc.calls))

	// attempting to read past EOF is safe.
	tc.clear()
	n, err := r.Read(buf)
	assert.Equalf(t, io.EOF, err, "Read(buf) error should be io.EOF; got %v", err)
	assert.Equalf(t, 0, n, "Read(buf) should have returned 0 bytes; got %d", n)
	assert.Equalf(t, 0, len(tc.calls), "Read(buf) should not have made any GetObject calls; got %d", len(tc.calls))
}

func TestReadSeeker_Seek(t *testing.T) {
	tc := randomTestClient(1024)
	r, err := NewReadSeeker(tc, "bucket", "key")
	assert.NoErrorf(t, err, "NewReadSeeker(...) error = %v", err)

	// seeking to the end is how callers determine size.
	n, err := r.Seek(0, io.SeekEnd)
	assert.NoErrorf(t, err, "Seek(0, io.SeekEnd) error = %v", err)
	assert.Equal(t, int64(1024), n)

	n, err = r.Seek(-500, io.SeekEnd)
	assert.NoErrorf(t, err, "Seek(-500, io.SeekEnd) error = %v", err)
	assert.Equal(t, int64(524), n)

	buf := make([]byte, 10)
	assertReadEqual(t, r, buf, tc.data[524:534])

	// skipping forward within the read-ahead buffer does not need another call.
	tc.clear()
	n, err = r.Seek(90, io.SeekCurrent)
	assert.NoErrorf(t, err, "Seek(90, io.SeekCurrent) error = %v", err)
	assert.Equal(t, int64(624), n)
	assertReadEqual(t, r, buf, tc.data[624:634])
	assert.Equalf(t, 0, len(tc.calls), "Read(buf) should not have made any GetObject calls; got %d", len(tc.calls))

	// going backwards drops the buffer.
	n, err = r.Seek(-634, io.SeekCurrent)
	assert.NoErrorf(t, err, "Seek(-634, io.SeekCurrent) error = %v", err)
	assert.Equal(t, int64(0), n)
	assertReadEqual(t, r, buf, tc.data[:10])

	_, err = r.Seek(-1, io.SeekStart)
	assert.ErrorIs(t, err, ErrSeekBeforeFirstByte)
	_, err = r.Seek(1, io.SeekEnd)
	assert.ErrorIs(t, err, ErrSeekPastLastByte)
}

func TestReadSeeker_ReadAt(t *testing.T) {
	tc := randomTestClient(1024)
	r, err := NewReadSeeker(tc, "bucket", "key")
	assert.NoErrorf(t, err, "NewReadSeeker(...) error = %v", err)

	// a simple offset read.
	buf := make([]byte, 100)
	n, err := r.ReadAt(buf, 42)
	assert.NoErrorf(t, err, "ReadAt(buf, 42) error = %v", err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, tc.data[42:42+100], buf)
	assert.Equalf(t, 1, len(tc.calls), "ReadAt(buf) should have made only 1 GetObject call; got %d", len(tc.calls))

	// the read offset is not affected.
	off, err := r.Seek(0, io.SeekCurrent)
	assert.NoErrorf(t, err, "Seek(0, io.SeekCurrent) error = %v", err)
	assert.Equal(t, int64(0), off)

	// reading past EOF returns the remaining bytes and io.EOF.
	n, err = r.ReadAt(buf, 1020)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, tc.data[1020:], buf[:4])

	n, err = r.ReadAt(buf, 1024)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 0, n)
}

func TestReadSeeker_Archive(t *testing.T) {
	prefix := bytes.Repeat([]byte{0x90}, 5000)

	archive := &bytes.Buffer{}
	zw := zip.NewWriter(archive)
	for name, content := range map[string]string{"config.ini": "KEY=VALUE", "readme.txt": "hello, world"} {
		w, err := zw.CreateRaw(&zip.FileHeader{
			Name:               name,
			Method:             zip.Store,
			CRC32:              crc32.ChecksumIEEE([]byte(content)),
			CompressedSize64:   uint64(len(content)),
			UncompressedSize64: uint64(len(content)),
		})
		assert.NoErrorf(t, err, "CreateRaw() error = %v", err)
		_, err = w.Write([]byte(content))
		assert.NoErrorf(t, err, "Write() error = %v", err)
	}
	assert.NoError(t, zw.SetComment(strings.Repeat("c", 1000)))
	assert.NoError(t, zw.Close())

	combined := &bytes.Buffer{}
	_, err := z.Splice(combined, bytes.NewReader(prefix), int64(len(prefix)), archive)
	assert.NoErrorf(t, err, "Splice() error = %v", err)

	tc := &testClient{data: combined.Bytes()}
	r, err := NewReadSeeker(tc, "bucket", "key", func(opts *Options) {
		opts.BufferSize = 64
	})
	assert.NoErrorf(t, err, "NewReadSeeker(...) error = %v", err)

	a, err := z.Open(r)
	assert.NoErrorf(t, err, "Open() error = %v", err)
	assert.Equal(t, 2, a.Count)

	got, err := a.ReadFile("CONFIG.INI")
	assert.NoErrorf(t, err, "ReadFile() error = %v", err)
	assert.Equal(t, "KEY=VALUE", string(got))

	got, err = a.ReadFile("readme.txt")
	assert.NoErrorf(t, err, "ReadFile() error = %v", err)
	assert.Equal(t, "hello, world", string(got))

	_, err = a.ReadFile("missing.txt")
	assert.ErrorIs(t, err, z.ErrNotFound)
}
