// Package s3blob lets S3 objects serve as the blobs that archives are read from and written to.
package s3blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ReadSeeker uses ranged GetObject to implement io.ReadSeeker and io.ReaderAt.
type ReadSeeker interface {
	io.ReadSeeker
	io.ReaderAt

	// Size returns the size of the S3 object that was determined from the initial HeadObject.
	Size() int64
}

// Client abstracts the S3 APIs that are needed to implement ReadSeeker.
type Client interface {
	GetObject(context.Context, *s3.GetObjectInput, ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// DefaultBufferSize is the default value for Options.BufferSize.
//
// The end of central directory lookback window fits in one buffer so that locating an archive takes one GetObject.
const DefaultBufferSize = 96 * 1024

// Options customises NewReadSeeker.
type Options struct {
	// BufferSize is used to provide buffered read-ahead for every Read call.
	//
	// By default, DefaultBufferSize is used so that consequential small Reads (such as the fixed-size parts of ZIP
	// records) don't end up with several GetObject calls if one bigger GetObject call is more efficient.
	//
	// Pass zero or a negative value to disable this feature.
	BufferSize int

	// CtxFn returns a context.Context to be used with every GetObject or HeadObject call.
	//
	// By default, context.Background is used.
	CtxFn func() context.Context

	// ModifyGetObjectInput can be used to modify the GetObject input parameters such as adding ExpectedBucketOwner.
	//
	// Its return value will be used to make the GetObject call.
	ModifyGetObjectInput func(*s3.GetObjectInput) *s3.GetObjectInput

	// ModifyHeadObjectInput can be used to modify the HeadObject input parameters such as adding
	// ExpectedBucketOwner.
	//
	// Its return value will be used to make the HeadObject call.
	ModifyHeadObjectInput func(input *s3.HeadObjectInput) *s3.HeadObjectInput
}

// NewReadSeeker returns a ReadSeeker with the given bucket and key.
//
// The client will be used to determine a valid size for the object.
func NewReadSeeker(client Client, bucket, key string, optFns ...func(*Options)) (ReadSeeker, error) {
	opts := &Options{
		BufferSize: DefaultBufferSize,
		CtxFn:      context.Background,
		ModifyGetObjectInput: func(input *s3.GetObjectInput) *s3.GetObjectInput {
			return input
		},
		ModifyHeadObjectInput: func(input *s3.HeadObjectInput) *s3.HeadObjectInput {
			return input
		},
	}
	for _, fn := range optFns {
		fn(opts)
	}

	headObjectOutput, err := client.HeadObject(opts.CtxFn(), opts.ModifyHeadObjectInput(&s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}))
	if err != nil {
		return nil, fmt.Errorf("determine size of s3://%s/%s error: %w", bucket, key, err)
	}

	return &readSeeker{
		client:     client,
		bucket:     bucket,
		key:        key,
		ctxFn:      opts.CtxFn,
		goiFn:      opts.ModifyGetObjectInput,
		size:       aws.ToInt64(headObjectOutput.ContentLength),
		bufferSize: opts.BufferSize,
	}, nil
}

type readSeeker struct {
	client      Client
	bucket, key string
	ctxFn       func() context.Context
	goiFn       func(*s3.GetObjectInput) *s3.GetObjectInput
	off, size   int64
	buf         bytes.Buffer
	bufferSize  int
}

func (r *readSeeker) Size() int64 {
	return r.size
}

func (r *readSeeker) Read(p []byte) (n int, err error) {
	m := len(p)
	if m == 0 {
		return 0, nil
	}

	// always uses from buffer if possible.
	if r.buf.Len() >= m {
		n, err = r.buf.Read(p)
		r.off += int64(n)
		return
	}

	// if len(p) is less than bufferSize, we'll fill the buffer with the next batch then read from buffer again.
	rangeStart := r.off + int64(r.buf.Len())
	if rangeStart >= r.size {
		// r.buf contains remaining bytes.
		if r.buf.Len() == 0 {
			return 0, io.EOF
		}

		n, err = r.buf.Read(p)
		r.off += int64(n)
		return
	}

	rangeEnd := min(r.size-1, r.off+int64(max(m, r.bufferSize))-1)
	if err = r.get(rangeStart, rangeEnd, &r.buf); err != nil {
		return 0, err
	}

	n, err = r.buf.Read(p)
	r.off += int64(n)
	return
}

func (r *readSeeker) ReadAt(p []byte, off int64) (n int, err error) {
	m := int64(len(p))
	if m == 0 {
		return 0, nil
	}
	if off < 0 {
		return 0, ErrSeekBeforeFirstByte
	}
	if off >= r.size {
		return 0, io.EOF
	}

	buf := bytes.NewBuffer(p[:0])
	if err = r.get(off, min(r.size-1, off+m-1), buf); err != nil {
		return 0, err
	}

	if n = copy(p, buf.Bytes()); int64(n) < m {
		return n, io.EOF
	}

	return n, nil
}

// get downloads the inclusive byte range [start, end] and appends it to buf.
func (r *readSeeker) get(start, end int64, buf *bytes.Buffer) error {
	getObjectOutput, err := r.client.GetObject(r.ctxFn(), r.goiFn(&s3.GetObjectInput{
		Bucket: aws.String(r.bucket),
		Key:    aws.String(r.key),
		Range:  aws.String(fmt.Sprintf("bytes=%d-%d", start, end)),
	}))
	if err != nil {
		return fmt.Errorf("get s3://%s/%s range %d-%d error: %w", r.bucket, r.key, start, end, err)
	}

	_, err = buf.ReadFrom(getObjectOutput.Body)
	if _ = getObjectOutput.Body.Close(); err != nil {
		return fmt.Errorf("read s3://%s/%s range %d-%d error: %w", r.bucket, r.key, start, end, err)
	}

	return nil
}

var ErrSeekBeforeFirstByte = errors.New("seek ends up before first byte")
var ErrSeekPastLastByte = errors.New("seek ends up past end of object")

// Seek sets the offset for the next Read.
//
// Seeking to exactly the end of the object is valid (and is how the size of the object is usually determined), but
// seeking any further is not.
func (r *readSeeker) Seek(offset int64, whence int) (int64, error) {
	var off int64
	switch whence {
	case io.SeekStart:
		off = offset
	case io.SeekCurrent:
		off = r.off + offset
	case io.SeekEnd:
		off = r.size + offset
	default:
		return r.off, fmt.Errorf("invalid whence %d", whence)
	}

	if off < 0 {
		return r.off, ErrSeekBeforeFirstByte
	}
	if off > r.size {
		return r.off, ErrSeekPastLastByte
	}

	// keep the read-ahead buffer only when moving forward within it.
	if d := off - r.off; d >= 0 && d <= int64(r.buf.Len()) {
		r.buf.Next(int(d))
	} else {
		r.buf.Reset()
	}

	r.off = off
	return r.off, nil
}
