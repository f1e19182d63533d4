package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/nguyengg/tailzip/internal"
	"github.com/nguyengg/tailzip/internal/config"
	"github.com/nguyengg/tailzip/s3blob"
)

// self returns the path to the running executable, which is the default blob for every command.
func self() (string, error) {
	name, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("find running executable error: %w", err)
	}

	return name, nil
}

// orSelf returns name if it is non-empty, or the running executable otherwise.
func orSelf(name string) (string, error) {
	if name != "" {
		return name, nil
	}

	return self()
}

// openBlob opens a local file or an S3 object (s3://bucket/key) for reading.
//
// The size of the blob is returned as well.
func openBlob(ctx context.Context, name string) (io.ReadSeekCloser, int64, error) {
	if !internal.IsS3URI(name) {
		f, err := os.Open(name)
		if err != nil {
			return nil, 0, err
		}

		fi, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, 0, err
		}

		return f, fi.Size(), nil
	}

	bucket, key, err := internal.ParseS3URI(name)
	if err != nil {
		return nil, 0, err
	}

	client, err := config.NewS3Client(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("create S3 client error: %w", err)
	}

	r, err := s3blob.NewReadSeeker(client, bucket, key, func(opts *s3blob.Options) {
		opts.CtxFn = func() context.Context {
			return ctx
		}
	})
	if err != nil {
		return nil, 0, err
	}

	return s3Blob{r}, r.Size(), nil
}

type s3Blob struct {
	s3blob.ReadSeeker
}

func (s3Blob) Close() error {
	return nil
}

// writeBlob creates a local file or an S3 object (s3://bucket/key) with whatever fn writes.
//
// Local files are written to a temporary file in the same directory first then renamed, so the output may be the same
// file as one of the inputs and a failed write never leaves a partial output behind.
func writeBlob(ctx context.Context, logger *log.Logger, name string, fn func(io.Writer) error) error {
	if internal.IsS3URI(name) {
		bucket, key, err := internal.ParseS3URI(name)
		if err != nil {
			return err
		}

		client, err := config.NewS3Client(ctx)
		if err != nil {
			return fmt.Errorf("create S3 client error: %w", err)
		}

		return s3blob.Upload(ctx, client, bucket, key, fn, s3blob.LogUploadedParts(logger))
	}

	f, err := os.CreateTemp(filepath.Dir(name), "."+filepath.Base(name)+"-*")
	if err != nil {
		return err
	}

	err = fn(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Chmod(f.Name(), 0755)
	}
	if err == nil {
		err = os.Rename(f.Name(), name)
	}
	if err != nil {
		_ = os.Remove(f.Name())
	}

	return err
}

// ctxReader fails reads once ctx is done so that long copies can be interrupted.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r ctxReader) Read(p []byte) (int, error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}

	return r.r.Read(p)
}
