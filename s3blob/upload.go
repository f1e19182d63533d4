package s3blob

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Upload streams whatever fn writes to the S3 object with the given bucket and key.
//
// fn is run in its own goroutine and is given the write end of an io.Pipe whose read end is consumed by
// manager.Uploader, so the content never needs to be buffered in full or written to a temporary file. If fn returns
// an error, the upload is aborted and that error is returned.
func Upload(ctx context.Context, client manager.UploadAPIClient, bucket, key string, fn func(io.Writer) error, optFns ...func(*manager.Uploader)) error {
	pr, pw := io.Pipe()

	errc := make(chan error, 1)
	go func() {
		err := fn(pw)
		_ = pw.CloseWithError(err)
		errc <- err
	}()

	_, err := manager.NewUploader(client, optFns...).Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   pr,
	})

	// unblocks fn if the uploader stopped reading early.
	_ = pr.CloseWithError(errors.Join(err, io.ErrClosedPipe))

	switch werr := <-errc; {
	case werr != nil && !errors.Is(werr, io.ErrClosedPipe):
		return werr
	case err != nil:
		return fmt.Errorf("upload to s3://%s/%s error: %w", bucket, key, err)
	default:
		return werr
	}
}
