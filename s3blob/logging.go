package s3blob

import (
	"context"
	"log"
	"sync/atomic"

	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// partLoggingClient logs every successfully uploaded part.
//
// UploadPart may be called from any of the goroutines that manager.Uploader uses to upload parts in parallel so the
// tally is atomic.
type partLoggingClient struct {
	manager.UploadAPIClient
	logger *log.Logger
	parts  atomic.Int64
}

func (c *partLoggingClient) UploadPart(ctx context.Context, input *s3.UploadPartInput, optFns ...func(*s3.Options)) (*s3.UploadPartOutput, error) {
	output, err := c.UploadAPIClient.UploadPart(ctx, input, optFns...)
	if err == nil {
		c.logger.Printf("uploaded %d parts so far", c.parts.Add(1))
	}

	return output, err
}

// LogUploadedParts can be passed to Upload to log the progress of large uploads.
//
// The log messages will be in this format: `uploaded %d parts so far`. Uploads that fit in a single part are not logged.
func LogUploadedParts(logger *log.Logger) func(*manager.Uploader) {
	return func(uploader *manager.Uploader) {
		uploader.S3 = &partLoggingClient{UploadAPIClient: uploader.S3, logger: logger}
	}
}
