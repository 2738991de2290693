package minio

import (
	"context"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// PresignedPutObject returns a URL authorizing a single HTTP PUT to
// bucketName/objectName. The URL is scoped to exactly that key and the
// storage service enforces the expiry.
func (c *Client) PresignedPutObject(ctx context.Context, bucketName, objectName string, expiry time.Duration) (*url.URL, error) {
	if err := c.validateTarget("PresignedPutObject", bucketName, objectName); err != nil {
		return nil, err
	}
	if expiry <= 0 {
		return nil, WrapErrorWithMessage("PresignedPutObject", ErrInvalidArgument, "expiry must be greater than 0")
	}

	presignedURL, err := c.client.PresignedPutObject(ctx, bucketName, objectName, expiry)
	if err != nil {
		return nil, WrapError("PresignedPutObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Info("presigned PUT URL generated",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
			zap.Duration("expiry", expiry))
	}
	return presignedURL, nil
}
