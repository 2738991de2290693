package minio

import (
	"context"
	"io"
	"time"

	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// PutObjectOptions carries the subset of upload options the API exposes.
type PutObjectOptions struct {
	ContentType string
}

// UploadInfo describes a stored object after a successful write.
type UploadInfo struct {
	Bucket string
	Key    string
	ETag   string
	Size   int64
}

// ObjectInfo describes a stored object's metadata.
type ObjectInfo struct {
	Key          string
	ETag         string
	Size         int64
	ContentType  string
	LastModified time.Time
}

func (c *Client) validateTarget(op, bucketName, objectName string) error {
	if err := c.checkClosed(); err != nil {
		return err
	}
	if bucketName == "" {
		return WrapError(op, ErrInvalidBucketName, bucketName, objectName)
	}
	if objectName == "" {
		return WrapError(op, ErrInvalidObjectName, bucketName, objectName)
	}
	return nil
}

// PutObject streams reader into bucketName/objectName.
func (c *Client) PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts PutObjectOptions) (UploadInfo, error) {
	if err := c.validateTarget("PutObject", bucketName, objectName); err != nil {
		return UploadInfo{}, err
	}

	info, err := c.client.PutObject(ctx, bucketName, objectName, reader, objectSize,
		minio.PutObjectOptions{ContentType: opts.ContentType})
	if err != nil {
		return UploadInfo{}, WrapError("PutObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Info("object stored",
			zap.String("bucket", bucketName),
			zap.String("object", objectName),
			zap.Int64("size", info.Size))
	}

	return UploadInfo{Bucket: info.Bucket, Key: info.Key, ETag: info.ETag, Size: info.Size}, nil
}

// GetObject opens bucketName/objectName for reading. The caller owns the
// returned stream and must close it.
func (c *Client) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	if err := c.validateTarget("GetObject", bucketName, objectName); err != nil {
		return nil, err
	}

	obj, err := c.client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
	if err != nil {
		return nil, WrapError("GetObject", err, bucketName, objectName)
	}
	return obj, nil
}

// StatObject fetches object metadata. The returned error satisfies
// IsNotFound when the object does not exist.
func (c *Client) StatObject(ctx context.Context, bucketName, objectName string) (ObjectInfo, error) {
	if err := c.validateTarget("StatObject", bucketName, objectName); err != nil {
		return ObjectInfo{}, err
	}

	info, err := c.client.StatObject(ctx, bucketName, objectName, minio.StatObjectOptions{})
	if err != nil {
		return ObjectInfo{}, WrapError("StatObject", err, bucketName, objectName)
	}

	return ObjectInfo{
		Key:          info.Key,
		ETag:         info.ETag,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
	}, nil
}

// RemoveObject deletes bucketName/objectName.
func (c *Client) RemoveObject(ctx context.Context, bucketName, objectName string) error {
	if err := c.validateTarget("RemoveObject", bucketName, objectName); err != nil {
		return err
	}

	if err := c.client.RemoveObject(ctx, bucketName, objectName, minio.RemoveObjectOptions{}); err != nil {
		return WrapError("RemoveObject", err, bucketName, objectName)
	}

	if c.logger != nil {
		c.logger.Info("object removed",
			zap.String("bucket", bucketName),
			zap.String("object", objectName))
	}
	return nil
}
