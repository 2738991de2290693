package data

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	pkgminio "github.com/festa-dev/festa-backend/internal/pkg/minio"
)

// ObjectStore is the storage boundary used by grant issuance, the derivation
// worker and the reconciliation tools. It implements biz.ObjectStore and
// reconcile/thumbworker's store interfaces.
type ObjectStore struct {
	client        *pkgminio.Client
	bucket        string
	publicBaseURL string
}

// NewObjectStore creates a MinIO-backed object store for one bucket
func NewObjectStore(client *pkgminio.Client, bucket, publicBaseURL string) *ObjectStore {
	return &ObjectStore{
		client:        client,
		bucket:        bucket,
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// PresignPut mints a time-boxed single-object write URL
func (s *ObjectStore) PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (string, error) {
	u, err := s.client.PresignedPutObject(ctx, s.bucket, objectKey, expiry)
	if err != nil {
		return "", fmt.Errorf("failed to presign put: %w", err)
	}
	return u.String(), nil
}

// PublicURL derives the CDN-fronted URL for an object key. Pure, no I/O.
func (s *ObjectStore) PublicURL(objectKey string) string {
	return s.publicBaseURL + "/" + objectKey
}

// Exists reports whether an object is present at the key
func (s *ObjectStore) Exists(ctx context.Context, objectKey string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.bucket, objectKey)
	if err != nil {
		if pkgminio.IsNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object: %w", err)
	}
	return true, nil
}

// Get opens an object for reading
func (s *ObjectStore) Get(ctx context.Context, objectKey string) (io.ReadCloser, error) {
	rc, err := s.client.GetObject(ctx, s.bucket, objectKey)
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return rc, nil
}

// Put writes an object
func (s *ObjectStore) Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, objectKey, r, size, pkgminio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Remove deletes an object. Reserved for privileged operations; the request
// path never calls it for guest deletes.
func (s *ObjectStore) Remove(ctx context.Context, objectKey string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, objectKey); err != nil {
		return fmt.Errorf("failed to remove object: %w", err)
	}
	return nil
}
