package minio

import "errors"

// Config holds the object storage connection settings.
type Config struct {
	// Endpoint is the S3-compatible endpoint, e.g. "localhost:9000".
	Endpoint string

	AccessKeyID     string
	SecretAccessKey string

	// Region is optional; MinIO standalone ignores it.
	Region string

	// UseSSL selects HTTPS.
	UseSSL bool
}

// Validate checks that the required connection fields are set
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return errors.New("minio: endpoint is required")
	}
	if c.AccessKeyID == "" {
		return errors.New("minio: access key ID is required")
	}
	if c.SecretAccessKey == "" {
		return errors.New("minio: secret access key is required")
	}
	return nil
}
