package uploader

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies an upload failure so callers can decide whether a
// manual retry is worth offering. The pipeline itself never retries.
type ErrorKind string

const (
	// KindValidation means the file was rejected locally before any
	// network activity; the user can correct and re-select it.
	KindValidation ErrorKind = "validation"

	// KindGrant means the credential was rejected: expired, revoked, or
	// aimed at an object the grant does not cover. A fresh grant is needed.
	KindGrant ErrorKind = "grant"

	// KindSize means the bytes did not match the declared size and the
	// store refused them. Retrying with the same declaration cannot help.
	KindSize ErrorKind = "size"

	// KindTransient means the failure looks temporary: connection loss,
	// timeout, throttling, or a 5xx from the store.
	KindTransient ErrorKind = "transient"

	// KindTransport covers everything else that broke the transfer.
	KindTransport ErrorKind = "transport"
)

// UploadError is the classified failure of a single file transfer.
type UploadError struct {
	Kind       ErrorKind
	StatusCode int // zero when the failure happened before a response
	Err        error
}

func (e *UploadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upload failed (%s, status %d): %v", e.Kind, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("upload failed (%s): %v", e.Kind, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// Kind extracts the classification from an error chain, defaulting to
// transport for unclassified failures.
func Kind(err error) ErrorKind {
	var ue *UploadError
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return KindTransport
}

// classifyStatus maps a non-2xx store response to an error kind.
func classifyStatus(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindGrant
	case status == http.StatusRequestEntityTooLarge || status == http.StatusBadRequest:
		return KindSize
	case status == http.StatusTooManyRequests || status >= 500:
		return KindTransient
	default:
		return KindTransport
	}
}

// classifyNetErr maps a transport-level failure to an error kind.
func classifyNetErr(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}
	return KindTransport
}
