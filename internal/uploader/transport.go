package uploader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/festa-dev/festa-backend/internal/media/biz"
)

// ProgressFunc receives monotone progress for one transfer. sent never
// decreases and equals total only after the store has acknowledged the
// upload with a success status.
type ProgressFunc func(sent, total int64)

// Transport performs the direct-to-storage PUT described by an upload
// grant. It streams the source without buffering it in memory.
type Transport struct {
	client *http.Client
}

// NewTransport creates a transport with a sensible default client
func NewTransport() *Transport {
	return &Transport{
		client: &http.Client{
			Timeout: 10 * time.Minute,
		},
	}
}

// NewTransportWithClient creates a transport using the given HTTP client
func NewTransportWithClient(client *http.Client) *Transport {
	return &Transport{client: client}
}

// Upload streams size bytes from r to the grant's URL with the grant's
// method and headers. Progress is clamped below total until the response
// status confirms success; a transfer that dies mid-stream never reports
// completion.
func (t *Transport) Upload(ctx context.Context, grant *biz.UploadGrant, r io.Reader, size int64, progress ProgressFunc) error {
	body := &progressReader{r: r, total: size, progress: progress}

	req, err := http.NewRequestWithContext(ctx, grant.Method, grant.UploadURL, body)
	if err != nil {
		return &UploadError{Kind: KindTransport, Err: fmt.Errorf("building request: %w", err)}
	}
	req.ContentLength = size
	for k, v := range grant.Headers {
		req.Header.Set(k, v)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &UploadError{Kind: classifyNetErr(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Drain a little of the body for the error message; presigned
		// stores return short XML diagnostics.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &UploadError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("store rejected upload: %s", string(msg)),
		}
	}

	if body.sent != size {
		return &UploadError{
			Kind: KindSize,
			Err:  fmt.Errorf("sent %d of %d declared bytes", body.sent, size),
		}
	}

	// Only now, with the 2xx verified, report full completion.
	if progress != nil {
		progress(size, size)
	}
	return nil
}

// progressReader reports bytes as they leave the client, holding back the
// final byte of progress until success is verified upstream.
type progressReader struct {
	r        io.Reader
	total    int64
	sent     int64
	progress ProgressFunc
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.r.Read(p)
	if n > 0 {
		pr.sent += int64(n)
		if pr.progress != nil {
			reported := pr.sent
			if reported >= pr.total && pr.total > 0 {
				reported = pr.total - 1
			}
			pr.progress(reported, pr.total)
		}
	}
	return n, err
}
