package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/festa-dev/festa-backend/internal/media/biz"
)

// Client implements GrantAPI against the festa HTTP API. It speaks the
// server's JSON envelope and carries the guest's bearer token.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates an API client for the given base URL and access token
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// IssueGrant calls POST /api/v1/media/grants
func (c *Client) IssueGrant(ctx context.Context, req *biz.GrantRequest) (*biz.UploadGrant, error) {
	var grant biz.UploadGrant
	if err := c.call(ctx, http.MethodPost, "/api/v1/media/grants", req, &grant); err != nil {
		return nil, err
	}
	return &grant, nil
}

// Finalize calls POST /api/v1/media/{id}/finalize
func (c *Client) Finalize(ctx context.Context, mediaID string, req *biz.FinalizeRequest) error {
	return c.call(ctx, http.MethodPost, "/api/v1/media/"+mediaID+"/finalize", req, nil)
}

func (c *Client) call(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &UploadError{Kind: classifyNetErr(err), Err: err}
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return &UploadError{Kind: KindTransport, Err: fmt.Errorf("decoding response: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Code != 0 {
		return &UploadError{
			Kind:       classifyStatus(resp.StatusCode),
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("api error %d: %s", env.Code, env.Message),
		}
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &UploadError{Kind: KindTransport, Err: fmt.Errorf("decoding payload: %w", err)}
		}
	}
	return nil
}
