package uploader

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa-backend/internal/media/biz"
)

func grantFor(url string) *biz.UploadGrant {
	return &biz.UploadGrant{
		MediaID:   "media-1",
		ObjectKey: "owner-1/media-1.jpg",
		UploadURL: url,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": "image/jpeg"},
	}
}

func TestTransportUpload(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 8192)
	var gotBody []byte
	var gotContentType string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPut, r.Method)
		gotContentType = r.Header.Get("Content-Type")
		buf := new(bytes.Buffer)
		buf.ReadFrom(r.Body)
		gotBody = buf.Bytes()
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	var updates [][2]int64
	tr := NewTransport()
	err := tr.Upload(context.Background(), grantFor(srv.URL), bytes.NewReader(payload), int64(len(payload)), func(sent, total int64) {
		updates = append(updates, [2]int64{sent, total})
	})
	require.NoError(t, err)
	assert.Equal(t, payload, gotBody)
	assert.Equal(t, "image/jpeg", gotContentType)

	// Progress is monotone and hits total exactly once, at the end
	require.NotEmpty(t, updates)
	var prev int64 = -1
	for i, u := range updates {
		assert.GreaterOrEqual(t, u[0], prev, "progress went backwards at %d", i)
		prev = u[0]
		if i < len(updates)-1 {
			assert.Less(t, u[0], u[1], "full progress reported before completion")
		}
	}
	last := updates[len(updates)-1]
	assert.Equal(t, int64(len(payload)), last[0])
}

func TestTransportNeverReportsFullProgressOnFailure(t *testing.T) {
	payload := bytes.Repeat([]byte("x"), 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var maxSent int64
	tr := NewTransport()
	err := tr.Upload(context.Background(), grantFor(srv.URL), bytes.NewReader(payload), int64(len(payload)), func(sent, total int64) {
		if sent > maxSent {
			maxSent = sent
		}
	})
	require.Error(t, err)
	assert.Less(t, maxSent, int64(len(payload)))
}

func TestTransportErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusUnauthorized, KindGrant},
		{http.StatusForbidden, KindGrant},
		{http.StatusBadRequest, KindSize},
		{http.StatusRequestEntityTooLarge, KindSize},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusConflict, KindTransport},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		tr := NewTransport()
		err := tr.Upload(context.Background(), grantFor(srv.URL), bytes.NewReader([]byte("data")), 4, nil)
		srv.Close()
		require.Error(t, err, "status %d", tt.status)
		assert.Equal(t, tt.want, Kind(err), "status %d", tt.status)
		var ue *UploadError
		require.ErrorAs(t, err, &ue)
		assert.Equal(t, tt.status, ue.StatusCode)
	}
}

func TestTransportConnectionFailure(t *testing.T) {
	tr := NewTransport()
	// Nothing listens here
	err := tr.Upload(context.Background(), grantFor("http://127.0.0.1:1/upload"), bytes.NewReader([]byte("data")), 4, nil)
	require.Error(t, err)
	kind := Kind(err)
	assert.Contains(t, []ErrorKind{KindTransport, KindTransient}, kind)
}

func TestChooseFanoutWidth(t *testing.T) {
	tests := []struct {
		name    string
		profile DeviceProfile
		avgSize int64
		want    int
	}{
		{"capable small", ProfileCapable, 1024, 3},
		{"constrained small", ProfileConstrained, 1024, 2},
		{"capable large", ProfileCapable, 8 << 20, 1},
		{"constrained large", ProfileConstrained, 8 << 20, 1},
		{"capable at threshold", ProfileCapable, LargeFileThreshold, 3},
		{"capable just over threshold", ProfileCapable, LargeFileThreshold + 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChooseFanoutWidth(tt.profile, tt.avgSize))
		})
	}
}
