package uploader

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa-backend/internal/media/biz"
)

// fakeAPI issues grants against a test storage server.
type fakeAPI struct {
	mu          sync.Mutex
	storeURL    string
	grantCalls  int
	finalized   []string
	finalizeErr error
	nextID      int
}

func (a *fakeAPI) IssueGrant(_ context.Context, req *biz.GrantRequest) (*biz.UploadGrant, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.grantCalls++
	a.nextID++
	mediaID := fmt.Sprintf("media-%d", a.nextID)
	key := "owner-1/" + mediaID + biz.ExtensionForMime(req.MimeType)
	return &biz.UploadGrant{
		MediaID:   mediaID,
		ObjectKey: key,
		UploadURL: a.storeURL + "/" + key + "?name=" + req.FileName,
		Method:    http.MethodPut,
		Headers:   map[string]string{"Content-Type": req.MimeType},
		PublicURL: "https://cdn.test/" + key,
	}, nil
}

func (a *fakeAPI) Finalize(_ context.Context, mediaID string, _ *biz.FinalizeRequest) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.finalizeErr != nil {
		return a.finalizeErr
	}
	a.finalized = append(a.finalized, mediaID)
	return nil
}

func (a *fakeAPI) grants() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grantCalls
}

// newTestStore returns a storage stub that fails PUTs whose URL contains
// failSubstring.
func newTestStore(t *testing.T, failSubstring string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.Copy(io.Discard, r.Body)
		if failSubstring != "" && strings.Contains(r.URL.String(), failSubstring) {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
}

func smallFile(name string) BatchFile {
	data := bytes.Repeat([]byte("a"), 1024)
	return BatchFile{
		FileName:  name,
		MimeType:  "image/jpeg",
		SizeBytes: int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

func TestUploadBatchAllComplete(t *testing.T) {
	store := newTestStore(t, "")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	files := []BatchFile{
		smallFile("a.jpg"), smallFile("b.jpg"), smallFile("c.jpg"),
		smallFile("d.jpg"), smallFile("e.jpg"),
	}
	res, err := c.UploadBatch(context.Background(), files, "")
	require.NoError(t, err)
	assert.Equal(t, 5, res.Completed)
	assert.Zero(t, res.Failed)
	assert.Len(t, api.finalized, 5)
	assert.Zero(t, c.InFlight())
	for _, p := range res.Files {
		assert.Equal(t, StateCompleted, p.State)
		assert.Equal(t, p.TotalBytes, p.SentBytes)
		assert.NotEmpty(t, p.MediaID)
	}
}

func TestUploadBatchOneFailureDoesNotAbortSiblings(t *testing.T) {
	// The store rejects the file named poison.jpg; every other transfer
	// must still finish.
	store := newTestStore(t, "poison.jpg")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	files := []BatchFile{
		smallFile("a.jpg"), smallFile("poison.jpg"),
		smallFile("c.jpg"), smallFile("d.jpg"),
	}
	res, err := c.UploadBatch(context.Background(), files, "")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Completed)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, c.InFlight())

	for _, p := range res.Files {
		if p.FileName == "poison.jpg" {
			assert.Equal(t, StateFailed, p.State)
			assert.Equal(t, KindTransient, Kind(p.Err))
			assert.Less(t, p.SentBytes, p.TotalBytes)
		} else {
			assert.Equal(t, StateCompleted, p.State)
		}
	}
}

func TestUploadBatchPreValidationBlocksNetworkActivity(t *testing.T) {
	store := newTestStore(t, "")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	bad := BatchFile{FileName: "doc.pdf", MimeType: "application/pdf", SizeBytes: 100}
	oversize := BatchFile{FileName: "big.jpg", MimeType: "image/jpeg", SizeBytes: (100 << 20) + 1}
	res, err := c.UploadBatch(context.Background(), []BatchFile{bad, oversize, smallFile("ok.jpg")}, "")
	require.NoError(t, err)

	// Both violations are surfaced; the valid file still went through
	assert.Equal(t, 1, res.Completed)
	assert.Equal(t, 2, res.Failed)
	for _, p := range res.Files {
		if p.State == StateFailed {
			assert.Equal(t, KindValidation, Kind(p.Err))
		}
	}
	// Only the valid file caused a grant round trip
	assert.Equal(t, 1, api.grants())
}

func TestUploadBatchAllInvalid(t *testing.T) {
	api := &fakeAPI{}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	bad := BatchFile{FileName: "doc.pdf", MimeType: "application/pdf", SizeBytes: 100}
	res, err := c.UploadBatch(context.Background(), []BatchFile{bad}, "")
	require.NoError(t, err)
	assert.Zero(t, res.Completed)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, api.grants())
}

func TestUploadBatchDuplicateNamesGetDistinctKeys(t *testing.T) {
	store := newTestStore(t, "")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	res, err := c.UploadBatch(context.Background(), []BatchFile{
		smallFile("same.jpg"), smallFile("same.jpg"),
	}, "")
	require.NoError(t, err)
	require.Len(t, res.Files, 2)
	assert.NotEqual(t, res.Files[0].Key, res.Files[1].Key)
	assert.Equal(t, 2, res.Completed)
}

func TestUploadBatchFinalizeFailure(t *testing.T) {
	store := newTestStore(t, "")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL, finalizeErr: errors.New("situation lookup timed out")}
	c := NewCoordinator(api, NewTransport(), ProfileCapable, 100<<20, nil, nil)

	res, err := c.UploadBatch(context.Background(), []BatchFile{smallFile("a.jpg")}, "")
	require.NoError(t, err)
	assert.Zero(t, res.Completed)
	assert.Equal(t, 1, res.Failed)
	// The bytes were stored; only the metadata patch is missing
	assert.Equal(t, StateFailed, res.Files[0].State)
}

func TestUploadBatchStateUpdatesObserved(t *testing.T) {
	store := newTestStore(t, "")
	defer store.Close()
	api := &fakeAPI{storeURL: store.URL}

	var mu sync.Mutex
	seen := make(map[FileState]bool)
	c := NewCoordinator(api, NewTransport(), ProfileConstrained, 100<<20, func(p FileProgress) {
		mu.Lock()
		seen[p.State] = true
		mu.Unlock()
	}, nil)

	_, err := c.UploadBatch(context.Background(), []BatchFile{smallFile("a.jpg")}, "")
	require.NoError(t, err)
	for _, s := range []FileState{StateGranting, StateTransferring, StateFinalizing, StateCompleted} {
		assert.True(t, seen[s], "state %s never observed", s)
	}
}

func TestUploadBatchEmpty(t *testing.T) {
	c := NewCoordinator(&fakeAPI{}, NewTransport(), ProfileCapable, 100<<20, nil, nil)
	res, err := c.UploadBatch(context.Background(), nil, "")
	require.NoError(t, err)
	assert.Zero(t, res.Completed)
	assert.Zero(t, res.Failed)
}
