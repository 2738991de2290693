package service

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa-backend/internal/auth"
	"github.com/festa-dev/festa-backend/internal/auth/middleware"
	"github.com/festa-dev/festa-backend/internal/media/biz"
	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
)

type memRepo struct {
	mu      sync.Mutex
	records map[string]*models.MediaRecord
}

func (r *memRepo) Create(_ context.Context, rec *models.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *memRepo) GetByIDAndOwner(_ context.Context, id, ownerID string) (*models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.OwnerID != ownerID {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *memRepo) Update(_ context.Context, rec *models.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id, ownerID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.OwnerID != ownerID {
		return false, nil
	}
	delete(r.records, id)
	return true, nil
}

func (r *memRepo) ListByOwner(_ context.Context, ownerID string) ([]*models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.MediaRecord
	for _, rec := range r.records {
		if rec.OwnerID == ownerID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memRepo) ListPage(context.Context, int, int) ([]*models.MediaRecord, error) {
	return nil, nil
}

func (r *memRepo) Count(context.Context) (int64, error) { return 0, nil }

type memSituations struct{}

func (memSituations) Exists(_ context.Context, id string) (bool, error) {
	return id == "sit-1", nil
}

func (memSituations) List(context.Context) ([]*models.Situation, error) {
	return []*models.Situation{{ID: "sit-1", Title: "Ceremony"}}, nil
}

type memStore struct{}

func (memStore) PresignPut(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://store.test/" + key + "?sig=abc", nil
}
func (memStore) PublicURL(key string) string { return "https://cdn.test/" + key }
func (memStore) Exists(context.Context, string) (bool, error) {
	return false, nil
}
func (memStore) Get(context.Context, string) (io.ReadCloser, error) {
	return nil, nil
}
func (memStore) Put(context.Context, string, io.Reader, int64, string) error {
	return nil
}

func setupRouter(t *testing.T) (*gin.Engine, *auth.JWTManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)

	repo := &memRepo{records: make(map[string]*models.MediaRecord)}
	uc := biz.NewMediaUseCase(repo, memSituations{}, memStore{}, 5*time.Minute, 100<<20, log)
	svc := NewMediaService(uc)
	jwtManager := auth.NewJWTManager("test-secret", "")

	router := gin.New()
	api := router.Group("/api/v1")
	authed := api.Group("", middleware.JWTAuth(jwtManager, log))
	svc.RegisterRoutes(authed, nil)
	return router, jwtManager
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, router *gin.Engine, method, path, token string, body interface{}) (*httptest.ResponseRecorder, *envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return w, &env
}

func TestGrantEndpointRequiresAuth(t *testing.T) {
	router, _ := setupRouter(t)
	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/media/grants", "", biz.GrantRequest{
		FileName: "a.jpg", MimeType: "image/jpeg", FileSizeBytes: 100,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGrantEndpoint(t *testing.T) {
	router, jwtManager := setupRouter(t)
	token, err := jwtManager.GenerateAccessToken("owner-1", "Ada")
	require.NoError(t, err)

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/media/grants", token, biz.GrantRequest{
		FileName: "a.jpg", MimeType: "image/jpeg", FileSizeBytes: 100,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Zero(t, env.Code)

	var grant biz.UploadGrant
	require.NoError(t, json.Unmarshal(env.Data, &grant))
	assert.NotEmpty(t, grant.MediaID)
	assert.Contains(t, grant.UploadURL, grant.ObjectKey)
	assert.Equal(t, "PUT", grant.Method)
}

func TestGrantEndpointRejectsBadType(t *testing.T) {
	router, jwtManager := setupRouter(t)
	token, err := jwtManager.GenerateAccessToken("owner-1", "")
	require.NoError(t, err)

	w, env := doJSON(t, router, http.MethodPost, "/api/v1/media/grants", token, biz.GrantRequest{
		FileName: "doc.pdf", MimeType: "application/pdf", FileSizeBytes: 100,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotZero(t, env.Code)
}

func TestFinalizeForeignRecordIs404(t *testing.T) {
	router, jwtManager := setupRouter(t)
	ownerToken, err := jwtManager.GenerateAccessToken("owner-1", "")
	require.NoError(t, err)
	otherToken, err := jwtManager.GenerateAccessToken("owner-2", "")
	require.NoError(t, err)

	_, env := doJSON(t, router, http.MethodPost, "/api/v1/media/grants", ownerToken, biz.GrantRequest{
		FileName: "a.jpg", MimeType: "image/jpeg", FileSizeBytes: 100,
	})
	var grant biz.UploadGrant
	require.NoError(t, json.Unmarshal(env.Data, &grant))

	w, _ := doJSON(t, router, http.MethodPost, "/api/v1/media/"+grant.MediaID+"/finalize", otherToken, biz.FinalizeRequest{})
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Nonexistent ID answers identically
	w2, _ := doJSON(t, router, http.MethodPost, "/api/v1/media/no-such-id/finalize", otherToken, biz.FinalizeRequest{})
	assert.Equal(t, w.Code, w2.Code)
}

func TestListAndDelete(t *testing.T) {
	router, jwtManager := setupRouter(t)
	token, err := jwtManager.GenerateAccessToken("owner-1", "")
	require.NoError(t, err)

	_, env := doJSON(t, router, http.MethodPost, "/api/v1/media/grants", token, biz.GrantRequest{
		FileName: "a.jpg", MimeType: "image/jpeg", FileSizeBytes: 100,
	})
	var grant biz.UploadGrant
	require.NoError(t, json.Unmarshal(env.Data, &grant))

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/media", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var recs []models.MediaRecord
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	assert.Len(t, recs, 1)

	w, _ = doJSON(t, router, http.MethodDelete, "/api/v1/media/"+grant.MediaID, token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, env = doJSON(t, router, http.MethodGet, "/api/v1/media", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	recs = nil
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	assert.Empty(t, recs)
}

func TestListSituations(t *testing.T) {
	router, jwtManager := setupRouter(t)
	token, err := jwtManager.GenerateAccessToken("owner-1", "")
	require.NoError(t, err)

	w, env := doJSON(t, router, http.MethodGet, "/api/v1/situations", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sits []models.Situation
	require.NoError(t, json.Unmarshal(env.Data, &sits))
	require.Len(t, sits, 1)
	assert.Equal(t, "Ceremony", sits[0].Title)
}
