package reconcile

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"io"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	"github.com/festa-dev/festa-backend/internal/thumbworker"
)

type stubRepo struct {
	mu      sync.Mutex
	records []*models.MediaRecord
	updated map[string]*models.MediaRecord
}

func (r *stubRepo) Create(context.Context, *models.MediaRecord) error { return nil }
func (r *stubRepo) GetByIDAndOwner(context.Context, string, string) (*models.MediaRecord, error) {
	return nil, nil
}
func (r *stubRepo) Delete(context.Context, string, string) (bool, error) { return false, nil }
func (r *stubRepo) ListByOwner(context.Context, string) ([]*models.MediaRecord, error) {
	return nil, nil
}

func (r *stubRepo) Update(_ context.Context, rec *models.MediaRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.updated == nil {
		r.updated = make(map[string]*models.MediaRecord)
	}
	cp := *rec
	r.updated[rec.ID] = &cp
	return nil
}

func (r *stubRepo) ListPage(_ context.Context, offset, limit int) ([]*models.MediaRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if offset >= len(r.records) {
		return nil, nil
	}
	end := offset + limit
	if end > len(r.records) {
		end = len(r.records)
	}
	return r.records[offset:end], nil
}

func (r *stubRepo) Count(context.Context) (int64, error) {
	return int64(len(r.records)), nil
}

type stubStore struct {
	mu        sync.Mutex
	objects   map[string][]byte
	existsErr error
}

func newStubStore() *stubStore {
	return &stubStore{objects: make(map[string][]byte)}
}

func (s *stubStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.existsErr != nil {
		return false, s.existsErr
	}
	_, ok := s.objects[key]
	return ok, nil
}

func (s *stubStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	if !ok {
		return nil, errors.New("no such object")
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (s *stubStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	return nil
}

func (s *stubStore) PublicURL(key string) string {
	return "https://cdn.test/" + key
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 600, 400))
	for x := 0; x < 600; x += 10 {
		for y := 0; y < 400; y += 10 {
			img.Set(x, y, color.RGBA{R: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func record(id, key, mimeType string) *models.MediaRecord {
	return &models.MediaRecord{
		ID:        id,
		OwnerID:   "owner-1",
		ObjectKey: key,
		MimeType:  mimeType,
	}
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func TestAudit(t *testing.T) {
	repo := &stubRepo{records: []*models.MediaRecord{
		record("m1", "owner-1/m1.png", "image/png"),
		record("m2", "owner-1/m2.png", "image/png"),
		record("m3", "owner-1/m3.mp4", "video/mp4"),
	}}
	store := newStubStore()
	// m1 has its thumbnail, m2 and m3 do not
	store.objects["owner-1/thumbnails/m1.png"] = []byte("thumb")

	r := NewReconciler(repo, store, testLogger(t))
	report, err := r.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), report.Total)
	assert.Equal(t, int64(1), report.WithThumbnail)
	assert.Equal(t, int64(2), report.WithoutThumbnail)

	// Audit never mutates
	assert.Empty(t, repo.updated)
	again, err := r.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, report, again)
}

func TestAuditPagination(t *testing.T) {
	repo := &stubRepo{}
	for i := 0; i < 7; i++ {
		repo.records = append(repo.records, record(
			string(rune('a'+i)), "owner-1/"+string(rune('a'+i))+".png", "image/png"))
	}
	store := newStubStore()

	r := NewReconciler(repo, store, testLogger(t))
	r.pageSize = 3
	report, err := r.Audit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(7), report.Total)
	assert.Equal(t, int64(7), report.WithoutThumbnail)
}

func TestAuditStorageFailureIsFatal(t *testing.T) {
	repo := &stubRepo{records: []*models.MediaRecord{
		record("m1", "owner-1/m1.png", "image/png"),
	}}
	store := newStubStore()
	store.existsErr = errors.New("connection refused")

	r := NewReconciler(repo, store, testLogger(t))
	_, err := r.Audit(context.Background())
	assert.Error(t, err)
}

func TestRepairAll(t *testing.T) {
	repo := &stubRepo{records: []*models.MediaRecord{
		record("m1", "owner-1/m1.png", "image/png"),
		record("m2", "owner-1/m2.png", "image/png"),
	}}
	store := newStubStore()
	store.objects["owner-1/m1.png"] = pngBytes(t)
	// m2 is an abandoned placeholder: no source object

	r := NewReconciler(repo, store, testLogger(t))
	report, err := r.RepairAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.Total)
	assert.Equal(t, int64(2), report.WithoutThumbnail)
	assert.Equal(t, int64(1), report.Repaired)
	assert.Equal(t, int64(1), report.Skipped)
	assert.Zero(t, report.Failed)

	// Thumbnail written at the predicted key with a real derived image
	thumb, ok := store.objects["owner-1/thumbnails/m1.png"]
	require.True(t, ok)
	decoded, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, thumbworker.ThumbnailSize, decoded.Bounds().Dx())

	// Record updated with the thumbnail URL
	updated, ok := repo.updated["m1"]
	require.True(t, ok)
	require.NotNil(t, updated.ThumbnailURL)
	assert.Equal(t, "https://cdn.test/owner-1/thumbnails/m1.png", *updated.ThumbnailURL)

	// The abandoned placeholder was left alone
	assert.NotContains(t, repo.updated, "m2")
}

func TestRepairAllSkipsHealthyRecords(t *testing.T) {
	repo := &stubRepo{records: []*models.MediaRecord{
		record("m1", "owner-1/m1.png", "image/png"),
	}}
	store := newStubStore()
	store.objects["owner-1/m1.png"] = pngBytes(t)
	store.objects["owner-1/thumbnails/m1.png"] = []byte("existing")

	r := NewReconciler(repo, store, testLogger(t))
	report, err := r.RepairAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), report.WithThumbnail)
	assert.Zero(t, report.Repaired)
	// Existing thumbnail untouched
	assert.Equal(t, []byte("existing"), store.objects["owner-1/thumbnails/m1.png"])
}
