package thumbworker

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

	"github.com/festa-dev/festa-backend/internal/pkg/logger"
)

func TestParseEvents(t *testing.T) {
	payload := []byte(`{
		"EventName": "s3:ObjectCreated:Put",
		"Key": "festa-media/owner-1/abc.jpg",
		"Records": [{
			"eventName": "s3:ObjectCreated:Put",
			"s3": {
				"object": {
					"key": "owner-1%2Fabc%20def.jpg",
					"size": 2048,
					"contentType": "image/jpeg"
				}
			}
		}]
	}`)

	events, err := ParseEvents(payload)
	require.NoError(t, err)
	require.Len(t, events, 1)
	// Keys arrive URL-encoded
	assert.Equal(t, "owner-1/abc def.jpg", events[0].Key)
	assert.Equal(t, int64(2048), events[0].Size)
	assert.Equal(t, "image/jpeg", events[0].ContentType)
}

func TestParseEventsIgnoresNonCreation(t *testing.T) {
	payload := []byte(`{
		"Records": [{
			"eventName": "s3:ObjectRemoved:Delete",
			"s3": {"object": {"key": "owner-1%2Fgone.jpg"}}
		}]
	}`)
	events, err := ParseEvents(payload)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestParseEventsRejectsGarbage(t *testing.T) {
	_, err := ParseEvents([]byte("not json"))
	assert.Error(t, err)
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x % 256), G: uint8(y % 256), B: 64, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.PNG))
	return buf.Bytes()
}

func TestDeriveImage(t *testing.T) {
	src := encodePNG(t, 800, 600)

	thumb, contentType, err := DeriveImage(bytes.NewReader(src), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", contentType)

	decoded, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	// Cover-fit square regardless of source aspect
	assert.Equal(t, ThumbnailSize, decoded.Bounds().Dx())
	assert.Equal(t, ThumbnailSize, decoded.Bounds().Dy())
}

func TestDeriveImageJPEGDefault(t *testing.T) {
	src := encodePNG(t, 500, 500)
	_, contentType, err := DeriveImage(bytes.NewReader(src), "image/webp")
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", contentType)
}

func TestDeriveImageRejectsGarbage(t *testing.T) {
	_, _, err := DeriveImage(bytes.NewReader([]byte("not an image")), "image/jpeg")
	assert.Error(t, err)
}

// stubStore implements Store in memory.
type stubStore struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{objects: make(map[string][]byte), types: make(map[string]string)}
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

func (s *stubStore) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = b
	s.types[key] = contentType
	return nil
}

func (s *stubStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[key]
	return ok, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(logger.DefaultConfig())
	require.NoError(t, err)
	return log
}

func TestWorkerProcess(t *testing.T) {
	store := newStubStore()
	store.objects["owner-1/pic.png"] = encodePNG(t, 640, 480)
	w := NewWorker(store, testLogger(t))

	err := w.Process(context.Background(), ObjectEvent{
		Key:         "owner-1/pic.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)

	thumb, ok := store.objects["owner-1/thumbnails/pic.png"]
	require.True(t, ok, "thumbnail not written at predicted key")
	decoded, err := imaging.Decode(bytes.NewReader(thumb))
	require.NoError(t, err)
	assert.Equal(t, ThumbnailSize, decoded.Bounds().Dx())
	assert.Equal(t, "image/png", store.types["owner-1/thumbnails/pic.png"])
}

func TestWorkerSkipsOwnWrites(t *testing.T) {
	store := newStubStore()
	w := NewWorker(store, testLogger(t))

	// No source object exists; if the worker tried to process this it
	// would fail on Get.
	err := w.Process(context.Background(), ObjectEvent{
		Key:         "owner-1/thumbnails/pic.png",
		ContentType: "image/png",
	})
	require.NoError(t, err)
	assert.Empty(t, store.objects)
}

func TestWorkerSkipsUnsupportedTypes(t *testing.T) {
	store := newStubStore()
	w := NewWorker(store, testLogger(t))

	err := w.Process(context.Background(), ObjectEvent{
		Key:         "owner-1/notes.txt",
		ContentType: "text/plain",
	})
	require.NoError(t, err)
	assert.Empty(t, store.objects)
}

func TestWorkerIdempotentOnRedelivery(t *testing.T) {
	store := newStubStore()
	store.objects["owner-1/pic.png"] = encodePNG(t, 640, 480)
	w := NewWorker(store, testLogger(t))

	ev := ObjectEvent{Key: "owner-1/pic.png", ContentType: "image/png"}
	require.NoError(t, w.Process(context.Background(), ev))
	first := store.objects["owner-1/thumbnails/pic.png"]

	// Mark the thumbnail so a rewrite would be visible
	store.mu.Lock()
	store.objects["owner-1/thumbnails/pic.png"] = []byte("sentinel")
	store.mu.Unlock()
	require.NoError(t, w.Process(context.Background(), ev))
	assert.Equal(t, []byte("sentinel"), store.objects["owner-1/thumbnails/pic.png"])
	_ = first
}

func TestWorkerHandleNotification(t *testing.T) {
	store := newStubStore()
	store.objects["owner-1/pic.png"] = encodePNG(t, 640, 480)
	w := NewWorker(store, testLogger(t))

	payload := []byte(`{
		"Records": [{
			"eventName": "s3:ObjectCreated:Put",
			"s3": {"object": {"key": "owner-1%2Fpic.png", "contentType": "image/png"}}
		}]
	}`)
	w.HandleNotification(context.Background(), payload)

	_, ok := store.objects["owner-1/thumbnails/pic.png"]
	assert.True(t, ok)
}
