package thumbworker

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"

	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/media/biz"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
)

// Store is the storage surface the worker needs. data.ObjectStore
// implements it.
type Store interface {
	Get(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
	Exists(ctx context.Context, objectKey string) (bool, error)
}

// Worker derives thumbnails for newly written media objects. It is driven
// by object-creation events from the bus; the request path never waits on
// it.
type Worker struct {
	store Store
	log   *logger.Logger
}

// NewWorker creates a derivation worker
func NewWorker(store Store, log *logger.Logger) *Worker {
	return &Worker{store: store, log: log}
}

// HandleNotification processes one bus message. Failures are logged and
// swallowed: the reconciliation job picks up whatever the worker misses,
// and redelivery storms help nobody.
func (w *Worker) HandleNotification(ctx context.Context, data []byte) {
	events, err := ParseEvents(data)
	if err != nil {
		w.log.Warn("dropping unparseable notification", zap.Error(err))
		return
	}
	for _, ev := range events {
		if err := w.Process(ctx, ev); err != nil {
			w.log.Error("thumbnail derivation failed",
				zap.String("key", ev.Key),
				zap.Error(err))
		}
	}
}

// Process derives and stores the thumbnail for one object event. Events
// for thumbnail objects and unsupported types are skipped, not errors.
func (w *Worker) Process(ctx context.Context, ev ObjectEvent) error {
	if biz.IsThumbnailKey(ev.Key) {
		// Our own write coming back around
		return nil
	}

	mimeType := ev.ContentType
	if mimeType == "" {
		mimeType = mime.TypeByExtension(path.Ext(ev.Key))
	}
	if !biz.IsImageMime(mimeType) && !biz.IsVideoMime(mimeType) {
		w.log.Debug("skipping unsupported object", zap.String("key", ev.Key), zap.String("content_type", mimeType))
		return nil
	}

	thumbKey := biz.ThumbnailKey(ev.Key, mimeType)
	if exists, err := w.store.Exists(ctx, thumbKey); err == nil && exists {
		// Redelivered event, thumbnail already produced
		return nil
	}

	src, err := w.store.Get(ctx, ev.Key)
	if err != nil {
		return fmt.Errorf("fetching source: %w", err)
	}
	defer src.Close()

	var thumb []byte
	var thumbType string
	if biz.IsVideoMime(mimeType) {
		thumb, thumbType, err = DeriveVideoFrame(ctx, src)
	} else {
		thumb, thumbType, err = DeriveImage(src, mimeType)
	}
	if err != nil {
		return err
	}

	if err := w.store.Put(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), thumbType); err != nil {
		return fmt.Errorf("storing thumbnail: %w", err)
	}

	w.log.Info("thumbnail derived",
		zap.String("source", ev.Key),
		zap.String("thumbnail", thumbKey),
		zap.Int("bytes", len(thumb)))
	return nil
}
