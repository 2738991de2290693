package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/media/biz"
	"github.com/festa-dev/festa-backend/internal/media/data"
	"github.com/festa-dev/festa-backend/internal/media/models"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
	"github.com/festa-dev/festa-backend/internal/thumbworker"
)

// Store is the storage surface reconciliation needs. data.ObjectStore
// implements it.
type Store interface {
	Exists(ctx context.Context, objectKey string) (bool, error)
	Get(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
	PublicURL(objectKey string) string
}

const defaultPageSize = 200

// Report is the outcome of an audit pass.
type Report struct {
	Total            int64 `json:"total"`
	WithThumbnail    int64 `json:"with_thumbnail"`
	WithoutThumbnail int64 `json:"without_thumbnail"`
}

// RepairReport extends Report with what a repair pass did about the gap.
type RepairReport struct {
	Report
	Repaired int64 `json:"repaired"`
	Skipped  int64 `json:"skipped"`
	Failed   int64 `json:"failed"`
}

// Reconciler audits and repairs the gap between predicted thumbnails and
// thumbnails that actually exist in storage.
type Reconciler struct {
	repo     data.MediaRepo
	store    Store
	pageSize int
	log      *logger.Logger
}

// NewReconciler creates a reconciler
func NewReconciler(repo data.MediaRepo, store Store, log *logger.Logger) *Reconciler {
	return &Reconciler{
		repo:     repo,
		store:    store,
		pageSize: defaultPageSize,
		log:      log,
	}
}

// Audit counts records whose predicted thumbnail object exists versus
// those where it is missing. Read-only and idempotent: running it twice
// in a row yields the same counts given an unchanged store.
func (r *Reconciler) Audit(ctx context.Context) (*Report, error) {
	report := &Report{}
	err := r.forEachRecord(ctx, func(rec *models.MediaRecord) error {
		report.Total++
		exists, err := r.store.Exists(ctx, biz.ThumbnailKey(rec.ObjectKey, rec.MimeType))
		if err != nil {
			return fmt.Errorf("checking thumbnail for %s: %w", rec.ID, err)
		}
		if exists {
			report.WithThumbnail++
		} else {
			report.WithoutThumbnail++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// RepairAll re-derives every missing thumbnail synchronously. It exists
// for objects the asynchronous pipeline demonstrably missed; per-record
// failures are counted, not fatal.
func (r *Reconciler) RepairAll(ctx context.Context) (*RepairReport, error) {
	report := &RepairReport{}
	err := r.forEachRecord(ctx, func(rec *models.MediaRecord) error {
		report.Total++
		thumbKey := biz.ThumbnailKey(rec.ObjectKey, rec.MimeType)
		exists, err := r.store.Exists(ctx, thumbKey)
		if err != nil {
			return fmt.Errorf("checking thumbnail for %s: %w", rec.ID, err)
		}
		if exists {
			report.WithThumbnail++
			return nil
		}
		report.WithoutThumbnail++

		switch repairErr := r.Repair(ctx, rec); repairErr {
		case nil:
			report.Repaired++
		case errSkipped:
			report.Skipped++
		default:
			report.Failed++
			r.log.Warn("repair failed",
				zap.String("media_id", rec.ID),
				zap.Error(repairErr))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

var errSkipped = fmt.Errorf("repair skipped")

// Repair synchronously derives the thumbnail for one record and stamps
// the record's thumbnail URL. Returns errSkipped when the source object
// is gone or the needed tooling is unavailable.
func (r *Reconciler) Repair(ctx context.Context, rec *models.MediaRecord) error {
	srcExists, err := r.store.Exists(ctx, rec.ObjectKey)
	if err != nil {
		return fmt.Errorf("checking source: %w", err)
	}
	if !srcExists {
		// Placeholder whose upload never happened; the grant expired
		// unused. Nothing to derive from.
		r.log.Debug("skipping record without source object", zap.String("media_id", rec.ID))
		return errSkipped
	}

	src, err := r.store.Get(ctx, rec.ObjectKey)
	if err != nil {
		return fmt.Errorf("fetching source: %w", err)
	}
	defer src.Close()

	var thumb []byte
	var thumbType string
	if biz.IsVideoMime(rec.MimeType) {
		thumb, thumbType, err = thumbworker.DeriveVideoFrame(ctx, src)
		if err != nil {
			r.log.Warn("video repair unavailable", zap.String("media_id", rec.ID), zap.Error(err))
			return errSkipped
		}
	} else {
		thumb, thumbType, err = thumbworker.DeriveImage(src, rec.MimeType)
		if err != nil {
			return fmt.Errorf("deriving thumbnail: %w", err)
		}
	}

	thumbKey := biz.ThumbnailKey(rec.ObjectKey, rec.MimeType)
	if err := r.store.Put(ctx, thumbKey, bytes.NewReader(thumb), int64(len(thumb)), thumbType); err != nil {
		return fmt.Errorf("storing thumbnail: %w", err)
	}

	thumbURL := r.store.PublicURL(thumbKey)
	rec.ThumbnailURL = &thumbURL
	if err := r.repo.Update(ctx, rec); err != nil {
		return fmt.Errorf("updating record: %w", err)
	}

	r.log.Info("thumbnail repaired",
		zap.String("media_id", rec.ID),
		zap.String("thumbnail", thumbKey))
	return nil
}

// forEachRecord pages through all records in stable order.
func (r *Reconciler) forEachRecord(ctx context.Context, fn func(*models.MediaRecord) error) error {
	for offset := 0; ; offset += r.pageSize {
		page, err := r.repo.ListPage(ctx, offset, r.pageSize)
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}
		if len(page) == 0 {
			return nil
		}
		for _, rec := range page {
			if err := fn(rec); err != nil {
				return err
			}
		}
		if len(page) < r.pageSize {
			return nil
		}
	}
}
