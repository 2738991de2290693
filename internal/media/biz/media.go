package biz

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/festa-dev/festa-backend/internal/media/data"
	"github.com/festa-dev/festa-backend/internal/media/models"
	pkgerrors "github.com/festa-dev/festa-backend/internal/pkg/errors"
	"github.com/festa-dev/festa-backend/internal/pkg/logger"
)

// ObjectStore is the storage surface the use case needs. data.ObjectStore
// implements it; tests substitute a fake.
type ObjectStore interface {
	PresignPut(ctx context.Context, objectKey string, expiry time.Duration) (string, error)
	PublicURL(objectKey string) string
	Exists(ctx context.Context, objectKey string) (bool, error)
	Get(ctx context.Context, objectKey string) (io.ReadCloser, error)
	Put(ctx context.Context, objectKey string, r io.Reader, size int64, contentType string) error
}

// GrantRequest describes one file a guest wants to upload.
type GrantRequest struct {
	FileName      string `json:"file_name" binding:"required"`
	MimeType      string `json:"mime_type" binding:"required"`
	FileSizeBytes int64  `json:"file_size_bytes" binding:"required"`
	Caption       string `json:"caption"`
	SituationID   string `json:"situation_id"`
}

// UploadGrant is a minted single-object write credential together with the
// placeholder record it is bound to.
type UploadGrant struct {
	MediaID   string            `json:"media_id"`
	ObjectKey string            `json:"object_key"`
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	Headers   map[string]string `json:"headers"`
	ExpiresAt time.Time         `json:"expires_at"`
	PublicURL string            `json:"public_url"`
}

// FinalizeRequest carries the post-upload metadata patch.
type FinalizeRequest struct {
	Caption     *string `json:"caption"`
	SituationID *string `json:"situation_id"`
}

// MediaUseCase implements grant issuance, finalization and the guest-facing
// record operations.
type MediaUseCase struct {
	repo       data.MediaRepo
	situations data.SituationRepo
	store      ObjectStore
	grantTTL   time.Duration
	maxBytes   int64
	log        *logger.Logger
}

// NewMediaUseCase creates the media use case
func NewMediaUseCase(repo data.MediaRepo, situations data.SituationRepo, store ObjectStore, grantTTL time.Duration, maxBytes int64, log *logger.Logger) *MediaUseCase {
	return &MediaUseCase{
		repo:       repo,
		situations: situations,
		store:      store,
		grantTTL:   grantTTL,
		maxBytes:   maxBytes,
		log:        log,
	}
}

// IssueGrant validates the request, creates a placeholder record and mints a
// time-boxed presigned PUT for exactly that record's object key. When the
// credential cannot be minted the placeholder is deleted again so no orphan
// row survives a failed issuance.
func (uc *MediaUseCase) IssueGrant(ctx context.Context, ownerID string, req *GrantRequest) (*UploadGrant, error) {
	ext, err := ValidateContentType(req.MimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaInvalidType, err.Error())
	}
	if err := ValidateFileSize(req.FileSizeBytes, uc.maxBytes); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaTooLarge, err.Error())
	}

	var situationID *string
	if req.SituationID != "" {
		ok, err := uc.situations.Exists(ctx, req.SituationID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.ErrSituationNotFound)
		}
		situationID = &req.SituationID
	}

	mediaID := uuid.New().String()
	objectKey := fmt.Sprintf("%s/%s%s", ownerID, mediaID, ext)

	rec := &models.MediaRecord{
		ID:            mediaID,
		OwnerID:       ownerID,
		ObjectKey:     objectKey,
		MimeType:      req.MimeType,
		FileName:      SanitizeFileName(req.FileName),
		FileSizeBytes: req.FileSizeBytes,
		Caption:       req.Caption,
		SituationID:   situationID,
	}
	if err := uc.repo.Create(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaStoreFailed)
	}

	expiresAt := time.Now().Add(uc.grantTTL)
	uploadURL, err := uc.store.PresignPut(ctx, objectKey, uc.grantTTL)
	if err != nil {
		// Roll the placeholder back; a record without a usable credential
		// must not linger.
		if _, delErr := uc.repo.Delete(ctx, mediaID, ownerID); delErr != nil {
			logger.ErrorContext(ctx, "failed to delete placeholder after presign failure",
				zap.String("media_id", mediaID),
				zap.Error(delErr))
		}
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaGrantFailed)
	}

	rec.PublicURL = uc.store.PublicURL(objectKey)
	if err := uc.repo.Update(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaStoreFailed)
	}

	logger.InfoContext(ctx, "upload grant issued",
		zap.String("media_id", mediaID),
		zap.String("object_key", objectKey),
		zap.Int64("size_bytes", req.FileSizeBytes))

	return &UploadGrant{
		MediaID:   mediaID,
		ObjectKey: objectKey,
		UploadURL: uploadURL,
		Method:    "PUT",
		Headers: map[string]string{
			"Content-Type": req.MimeType,
		},
		ExpiresAt: expiresAt,
		PublicURL: rec.PublicURL,
	}, nil
}

// Finalize patches the record with post-upload metadata and stamps the
// predicted thumbnail URL. The prediction is pure; whether the derived
// object exists yet is the derivation worker's business.
func (uc *MediaUseCase) Finalize(ctx context.Context, ownerID, mediaID string, req *FinalizeRequest) (*models.MediaRecord, error) {
	rec, err := uc.repo.GetByIDAndOwner(ctx, mediaID, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
	}
	if rec == nil {
		// Missing and foreign records are indistinguishable on purpose.
		return nil, pkgerrors.New(pkgerrors.ErrMediaNotFound)
	}

	if req.Caption != nil {
		rec.Caption = *req.Caption
	}
	if req.SituationID != nil {
		if *req.SituationID == "" {
			rec.SituationID = nil
		} else {
			ok, err := uc.situations.Exists(ctx, *req.SituationID)
			if err != nil {
				return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
			}
			if !ok {
				return nil, pkgerrors.New(pkgerrors.ErrSituationNotFound)
			}
			rec.SituationID = req.SituationID
		}
	}

	thumbURL := uc.store.PublicURL(ThumbnailKey(rec.ObjectKey, rec.MimeType))
	rec.ThumbnailURL = &thumbURL

	if err := uc.repo.Update(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaStoreFailed)
	}

	logger.InfoContext(ctx, "media finalized",
		zap.String("media_id", mediaID),
		zap.String("thumbnail_url", thumbURL))
	return rec, nil
}

// UpdateSituation re-tags a record. An empty situation ID clears the tag.
func (uc *MediaUseCase) UpdateSituation(ctx context.Context, ownerID, mediaID, situationID string) (*models.MediaRecord, error) {
	rec, err := uc.repo.GetByIDAndOwner(ctx, mediaID, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
	}
	if rec == nil {
		return nil, pkgerrors.New(pkgerrors.ErrMediaNotFound)
	}

	if situationID == "" {
		rec.SituationID = nil
	} else {
		ok, err := uc.situations.Exists(ctx, situationID)
		if err != nil {
			return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.ErrSituationNotFound)
		}
		rec.SituationID = &situationID
	}

	if err := uc.repo.Update(ctx, rec); err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrMediaStoreFailed)
	}
	return rec, nil
}

// Delete removes a guest's own record. The storage object stays: pruning
// orphaned objects is a privileged maintenance concern, not a request-path
// side effect.
func (uc *MediaUseCase) Delete(ctx context.Context, ownerID, mediaID string) error {
	deleted, err := uc.repo.Delete(ctx, mediaID, ownerID)
	if err != nil {
		return pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
	}
	if !deleted {
		return pkgerrors.New(pkgerrors.ErrMediaNotFound)
	}
	logger.InfoContext(ctx, "media record deleted", zap.String("media_id", mediaID))
	return nil
}

// ListByOwner returns the guest's own records, newest first.
func (uc *MediaUseCase) ListByOwner(ctx context.Context, ownerID string) ([]*models.MediaRecord, error) {
	recs, err := uc.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
	}
	return recs, nil
}

// ListSituations returns the event's situations in display order.
func (uc *MediaUseCase) ListSituations(ctx context.Context) ([]*models.Situation, error) {
	sits, err := uc.situations.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(err, pkgerrors.ErrInternalServer)
	}
	return sits, nil
}
