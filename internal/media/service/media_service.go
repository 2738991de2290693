package service

import (
	"github.com/gin-gonic/gin"

	"github.com/festa-dev/festa-backend/internal/auth/middleware"
	"github.com/festa-dev/festa-backend/internal/media/biz"
	pkgerrors "github.com/festa-dev/festa-backend/internal/pkg/errors"
	"github.com/festa-dev/festa-backend/internal/pkg/response"
)

// MediaService exposes the media contribution API over HTTP.
type MediaService struct {
	uc *biz.MediaUseCase
}

// NewMediaService creates the media HTTP service
func NewMediaService(uc *biz.MediaUseCase) *MediaService {
	return &MediaService{uc: uc}
}

// IssueGrant handles POST /media/grants
func (s *MediaService) IssueGrant(c *gin.Context) {
	var req biz.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, pkgerrors.ErrInvalidParams, err.Error())
		return
	}

	grant, err := s.uc.IssueGrant(c.Request.Context(), middleware.OwnerID(c), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Created(c, grant)
}

// Finalize handles POST /media/:id/finalize
func (s *MediaService) Finalize(c *gin.Context) {
	var req biz.FinalizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, pkgerrors.ErrInvalidParams, err.Error())
		return
	}

	rec, err := s.uc.Finalize(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, rec)
}

type updateSituationRequest struct {
	SituationID string `json:"situation_id"`
}

// UpdateSituation handles PATCH /media/:id/situation
func (s *MediaService) UpdateSituation(c *gin.Context) {
	var req updateSituationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, pkgerrors.ErrInvalidParams, err.Error())
		return
	}

	rec, err := s.uc.UpdateSituation(c.Request.Context(), middleware.OwnerID(c), c.Param("id"), req.SituationID)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, rec)
}

// List handles GET /media
func (s *MediaService) List(c *gin.Context) {
	recs, err := s.uc.ListByOwner(c.Request.Context(), middleware.OwnerID(c))
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, recs)
}

// Delete handles DELETE /media/:id
func (s *MediaService) Delete(c *gin.Context) {
	if err := s.uc.Delete(c.Request.Context(), middleware.OwnerID(c), c.Param("id")); err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": true})
}

// ListSituations handles GET /situations
func (s *MediaService) ListSituations(c *gin.Context) {
	sits, err := s.uc.ListSituations(c.Request.Context())
	if err != nil {
		response.HandleError(c, err)
		return
	}
	response.Success(c, sits)
}

// RegisterRoutes mounts the media API under the given authenticated group.
// grantLimiter additionally throttles grant issuance.
func (s *MediaService) RegisterRoutes(rg *gin.RouterGroup, grantLimiter gin.HandlerFunc) {
	media := rg.Group("/media")
	{
		if grantLimiter != nil {
			media.POST("/grants", grantLimiter, s.IssueGrant)
		} else {
			media.POST("/grants", s.IssueGrant)
		}
		media.GET("", s.List)
		media.POST("/:id/finalize", s.Finalize)
		media.PATCH("/:id/situation", s.UpdateSituation)
		media.DELETE("/:id", s.Delete)
	}
	rg.GET("/situations", s.ListSituations)
}
