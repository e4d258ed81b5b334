package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-activity-portal/internal/dto"
	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/internal/service"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/response"
)

type bannerSession interface {
	Banner(ctx context.Context) (*models.Announcement, error)
	DismissBanner(ctx context.Context, id string) (*models.Announcement, error)
}

type announcementManager interface {
	List(ctx context.Context) ([]models.Announcement, error)
	Create(ctx context.Context, req service.CreateAnnouncementRequest) (*models.Announcement, error)
	Update(ctx context.Context, id string, req service.UpdateAnnouncementRequest) (*models.Announcement, error)
	Delete(ctx context.Context, id string) error
}

// AnnouncementHandler serves the banner and announcement management.
type AnnouncementHandler struct {
	session bannerSession
	manager announcementManager
}

// NewAnnouncementHandler constructs the handler.
func NewAnnouncementHandler(session bannerSession, manager announcementManager) *AnnouncementHandler {
	return &AnnouncementHandler{session: session, manager: manager}
}

// Banner returns the announcement to surface; data.announcement is null
// when there is none.
// @Summary Announcement banner
// @Tags Announcements
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/announcements/banner [get]
func (h *AnnouncementHandler) Banner(c *gin.Context) {
	announcement, err := h.session.Banner(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BannerResponse{Announcement: announcement})
}

// Dismiss hides the banner for this profile and returns what shows next.
// @Summary Dismiss the banner
// @Tags Announcements
// @Produce json
// @Param id path string true "Announcement ID"
// @Success 200 {object} response.Envelope
// @Router /api/v1/announcements/{id}/dismiss [post]
func (h *AnnouncementHandler) Dismiss(c *gin.Context) {
	next, err := h.session.DismissBanner(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.BannerResponse{Announcement: next})
}

// List returns every announcement, expired ones included.
// @Summary List all announcements
// @Tags Announcements
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	rows, err := h.manager.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rows, map[string]interface{}{"total": len(rows)})
}

// Create publishes an announcement.
// @Summary Create announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param payload body service.CreateAnnouncementRequest true "Announcement payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /api/v1/announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var req service.CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	created, err := h.manager.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// Update changes an announcement.
// @Summary Update announcement
// @Tags Announcements
// @Accept json
// @Produce json
// @Param id path string true "Announcement ID"
// @Param payload body service.UpdateAnnouncementRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Router /api/v1/announcements/{id} [put]
func (h *AnnouncementHandler) Update(c *gin.Context) {
	var req service.UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid announcement payload"))
		return
	}
	updated, err := h.manager.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated)
}

// Delete removes an announcement.
// @Summary Delete announcement
// @Tags Announcements
// @Param id path string true "Announcement ID"
// @Success 204
// @Router /api/v1/announcements/{id} [delete]
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
