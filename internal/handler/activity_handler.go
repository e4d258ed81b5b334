package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-activity-portal/internal/dto"
	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/internal/service"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/response"
)

type activitySession interface {
	View() dto.ActivitiesResponse
	UpdateSelection(ctx context.Context, selection models.FilterSelection) (dto.ActivitiesResponse, error)
	RefreshActivities(ctx context.Context) error
}

type enrollmentService interface {
	Signup(ctx context.Context, req service.EnrollmentRequest) (string, error)
	Unregister(ctx context.Context, req service.EnrollmentRequest) (string, error)
}

type exportService interface {
	Export(format string) (*service.ExportResult, error)
}

// ActivityHandler exposes the filtered activity list and enrollment.
type ActivityHandler struct {
	session    activitySession
	enrollment enrollmentService
	exporter   exportService
}

// NewActivityHandler constructs the handler.
func NewActivityHandler(session activitySession, enrollment enrollmentService, exporter exportService) *ActivityHandler {
	return &ActivityHandler{session: session, enrollment: enrollment, exporter: exporter}
}

// List returns the visible activities, fetching first if nothing has
// been fetched yet.
// @Summary List visible activities
// @Tags Activities
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /api/v1/activities [get]
func (h *ActivityHandler) List(c *gin.Context) {
	view := h.session.View()
	if !view.Fetched {
		if err := h.session.RefreshActivities(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
		view = h.session.View()
	}
	response.JSON(c, http.StatusOK, view, listMeta(view))
}

// UpdateFilters replaces the filter selection.
// @Summary Replace the filter selection
// @Tags Activities
// @Accept json
// @Produce json
// @Param payload body models.FilterSelection true "Filter selection"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /api/v1/activities/filters [put]
func (h *ActivityHandler) UpdateFilters(c *gin.Context) {
	var selection models.FilterSelection
	if err := c.ShouldBindJSON(&selection); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid filter payload"))
		return
	}
	view, err := h.session.UpdateSelection(c.Request.Context(), selection)
	h.respondView(c, view, err)
}

// Refresh re-fetches candidates for the current selection.
// @Summary Re-fetch activities
// @Tags Activities
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/activities/refresh [post]
func (h *ActivityHandler) Refresh(c *gin.Context) {
	err := h.session.RefreshActivities(c.Request.Context())
	h.respondView(c, h.session.View(), err)
}

// Signup enrols a student in the activity named in the path.
// @Summary Sign a student up
// @Tags Activities
// @Accept json
// @Produce json
// @Param name path string true "Activity name"
// @Param payload body dto.EnrollmentRequest true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/activities/{name}/signup [post]
func (h *ActivityHandler) Signup(c *gin.Context) {
	h.enroll(c, h.enrollment.Signup)
}

// Unregister removes a student from the activity named in the path.
// @Summary Unregister a student
// @Tags Activities
// @Accept json
// @Produce json
// @Param name path string true "Activity name"
// @Param payload body dto.EnrollmentRequest true "Student email"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/activities/{name}/unregister [post]
func (h *ActivityHandler) Unregister(c *gin.Context) {
	h.enroll(c, h.enrollment.Unregister)
}

func (h *ActivityHandler) enroll(c *gin.Context, call func(context.Context, service.EnrollmentRequest) (string, error)) {
	var req dto.EnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid enrollment payload"))
		return
	}
	message, err := call(c.Request.Context(), service.EnrollmentRequest{Activity: c.Param("name"), Email: req.Email})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.EnrollmentResponse{Message: message})
}

// Export downloads the visible activities as CSV or PDF.
// @Summary Export visible activities
// @Tags Activities
// @Produce text/csv,application/pdf
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Router /api/v1/activities/export [get]
func (h *ActivityHandler) Export(c *gin.Context) {
	res, err := h.exporter.Export(c.DefaultQuery("format", service.ExportFormatCSV))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, res.Filename, res.ContentType, res.Body)
}

// respondView answers with the view even when a re-fetch failed, as long
// as there is something to show; the failure travels in meta.
func (h *ActivityHandler) respondView(c *gin.Context, view dto.ActivitiesResponse, err error) {
	if err != nil && (!view.Fetched || !errors.Is(err, appErrors.ErrBackendUnavailable)) {
		response.Error(c, err)
		return
	}
	meta := listMeta(view)
	if err != nil {
		meta["stale"] = true
		meta["warning"] = appErrors.FromError(err).Message
	}
	response.JSON(c, http.StatusOK, view, meta)
}

func listMeta(view dto.ActivitiesResponse) map[string]interface{} {
	return map[string]interface{}{"total": view.Total, "query": view.Query}
}
