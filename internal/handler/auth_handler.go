package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-activity-portal/internal/dto"
	"github.com/noah-isme/sma-activity-portal/internal/middleware"
	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/response"
)

type authSession interface {
	Login(ctx context.Context, req models.LoginRequest) (*models.User, error)
	Logout(ctx context.Context) error
}

// AuthHandler wires the identity transitions.
type AuthHandler struct {
	session authSession
}

// NewAuthHandler creates a new handler.
func NewAuthHandler(session authSession) *AuthHandler {
	return &AuthHandler{session: session}
}

// Login signs a staff member in.
// @Summary Sign in
// @Tags Auth
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid login payload"))
		return
	}
	user, err := h.session.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SessionResponse{Authenticated: true, User: user})
}

// Logout returns the session to anonymous.
// @Summary Sign out
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/auth/logout [post]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.session.Logout(c.Request.Context()); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SessionResponse{})
}

// Me describes the identity attached to the request.
// @Summary Current identity
// @Tags Auth
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	user := middleware.UserFromContext(c)
	response.JSON(c, http.StatusOK, dto.SessionResponse{Authenticated: user != nil, User: user})
}
