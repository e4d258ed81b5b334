package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

type announcementBackend interface {
	ListAllAnnouncements(ctx context.Context, token string) ([]models.Announcement, error)
	CreateAnnouncement(ctx context.Context, token string, payload models.AnnouncementPayload) (*models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, token, id string, payload models.AnnouncementPayload) (*models.Announcement, error)
	DeleteAnnouncement(ctx context.Context, token, id string) error
}

// privilegedSession is the slice of SessionService that privileged
// workflows need.
type privilegedSession interface {
	CurrentUser() *models.User
	Token() string
	ForceLogout(ctx context.Context, cause error)
	Banner(ctx context.Context) (*models.Announcement, error)
	RefreshActivities(ctx context.Context) error
}

// CreateAnnouncementRequest describes create payload.
type CreateAnnouncementRequest struct {
	Title          string  `json:"title" validate:"required,min=1,max=200"`
	Message        string  `json:"message" validate:"required,min=1,max=2000"`
	StartDate      *string `json:"start_date" validate:"omitempty,isodate"`
	ExpirationDate string  `json:"expiration_date" validate:"required,isodate"`
}

// UpdateAnnouncementRequest describes a partial update; nil fields are left alone.
type UpdateAnnouncementRequest struct {
	Title          *string `json:"title" validate:"omitempty,min=1,max=200"`
	Message        *string `json:"message" validate:"omitempty,min=1,max=2000"`
	StartDate      *string `json:"start_date" validate:"omitempty,isodate"`
	ExpirationDate *string `json:"expiration_date" validate:"omitempty,isodate"`
}

// AnnouncementService handles announcement management for signed-in staff.
type AnnouncementService struct {
	backend   announcementBackend
	session   privilegedSession
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAnnouncementService constructs the service.
func NewAnnouncementService(backend announcementBackend, session privilegedSession, validate *validator.Validate, logger *zap.Logger) *AnnouncementService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AnnouncementService{backend: backend, session: session, validator: validate, logger: logger}
	svc.validator.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		_, ok := models.ParseISODate(fl.Field().String())
		return ok
	})
	return svc
}

// List returns every announcement, expired ones included.
func (s *AnnouncementService) List(ctx context.Context) ([]models.Announcement, error) {
	token, err := s.authorize()
	if err != nil {
		return nil, err
	}
	rows, err := s.backend.ListAllAnnouncements(ctx, token)
	if err != nil {
		return nil, s.handleBackendError(ctx, err)
	}
	if rows == nil {
		rows = []models.Announcement{}
	}
	return rows, nil
}

// Create publishes a new announcement.
func (s *AnnouncementService) Create(ctx context.Context, req CreateAnnouncementRequest) (*models.Announcement, error) {
	token, err := s.authorize()
	if err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if err := ensureDateOrder(req.StartDate, &req.ExpirationDate); err != nil {
		return nil, err
	}

	payload := models.AnnouncementPayload{
		Title:          &req.Title,
		Message:        &req.Message,
		StartDate:      req.StartDate,
		ExpirationDate: &req.ExpirationDate,
	}
	created, err := s.backend.CreateAnnouncement(ctx, token, payload)
	if err != nil {
		return nil, s.handleBackendError(ctx, err)
	}
	s.logger.Info("announcement created", zap.String("announcement_id", created.ID))
	s.refreshBanner(ctx)
	return created, nil
}

// Update changes the supplied fields of an announcement.
func (s *AnnouncementService) Update(ctx context.Context, id string, req UpdateAnnouncementRequest) (*models.Announcement, error) {
	token, err := s.authorize()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement id is required")
	}
	if req.Title == nil && req.Message == nil && req.StartDate == nil && req.ExpirationDate == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid announcement payload")
	}
	if err := ensureDateOrder(req.StartDate, req.ExpirationDate); err != nil {
		return nil, err
	}

	payload := models.AnnouncementPayload{
		Title:          req.Title,
		Message:        req.Message,
		StartDate:      req.StartDate,
		ExpirationDate: req.ExpirationDate,
	}
	updated, err := s.backend.UpdateAnnouncement(ctx, token, id, payload)
	if err != nil {
		return nil, s.handleBackendError(ctx, err)
	}
	s.logger.Info("announcement updated", zap.String("announcement_id", id))
	s.refreshBanner(ctx)
	return updated, nil
}

// Delete removes an announcement.
func (s *AnnouncementService) Delete(ctx context.Context, id string) error {
	token, err := s.authorize()
	if err != nil {
		return err
	}
	if id == "" {
		return appErrors.Clone(appErrors.ErrValidation, "announcement id is required")
	}
	if err := s.backend.DeleteAnnouncement(ctx, token, id); err != nil {
		return s.handleBackendError(ctx, err)
	}
	s.logger.Info("announcement deleted", zap.String("announcement_id", id))
	s.refreshBanner(ctx)
	return nil
}

func (s *AnnouncementService) authorize() (string, error) {
	if s.session.CurrentUser() == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "sign in to manage announcements")
	}
	return s.session.Token(), nil
}

func (s *AnnouncementService) handleBackendError(ctx context.Context, err error) error {
	if isAuthFailure(err) {
		s.session.ForceLogout(ctx, err)
	}
	return err
}

func (s *AnnouncementService) refreshBanner(ctx context.Context) {
	if _, err := s.session.Banner(ctx); err != nil {
		s.logger.Warn("refresh banner after mutation", zap.Error(err))
	}
}

func ensureDateOrder(start, expiration *string) error {
	if start == nil || expiration == nil {
		return nil
	}
	startAt, okStart := models.ParseISODate(*start)
	expiresAt, okExp := models.ParseISODate(*expiration)
	if okStart && okExp && expiresAt.Before(startAt) {
		return appErrors.Clone(appErrors.ErrValidation, "expiration_date must not be before start_date")
	}
	return nil
}
