package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

type enrollmentBackend interface {
	Signup(ctx context.Context, activity, email, teacherUsername string) (string, error)
	Unregister(ctx context.Context, activity, email, teacherUsername string) (string, error)
}

// EnrollmentRequest identifies the student being enrolled or removed.
type EnrollmentRequest struct {
	Activity string `validate:"required"`
	Email    string `validate:"required,email"`
}

// EnrollmentService signs students up for activities on behalf of the
// signed-in teacher.
type EnrollmentService struct {
	backend   enrollmentBackend
	session   privilegedSession
	validator *validator.Validate
	logger    *zap.Logger
}

// NewEnrollmentService constructs the service.
func NewEnrollmentService(backend enrollmentBackend, session privilegedSession, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{backend: backend, session: session, validator: validate, logger: logger}
}

// Signup adds the student and refreshes the activity list.
func (s *EnrollmentService) Signup(ctx context.Context, req EnrollmentRequest) (string, error) {
	return s.run(ctx, "signup", req, s.backend.Signup)
}

// Unregister removes the student and refreshes the activity list.
func (s *EnrollmentService) Unregister(ctx context.Context, req EnrollmentRequest) (string, error) {
	return s.run(ctx, "unregister", req, s.backend.Unregister)
}

func (s *EnrollmentService) run(ctx context.Context, action string, req EnrollmentRequest, call func(context.Context, string, string, string) (string, error)) (string, error) {
	user := s.session.CurrentUser()
	if user == nil {
		return "", appErrors.Clone(appErrors.ErrUnauthorized, "sign in to manage enrollments")
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "a valid student email is required")
	}

	message, err := call(ctx, req.Activity, req.Email, user.Username)
	if err != nil {
		if isAuthFailure(err) {
			s.session.ForceLogout(ctx, err)
		}
		return "", err
	}
	s.logger.Info("enrollment changed", zap.String("action", action), zap.String("activity", req.Activity), zap.String("teacher", user.Username))

	if err := s.session.RefreshActivities(ctx); err != nil {
		s.logger.Warn("refresh activities after enrollment", zap.Error(err))
	}
	return message, nil
}
