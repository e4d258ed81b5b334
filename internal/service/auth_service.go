package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

type authBackend interface {
	Login(ctx context.Context, username, password string) (*models.LoginResult, error)
	CheckSession(ctx context.Context, username string) (*models.User, error)
}

// AuthService owns the signed-in identity. The user record is durable;
// the bearer token lives only in the tab store and expires with the token.
type AuthService struct {
	backend   authBackend
	profile   profileStore
	tab       tabStore
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
	tokenTTL  time.Duration
	now       func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(backend authBackend, profile profileStore, tab tabStore, validate *validator.Validate, metrics *MetricsService, cfg config.SessionConfig, logger *zap.Logger) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &AuthService{
		backend:   backend,
		profile:   profile,
		tab:       tab,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
		tokenTTL:  ttl,
		now:       time.Now,
	}
}

// Login forwards credentials once and remembers the resulting identity.
// The password is never stored.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "username and password are required")
	}

	result, err := s.backend.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, err
	}

	s.storeUser(ctx, result.User)
	s.storeToken(result)

	s.logger.Info("user signed in", zap.String("username", result.User.Username))
	user := result.User
	return &user, nil
}

// Logout forgets the identity and the token. Dismissals are untouched.
func (s *AuthService) Logout(ctx context.Context) error {
	s.tab.Delete(TabKeyAuthToken)
	if err := s.profile.Delete(ctx, KeyCurrentUser); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear current user")
	}
	return nil
}

// CurrentUser returns the remembered user, or nil when anonymous.
func (s *AuthService) CurrentUser(ctx context.Context) *models.User {
	raw, err := s.profile.Get(ctx, KeyCurrentUser)
	if err != nil {
		if !errors.Is(err, appErrors.ErrStateNotFound) {
			s.logger.Warn("read current user", zap.Error(err))
		}
		return nil
	}
	var user models.User
	if err := json.Unmarshal(raw, &user); err != nil || user.Username == "" {
		s.logger.Warn("current user record corrupt, clearing")
		s.metrics.RecordStateReset(KeyCurrentUser)
		if delErr := s.profile.Delete(ctx, KeyCurrentUser); delErr != nil {
			s.logger.Warn("clear corrupt current user", zap.Error(delErr))
		}
		return nil
	}
	return &user
}

// Token returns the unexpired bearer token, or "" when there is none.
func (s *AuthService) Token() string {
	raw, ok := s.tab.Get(TabKeyAuthToken)
	if !ok {
		return ""
	}
	var token models.SessionToken
	if err := json.Unmarshal(raw, &token); err != nil {
		s.tab.Delete(TabKeyAuthToken)
		s.metrics.RecordStateReset(TabKeyAuthToken)
		return ""
	}
	if !token.ExpiresAt.After(s.now()) {
		s.tab.Delete(TabKeyAuthToken)
		return ""
	}
	return token.Value
}

// Restore re-validates the remembered user. A rejection clears the
// durable record and the token; an unreachable backend leaves the record
// in place for the next start but still reports anonymous.
func (s *AuthService) Restore(ctx context.Context) (*models.User, error) {
	remembered := s.CurrentUser(ctx)
	if remembered == nil {
		return nil, nil
	}

	user, err := s.backend.CheckSession(ctx, remembered.Username)
	if err != nil {
		if errors.Is(err, appErrors.ErrBackendUnavailable) {
			s.logger.Warn("session re-validation unavailable", zap.String("username", remembered.Username), zap.Error(err))
			return nil, err
		}
		s.logger.Info("remembered session rejected", zap.String("username", remembered.Username), zap.Error(err))
		if logoutErr := s.Logout(ctx); logoutErr != nil {
			s.logger.Warn("clear rejected session", zap.Error(logoutErr))
		}
		return nil, nil
	}

	s.storeUser(ctx, *user)
	return user, nil
}

func (s *AuthService) storeUser(ctx context.Context, user models.User) {
	payload, err := json.Marshal(user)
	if err != nil {
		s.logger.Warn("encode current user", zap.Error(err))
		return
	}
	if err := s.profile.Set(ctx, KeyCurrentUser, payload); err != nil {
		s.logger.Warn("persist current user", zap.Error(err))
	}
}

func (s *AuthService) storeToken(result *models.LoginResult) {
	if result.AccessToken == "" {
		s.tab.Delete(TabKeyAuthToken)
		return
	}
	now := s.now()
	expiresAt := s.tokenExpiry(result, now)
	if !expiresAt.After(now) {
		s.logger.Warn("backend issued an already expired token")
		s.tab.Delete(TabKeyAuthToken)
		return
	}
	payload, err := json.Marshal(models.SessionToken{Value: result.AccessToken, ExpiresAt: expiresAt})
	if err != nil {
		s.logger.Warn("encode session token", zap.Error(err))
		return
	}
	s.tab.Set(TabKeyAuthToken, payload, expiresAt.Sub(now))
}

// tokenExpiry prefers the JWT exp claim, then expires_in, then the
// configured default. The signature is the backend's business.
func (s *AuthService) tokenExpiry(result *models.LoginResult, now time.Time) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(result.AccessToken, claims); err == nil {
		if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
			return exp.Time
		}
	}
	if result.ExpiresIn > 0 {
		return now.Add(time.Duration(result.ExpiresIn) * time.Second)
	}
	return now.Add(s.tokenTTL)
}
