package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/middleware/requestid"
)

const maxErrorBody = 64 << 10

// callObserver receives one sample per backend call.
type callObserver interface {
	ObserveBackendCall(endpoint string, status int, duration time.Duration)
}

// Backend talks to the activities REST backend.
type Backend struct {
	baseURL  *url.URL
	http     *http.Client
	observer callObserver
	logger   *zap.Logger
}

// NewBackend constructs a client for cfg.BaseURL.
func NewBackend(cfg config.BackendConfig, observer callObserver, logger *zap.Logger) (*Backend, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("backend base URL not configured")
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse backend base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("backend base URL %q must be absolute", cfg.BaseURL)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Backend{
		baseURL:  base,
		http:     &http.Client{Timeout: timeout},
		observer: observer,
		logger:   logger.Named("backend"),
	}, nil
}

// WithHTTPClient swaps the transport, mainly for tests.
func (b *Backend) WithHTTPClient(c *http.Client) *Backend {
	b.http = c
	return b
}

// ListActivities fetches the candidate set. rawQuery is sent verbatim so
// parameter order is preserved.
func (b *Backend) ListActivities(ctx context.Context, rawQuery string) (*models.ActivitySet, error) {
	set := &models.ActivitySet{}
	if err := b.do(ctx, "list_activities", http.MethodGet, "/activities", rawQuery, "", nil, set); err != nil {
		return nil, err
	}
	return set, nil
}

type messageResponse struct {
	Message string `json:"message"`
}

// Signup enrols email in an activity on behalf of teacherUsername.
func (b *Backend) Signup(ctx context.Context, activity, email, teacherUsername string) (string, error) {
	return b.enrollment(ctx, "signup", activity, email, teacherUsername)
}

// Unregister removes email from an activity on behalf of teacherUsername.
func (b *Backend) Unregister(ctx context.Context, activity, email, teacherUsername string) (string, error) {
	return b.enrollment(ctx, "unregister", activity, email, teacherUsername)
}

func (b *Backend) enrollment(ctx context.Context, action, activity, email, teacherUsername string) (string, error) {
	query := url.Values{}
	query.Set("email", email)
	query.Set("teacher_username", teacherUsername)
	path := "/activities/" + url.PathEscape(activity) + "/" + action

	var res messageResponse
	if err := b.do(ctx, action, http.MethodPost, path, query.Encode(), "", nil, &res); err != nil {
		return "", err
	}
	return res.Message, nil
}

// ListAnnouncements returns live announcements, most recent first.
func (b *Backend) ListAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	if err := b.do(ctx, "list_announcements", http.MethodGet, "/announcements", "", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListAllAnnouncements returns every announcement for management screens.
func (b *Backend) ListAllAnnouncements(ctx context.Context, token string) ([]models.Announcement, error) {
	var out []models.Announcement
	if err := b.do(ctx, "list_all_announcements", http.MethodGet, "/announcements/all", "", token, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateAnnouncement publishes a new announcement.
func (b *Backend) CreateAnnouncement(ctx context.Context, token string, payload models.AnnouncementPayload) (*models.Announcement, error) {
	var out models.Announcement
	if err := b.do(ctx, "create_announcement", http.MethodPost, "/announcements", "", token, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateAnnouncement changes the provided fields of an announcement.
func (b *Backend) UpdateAnnouncement(ctx context.Context, token, id string, payload models.AnnouncementPayload) (*models.Announcement, error) {
	var out models.Announcement
	if err := b.do(ctx, "update_announcement", http.MethodPut, "/announcements/"+url.PathEscape(id), "", token, payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteAnnouncement removes an announcement.
func (b *Backend) DeleteAnnouncement(ctx context.Context, token, id string) error {
	return b.do(ctx, "delete_announcement", http.MethodDelete, "/announcements/"+url.PathEscape(id), "", token, nil, nil)
}

// CheckSession re-validates a remembered username.
func (b *Backend) CheckSession(ctx context.Context, username string) (*models.User, error) {
	query := url.Values{}
	query.Set("username", username)
	var user models.User
	if err := b.do(ctx, "check_session", http.MethodGet, "/auth/check-session", query.Encode(), "", nil, &user); err != nil {
		return nil, err
	}
	if user.Username == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "session is no longer valid")
	}
	return &user, nil
}

type loginResponse struct {
	models.User
	Nested      *models.User `json:"user"`
	AccessToken string       `json:"access_token"`
	Token       string       `json:"token"`
	ExpiresIn   int64        `json:"expires_in"`
}

// Login exchanges credentials for the user record and, when the backend
// issues one, a bearer token.
func (b *Backend) Login(ctx context.Context, username, password string) (*models.LoginResult, error) {
	query := url.Values{}
	query.Set("username", username)
	query.Set("password", password)

	var res loginResponse
	if err := b.do(ctx, "login", http.MethodPost, "/auth/login", query.Encode(), "", nil, &res); err != nil {
		return nil, err
	}
	user := res.User
	if res.Nested != nil {
		user = *res.Nested
	}
	if user.Username == "" {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "login response did not include a user")
	}
	token := res.AccessToken
	if token == "" {
		token = res.Token
	}
	return &models.LoginResult{User: user, AccessToken: token, ExpiresIn: res.ExpiresIn}, nil
}

func (b *Backend) do(ctx context.Context, endpoint, method, path, rawQuery, token string, body, out interface{}) error {
	target := strings.TrimRight(b.baseURL.String(), "/") + path
	if rawQuery != "" {
		target += "?" + rawQuery
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build backend request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if id := requestid.FromContext(ctx); id != "" {
		req.Header.Set(requestid.Header, id)
	}

	start := time.Now()
	resp, err := b.http.Do(req)
	duration := time.Since(start)
	if err != nil {
		b.observe(endpoint, 0, duration)
		b.logger.Warn("backend unreachable", zap.String("endpoint", endpoint), zap.Error(err))
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, appErrors.ErrBackendUnavailable.Message)
	}
	defer resp.Body.Close()
	b.observe(endpoint, resp.StatusCode, duration)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return appErrors.Wrap(err, appErrors.ErrBackendUnavailable.Code, appErrors.ErrBackendUnavailable.Status, "backend returned an unreadable response")
	}
	return nil
}

func (b *Backend) observe(endpoint string, status int, duration time.Duration) {
	if b.observer != nil {
		b.observer.ObserveBackendCall(endpoint, status, duration)
	}
}

type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

// decodeError maps a non-2xx response to a typed error carrying the
// backend's human-readable detail.
func decodeError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	detail := ""
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil && len(body.Detail) > 0 {
		var text string
		if err := json.Unmarshal(body.Detail, &text); err == nil {
			detail = text
		} else {
			detail = string(body.Detail)
		}
	}
	cause := fmt.Errorf("backend status %d", resp.StatusCode)

	var base *appErrors.Error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		base = appErrors.ErrUnauthorized
	case http.StatusNotFound:
		base = appErrors.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		base = appErrors.ErrValidation
	case http.StatusConflict:
		base = appErrors.ErrConflict
	default:
		base = appErrors.ErrBackendUnavailable
	}
	message := base.Message
	if detail != "" {
		message = detail
	}
	return appErrors.Wrap(cause, base.Code, base.Status, message)
}
