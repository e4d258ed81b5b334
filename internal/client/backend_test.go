package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
	"github.com/noah-isme/sma-activity-portal/pkg/middleware/requestid"
)

type recordingObserver struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingObserver) ObserveBackendCall(endpoint string, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, endpoint)
}

func newTestBackend(t *testing.T, handler http.HandlerFunc) (*Backend, *recordingObserver) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	observer := &recordingObserver{}
	backend, err := NewBackend(config.BackendConfig{BaseURL: server.URL, Timeout: time.Second}, observer, nil)
	require.NoError(t, err)
	return backend.WithHTTPClient(server.Client()), observer
}

func TestNewBackendValidatesURL(t *testing.T) {
	_, err := NewBackend(config.BackendConfig{}, nil, nil)
	assert.Error(t, err)
	_, err = NewBackend(config.BackendConfig{BaseURL: "localhost:8000"}, nil, nil)
	assert.Error(t, err)
}

func TestListActivitiesSendsQueryVerbatim(t *testing.T) {
	var gotQuery string
	backend, observer := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/activities", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"Zumba": {"description": "Dance", "schedule": "Mon", "max_participants": 5, "participants": []},
			"Art Club": {"description": "Paint", "schedule": "Tue", "max_participants": 5, "participants": ["a@x.edu"]}}`))
	})

	set, err := backend.ListActivities(context.Background(), "day=Monday&start_time=15%3A00&end_time=18%3A00")
	require.NoError(t, err)
	assert.Equal(t, "day=Monday&start_time=15%3A00&end_time=18%3A00", gotQuery)
	assert.Equal(t, []string{"Zumba", "Art Club"}, set.Names())
	assert.Equal(t, []string{"list_activities"}, observer.calls)
}

func TestSignupEscapesActivityName(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/activities/Chess Club/signup", r.URL.Path)
		assert.Equal(t, "student@mergington.edu", r.URL.Query().Get("email"))
		assert.Equal(t, "mrodriguez", r.URL.Query().Get("teacher_username"))
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Signed up student@mergington.edu for Chess Club"})
	})

	msg, err := backend.Signup(context.Background(), "Chess Club", "student@mergington.edu", "mrodriguez")
	require.NoError(t, err)
	assert.Equal(t, "Signed up student@mergington.edu for Chess Club", msg)
}

func TestBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		target *appErrors.Error
		msg    string
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"detail":"Invalid credentials"}`, target: appErrors.ErrUnauthorized, msg: "Invalid credentials"},
		{name: "not found", status: http.StatusNotFound, body: `{"detail":"Activity not found"}`, target: appErrors.ErrNotFound, msg: "Activity not found"},
		{name: "validation list", status: http.StatusUnprocessableEntity, body: `{"detail":[{"msg":"field required"}]}`, target: appErrors.ErrValidation, msg: `[{"msg":"field required"}]`},
		{name: "already signed up", status: http.StatusBadRequest, body: `{"detail":"Student is already signed up"}`, target: appErrors.ErrValidation, msg: "Student is already signed up"},
		{name: "server error", status: http.StatusInternalServerError, body: `oops`, target: appErrors.ErrBackendUnavailable, msg: appErrors.ErrBackendUnavailable.Message},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := backend.Unregister(context.Background(), "Chess Club", "a@x.edu", "t")
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
			assert.Equal(t, tt.msg, appErrors.FromError(err).Message)
		})
	}
}

func TestBackendUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	backend, err := NewBackend(config.BackendConfig{BaseURL: url, Timeout: time.Second}, nil, nil)
	require.NoError(t, err)

	_, err = backend.ListAnnouncements(context.Background())
	assert.True(t, errors.Is(err, appErrors.ErrBackendUnavailable))
}

func TestLoginAcceptsFlatAndNestedShapes(t *testing.T) {
	flat, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/login", r.URL.Path)
		_, _ = w.Write([]byte(`{"username":"mrodriguez","display_name":"Ms. Rodriguez","role":"teacher"}`))
	})
	res, err := flat.Login(context.Background(), "mrodriguez", "secret")
	require.NoError(t, err)
	assert.Equal(t, "Ms. Rodriguez", res.User.DisplayName)
	assert.Empty(t, res.AccessToken)

	nested, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user":{"username":"mchen","display_name":"Mr. Chen"},"access_token":"tok","expires_in":900}`))
	})
	res, err = nested.Login(context.Background(), "mchen", "secret")
	require.NoError(t, err)
	assert.Equal(t, "mchen", res.User.Username)
	assert.Equal(t, "tok", res.AccessToken)
	assert.Equal(t, int64(900), res.ExpiresIn)
}

func TestPrivilegedCallsSendBearerToken(t *testing.T) {
	var seen []string
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Method+" "+r.URL.Path+" "+r.Header.Get("Authorization"))
		switch r.Method {
		case http.MethodDelete:
			_, _ = w.Write([]byte(`{"message":"Announcement deleted successfully"}`))
		case http.MethodGet:
			_, _ = w.Write([]byte(`[{"_id":"1","title":"t","message":"m","expiration_date":"2030-01-01T00:00:00"}]`))
		default:
			var payload models.AnnouncementPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			_ = json.NewEncoder(w).Encode(models.Announcement{ID: "1", Title: *payload.Title})
		}
	})
	ctx := context.Background()
	title := "Band concert"

	all, err := backend.ListAllAnnouncements(ctx, "tok")
	require.NoError(t, err)
	require.Len(t, all, 1)

	created, err := backend.CreateAnnouncement(ctx, "tok", models.AnnouncementPayload{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Band concert", created.Title)

	_, err = backend.UpdateAnnouncement(ctx, "tok", "1", models.AnnouncementPayload{Title: &title})
	require.NoError(t, err)
	require.NoError(t, backend.DeleteAnnouncement(ctx, "tok", "1"))

	assert.Equal(t, []string{
		"GET /announcements/all Bearer tok",
		"POST /announcements Bearer tok",
		"PUT /announcements/1 Bearer tok",
		"DELETE /announcements/1 Bearer tok",
	}, seen)
}

func TestCheckSession(t *testing.T) {
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("username") == "mchen" {
			_, _ = w.Write([]byte(`{"username":"mchen","display_name":"Mr. Chen"}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Teacher not found"}`))
	})

	user, err := backend.CheckSession(context.Background(), "mchen")
	require.NoError(t, err)
	assert.Equal(t, "Mr. Chen", user.DisplayName)

	_, err = backend.CheckSession(context.Background(), "ghost")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestBackendForwardsRequestID(t *testing.T) {
	var got string
	backend, _ := newTestBackend(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get(requestid.Header)
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := backend.ListAnnouncements(requestid.WithContext(context.Background(), "req-42"))
	require.NoError(t, err)
	assert.Equal(t, "req-42", got)
}
