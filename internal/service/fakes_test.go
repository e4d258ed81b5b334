package service

import (
	"context"
	"sync"
	"time"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

type memoryProfileStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErrs []error
	setErr  error
	deleted []string
}

func newMemoryProfileStore() *memoryProfileStore {
	return &memoryProfileStore{entries: map[string][]byte{}}
}

func (m *memoryProfileStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.getErrs) > 0 {
		err := m.getErrs[0]
		m.getErrs = m.getErrs[1:]
		return nil, err
	}
	value, ok := m.entries[key]
	if !ok {
		return nil, appErrors.ErrStateNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *memoryProfileStore) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.entries[key] = append([]byte(nil), value...)
	return nil
}

func (m *memoryProfileStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memoryProfileStore) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	return string(value), ok
}

type memoryTabStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	ttls    map[string]time.Duration
}

func newMemoryTabStore() *memoryTabStore {
	return &memoryTabStore{entries: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *memoryTabStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.entries[key]
	return value, ok
}

func (m *memoryTabStore) Set(key string, value []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = value
	m.ttls[key] = ttl
}

func (m *memoryTabStore) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	delete(m.ttls, key)
}

type fakeBackend struct {
	mu sync.Mutex

	loginResult *models.LoginResult
	loginErr    error
	checkUser   *models.User
	checkErr    error
	logins      int

	activities      func(call int, rawQuery string) (*models.ActivitySet, error)
	activityQueries []string

	announcements    []models.Announcement
	announcementsErr error
	announcementGets int

	enrollMessage string
	enrollErr     error
	enrollments   []string

	mutationErr error
	mutations   []string
	tokens      []string
	all         []models.Announcement
}

func (f *fakeBackend) Login(_ context.Context, username, password string) (*models.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins++
	return f.loginResult, f.loginErr
}

func (f *fakeBackend) CheckSession(_ context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.checkUser, f.checkErr
}

func (f *fakeBackend) ListActivities(_ context.Context, rawQuery string) (*models.ActivitySet, error) {
	f.mu.Lock()
	f.activityQueries = append(f.activityQueries, rawQuery)
	call := len(f.activityQueries)
	fn := f.activities
	f.mu.Unlock()
	if fn == nil {
		return models.NewActivitySet(), nil
	}
	return fn(call, rawQuery)
}

func (f *fakeBackend) ListAnnouncements(_ context.Context) ([]models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.announcementGets++
	return f.announcements, f.announcementsErr
}

func (f *fakeBackend) Signup(_ context.Context, activity, email, teacher string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrollments = append(f.enrollments, "signup "+activity+" "+email+" "+teacher)
	return f.enrollMessage, f.enrollErr
}

func (f *fakeBackend) Unregister(_ context.Context, activity, email, teacher string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enrollments = append(f.enrollments, "unregister "+activity+" "+email+" "+teacher)
	return f.enrollMessage, f.enrollErr
}

func (f *fakeBackend) ListAllAnnouncements(_ context.Context, token string) ([]models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.mutations = append(f.mutations, "list")
	return f.all, f.mutationErr
}

func (f *fakeBackend) CreateAnnouncement(_ context.Context, token string, payload models.AnnouncementPayload) (*models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.mutations = append(f.mutations, "create")
	if f.mutationErr != nil {
		return nil, f.mutationErr
	}
	return &models.Announcement{ID: "new", Title: deref(payload.Title), Message: deref(payload.Message), ExpirationDate: deref(payload.ExpirationDate)}, nil
}

func (f *fakeBackend) UpdateAnnouncement(_ context.Context, token, id string, payload models.AnnouncementPayload) (*models.Announcement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.mutations = append(f.mutations, "update "+id)
	if f.mutationErr != nil {
		return nil, f.mutationErr
	}
	return &models.Announcement{ID: id, Title: deref(payload.Title)}, nil
}

func (f *fakeBackend) DeleteAnnouncement(_ context.Context, token, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	f.mutations = append(f.mutations, "delete "+id)
	return f.mutationErr
}

func (f *fakeBackend) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.activityQueries...)
}

func deref(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func counterValue(m *MetricsService, name string) float64 {
	families, err := m.Registry().Gather()
	if err != nil {
		return -1
	}
	total := 0.0
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

type fakeSession struct {
	user       *models.User
	token      string
	forced     []error
	banners    int
	refreshes  int
	refreshErr error
}

func (f *fakeSession) CurrentUser() *models.User { return f.user }

func (f *fakeSession) Token() string { return f.token }

func (f *fakeSession) ForceLogout(_ context.Context, cause error) {
	f.forced = append(f.forced, cause)
	f.user = nil
	f.token = ""
}

func (f *fakeSession) Banner(context.Context) (*models.Announcement, error) {
	f.banners++
	return nil, nil
}

func (f *fakeSession) RefreshActivities(context.Context) error {
	f.refreshes++
	return f.refreshErr
}
