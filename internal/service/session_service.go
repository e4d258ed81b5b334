package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/dto"
	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

type sessionBackend interface {
	ListActivities(ctx context.Context, rawQuery string) (*models.ActivitySet, error)
	ListAnnouncements(ctx context.Context) ([]models.Announcement, error)
}

// SessionService is the explicit session object: selection, fetched
// candidates and identity. Handlers are its only callers. The mutex is
// never held across a backend call.
type SessionService struct {
	backend     sessionBackend
	planner     *QueryPlanner
	engine      *FilterEngine
	dismissals  *DismissalService
	auth        *AuthService
	tab         tabStore
	validator   *validator.Validate
	metrics     *MetricsService
	logger      *zap.Logger
	snapshotTTL time.Duration

	mu         sync.Mutex
	selection  models.FilterSelection
	plan       QueryPlan
	candidates *models.ActivitySet
	fetchedKey string
	generation uint64
	user       *models.User
}

// SessionDeps groups the collaborators of a SessionService.
type SessionDeps struct {
	Backend    sessionBackend
	Planner    *QueryPlanner
	Engine     *FilterEngine
	Dismissals *DismissalService
	Auth       *AuthService
	Tab        tabStore
	Validator  *validator.Validate
	Metrics    *MetricsService
}

// NewSessionService starts an anonymous session with the default selection.
func NewSessionService(deps SessionDeps, cfg config.SessionConfig, logger *zap.Logger) *SessionService {
	if deps.Validator == nil {
		deps.Validator = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = NewFilterEngine(deps.Metrics, logger)
	}
	if deps.Planner == nil {
		deps.Planner = NewQueryPlanner(config.DefaultTimeWindows())
	}
	selection := models.DefaultSelection()
	return &SessionService{
		backend:     deps.Backend,
		planner:     deps.Planner,
		engine:      deps.Engine,
		dismissals:  deps.Dismissals,
		auth:        deps.Auth,
		tab:         deps.Tab,
		validator:   deps.Validator,
		metrics:     deps.Metrics,
		logger:      logger,
		snapshotTTL: cfg.SnapshotTTL,
		selection:   selection,
		plan:        deps.Planner.Plan(selection),
	}
}

// Selection returns the current filter selection.
func (s *SessionService) Selection() models.FilterSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selection
}

// UpdateSelection replaces the selection. The backend is queried again
// only when the server half of the plan changed or nothing has been
// fetched yet; otherwise the residual predicates are re-applied locally.
func (s *SessionService) UpdateSelection(ctx context.Context, selection models.FilterSelection) (dto.ActivitiesResponse, error) {
	selection = selection.Normalized()
	if err := s.validator.Struct(selection); err != nil {
		return dto.ActivitiesResponse{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid filter selection")
	}

	s.mu.Lock()
	s.selection = selection
	s.plan = s.planner.Plan(selection)
	refetch := s.candidates == nil || s.plan.ServerKey() != s.fetchedKey
	s.mu.Unlock()

	if refetch {
		if err := s.RefreshActivities(ctx); err != nil {
			return s.View(), err
		}
	}
	return s.View(), nil
}

// RefreshActivities fetches candidates for the current plan. A response
// that completes after a newer fetch was started is discarded. On failure
// the previous candidates stay in place.
func (s *SessionService) RefreshActivities(ctx context.Context) error {
	s.mu.Lock()
	s.generation++
	generation := s.generation
	plan := s.plan
	s.mu.Unlock()

	set, err := s.backend.ListActivities(ctx, plan.Encode())

	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.generation {
		s.metrics.RecordStaleResponse()
		s.logger.Debug("discarding superseded activities response", zap.Uint64("generation", generation), zap.Uint64("latest", s.generation))
		return nil
	}
	if err != nil {
		s.logger.Warn("fetch activities failed", zap.String("query", plan.Encode()), zap.Error(err))
		return err
	}
	if set == nil {
		set = models.NewActivitySet()
	}
	s.candidates = set
	s.fetchedKey = plan.ServerKey()
	return nil
}

// Visible returns the filtered candidates, nil when nothing was fetched.
func (s *SessionService) Visible() (*models.ActivitySet, models.FilterSelection) {
	candidates, selection, _ := s.snapshot()
	return s.engine.Apply(candidates, selection), selection
}

// snapshot reads candidates, selection and plan in one critical section
// so a concurrent UpdateSelection cannot mix two selections.
func (s *SessionService) snapshot() (*models.ActivitySet, models.FilterSelection, QueryPlan) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.candidates, s.selection, s.plan
}

// View renders the visible activities.
func (s *SessionService) View() dto.ActivitiesResponse {
	candidates, selection, plan := s.snapshot()
	visible := s.engine.Apply(candidates, selection)
	res := dto.ActivitiesResponse{
		Selection:  selection,
		Query:      plan.Encode(),
		Fetched:    visible != nil,
		Activities: []dto.ActivityView{},
	}
	for _, activity := range visible.Activities() {
		res.Activities = append(res.Activities, s.activityView(activity))
	}
	res.Total = len(res.Activities)
	return res
}

func (s *SessionService) activityView(activity models.Activity) dto.ActivityView {
	schedule, err := FormatSchedule(activity)
	if err != nil {
		schedule = activity.Schedule
	}
	participants := activity.Participants
	if participants == nil {
		participants = []string{}
	}
	return dto.ActivityView{
		Name:            activity.Name,
		Description:     activity.Description,
		Category:        ClassifyActivity(activity.Name, activity.Description),
		Schedule:        schedule,
		Days:            ScheduleDays(activity),
		MaxParticipants: activity.MaxParticipants,
		SpotsLeft:       activity.DisplaySpotsLeft(),
		IsFull:          activity.IsFull(),
		Participants:    participants,
	}
}

// CurrentUser returns the signed-in user, or nil.
func (s *SessionService) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	user := *s.user
	return &user
}

// Token returns the bearer token for privileged calls.
func (s *SessionService) Token() string {
	return s.auth.Token()
}

// Restore re-validates the remembered user at start-up and refreshes.
func (s *SessionService) Restore(ctx context.Context) *models.User {
	user, err := s.auth.Restore(ctx)
	if err != nil {
		s.logger.Warn("restore session", zap.Error(err))
	}
	s.setUser(user)
	s.fullRefresh(ctx)
	return s.CurrentUser()
}

// Login transitions anonymous to authenticated and refreshes everything.
func (s *SessionService) Login(ctx context.Context, req models.LoginRequest) (*models.User, error) {
	user, err := s.auth.Login(ctx, req)
	if err != nil {
		return nil, err
	}
	s.setUser(user)
	s.fullRefresh(ctx)
	return s.CurrentUser(), nil
}

// Logout transitions to anonymous and refreshes everything.
func (s *SessionService) Logout(ctx context.Context) error {
	err := s.auth.Logout(ctx)
	s.setUser(nil)
	s.fullRefresh(ctx)
	return err
}

// ForceLogout handles an authorization failure on a privileged call.
func (s *SessionService) ForceLogout(ctx context.Context, cause error) {
	s.logger.Info("authorization rejected, signing out", zap.Error(cause))
	if err := s.Logout(ctx); err != nil {
		s.logger.Warn("forced logout", zap.Error(err))
	}
}

func (s *SessionService) setUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

func (s *SessionService) fullRefresh(ctx context.Context) {
	if err := s.RefreshActivities(ctx); err != nil {
		s.logger.Warn("refresh activities", zap.Error(err))
	}
	if _, err := s.Banner(ctx); err != nil {
		s.logger.Warn("refresh banner", zap.Error(err))
	}
}

// Banner fetches live announcements, keeps them as the tab snapshot and
// returns the one to surface, if any.
func (s *SessionService) Banner(ctx context.Context) (*models.Announcement, error) {
	announcements, err := s.backend.ListAnnouncements(ctx)
	if err != nil {
		return nil, err
	}
	s.storeSnapshot(announcements)
	return s.dismissals.MostRecentVisible(ctx, announcements), nil
}

// DismissBanner dismisses id against the last fetched snapshot and
// returns what the banner shows next.
func (s *SessionService) DismissBanner(ctx context.Context, id string) (*models.Announcement, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "announcement id is required")
	}
	snapshot, ok := s.loadSnapshot()
	if !ok {
		fetched, err := s.backend.ListAnnouncements(ctx)
		if err != nil {
			return nil, err
		}
		s.storeSnapshot(fetched)
		snapshot = fetched
	}
	if err := s.dismissals.Dismiss(ctx, id, snapshot); err != nil {
		return nil, err
	}
	return s.dismissals.MostRecentVisible(ctx, snapshot), nil
}

func (s *SessionService) storeSnapshot(announcements []models.Announcement) {
	if announcements == nil {
		announcements = []models.Announcement{}
	}
	payload, err := json.Marshal(announcements)
	if err != nil {
		s.logger.Warn("encode announcement snapshot", zap.Error(err))
		return
	}
	s.tab.Set(TabKeyAnnouncements, payload, s.snapshotTTL)
}

func (s *SessionService) loadSnapshot() ([]models.Announcement, bool) {
	raw, ok := s.tab.Get(TabKeyAnnouncements)
	if !ok {
		return nil, false
	}
	var announcements []models.Announcement
	if err := json.Unmarshal(raw, &announcements); err != nil {
		s.logger.Warn("announcement snapshot corrupt, refetching", zap.Error(err))
		s.metrics.RecordStateReset(TabKeyAnnouncements)
		s.tab.Delete(TabKeyAnnouncements)
		return nil, false
	}
	return announcements, true
}

// isAuthFailure reports whether err should end the session.
func isAuthFailure(err error) bool {
	return errors.Is(err, appErrors.ErrUnauthorized)
}
