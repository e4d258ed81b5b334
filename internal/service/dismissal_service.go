package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

// DismissalService remembers which announcements this profile dismissed.
// Lookups never fail: unreadable state counts as "nothing dismissed".
// Dismiss refuses to write when the stored set could not be read.
type DismissalService struct {
	store   profileStore
	metrics *MetricsService
	logger  *zap.Logger
	now     func() time.Time
	mu      sync.Mutex
}

// NewDismissalService constructs the service.
func NewDismissalService(store profileStore, metrics *MetricsService, logger *zap.Logger) *DismissalService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DismissalService{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// IsDismissed reports whether id is in the persisted dismissed set.
func (s *DismissalService) IsDismissed(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.load(ctx)[id]
	return ok
}

// Dismissed returns the persisted ids in stored order.
func (s *DismissalService) Dismissed(ctx context.Context) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, _ := s.read(ctx)
	out := make([]string, len(record.IDs))
	copy(out, record.IDs)
	return out
}

// Dismiss adds id and then sweeps: only ids of announcements in live
// whose expiration is strictly after now are kept. A failed read or
// write is reported and leaves the stored set untouched.
func (s *DismissalService) Dismiss(ctx context.Context, id string, live []models.Announcement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read dismissed announcements")
	}
	dismissed := append(current.IDs, id)

	now := s.now()
	survivors := make(map[string]struct{}, len(live))
	for _, announcement := range live {
		if announcement.LiveAt(now) {
			survivors[announcement.ID] = struct{}{}
		}
	}

	kept := make([]string, 0, len(dismissed))
	seen := make(map[string]struct{}, len(dismissed))
	for _, candidate := range dismissed {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		if _, ok := survivors[candidate]; ok {
			kept = append(kept, candidate)
		}
	}

	pruned := len(seen) - len(kept)
	s.metrics.RecordSweep(pruned)
	if pruned > 0 {
		s.logger.Debug("dismissal sweep pruned ids", zap.Int("pruned", pruned), zap.Int("kept", len(kept)))
	}

	payload, err := json.Marshal(models.PersistedDismissals{Version: models.DismissalSchemaVersion, IDs: kept})
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode dismissed announcements")
	}
	if err := s.store.Set(ctx, KeyDismissedAnnouncements, payload); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist dismissed announcements")
	}
	return nil
}

// MostRecentVisible returns the first (most recent) announcement unless it
// was dismissed. There is no fallback to older announcements.
func (s *DismissalService) MostRecentVisible(ctx context.Context, announcements []models.Announcement) *models.Announcement {
	if len(announcements) == 0 {
		return nil
	}
	latest := announcements[0]
	if s.IsDismissed(ctx, latest.ID) {
		return nil
	}
	return &latest
}

// Reset forgets every dismissal.
func (s *DismissalService) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.store.Delete(ctx, KeyDismissedAnnouncements); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear dismissed announcements")
	}
	return nil
}

func (s *DismissalService) load(ctx context.Context) map[string]struct{} {
	record, _ := s.read(ctx)
	set := make(map[string]struct{}, len(record.IDs))
	for _, id := range record.IDs {
		set[id] = struct{}{}
	}
	return set
}

// read decodes the persisted record. Version 0 is the legacy bare array.
// Missing and corrupt entries read as empty; corrupt ones are deleted.
// A storage failure returns empty plus the error.
func (s *DismissalService) read(ctx context.Context) (models.PersistedDismissals, error) {
	empty := models.PersistedDismissals{Version: models.DismissalSchemaVersion}

	raw, err := s.store.Get(ctx, KeyDismissedAnnouncements)
	if err != nil {
		if errors.Is(err, appErrors.ErrStateNotFound) {
			return empty, nil
		}
		s.logger.Warn("read dismissed announcements", zap.Error(err))
		return empty, err
	}

	record, err := decodeDismissals(raw)
	if err != nil {
		s.logger.Warn("dismissed announcements corrupt, resetting", zap.Error(err))
		s.metrics.RecordStateReset(KeyDismissedAnnouncements)
		if delErr := s.store.Delete(ctx, KeyDismissedAnnouncements); delErr != nil {
			s.logger.Warn("clear corrupt dismissed announcements", zap.Error(delErr))
		}
		return empty, nil
	}
	return record, nil
}

func decodeDismissals(raw []byte) (models.PersistedDismissals, error) {
	var legacyIDs []string
	if err := json.Unmarshal(raw, &legacyIDs); err == nil {
		return models.PersistedDismissals{Version: 0, IDs: legacyIDs}, nil
	}

	var record models.PersistedDismissals
	if err := json.Unmarshal(raw, &record); err != nil {
		return models.PersistedDismissals{}, appErrors.Wrap(err, appErrors.ErrStateCorrupt.Code, appErrors.ErrStateCorrupt.Status, appErrors.ErrStateCorrupt.Message)
	}
	if record.Version < 1 || record.Version > models.DismissalSchemaVersion {
		return models.PersistedDismissals{}, appErrors.Clone(appErrors.ErrStateCorrupt, "unsupported dismissal schema version")
	}
	return record, nil
}
