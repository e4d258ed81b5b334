package service

import (
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/sma-activity-portal/internal/models"
)

// FilterEngine applies the residual predicates to a fetched candidate set.
// It is pure over its inputs and safe to re-run on every keystroke.
type FilterEngine struct {
	metrics *MetricsService
	logger  *zap.Logger
}

// NewFilterEngine constructs the engine.
func NewFilterEngine(metrics *MetricsService, logger *zap.Logger) *FilterEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FilterEngine{metrics: metrics, logger: logger}
}

// Apply returns the candidates that pass category, weekend and search
// predicates, in candidate order. A nil candidate set (never fetched)
// yields nil; any fetched set yields a non-nil result, possibly empty.
func (e *FilterEngine) Apply(candidates *models.ActivitySet, selection models.FilterSelection) *models.ActivitySet {
	if candidates == nil {
		return nil
	}
	selection = selection.Normalized()
	query := strings.ToLower(selection.SearchQuery)

	result := &models.ActivitySet{}
	for _, activity := range candidates.Activities() {
		if !e.matches(activity, selection, query) {
			continue
		}
		result.Put(activity)
	}

	e.metrics.ObserveFilter(candidates.Len(), result.Len())
	return result
}

func (e *FilterEngine) matches(activity models.Activity, selection models.FilterSelection, query string) bool {
	if selection.Category != models.CategoryAll && ClassifyActivity(activity.Name, activity.Description) != selection.Category {
		return false
	}
	if selection.TimeRange == models.TimeRangeWeekend && !MeetsOnWeekend(activity) {
		return false
	}
	if query != "" && !strings.Contains(e.haystack(activity), query) {
		return false
	}
	return true
}

func (e *FilterEngine) haystack(activity models.Activity) string {
	schedule, err := FormatSchedule(activity)
	if err != nil {
		e.logger.Debug("schedule not formattable, searching legacy text", zap.String("activity", activity.Name), zap.Error(err))
		schedule = activity.Schedule
	}
	return strings.ToLower(strings.Join([]string{activity.Name, activity.Description, schedule}, " "))
}
