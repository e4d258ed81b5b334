package service

import (
	"net/url"
	"strings"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	"github.com/noah-isme/sma-activity-portal/pkg/config"
)

// QueryParam is one backend query parameter. Order is significant.
type QueryParam struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ResidualPredicates marks the filters the backend did not apply.
type ResidualPredicates struct {
	Category bool `json:"category"`
	Weekend  bool `json:"weekend"`
	Search   bool `json:"search"`
}

// QueryPlan splits a selection into backend parameters and local predicates.
type QueryPlan struct {
	Params   []QueryParam       `json:"params"`
	Residual ResidualPredicates `json:"residual"`
}

// Encode renders the parameters as a query string in plan order.
func (p QueryPlan) Encode() string {
	parts := make([]string, 0, len(p.Params))
	for _, param := range p.Params {
		parts = append(parts, url.QueryEscape(param.Key)+"="+url.QueryEscape(param.Value))
	}
	return strings.Join(parts, "&")
}

// ServerKey identifies the backend half of the plan; two plans with the
// same key fetch the same candidate set.
func (p QueryPlan) ServerKey() string {
	return p.Encode()
}

// Values returns the parameters as url.Values.
func (p QueryPlan) Values() url.Values {
	values := url.Values{}
	for _, param := range p.Params {
		values.Add(param.Key, param.Value)
	}
	return values
}

// QueryPlanner decides which filters travel to the backend.
type QueryPlanner struct {
	windows map[models.TimeRange]config.TimeWindow
}

// NewQueryPlanner builds a planner; blank window bounds take the defaults.
func NewQueryPlanner(cfg config.TimeWindowsConfig) *QueryPlanner {
	defaults := config.DefaultTimeWindows()
	return &QueryPlanner{windows: map[models.TimeRange]config.TimeWindow{
		models.TimeRangeBeforeSchool: withDefault(cfg.BeforeSchool, defaults.BeforeSchool),
		models.TimeRangeAfterSchool:  withDefault(cfg.AfterSchool, defaults.AfterSchool),
	}}
}

func withDefault(window, fallback config.TimeWindow) config.TimeWindow {
	if window.Start == "" {
		window.Start = fallback.Start
	}
	if window.End == "" {
		window.End = fallback.End
	}
	return window
}

// Plan derives the backend query and residual markers for a selection.
// Category and search text never reach the backend; neither does the
// weekend range, which the backend has no notion of.
func (p *QueryPlanner) Plan(selection models.FilterSelection) QueryPlan {
	selection = selection.Normalized()
	plan := QueryPlan{Params: make([]QueryParam, 0, 3)}

	if selection.Day != "" {
		plan.Params = append(plan.Params, QueryParam{Key: "day", Value: selection.Day})
	}
	if window, ok := p.windows[selection.TimeRange]; ok {
		plan.Params = append(plan.Params,
			QueryParam{Key: "start_time", Value: window.Start},
			QueryParam{Key: "end_time", Value: window.End},
		)
	}

	plan.Residual = ResidualPredicates{
		Category: selection.Category != models.CategoryAll,
		Weekend:  selection.TimeRange == models.TimeRangeWeekend,
		Search:   selection.SearchQuery != "",
	}
	return plan
}
