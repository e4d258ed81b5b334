package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Category is the inferred kind of an activity.
type Category string

const (
	CategoryAll        Category = "all"
	CategorySports     Category = "sports"
	CategoryArts       Category = "arts"
	CategoryAcademic   Category = "academic"
	CategoryCommunity  Category = "community"
	CategoryTechnology Category = "technology"
)

// TimeRange is a coarse time-of-week restriction.
type TimeRange string

const (
	TimeRangeNone         TimeRange = ""
	TimeRangeBeforeSchool TimeRange = "before-school"
	TimeRangeAfterSchool  TimeRange = "after-school"
	TimeRangeWeekend      TimeRange = "weekend"
)

// ScheduleDetails is the structured schedule published by newer backends.
type ScheduleDetails struct {
	Days      []string `json:"days"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
}

// Activity is a read-only view of a backend activity. Name is the identity
// and comes from the key of the backend mapping.
type Activity struct {
	Name            string           `json:"-"`
	Description     string           `json:"description"`
	Schedule        string           `json:"schedule"`
	ScheduleDetails *ScheduleDetails `json:"schedule_details,omitempty"`
	MaxParticipants int              `json:"max_participants"`
	Participants    []string         `json:"participants"`
}

// HasStructuredSchedule reports whether schedule details are authoritative.
func (a Activity) HasStructuredSchedule() bool {
	return a.ScheduleDetails != nil
}

// SpotsLeft is capacity minus enrolment; negative when over-subscribed.
func (a Activity) SpotsLeft() int {
	return a.MaxParticipants - len(a.Participants)
}

// DisplaySpotsLeft floors SpotsLeft at zero.
func (a Activity) DisplaySpotsLeft() int {
	if left := a.SpotsLeft(); left > 0 {
		return left
	}
	return 0
}

// IsFull is true once no spot remains, including over-subscription.
func (a Activity) IsFull() bool {
	return a.SpotsLeft() <= 0
}

// ActivitySet is an insertion-ordered mapping of activity name to activity.
// The zero value is an empty set ready for use.
type ActivitySet struct {
	names  []string
	byName map[string]Activity
}

// NewActivitySet builds a set from activities in the given order.
func NewActivitySet(activities ...Activity) *ActivitySet {
	set := &ActivitySet{}
	for _, a := range activities {
		set.Put(a)
	}
	return set
}

// Put inserts or replaces an activity. A replaced activity keeps its original position.
func (s *ActivitySet) Put(a Activity) {
	if s.byName == nil {
		s.byName = make(map[string]Activity)
	}
	if _, exists := s.byName[a.Name]; !exists {
		s.names = append(s.names, a.Name)
	}
	s.byName[a.Name] = a
}

// Get returns the activity stored under name.
func (s *ActivitySet) Get(name string) (Activity, bool) {
	if s == nil {
		return Activity{}, false
	}
	a, ok := s.byName[name]
	return a, ok
}

// Len returns the number of activities.
func (s *ActivitySet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.names)
}

// Names returns activity names in insertion order.
func (s *ActivitySet) Names() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.names))
	copy(out, s.names)
	return out
}

// Activities returns the activities in insertion order.
func (s *ActivitySet) Activities() []Activity {
	if s == nil {
		return nil
	}
	out := make([]Activity, 0, len(s.names))
	for _, name := range s.names {
		out = append(out, s.byName[name])
	}
	return out
}

// UnmarshalJSON decodes the backend's name -> activity object keeping key order.
func (s *ActivitySet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode activities: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("decode activities: expected object, got %v", tok)
	}

	*s = ActivitySet{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode activity name: %w", err)
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("decode activity name: unexpected token %v", keyTok)
		}
		var activity Activity
		if err := dec.Decode(&activity); err != nil {
			return fmt.Errorf("decode activity %q: %w", name, err)
		}
		activity.Name = name
		s.Put(activity)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode activities: %w", err)
	}
	return nil
}

// MarshalJSON encodes the set as an ordered object.
func (s ActivitySet) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, name := range s.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		value, err := json.Marshal(s.byName[name])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FilterSelection captures the user's current filter choices.
type FilterSelection struct {
	Category    Category  `json:"category" validate:"omitempty,oneof=all sports arts academic community technology"`
	Day         string    `json:"day" validate:"omitempty,oneof=Monday Tuesday Wednesday Thursday Friday Saturday Sunday"`
	TimeRange   TimeRange `json:"time_range" validate:"omitempty,oneof=before-school after-school weekend"`
	SearchQuery string    `json:"search_query"`
}

// Normalized fills defaults; an empty category means no restriction.
func (f FilterSelection) Normalized() FilterSelection {
	if f.Category == "" {
		f.Category = CategoryAll
	}
	return f
}

// DefaultSelection is the selection a fresh session starts with.
func DefaultSelection() FilterSelection {
	return FilterSelection{Category: CategoryAll}
}
