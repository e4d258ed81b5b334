package service

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

var weekendDays = map[string]struct{}{
	"saturday": {},
	"sunday":   {},
}

// FormatClock converts a 24-hour "HH:MM" value to "H:MM AM|PM".
func FormatClock(raw string) (string, error) {
	hour, minute, err := parseClock(raw)
	if err != nil {
		return "", err
	}
	period := "AM"
	if hour >= 12 {
		period = "PM"
	}
	display := hour % 12
	if display == 0 {
		display = 12
	}
	return fmt.Sprintf("%d:%02d %s", display, minute, period), nil
}

func parseClock(raw string) (int, int, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	if len(parts) != 2 || len(parts[0]) == 0 || len(parts[0]) > 2 || len(parts[1]) != 2 {
		return 0, 0, formatError(raw)
	}
	if !allDigits(parts[0]) || !allDigits(parts[1]) {
		return 0, 0, formatError(raw)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, formatError(raw)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, formatError(raw)
	}
	return hour, minute, nil
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func formatError(raw string) error {
	return appErrors.Wrap(fmt.Errorf("invalid time %q", raw), appErrors.ErrFormat.Code, appErrors.ErrFormat.Status, "expected HH:MM in 24-hour time")
}

// FormatSchedule renders the display string for an activity. Structured
// details win over the legacy string, which is returned verbatim.
func FormatSchedule(activity models.Activity) (string, error) {
	if !activity.HasStructuredSchedule() {
		return activity.Schedule, nil
	}
	details := activity.ScheduleDetails
	start, err := FormatClock(details.StartTime)
	if err != nil {
		return "", err
	}
	end, err := FormatClock(details.EndTime)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s, %s - %s", strings.Join(details.Days, ", "), start, end), nil
}

// ScheduleDays returns the structured days, or nil for legacy schedules.
func ScheduleDays(activity models.Activity) []string {
	if !activity.HasStructuredSchedule() {
		return nil
	}
	out := make([]string, len(activity.ScheduleDetails.Days))
	copy(out, activity.ScheduleDetails.Days)
	return out
}

// MeetsOnWeekend is true iff the structured schedule includes Saturday or Sunday.
func MeetsOnWeekend(activity models.Activity) bool {
	for _, day := range ScheduleDays(activity) {
		if _, ok := weekendDays[strings.ToLower(day)]; ok {
			return true
		}
	}
	return false
}
