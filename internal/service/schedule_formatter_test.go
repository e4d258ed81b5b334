package service

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-activity-portal/internal/models"
	appErrors "github.com/noah-isme/sma-activity-portal/pkg/errors"
)

func TestFormatClock(t *testing.T) {
	tests := map[string]string{
		"00:00": "12:00 AM",
		"00:05": "12:05 AM",
		"06:00": "6:00 AM",
		"11:59": "11:59 AM",
		"12:00": "12:00 PM",
		"12:30": "12:30 PM",
		"15:30": "3:30 PM",
		"23:59": "11:59 PM",
		"7:15":  "7:15 AM",
	}
	for raw, want := range tests {
		t.Run(raw, func(t *testing.T) {
			got, err := FormatClock(raw)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestFormatClockRejectsMalformed(t *testing.T) {
	for _, raw := range []string{"", "7", "24:00", "12:60", "ab:cd", "12:5", "123:00", "12:00:00", "-1:00", "+9:00", "-0:00", "12:+5"} {
		t.Run(raw, func(t *testing.T) {
			_, err := FormatClock(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, appErrors.ErrFormat))
		})
	}
}

func TestFormatSchedule(t *testing.T) {
	structured := models.Activity{
		Schedule: "Mondays and Fridays, 3:15 PM - 4:45 PM",
		ScheduleDetails: &models.ScheduleDetails{
			Days:      []string{"Monday", "Friday"},
			StartTime: "15:15",
			EndTime:   "16:45",
		},
	}
	got, err := FormatSchedule(structured)
	require.NoError(t, err)
	assert.Equal(t, "Monday, Friday, 3:15 PM - 4:45 PM", got)

	legacy := models.Activity{Schedule: "Every other Saturday"}
	got, err = FormatSchedule(legacy)
	require.NoError(t, err)
	assert.Equal(t, "Every other Saturday", got)
	assert.Empty(t, ScheduleDays(legacy))
	assert.False(t, MeetsOnWeekend(legacy))

	broken := models.Activity{ScheduleDetails: &models.ScheduleDetails{Days: []string{"Monday"}, StartTime: "25:00", EndTime: "26:00"}}
	_, err = FormatSchedule(broken)
	assert.True(t, errors.Is(err, appErrors.ErrFormat))
}

func TestMeetsOnWeekend(t *testing.T) {
	withDays := func(days ...string) models.Activity {
		return models.Activity{ScheduleDetails: &models.ScheduleDetails{Days: days, StartTime: "09:00", EndTime: "10:00"}}
	}

	assert.True(t, MeetsOnWeekend(withDays("Saturday")))
	assert.True(t, MeetsOnWeekend(withDays("Friday", "Sunday")))
	assert.False(t, MeetsOnWeekend(withDays("Monday", "Friday")))
	assert.False(t, MeetsOnWeekend(withDays()))
}

func TestMeetsOnWeekendIgnoresCase(t *testing.T) {
	activity := models.Activity{ScheduleDetails: &models.ScheduleDetails{Days: []string{"SUNDAY"}}}
	assert.True(t, MeetsOnWeekend(activity))
}
