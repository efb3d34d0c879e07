package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected AttendanceStatus
	}{
		{"accepted", AttendanceAccepted},
		{"tentative", AttendanceTentative},
		{"declined", AttendanceDeclined},
		{"needsAction", AttendanceNeedsAction},
		{"", AttendanceNotAttending},
		{"unknown", AttendanceNotAttending},
	}

	for _, tt := range tests {
		t.Run(tt.expected.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseResponseStatus(tt.input))
		})
	}
}

func TestConstrainsLocation(t *testing.T) {
	assert.True(t, AttendanceOrganizer.ConstrainsLocation())
	assert.True(t, AttendanceAccepted.ConstrainsLocation())
	assert.True(t, AttendanceTentative.ConstrainsLocation())
	assert.False(t, AttendanceDeclined.ConstrainsLocation())
	assert.False(t, AttendanceNeedsAction.ConstrainsLocation())
	assert.False(t, AttendanceNotAttending.ConstrainsLocation())
}

func TestValidate(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		event   CalendarEvent
		wantErr bool
	}{
		{name: "正常", event: CalendarEvent{ID: "1", StartTime: start, EndTime: start.Add(time.Hour)}},
		{name: "長さ0", event: CalendarEvent{ID: "2", StartTime: start, EndTime: start}},
		{name: "開始なし", event: CalendarEvent{ID: "3", EndTime: start}, wantErr: true},
		{name: "終了なし", event: CalendarEvent{ID: "4", StartTime: start}, wantErr: true},
		{name: "終了が開始より前", event: CalendarEvent{ID: "5", StartTime: start, EndTime: start.Add(-time.Minute)}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedEvent))
			assert.Contains(t, err.Error(), "event="+tt.event.ID)
		})
	}
}

func TestLocation(t *testing.T) {
	fallback := time.FixedZone("JST", 9*60*60)

	assert.Equal(t, fallback, Location("", fallback))
	assert.Equal(t, fallback, Location("Not/AZone", fallback))
	assert.Equal(t, "UTC", Location("UTC", fallback).String())
}
