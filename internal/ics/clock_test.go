package ics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "icsreader/internal/errors"
)

func TestFormatClock(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"090000", " 9:00 AM"},
		{"130000", " 1:00 PM"},
		{"120000", "12:00 PM"},
		{"000000", " 0:00 AM"},
		{"103000", "10:30 AM"},
		{"110500", "11:05 AM"},
		{"235959", "11:59 PM"},
		{"220000", "10:00 PM"},
		{"143000Z", " 2:30 PM"},
		{"0915", " 9:15 AM"},
	}
	for _, tt := range tests {
		got, err := FormatClock(tt.raw)
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
		assert.Len(t, got, 8, tt.raw)
	}
}

func TestFormatClockRejectsShortInput(t *testing.T) {
	for _, raw := range []string{"", "9", "093", "9:00", "ab0000"} {
		_, err := FormatClock(raw)
		require.Error(t, err, raw)
		assert.True(t, errors.Is(err, appErrors.ErrMalformedRecord), raw)
	}
}
