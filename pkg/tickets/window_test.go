package tickets

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWindow_Contains(t *testing.T) {
	w, err := NewWindow(DefaultTimezone)
	require.NoError(t, err)

	tests := []struct {
		name string
		at   string
		want bool
	}{
		{name: "JustBeforeOpen", at: "08:59:59", want: false},
		{name: "OpenBoundary", at: "09:00:00", want: true},
		{name: "MidMorning", at: "10:00:00", want: true},
		{name: "CloseBoundary", at: "17:00:00", want: true},
		{name: "SecondPastClose", at: "17:00:01", want: false},
		{name: "JustAfterClose", at: "17:01:00", want: false},
		{name: "Midnight", at: "00:00:00", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock, err := time.ParseInLocation("2006-01-02 15:04:05", "2024-03-14 "+tt.at, w.Location)
			require.NoError(t, err)
			require.Equal(t, tt.want, w.Contains(clock))
		})
	}
}

func TestWindow_ConvertsToReferenceZone(t *testing.T) {
	w, err := NewWindow(DefaultTimezone)
	require.NoError(t, err)

	// 07:30 UTC on this date is 09:30 in Bucharest (EET, UTC+2).
	inside := time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC)
	require.True(t, w.Contains(inside))

	// 16:30 UTC is 18:30 in Bucharest.
	outside := time.Date(2024, 1, 15, 16, 30, 0, 0, time.UTC)
	require.False(t, w.Contains(outside))
}

func TestNewWindow_UnknownTimezone(t *testing.T) {
	_, err := NewWindow("Nowhere/Unknown")
	require.Error(t, err)
}
