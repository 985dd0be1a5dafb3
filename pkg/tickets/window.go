package tickets

import (
	"fmt"
	"time"
)

// DefaultTimezone is the reference time zone for the admission window.
const DefaultTimezone = "Europe/Bucharest"

// Window is the daily admission window for opening tickets. Both boundaries
// are inclusive.
type Window struct {
	// OpenHour and OpenMinute are the opening wall-clock time.
	OpenHour   int
	OpenMinute int

	// CloseHour and CloseMinute are the closing wall-clock time.
	CloseHour   int
	CloseMinute int

	// Location is the reference time zone the wall-clock times are read in.
	Location *time.Location
}

// NewWindow creates the 09:00-17:00 admission window in the given time zone.
func NewWindow(timezone string) (Window, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return Window{}, fmt.Errorf("error loading timezone %q: %w", timezone, err)
	}

	return Window{
		OpenHour:  9,
		CloseHour: 17,
		Location:  loc,
	}, nil
}

// Contains reports whether the given instant falls inside the window. The
// instant is converted into the window's reference zone first, so callers
// can pass time.Now() regardless of host time zone. The boundaries are the
// exact wall-clock times: 17:00:00 is admitted, 17:00:01 is not.
func (w Window) Contains(t time.Time) bool {
	lt := t.In(w.Location)

	sec := (lt.Hour()*60+lt.Minute())*60 + lt.Second()
	return sec >= (w.OpenHour*60+w.OpenMinute)*60 && sec <= (w.CloseHour*60+w.CloseMinute)*60
}
