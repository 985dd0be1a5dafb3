package main

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter throttles button presses per user, so a double-click on the
// open-ticket button does not race itself through the creation flow and a
// spammer cannot flood channel creation. The registry stays the authority
// on duplicates; this only shaves off the noise.
type userLimiter struct {
	mtx      sync.Mutex
	limiters map[string]*rate.Limiter
}

func newUserLimiter() *userLimiter {
	return &userLimiter{
		limiters: make(map[string]*rate.Limiter),
	}
}

// Allow reports whether the user may act now.
func (l *userLimiter) Allow(userID string) bool {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	lim, ok := l.limiters[userID]
	if !ok {
		// One press per 2 seconds with a burst of 1.
		lim = rate.NewLimiter(rate.Every(2*time.Second), 1)
		l.limiters[userID] = lim
	}
	return lim.Allow()
}
