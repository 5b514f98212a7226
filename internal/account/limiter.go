package account

import "time"

// leadingEdge passes the first event of a window and drops the rest until
// the window, measured from the passed event, has elapsed.
type leadingEdge struct {
	window time.Duration
	last   time.Time
	primed bool
}

func newLeadingEdge(window time.Duration) *leadingEdge {
	return &leadingEdge{window: window}
}

// Allow reports whether an event at now passes
func (l *leadingEdge) Allow(now time.Time) bool {
	if l.primed && now.Sub(l.last) < l.window {
		return false
	}
	l.primed = true
	l.last = now
	return true
}
