package util

import "time"

// Timer measures how long a pipeline stage took.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer starting at current time.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// Started reports when the timer was started.
func (t Timer) Started() time.Time {
	return t.start
}

// ElapsedMs returns the elapsed milliseconds since start; zero for an unstarted timer.
func (t Timer) ElapsedMs() int64 {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start).Milliseconds()
}
