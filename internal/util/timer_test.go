package util

import (
	"testing"
	"time"
)

func TestTimer(t *testing.T) {
	var zero Timer
	if got := zero.ElapsedMs(); got != 0 {
		t.Fatalf("zero timer elapsed = %d, want 0", got)
	}

	timer := StartTimer()
	if timer.Started().IsZero() {
		t.Fatal("expected start time to be recorded")
	}
	time.Sleep(5 * time.Millisecond)
	if got := timer.ElapsedMs(); got < 5 {
		t.Fatalf("elapsed = %dms, want at least 5ms", got)
	}
}
