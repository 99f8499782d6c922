package springbone

import "time"

// Timer turns a monotonic frame clock into per-frame deltas.
type Timer struct {
	last    time.Duration
	started bool
}

// Delta returns the seconds elapsed since the previous call, or 0 on the
// first call.
func (t *Timer) Delta(now time.Duration) float32 {
	if !t.started {
		t.started = true
		t.last = now
	}
	dt := now - t.last
	t.last = now
	return float32(dt.Seconds())
}
