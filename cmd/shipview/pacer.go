package main

import (
	"time"
)

// spinWindow is how far ahead of a deadline the pacer stops sleeping and
// polls the clock instead. Sleep overshoots by about this much.
const spinWindow = 200 * time.Microsecond

// framePacer holds the main loop to a fixed frame period. The zero period
// never waits.
type framePacer struct {
	period   time.Duration
	deadline time.Time
}

func newFramePacer(fps int) *framePacer {
	p := &framePacer{}
	if fps > 0 {
		p.period = time.Second / time.Duration(fps)
	}
	return p
}

// Wait returns once the current frame's period has elapsed. A frame that
// overran by more than a whole period starts a fresh schedule, so one slow
// frame is not followed by a burst of unpaced ones.
func (p *framePacer) Wait() {
	if p.period == 0 {
		return
	}
	now := time.Now()
	if p.deadline.IsZero() {
		p.deadline = now
	}
	p.deadline = p.deadline.Add(p.period)
	if now.Sub(p.deadline) > p.period {
		p.deadline = now.Add(p.period)
	}
	sleepUntil(p.deadline)
}

func sleepUntil(deadline time.Time) {
	if d := time.Until(deadline) - spinWindow; d > 0 {
		time.Sleep(d)
	}
	for time.Now().Before(deadline) {
	}
}
