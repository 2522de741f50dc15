// Package cron wraps robfig/cron/v3's standard 5-field parser so the
// Hibernator can ask "is this job due" without holding a live
// scheduler daemon: SwarmCore ticks its own modules off the Slow
// pulse, it only needs the parser, not cron's goroutine runner.
package cron

import (
	"time"

	"github.com/robfig/cron/v3"
)

// NextFireTime parses a standard 5-field cron expression and returns
// the first fire time strictly after `after`. A malformed expression
// is returned as-is so callers can mark the owning Job Failed.
func NextFireTime(expression string, after time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expression)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.Next(after), nil
}

// Due reports whether a job whose previous run (or creation) happened
// at lastRun is due to run again at or before now.
func Due(expression string, lastRun, now time.Time) (bool, error) {
	next, err := NextFireTime(expression, lastRun)
	if err != nil {
		return false, err
	}
	return !next.After(now), nil
}
