package engine

import (
	"time"

	"golang.org/x/sys/unix"
)

// Run drives the fixed-period cyclic loop until stop is closed. It
// calls Startup once, then RunCycle on a drift-compensated schedule
//: each iteration's sleep is shortened by however
// long the previous iteration overran its period, clamped to zero so
// a slow cycle never causes a burst of back-to-back cycles trying to
// catch up.
func (e *Engine) Run(stop <-chan struct{}) error {
	now := time.Now()
	if err := e.Startup(now); err != nil {
		return err
	}
	defer e.Shutdown()

	period := e.cfg.CyclePeriod
	next := time.Now().Add(period)
	for {
		select {
		case <-stop:
			return nil
		default:
		}

		cycleStart := time.Now()
		if err := e.RunCycle(cycleStart); err != nil {
			return err
		}
		elapsed := time.Since(cycleStart)
		if elapsed > period {
			if e.metrics != nil {
				e.metrics.CycleOverruns.Inc()
			}
			if e.log != nil {
				e.log.CycleOverrun(period, elapsed)
			}
		}
		if e.metrics != nil {
			e.metrics.CycleDuration.Observe(elapsed.Seconds())
		}

		sleep := time.Until(next)
		if sleep > 0 {
			sleepPrecise(sleep)
		}
		next = next.Add(period)
		if now := time.Now(); next.Before(now) {
			// Lost more than one period; resync instead of spinning
			// through a backlog of already-missed deadlines.
			next = now.Add(period)
		}
	}
}

// sleepPrecise blocks for at least d using clock_nanosleep, which on
// Linux gives tighter wakeup latency than runtime-scheduled
// time.Sleep under load. A sleep interrupted by a signal (EINTR) is
// resumed with the remaining time; any other error returns early, and
// the next cycle's Until(next) computation picks up the remainder.
func sleepPrecise(d time.Duration) {
	ts := unix.NsecToTimespec(d.Nanoseconds())
	for {
		rem := &unix.Timespec{}
		err := unix.ClockNanosleep(unix.CLOCK_MONOTONIC, 0, &ts, rem)
		if err == nil || err != unix.EINTR {
			return
		}
		ts = *rem
	}
}
