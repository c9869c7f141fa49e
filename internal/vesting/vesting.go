// Package vesting implements deterministic vesting math over integer share
// amounts. All division is integer division and the interval remainder is
// assigned to the final intervals, so the sum of all tranches always equals
// the scheduled total.
package vesting

import (
	"solana-captable/internal/domain"
)

// Tranche is a single vesting interval boundary.
type Tranche struct {
	Time       int64 // unix seconds at which the tranche unlocks
	Amount     int64 // shares unlocked at this boundary
	Cumulative int64 // total shares vested once this tranche unlocks
}

// IntervalCount returns the number of vesting intervals between cliff and
// duration end. Always at least 1.
func IntervalCount(s *domain.VestingScheduleState) int64 {
	secs := s.Interval.Seconds()
	if secs <= 0 {
		return 1
	}
	n := (s.DurationSeconds - s.CliffSeconds) / secs
	if n < 1 {
		n = 1
	}
	return n
}

// VestedAmount returns the number of shares vested at the given unix time.
// Nothing vests before the cliff and everything is vested once the full
// duration has elapsed. Between those bounds each elapsed interval unlocks
// total/intervals shares, and the remainder of that division unlocks one
// share per interval across the final intervals.
func VestedAmount(s *domain.VestingScheduleState, now int64) int64 {
	if now < s.StartTime+s.CliffSeconds {
		return 0
	}
	if now >= s.StartTime+s.DurationSeconds {
		return s.TotalAmount
	}

	intervals := IntervalCount(s)
	secs := s.Interval.Seconds()
	if secs <= 0 {
		return 0
	}

	elapsed := (now - s.StartTime - s.CliffSeconds) / secs
	if elapsed > intervals {
		elapsed = intervals
	}

	per := s.TotalAmount / intervals
	rem := s.TotalAmount % intervals

	vested := per * elapsed
	// The remainder vests one share per interval over the last rem intervals.
	if threshold := intervals - rem; elapsed > threshold {
		vested += elapsed - threshold
	}
	return vested
}

// Releasable returns the number of vested shares not yet released. Never
// negative, even if releases were recorded ahead of the computed curve.
func Releasable(s *domain.VestingScheduleState, now int64) int64 {
	r := VestedAmount(s, now) - s.ReleasedAmount
	if r < 0 {
		return 0
	}
	return r
}

// IntervalsElapsed returns the number of whole intervals unlocked at the
// given unix time. Zero before the cliff; IntervalCount once the full
// duration has elapsed.
func IntervalsElapsed(s *domain.VestingScheduleState, now int64) int64 {
	if now < s.StartTime+s.CliffSeconds {
		return 0
	}
	intervals := IntervalCount(s)
	if now >= s.StartTime+s.DurationSeconds {
		return intervals
	}
	secs := s.Interval.Seconds()
	if secs <= 0 {
		return 0
	}
	elapsed := (now - s.StartTime - s.CliffSeconds) / secs
	if elapsed > intervals {
		elapsed = intervals
	}
	return elapsed
}

// IntervalsReleased returns how many whole intervals the released amount
// covers: the largest k whose cumulative tranche amount does not exceed
// released. This inverts the remainder distribution used by VestedAmount,
// so IntervalsReleased(s, VestedAmount(s, t)) == IntervalsElapsed(s, t)
// whenever releases track the vesting curve.
func IntervalsReleased(s *domain.VestingScheduleState, released int64) int64 {
	if released <= 0 {
		return 0
	}
	if released >= s.TotalAmount {
		return IntervalCount(s)
	}

	intervals := IntervalCount(s)
	per := s.TotalAmount / intervals
	rem := s.TotalAmount % intervals
	threshold := intervals - rem

	// Degenerate schedule with fewer shares than intervals: every share
	// sits in one of the final tranches.
	if per == 0 {
		k := threshold + released
		if k > intervals {
			k = intervals
		}
		return k
	}

	if released <= per*threshold {
		return released / per
	}
	k := threshold + (released-per*threshold)/(per+1)
	if k > intervals {
		k = intervals
	}
	return k
}

// ReleasableIntervals returns how many unlocked intervals have not yet been
// released, based on the schedule's recorded released amount. Never negative.
func ReleasableIntervals(s *domain.VestingScheduleState, now int64) int64 {
	n := IntervalsElapsed(s, now) - IntervalsReleased(s, s.ReleasedAmount)
	if n < 0 {
		return 0
	}
	return n
}

// NextUnlock returns the unix time of the next tranche boundary after now.
// The second return value is false once the schedule is fully vested.
func NextUnlock(s *domain.VestingScheduleState, now int64) (int64, bool) {
	if now >= s.StartTime+s.DurationSeconds {
		return 0, false
	}
	secs := s.Interval.Seconds()
	if secs <= 0 {
		return s.StartTime + s.DurationSeconds, true
	}

	elapsed := int64(0)
	if now >= s.StartTime+s.CliffSeconds {
		elapsed = (now - s.StartTime - s.CliffSeconds) / secs
	}
	next := s.StartTime + s.CliffSeconds + (elapsed+1)*secs
	if end := s.StartTime + s.DurationSeconds; next > end {
		next = end
	}
	return next, true
}

// Timeline returns every tranche of the schedule in unlock order. The last
// tranche's cumulative amount always equals the scheduled total.
func Timeline(s *domain.VestingScheduleState) []Tranche {
	intervals := IntervalCount(s)
	secs := s.Interval.Seconds()

	per := s.TotalAmount / intervals
	rem := s.TotalAmount % intervals
	threshold := intervals - rem
	end := s.StartTime + s.DurationSeconds

	out := make([]Tranche, 0, intervals)
	cum := int64(0)
	for k := int64(1); k <= intervals; k++ {
		amount := per
		if k > threshold {
			amount++
		}
		cum += amount
		t := s.StartTime + s.CliffSeconds + k*secs
		if secs <= 0 || t > end {
			t = end
		}
		out = append(out, Tranche{Time: t, Amount: amount, Cumulative: cum})
	}
	return out
}
