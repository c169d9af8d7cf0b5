// Package schedule converts elapsed time into emitted reward under a
// per-second rate that governance may change mid-stream.
//
// A Schedule is a list of segments, each starting at a timestamp and
// emitting a constant rate until the next one begins. Nothing is emitted
// before the first segment. Because every rate change is recorded, a pool
// that is advanced lazily across one or more changes still receives exactly
// the integral of the rate over its interval.
package schedule

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/netswap/boost-engine/internal/fixedpoint"
)

// ErrRewindRate is returned when a rate change is dated before an
// already-recorded change.
var ErrRewindRate = errors.New("schedule: rate change precedes last segment")

// Segment is one constant-rate stretch of the schedule.
type Segment struct {
	Start uint64
	Rate  *uint256.Int
}

// Schedule is a piecewise-constant emission rate.
type Schedule struct {
	Segments []Segment
}

// New returns a schedule emitting rate per second from start onwards.
func New(start uint64, rate *uint256.Int) *Schedule {
	return &Schedule{Segments: []Segment{{Start: start, Rate: rate.Clone()}}}
}

// Start returns the timestamp before which nothing is emitted.
func (s *Schedule) Start() uint64 {
	if len(s.Segments) == 0 {
		return 0
	}
	return s.Segments[0].Start
}

// RateAt returns the rate in effect at t.
func (s *Schedule) RateAt(t uint64) *uint256.Int {
	rate := new(uint256.Int)
	for _, seg := range s.Segments {
		if seg.Start > t {
			break
		}
		rate = seg.Rate
	}
	return rate.Clone()
}

// Current returns the most recently configured rate, even if its segment
// has not started yet.
func (s *Schedule) Current() *uint256.Int {
	if len(s.Segments) == 0 {
		return new(uint256.Int)
	}
	return s.Segments[len(s.Segments)-1].Rate.Clone()
}

// SetRate changes the rate from now onwards. A change dated before the
// schedule's start replaces the pending rate without moving the start.
func (s *Schedule) SetRate(now uint64, rate *uint256.Int) error {
	n := len(s.Segments)
	if n == 0 {
		s.Segments = []Segment{{Start: now, Rate: rate.Clone()}}
		return nil
	}
	last := &s.Segments[n-1]
	switch {
	case now <= last.Start && n == 1:
		last.Rate = rate.Clone()
	case now == last.Start:
		last.Rate = rate.Clone()
	case now < last.Start:
		return fmt.Errorf("%w: %d < %d", ErrRewindRate, now, last.Start)
	case last.Rate.Eq(rate):
	default:
		s.Segments = append(s.Segments, Segment{Start: now, Rate: rate.Clone()})
	}
	return nil
}

// Accrued returns the total emitted over [from, to].
func (s *Schedule) Accrued(from, to uint64) (*uint256.Int, error) {
	total := new(uint256.Int)
	if to <= from {
		return total, nil
	}
	for i, seg := range s.Segments {
		end := to
		if i+1 < len(s.Segments) && s.Segments[i+1].Start < end {
			end = s.Segments[i+1].Start
		}
		start := max(seg.Start, from)
		if end <= start {
			continue
		}
		part, err := fixedpoint.Mul(uint256.NewInt(end-start), seg.Rate)
		if err != nil {
			return nil, err
		}
		if total, err = fixedpoint.Add(total, part); err != nil {
			return nil, err
		}
	}
	return total, nil
}

// Prune drops segments that ended at or before t. Callers pass the oldest
// timestamp any accumulator may still be advanced from.
func (s *Schedule) Prune(t uint64) {
	i := 0
	for i+1 < len(s.Segments) && s.Segments[i+1].Start <= t {
		i++
	}
	if i > 0 {
		s.Segments = append([]Segment(nil), s.Segments[i:]...)
	}
}
