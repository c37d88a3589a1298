// Public domain.

// Package ephemeris supplies heliocentric distance, geocentric distance and
// phase angle of the target on a regular time grid, and matches
// observation times to grid samples.
package ephemeris

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/soniakeys/unit"
)

var (
	// ErrBadIncrement is returned for grid increments that are not a whole
	// number of minutes dividing 60.
	ErrBadIncrement = errors.New("ephemeris: increment must be a whole number of minutes dividing 60")
	// ErrNoSamples is returned when a source yields no samples.
	ErrNoSamples = errors.New("ephemeris: no samples")
)

// Sample is the target geometry at one grid time.
type Sample struct {
	Time  time.Time  // UTC, on the grid
	R     float64    // sun-target distance, au
	Delta float64    // observer-target distance, au
	Phase unit.Angle // sun-target-observer angle
}

// Source produces samples every step from start through stop inclusive.
type Source interface {
	Samples(ctx context.Context, start, stop time.Time, step time.Duration) ([]Sample, error)
}

// CheckIncrement validates a grid increment.
func CheckIncrement(incr time.Duration) error {
	if incr <= 0 || incr > time.Hour || incr%time.Minute != 0 ||
		60%int(incr/time.Minute) != 0 {
		return fmt.Errorf("%w: %v", ErrBadIncrement, incr)
	}
	return nil
}

// Bucket returns the grid time for t.
//
// t is truncated to the minute, then the minute is rounded half to even to
// a multiple of incr.  A minute rounding to 60 carries into the next hour,
// and on through day, month and year as needed.  Bucket expects a valid
// increment.
func Bucket(t time.Time, incr time.Duration) time.Time {
	t = t.UTC().Truncate(time.Minute)
	n := float64(incr / time.Minute)
	m := int(n * math.RoundToEven(float64(t.Minute())/n))
	return t.Truncate(time.Hour).Add(time.Duration(m) * time.Minute)
}

// Table is a keyed set of samples on one grid.
type Table struct {
	Increment time.Duration
	samples   map[time.Time]Sample
}

// NewTable indexes samples by grid time.  Samples off the grid are
// indexed at their bucket; a later sample replaces an earlier one in the
// same bucket.
func NewTable(incr time.Duration, samples []Sample) (*Table, error) {
	if err := CheckIncrement(incr); err != nil {
		return nil, err
	}
	t := &Table{Increment: incr, samples: make(map[time.Time]Sample, len(samples))}
	for _, s := range samples {
		t.samples[Bucket(s.Time, incr)] = s
	}
	return t, nil
}

// Len returns the number of indexed samples.
func (t *Table) Len() int { return len(t.samples) }

// Lookup returns the sample for the bucket of obs.  ok is false when the
// table has no sample there.
func (t *Table) Lookup(obs time.Time) (s Sample, ok bool) {
	s, ok = t.samples[Bucket(obs, t.Increment)]
	return
}

// Range returns the query range covering times: midnight of the first
// calendar date through midnight after the last.  The extra day covers
// late evening times that round into the next day.  Zero times are
// ignored; ok is false if there are none.
func Range(times []time.Time) (start, stop time.Time, ok bool) {
	for _, t := range times {
		if t.IsZero() {
			continue
		}
		y, m, dd := t.UTC().Date()
		d := time.Date(y, m, dd, 0, 0, 0, 0, time.UTC)
		if !ok || d.Before(start) {
			start = d
		}
		if !ok || d.After(stop) {
			stop = d
		}
		ok = true
	}
	if ok {
		stop = stop.AddDate(0, 0, 1)
	}
	return
}
