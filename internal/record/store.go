// Public domain.

// Package record holds observations in a columnar table with row-parallel
// columns, and the table of removed observations with their reasons.
package record

import (
	"fmt"
	"slices"
	"time"

	"github.com/curtisa1/icqsplitter/internal/icq"
)

// Store is a columnar table of observations.  Every column has the same
// length at all times; rows are added and deleted across all columns.
type Store struct {
	fields    [icq.NumFields][]string
	times     []time.Time
	mags      []float64
	apertures []float64
}

// column is a single column, typed or not.
type column interface {
	deleteRow(i int)
	len() int
}

type col[T any] struct{ p *[]T }

func (c col[T]) deleteRow(i int) { *c.p = slices.Delete(*c.p, i, i+1) }
func (c col[T]) len() int        { return len(*c.p) }

func (s *Store) columns() []column {
	cs := make([]column, 0, icq.NumFields+3)
	for f := range s.fields {
		cs = append(cs, col[string]{&s.fields[f]})
	}
	return append(cs,
		col[time.Time]{&s.times},
		col[float64]{&s.mags},
		col[float64]{&s.apertures})
}

// NewStore creates a store holding obs in order.
func NewStore(obs []icq.Observation) *Store {
	s := &Store{}
	for i := range obs {
		s.Append(&obs[i])
	}
	return s
}

// Len returns the number of rows.
func (s *Store) Len() int { return len(s.times) }

// Append adds o as the last row.
func (s *Store) Append(o *icq.Observation) {
	for f := range s.fields {
		s.fields[f] = append(s.fields[f], o.Fields[f])
	}
	s.times = append(s.times, o.Time)
	s.mags = append(s.mags, o.Mag)
	s.apertures = append(s.apertures, o.Aperture)
}

// Row reassembles row i.  It panics if i is out of range.
func (s *Store) Row(i int) icq.Observation {
	s.check(i)
	o := icq.Observation{Time: s.times[i], Mag: s.mags[i], Aperture: s.apertures[i]}
	for f := range s.fields {
		o.Fields[f] = s.fields[f][i]
	}
	return o
}

// Field returns the text of field fx in row i.
func (s *Store) Field(i, fx int) string { return s.fields[fx][i] }

// Time, Mag, Aperture and Observer return values of row i.
func (s *Store) Time(i int) time.Time   { return s.times[i] }
func (s *Store) Mag(i int) float64      { return s.mags[i] }
func (s *Store) Aperture(i int) float64 { return s.apertures[i] }
func (s *Store) Observer(i int) string  { return s.fields[icq.FObserver][i] }

// DeleteRow removes row i from every column.  Rows after i shift down, so
// a pass deleting several rows must run from Len()-1 down to 0.
func (s *Store) DeleteRow(i int) {
	s.check(i)
	for _, c := range s.columns() {
		c.deleteRow(i)
	}
}

// MoveToRemoved copies row i to rm with reason r.  The row is not deleted
// here; pair with DeleteRow.
func (s *Store) MoveToRemoved(i int, r Reason, rm *Removed) {
	rm.Add(s.Row(i), r)
}

// Partition splits the store in one pass.  Rows for which remove returns
// true go to rm, in row order, with the returned reason.  The remaining
// rows are returned as a new store; s is not modified.
func (s *Store) Partition(rm *Removed, remove func(i int) (Reason, bool)) *Store {
	kept := &Store{}
	for i := 0; i < s.Len(); i++ {
		o := s.Row(i)
		if r, ok := remove(i); ok {
			rm.Add(o, r)
			continue
		}
		kept.Append(&o)
	}
	return kept
}

// Select returns a new store holding rows idx of s, in the order given.
func (s *Store) Select(idx []int) *Store {
	sel := &Store{}
	for _, i := range idx {
		o := s.Row(i)
		sel.Append(&o)
	}
	return sel
}

// Validate checks that all columns have equal length.
func (s *Store) Validate() error {
	n := s.Len()
	for cx, c := range s.columns() {
		if c.len() != n {
			return fmt.Errorf("record: column %d has %d rows, want %d", cx, c.len(), n)
		}
	}
	return nil
}

func (s *Store) check(i int) {
	if i < 0 || i >= s.Len() {
		panic(fmt.Sprintf("record: row %d out of range [0,%d)", i, s.Len()))
	}
}
