// Public domain.

// Package filter removes observations that do not meet field standard
// quality criteria.
package filter

import (
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/record"
)

// Filter removes rows from a store.  Apply returns the kept rows as a new
// store and appends removed rows to rm.
type Filter interface {
	Name() string
	Apply(s *record.Store, rm *record.Removed) *record.Store
}

// RowFilter tests rows one at a time.
type RowFilter struct {
	Label string
	Test  func(s *record.Store, i int) (record.Reason, bool)
}

func (f RowFilter) Name() string { return f.Label }

func (f RowFilter) Apply(s *record.Store, rm *record.Removed) *record.Store {
	return s.Partition(rm, func(i int) (record.Reason, bool) { return f.Test(s, i) })
}

// only wraps a single-reason predicate.
func only(label string, r record.Reason, test func(s *record.Store, i int) bool) RowFilter {
	return RowFilter{label, func(s *record.Store, i int) (record.Reason, bool) {
		return r, test(s, i)
	}}
}

// Instrument type codes.
var (
	telescopes = []byte("CRDIJLMqQrSTUWY")
	binoculars = []byte("ABNO")
)

// Magnitude limits below which (brighter than) an instrument type is not
// trusted.
const (
	telescopeLimit = 5.4
	binocularLimit = 1.4
	scCatalogLimit = 8.1
)

var allowedMethods = []byte{
	icq.MethodSidgwick, icq.MethodBobrovnikoff, icq.MethodMorris,
	icq.MethodInOut, icq.MethodExtrafocal,
}

var (
	UnreadableDate = only("unreadable date", record.UnreadableDate,
		func(s *record.Store, i int) bool { return s.Time(i).IsZero() })

	NoMagnitude = only("no magnitude reported", record.NoMagnitude,
		func(s *record.Store, i int) bool { return math.IsNaN(s.Mag(i)) })

	ReverseBinocular = only("reverse binocular method", record.ReverseBinocular,
		func(s *record.Store, i int) bool { return noted(s, i, "r") })

	PoorWeather = only("poor weather", record.PoorWeather,
		func(s *record.Store, i int) bool { return s.Field(i, icq.FPoorConditions) == ":" })

	BadExtinction = only("bad extinction correction", record.BadExtinction,
		func(s *record.Store, i int) bool { return noted(s, i, "&") })

	BrightInstrument = RowFilter{"instrument too large for magnitude",
		func(s *record.Store, i int) (record.Reason, bool) {
			m := s.Mag(i)
			if math.IsNaN(m) {
				return 0, false
			}
			it := s.Field(i, icq.FInstrument)
			switch {
			case len(it) == 0:
				return 0, false
			case slices.Contains(telescopes, it[0]) && m < telescopeLimit:
				return record.BrightTelescope, true
			case slices.Contains(binoculars, it[0]) && m < binocularLimit:
				return record.BrightBinocular, true
			}
			return 0, false
		}}

	MagnitudeMethod = only("magnitude method", record.MagnitudeMethod,
		func(s *record.Store, i int) bool {
			m := s.Field(i, icq.FMethod)
			return len(m) != 1 || !slices.Contains(allowedMethods, m[0])
		})

	// SCCatalog applies the usage limit of the SC comparison star catalog.
	SCCatalog = only("SC catalog on faint comet", record.DimSCCatalog,
		func(s *record.Store, i int) bool {
			return s.Field(i, icq.FCatalog) == "SC" && s.Mag(i) > scCatalogLimit
		})
)

// noted reports whether either special note column holds n.
func noted(s *record.Store, i int, n string) bool {
	return s.Field(i, icq.FNote) == n || s.Field(i, icq.FNote2) == n
}

// Catalogs removes observations made against the listed reference
// catalogs.
func Catalogs(codes []string) RowFilter {
	return only("low tier catalog", record.LowTierCatalog,
		func(s *record.Store, i int) bool {
			return slices.Contains(codes, s.Field(i, icq.FCatalog))
		})
}

// Options select the optional parts of the standard chain.
type Options struct {
	// CCDOnly skips the visual magnitude method and SC catalog checks.
	CCDOnly bool
	// RejectedCatalogs lists catalog codes to remove.  Empty disables the
	// check.
	RejectedCatalogs []string
}

// Chain runs filters in order.
type Chain struct {
	Filters []Filter
	log     *zap.Logger
}

// Standard returns the field standard chain.
func Standard(opt Options, log *zap.Logger) *Chain {
	fs := []Filter{
		UnreadableDate,
		NoMagnitude,
		ReverseBinocular,
		PoorWeather,
		BadExtinction,
		BrightInstrument,
	}
	if len(opt.RejectedCatalogs) > 0 {
		fs = append(fs, Catalogs(opt.RejectedCatalogs))
	}
	if !opt.CCDOnly {
		fs = append(fs, MagnitudeMethod, SCCatalog)
	}
	fs = append(fs, DuplicateNight{})
	return &Chain{Filters: fs, log: log.Named("filter")}
}

// Run applies every filter in turn.  The input store is not modified.
func (c *Chain) Run(s *record.Store) (kept *record.Store, rm *record.Removed) {
	rm = &record.Removed{}
	kept = s
	for _, f := range c.Filters {
		n := rm.Len()
		kept = f.Apply(kept, rm)
		c.log.Info("filter applied",
			zap.String("filter", f.Name()),
			zap.Int("removed", rm.Len()-n),
			zap.Int("remaining", kept.Len()))
	}
	return
}
