// Public domain.

package filter

import (
	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/record"
)

// DuplicateNight keeps one observation per observer per night.
//
// Of several observations by one observer on the same calendar date, the
// one with the largest aperture is kept.  Equal apertures fall back on
// magnitude method, Sidgwick first, then Morris, then Bobrovnikoff or
// In-out.  Remaining ties keep the earliest line.
type DuplicateNight struct{}

func (DuplicateNight) Name() string { return "duplicate night" }

type nightKey struct {
	observer string
	night    int
}

func (DuplicateNight) Apply(s *record.Store, rm *record.Removed) *record.Store {
	best := map[nightKey]int{}
	for i := 0; i < s.Len(); i++ {
		if s.Time(i).IsZero() {
			continue
		}
		k := keyOf(s, i)
		if b, ok := best[k]; !ok || better(s, i, b) {
			best[k] = i
		}
	}
	return s.Partition(rm, func(i int) (record.Reason, bool) {
		if s.Time(i).IsZero() {
			return 0, false
		}
		return record.DuplicateNight, best[keyOf(s, i)] != i
	})
}

func keyOf(s *record.Store, i int) nightKey {
	y, m, d := s.Time(i).Date()
	return nightKey{s.Observer(i), (y*100+int(m))*100 + d}
}

// better reports whether row i should be kept over row j.  i > j.
func better(s *record.Store, i, j int) bool {
	if ai, aj := s.Aperture(i), s.Aperture(j); ai != aj {
		return ai > aj
	}
	return methodRank(s.Field(i, icq.FMethod)) < methodRank(s.Field(j, icq.FMethod))
}

func methodRank(m string) int {
	switch m {
	case string(icq.MethodSidgwick):
		return 0
	case string(icq.MethodMorris):
		return 1
	case string(icq.MethodBobrovnikoff), string(icq.MethodInOut):
		return 2
	}
	return 3
}
