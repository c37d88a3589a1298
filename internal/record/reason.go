// Public domain.

package record

import "github.com/curtisa1/icqsplitter/internal/icq"

// Reason identifies why an observation was removed.
type Reason int

const (
	DuplicateNight Reason = iota
	NoMagnitude
	ReverseBinocular
	PoorWeather
	LowTierCatalog
	BrightTelescope
	BrightBinocular
	MagnitudeMethod
	BadExtinction
	DimSCCatalog
	UnreadableDate
	NoEphemeris
	PhaseOutOfTable
	numReasons
)

var reasonText = [numReasons]string{
	"Two entries on the same date by same observer",
	"No magnitude reported",
	"Used reverse binocular observing method",
	"Poor Weather Reported",
	"Used a tier 3 or 4 Source Catalog",
	"Used a telescope under 5.4 magnitude",
	"Used binoculars under 1.4 magnitude",
	"Did not use a magnitude method reported by Green (i.e. column 27 not being S, B, M, I, or E), prioritizing S then M",
	"Bad Extinction Correction used",
	"Observer used SC Catalog for object dimmer than 8.1",
	"Unreadable observation date",
	"No ephemeris sample at observation time",
	"Phase angle outside phase function table",
}

func (r Reason) String() string {
	if r < 0 || r >= numReasons {
		return "Unknown reason"
	}
	return reasonText[r]
}

// Reasons lists every reason in code order.
func Reasons() []Reason {
	rs := make([]Reason, numReasons)
	for i := range rs {
		rs[i] = Reason(i)
	}
	return rs
}

// RemovedMarker is written alongside every removed observation.
const RemovedMarker = "REMOVED POINT"

// Removed is the append-only table of removed observations.
type Removed struct {
	Obs     []icq.Observation
	Reasons []Reason
}

// Add appends o with reason r.
func (rm *Removed) Add(o icq.Observation, r Reason) {
	rm.Obs = append(rm.Obs, o)
	rm.Reasons = append(rm.Reasons, r)
}

// Len returns the number of removed observations.
func (rm *Removed) Len() int { return len(rm.Obs) }

// Count returns the number removed for each reason.
func (rm *Removed) Count() map[Reason]int {
	c := map[Reason]int{}
	for _, r := range rm.Reasons {
		c[r]++
	}
	return c
}
