// Public domain.

package ephemeris

import (
	"math"
	"time"

	"github.com/soniakeys/astro"
	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/unit"
)

// mjdOffset converts a Julian day to a modified Julian day.
const mjdOffset = 2400000.5

// PhaseAngle computes the sun-target-observer angle for a geocentric
// observer from the two distances and the sun-earth distance at t.
func PhaseAngle(t time.Time, r, delta float64) unit.Angle {
	var sunEarth coord.Cart
	sunEarth, _, _ = astro.Se2000(julian.TimeToJD(t) - mjdOffset)
	c := (r*r + delta*delta - sunEarth.Square()) / (2 * r * delta)
	// rounding can leave c just outside [-1, 1] for nearly collinear bodies
	c = math.Max(-1, math.Min(1, c))
	return unit.Angle(math.Acos(c))
}

// fillPhase derives missing phase angles, marked NaN.
func fillPhase(ss []Sample) {
	for i := range ss {
		if math.IsNaN(ss[i].Phase.Rad()) {
			ss[i].Phase = PhaseAngle(ss[i].Time, ss[i].R, ss[i].Delta)
		}
	}
}
