// Public domain.

package lightcurve_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/icq/icqtest"
	"github.com/curtisa1/icqsplitter/internal/lightcurve"
	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

func data(t *testing.T) *lightcurve.Data {
	var obs []icq.Observation
	var rows []correct.Row
	for d := 1; d <= 6; d++ {
		o, err := icq.ParseLine(icqtest.Line(icqtest.Visual("ABC01", 1997, 3, float64(d)+.1, 6+float64(d)/10, 20)))
		require.NoError(t, err)
		obs = append(obs, o)
		r := 2 - float64(d)/10
		rows = append(rows, correct.Row{R: r, Delta: 1, Phase: unit.AngleFromDeg(30), MHelio: o.Mag, MPhase: o.Mag - .5})
	}
	s := record.NewStore(obs)
	pts := make([]regress.Point, s.Len())
	for i := range pts {
		pts[i] = regress.Point{Row: i, Observer: s.Observer(i), Time: s.Time(i), R: rows[i].R, Mag: rows[i].Input()}
	}
	return &lightcurve.Data{
		Title: "C/1995 O1",
		Store: s,
		Rows:  rows,
		Mode:  correct.Mode{Helio: true, Phase: true},
		Apparition: &regress.Apparition{
			Perihelion: time.Date(1997, 3, 3, 0, 0, 0, 0, time.UTC),
			Pre: &regress.Result{
				Label:  "pre",
				Points: pts[:3],
				Fit: &regress.ShiftFit{
					Coef:   regress.Poly{0, 0, 0, 0, 5, 6},
					MShift: []float64{6, 6.1, 6.2},
				},
			},
			Post: &regress.Result{Label: "post"},
		},
	}
}

func TestSavePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "curve.png")
	require.NoError(t, lightcurve.Save(data(t), path))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("\x89PNG")))
}

func TestUncorrected(t *testing.T) {
	d := data(t)
	d.Mode = correct.Mode{}
	d.Apparition = nil
	_, err := lightcurve.New(d)
	assert.NoError(t, err)
}

func TestRowsMismatch(t *testing.T) {
	d := data(t)
	d.Rows = d.Rows[:2]
	_, err := lightcurve.New(d)
	assert.Error(t, err)
}
