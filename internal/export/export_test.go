// Public domain.

package export_test

import (
	"bytes"
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gopkg.in/yaml.v3"

	"github.com/curtisa1/icqsplitter/internal/correct"
	"github.com/curtisa1/icqsplitter/internal/export"
	"github.com/curtisa1/icqsplitter/internal/icq"
	"github.com/curtisa1/icqsplitter/internal/icq/icqtest"
	"github.com/curtisa1/icqsplitter/internal/record"
	"github.com/curtisa1/icqsplitter/internal/regress"
)

func parse(t *testing.T, f icqtest.Fields) icq.Observation {
	t.Helper()
	o, err := icq.ParseLine(icqtest.Line(f))
	require.NoError(t, err)
	return o
}

type fixture struct {
	store *record.Store
	rows  []correct.Row
	rm    *record.Removed
}

func newFixture(t *testing.T) *fixture {
	o1 := parse(t, icqtest.Visual("ABC01", 1997, 3, 20.1, 6, 20))
	o2 := parse(t, icqtest.Visual("XYZ02", 1997, 3, 21.1, 7.5, 10))
	o3 := parse(t, icqtest.Visual("XYZ02", 1997, 3, 22.1, 7.5, 10).With(icq.FMag, ""))
	rm := &record.Removed{}
	rm.Add(o3, record.NoMagnitude)
	rm.Add(o1, record.MagnitudeMethod)
	return &fixture{
		store: record.NewStore([]icq.Observation{o1, o2}),
		rows: []correct.Row{
			{R: 1.5, Delta: 10, Phase: unit.AngleFromDeg(20), MHelio: 1, MPhase: .5},
			{R: 1.25, Delta: 10, Phase: unit.AngleFromDeg(30), MHelio: 2.5, MPhase: 2.25},
		},
		rm: rm,
	}
}

func assertGolden(t *testing.T, name string, tb export.Table) {
	t.Helper()
	var b bytes.Buffer
	require.NoError(t, export.WriteCSV(&b, tb))
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, b.Bytes())
}

func TestKeptCSV(t *testing.T) {
	fx := newFixture(t)
	k := &export.Kept{
		Store:  fx.store,
		Mode:   correct.Mode{Helio: true, Phase: true},
		Rows:   fx.rows,
		MShift: []float64{.75, math.NaN()},
	}
	assertGolden(t, "kept", k.Table())
}

func TestKeptCSVUncorrected(t *testing.T) {
	fx := newFixture(t)
	assertGolden(t, "kept_plain", (&export.Kept{Store: fx.store}).Table())
}

func TestRemovedCSV(t *testing.T) {
	assertGolden(t, "removed", export.RemovedTable(newFixture(t).rm))
}

func solvedPre(fx *fixture) *regress.Result {
	pts := make([]regress.Point, fx.store.Len())
	for i := range pts {
		pts[i] = regress.Point{
			Row:      i,
			Observer: fx.store.Observer(i),
			Time:     fx.store.Time(i),
			R:        fx.rows[i].R,
			Mag:      fx.rows[i].Input(),
		}
	}
	return &regress.Result{
		Label:  "pre",
		Points: pts,
		Fit: &regress.ShiftFit{
			Coef:      regress.Poly{0, 0, 0, 0, 1, 2},
			MShift:    []float64{.75, 2},
			Residual:  []float64{-.125, .125},
			Observers: map[string]regress.ObserverStats{},
		},
		Outer:   1,
		Settled: true,
	}
}

func TestStatsCSV(t *testing.T) {
	fx := newFixture(t)
	s := &export.Stats{
		Result: solvedPre(fx),
		Store:  fx.store,
		Rows:   fx.rows,
		Mode:   correct.Mode{Helio: true, Phase: true},
		Pre:    true,
	}
	assertGolden(t, "pre", s.Table())
}

func TestStatsCSVEmptyPartition(t *testing.T) {
	fx := newFixture(t)
	s := &export.Stats{
		Result: &regress.Result{Label: "post", Settled: true},
		Store:  fx.store,
		Rows:   fx.rows,
		Mode:   correct.Mode{Helio: true},
	}
	tb := s.Table()
	assert.Len(t, tb, 1)
	assertGolden(t, "post_empty", tb)
}

func TestWriteCSVFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "removed.csv")
	require.NoError(t, export.WriteCSVFile(path, export.RemovedTable(newFixture(t).rm)))
	assert.FileExists(t, path)
}

func TestWorkbook(t *testing.T) {
	fx := newFixture(t)
	kept := (&export.Kept{Store: fx.store}).Table()
	path := filepath.Join(t.TempDir(), "comet.xlsx")
	require.NoError(t, export.WriteWorkbook(path, []export.Sheet{
		{Name: "kept", Table: kept},
		{Name: "removed", Table: export.RemovedTable(fx.rm)},
	}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"kept", "removed"}, f.GetSheetList())

	v, err := f.GetCellValue("kept", "A1")
	require.NoError(t, err)
	assert.Equal(t, icq.Columns[icq.FApparition].Heading, v)
	cell, err := excelize.CoordinatesToCellName(icq.FObserver+1, 3)
	require.NoError(t, err)
	v, err = f.GetCellValue("kept", cell)
	require.NoError(t, err)
	assert.Equal(t, "XYZ02", v)
	cell, err = excelize.CoordinatesToCellName(icq.NumFields+2, 2)
	require.NoError(t, err)
	v, err = f.GetCellValue("removed", cell)
	require.NoError(t, err)
	assert.Equal(t, "No magnitude reported", v)
}

func TestWorkbookNoSheets(t *testing.T) {
	assert.Error(t, export.WriteWorkbook(filepath.Join(t.TempDir(), "x.xlsx"), nil))
}

func TestReport(t *testing.T) {
	fx := newFixture(t)
	rep := &export.Report{
		Run:        "run-1",
		Started:    time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Input:      "comet.txt",
		Magnitude:  correct.Mode{Helio: true, Phase: true}.Input(),
		Perihelion: time.Date(1997, 4, 1, 0, 0, 0, 0, time.UTC),
		Read:       3,
		Kept:       2,
		Removed:    fx.rm.Len(),
		RemovedBy:  export.CountRemoved(fx.rm),
		Partitions: []export.Partition{
			export.NewPartition(solvedPre(fx)),
			export.NewPartition(&regress.Result{Label: "post", Settled: true}),
		},
	}
	var b bytes.Buffer
	require.NoError(t, export.WriteReport(&b, rep))
	assert.Contains(t, b.String(), "magnitude: mph\n")
	assert.Contains(t, b.String(), "No magnitude reported: 1")

	var back export.Report
	require.NoError(t, yaml.Unmarshal(b.Bytes(), &back))
	assert.Equal(t, rep.Run, back.Run)
	assert.True(t, rep.Perihelion.Equal(back.Perihelion))
	assert.Equal(t, 2, back.Kept)
	require.Len(t, back.Partitions, 2)
	assert.Equal(t, []float64{0, 0, 0, 0, 1, 2}, back.Partitions[0].Coefficients)
	assert.Equal(t, 2, back.Partitions[0].Points)
	assert.True(t, back.Partitions[1].Settled)
	assert.Empty(t, back.Partitions[1].Coefficients)
}
