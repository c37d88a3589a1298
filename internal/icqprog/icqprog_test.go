// Public domain.

package icqprog_test

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/soniakeys/unit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/ephemeris"
	"github.com/curtisa1/icqsplitter/internal/icq/icqtest"
	"github.com/curtisa1/icqsplitter/internal/icqprog"
)

func TestCommandPresence(t *testing.T) {
	cmd := icqprog.NewRootCommand()
	assert.Equal(t, "icqsplitter", cmd.Use)
	for _, name := range []string{"run", "ephem", "history", "version"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestRunFlags(t *testing.T) {
	cmd := icqprog.NewRootCommand()
	run, _, err := cmd.Find([]string{"run"})
	require.NoError(t, err)
	for flag, short := range map[string]string{"heliocentric": "H", "phase": "p", "stats": "s", "plot": "", "ccd": "", "out": "o"} {
		f := run.Flags().Lookup(flag)
		require.NotNil(t, f, flag)
		assert.Equal(t, short, f.Shorthand)
	}
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config"))
}

func execute(t *testing.T, args ...string) (string, error) {
	cmd := icqprog.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "icqsplitter version"))
}

// workspace writes an input file, an ephemeris CSV and a config using the
// CSV, and changes to the directory so the default config is found.
func workspace(t *testing.T) string {
	dir := t.TempDir()
	var lines []string
	for d := 1; d <= 3; d++ {
		lines = append(lines, icqtest.Line(icqtest.Visual("AAA01", 1996, 6, float64(d)+.5, 7, 20)))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "obs.txt"), []byte(strings.Join(lines, "\n")), 0644))
	var ss []ephemeris.Sample
	for d := 1; d <= 3; d++ {
		ss = append(ss, ephemeris.Sample{
			Time:  time.Date(1996, 6, d, 12, 0, 0, 0, time.UTC),
			R:     1.5,
			Delta: 10,
			Phase: unit.AngleFromDeg(20),
		})
	}
	f, err := os.Create(filepath.Join(dir, "ephem.csv"))
	require.NoError(t, err)
	require.NoError(t, ephemeris.WriteCSV(f, ss))
	require.NoError(t, f.Close())
	cfg := "ephemeris:\n  source: file\n  file: " + filepath.Join(dir, "ephem.csv") +
		"\noutputs:\n  archive: runs.db\nlog:\n  output: " + filepath.Join(dir, "run.log") + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icqsplitter.yaml"), []byte(cfg), 0644))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestRunAndHistory(t *testing.T) {
	dir := workspace(t)
	_, err := execute(t, "run", "obs.txt", "--heliocentric", "--out", "out")
	require.NoError(t, err)

	b, err := os.ReadFile(filepath.Join(dir, "out", "keepers.csv"))
	require.NoError(t, err)
	rows := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, rows, 4)
	// 7 - 5 log10 10
	assert.True(t, strings.HasSuffix(rows[1], ",2.0000"), rows[1])

	out, err := execute(t, "history", "--archive", filepath.Join("out", "runs.db"))
	require.NoError(t, err)
	assert.Contains(t, out, "obs.txt")
}

func TestRunNeedsInput(t *testing.T) {
	workspace(t)
	_, err := execute(t, "run")
	assert.ErrorIs(t, err, config.ErrNoInput)
}

func TestRunStatsNeedsCorrection(t *testing.T) {
	workspace(t)
	_, err := execute(t, "run", "obs.txt", "--stats", "--perihelion", "1996/06/02")
	assert.ErrorIs(t, err, config.ErrStatsNeedsCorrection)
}

func TestEphem(t *testing.T) {
	dir := workspace(t)
	_, err := execute(t, "ephem", "--start", "1996-06-02", "--stop", "1996-06-03 12:00", "-o", "e.csv")
	require.NoError(t, err)
	f, err := os.Open(filepath.Join(dir, "e.csv"))
	require.NoError(t, err)
	defer f.Close()
	ss, err := ephemeris.ReadCSV(f)
	require.NoError(t, err)
	require.Len(t, ss, 2)
	assert.Equal(t, time.Date(1996, 6, 2, 12, 0, 0, 0, time.UTC), ss[0].Time)
}

func TestEphemOutput(t *testing.T) {
	workspace(t)
	out, err := execute(t, "ephem", "--start", "1996-06-02", "--stop", "1996-06-03 12:00")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "time,r,delta,phase\n"), out)

	_, err = execute(t, "ephem", "--start", "1996-06-02", "--stop", "1996-06-03 12:00",
		"-o", filepath.Join("missing", "e.csv"))
	assert.ErrorIs(t, err, fs.ErrNotExist)

	if _, serr := os.Stat("/dev/full"); serr == nil {
		_, err = execute(t, "ephem", "--start", "1996-06-02", "--stop", "1996-06-03 12:00", "-o", "/dev/full")
		assert.Error(t, err)
	}
}

func TestEphemRangeFromInput(t *testing.T) {
	workspace(t)
	out, err := execute(t, "ephem", "--config", "icqsplitter.yaml")
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrNoInput)
	assert.Empty(t, out)

	_, err = execute(t, "ephem", "--stop", "1996-06-01", "--start", "1996-06-03")
	assert.ErrorContains(t, err, "before start")
}
