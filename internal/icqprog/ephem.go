// Public domain.

package icqprog

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/ephemeris"
	"github.com/curtisa1/icqsplitter/internal/splitter"
)

type ephemOptions struct {
	start, stop string
	output      string
}

// NewEphemCommand returns the ephem command.
func NewEphemCommand(opts *Options) *cobra.Command {
	eo := &ephemOptions{}
	cmd := &cobra.Command{
		Use:   "ephem",
		Short: "Fetch an ephemeris to a CSV file",
		Long: `Ephem fetches the configured target's ephemeris from Horizons on the
configured grid and writes it as CSV, for later runs with
ephemeris.source: file.  The range defaults to the dates of the input
observations.`,
		Args: cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bind(cmd, map[string]string{"target": "target"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if c.Ephemeris.Source == "horizons" && c.Target == "" {
				return config.ErrNoTarget
			}
			start, stop, err := eo.dates(c, log)
			if err != nil {
				return err
			}
			ss, err := splitter.NewSource(c, log).Samples(cmd.Context(), start, stop, c.Ephemeris.IncrementDuration())
			if err != nil {
				return err
			}
			if err := writeSamples(cmd.OutOrStdout(), eo.output, ss); err != nil {
				return err
			}
			log.Info("ephemeris written", zap.Int("samples", len(ss)), zap.String("output", eo.output))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&eo.start, "start", "", "first date (default from input)")
	f.StringVar(&eo.stop, "stop", "", "last date (default from input)")
	f.StringVarP(&eo.output, "output", "o", "-", "output file, - for standard output")
	f.String("target", "", "Horizons target")
	return cmd
}

func (eo *ephemOptions) dates(c *config.Config, log *zap.Logger) (start, stop time.Time, err error) {
	if eo.start != "" || eo.stop != "" {
		if start, err = config.ParseTime(eo.start); err != nil {
			return
		}
		if stop, err = config.ParseTime(eo.stop); err != nil {
			return
		}
		if stop.Before(start) {
			err = fmt.Errorf("stop %s before start %s", eo.stop, eo.start)
		}
		return
	}
	if c.Input == "" {
		err = config.ErrNoInput
		return
	}
	obs, _, err := splitter.ReadInput(c.Input, log)
	if err != nil {
		return
	}
	times := make([]time.Time, len(obs))
	for i := range obs {
		times[i] = obs[i].Time
	}
	start, stop, ok := ephemeris.Range(times)
	if !ok {
		err = fmt.Errorf("%s: no readable observation dates", c.Input)
	}
	return
}

// writeSamples writes ss as CSV to the file path, or to w when path is "-".
func writeSamples(w io.Writer, path string, ss []ephemeris.Sample) (err error) {
	if path == "-" {
		return ephemeris.WriteCSV(w, ss)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return ephemeris.WriteCSV(f, ss)
}
