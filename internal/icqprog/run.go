// Public domain.

package icqprog

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/splitter"
)

// NewRunCommand returns the run command.
func NewRunCommand(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [input]",
		Short: "Filter, correct and fit an observation file",
		Long: `Run reads the input observations, writes the kept and removed
observations, and with --heliocentric or --phase corrects the kept
magnitudes using an ephemeris.  --stats fits the light curve before and
after perihelion, solving for observer offsets and dropping observers
whose residuals drift.`,
		Args: cobra.MaximumNArgs(1),
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bind(cmd, map[string]string{
				"heliocentric": "heliocentric",
				"phase":        "phase",
				"stats":        "stats",
				"plot":         "plot",
				"ccd":          "ccd",
				"perihelion":   "perihelion",
				"target":       "target",
				"out":          "outputs.dir",
			})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				opts.v.Set("input", args[0])
			}
			c, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			if c.Input == "" {
				return config.ErrNoInput
			}
			res, err := splitter.Run(cmd.Context(), c, splitter.NewSource(c, log), log)
			if err != nil {
				return err
			}
			log.Info("run complete",
				zap.String("run", res.ID),
				zap.Int("kept", res.Kept.Len()),
				zap.Int("removed", res.Removed.Len()))
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolP("heliocentric", "H", false, "correct for observer distance")
	f.BoolP("phase", "p", false, "correct for phase angle")
	f.BoolP("stats", "s", false, "fit the light curve and observer offsets")
	f.Bool("plot", false, "plot the light curve")
	f.Bool("ccd", false, "CCD magnitudes only; skip visual method checks")
	f.String("perihelion", "", "perihelion date, YYYY/MM/DD")
	f.String("target", "", "Horizons target, for example \"902014;\"")
	f.StringP("out", "o", ".", "output directory")
	return cmd
}
