// Public domain.

// Package icqprog is the icqsplitter command.
package icqprog

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/curtisa1/icqsplitter/internal/config"
	"github.com/curtisa1/icqsplitter/internal/logging"
)

const versionString = "icqsplitter version 1.0 Go source."
const copyrightString = "Public domain."

// Options are shared by every subcommand.
type Options struct {
	ConfigFile string
	v          *viper.Viper
}

// Main runs the command and exits.
func Main() {
	defer exit.Handler()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if err := NewRootCommand().ExecuteContext(ctx); err != nil {
		exit.Log(err)
	}
}

// NewRootCommand returns the root command with its subcommands.
func NewRootCommand() *cobra.Command {
	opts := &Options{v: config.New()}
	cmd := &cobra.Command{
		Use:   "icqsplitter",
		Short: "Filter, correct and split comet magnitude observations",
		Long: `icqsplitter reads comet brightness observations in the 80 column ICQ
format, removes observations that fail field standard quality checks,
optionally corrects magnitudes for observer distance and phase angle, and
optionally fits a light curve while solving for observer offsets, before
and after perihelion.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigFile, "config", "c", "", "config file (default ./icqsplitter.yaml)")
	pf.String("log-level", "info", "log level (debug|info|warn|error)")
	pf.String("log-format", "console", "log format (console|json)")
	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return opts.bind(cmd.Root(), map[string]string{
			"log-level":  "log.level",
			"log-format": "log.format",
		})
	}

	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEphemCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewVersionCommand())
	return cmd
}

// bind ties flags of cmd to config keys.  A flag left unset does not
// override the file or environment.  Commands bind when they run, so
// commands sharing a key do not steal each other's flag.
func (o *Options) bind(cmd *cobra.Command, keys map[string]string) error {
	for name, key := range keys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			f = cmd.PersistentFlags().Lookup(name)
		}
		if err := o.v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("flag %s: %w", name, err)
		}
	}
	return nil
}

// load reads the configuration and builds the logger.
func (o *Options) load() (*config.Config, *zap.Logger, error) {
	c, err := config.Load(o.v, o.ConfigFile)
	if err != nil {
		return nil, nil, err
	}
	log, err := logging.New(c.Log.Level, c.Log.Format, c.Log.Output)
	if err != nil {
		return nil, nil, err
	}
	return c, log, nil
}

// NewVersionCommand returns the version command.
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString)
			fmt.Fprintln(cmd.OutOrStdout(), copyrightString)
		},
	}
}
