// Public domain.

package icqprog

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/curtisa1/icqsplitter/internal/archive"
)

// NewHistoryCommand returns the history command.
func NewHistoryCommand(opts *Options) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs",
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.bind(cmd, map[string]string{"archive": "outputs.archive"})
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			c, log, err := opts.load()
			if err != nil {
				return err
			}
			defer log.Sync()
			p := c.Outputs.Path(c.Outputs.Archive)
			if p == "" {
				return errors.New("no archive configured (outputs.archive)")
			}
			a, err := archive.Open(p)
			if err != nil {
				return err
			}
			defer a.Close()
			runs, err := a.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 8, 2, ' ', 0)
			fmt.Fprintln(tw, "RUN\tSTARTED\tINPUT\tKEPT\tREMOVED")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\n",
					r.ID, r.Started.Format("2006-01-02 15:04:05"), r.Input, r.Kept, r.Removed)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "runs to list")
	cmd.Flags().String("archive", "", "archive database")
	return cmd
}
