package commands

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// NewExportsCommand creates the exports command group.
func NewExportsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "exports",
		Aliases: []string{"export"},
		Short:   "Inspect export jobs",
		Long:    "Check on export jobs submitted by the export subcommands of each resource",
	}

	cmd.AddCommand(newExportsGetCommand())
	cmd.AddCommand(newExportsWaitCommand())

	return cmd
}

func newExportsGetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get EXPORT_ID",
		Short: "Get export job status",
		Long:  "Display the current state of an export job without waiting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				job, err := c.Exports().Get(cmd.Context(), args[0])
				if err != nil {
					return fmt.Errorf("failed to get export: %w", err)
				}

				return renderOutput(cmd.OutOrStdout(), job, func(w io.Writer) error {
					return renderDetails(w, exportJobRows(job))
				})
			})
		},
	}
}

func newExportsWaitCommand() *cobra.Command {
	var (
		timeout  time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "wait EXPORT_ID",
		Short: "Wait for an export job",
		Long:  "Poll an export job until it is ready or failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withClient(func(c *client.Client) error {
				job, err := c.Exports().Await(cmd.Context(), args[0], polar.PollOptions{Timeout: timeout, Interval: interval})
				if err != nil {
					var timeoutErr *polar.TimeoutError
					if errors.As(err, &timeoutErr) {
						return fmt.Errorf("%w; run the command again to keep waiting", err)
					}

					return fmt.Errorf("failed to wait for export: %w", err)
				}

				return outputExportJob(cmd.OutOrStdout(), job)
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", constants.DefaultExportTimeout, "how long to wait")
	cmd.Flags().DurationVar(&interval, "interval", constants.DefaultPollInterval, "initial delay between status checks")

	return cmd
}
