package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/client"
	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// Static errors of the commands package.
var (
	ErrConfirmationRequired = errors.New("confirmation required")
)

// withClient creates a client, runs fn and releases the client.
func withClient(fn func(*client.Client) error) error {
	c, err := CreateClient()
	if err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}

// listResources lists one collection with base extended by flags and renders
// the result.
func listResources[T any](cmd *cobra.Command, flags *listFlags, base polar.QueryBuilder, lister polar.Lister[T], name string, renderTable func(io.Writer, *polar.ListResult[T]) error) error {
	query, err := flags.query(base)
	if err != nil {
		return err
	}

	result, err := lister.List(cmd.Context(), query, flags.limit)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", name, err)
	}

	return renderOutput(cmd.OutOrStdout(), result, func(w io.Writer) error {
		return renderTable(w, result)
	})
}

type exportFunc func(ctx context.Context, opts *polar.ExportOptions) (*polar.ExportJob, error)

// runExport submits an export, waits for it and renders the finished job.
func runExport(cmd *cobra.Command, flags *exportFlags, base polar.QueryBuilder, name string, export exportFunc) error {
	opts, err := flags.options(base)
	if err != nil {
		return err
	}

	job, err := export(cmd.Context(), opts)
	if err != nil {
		var timeoutErr *polar.TimeoutError
		if errors.As(err, &timeoutErr) {
			return fmt.Errorf("%w; resume with 'polar exports wait %s'", err, timeoutErr.JobID)
		}

		return fmt.Errorf("failed to export %s: %w", name, err)
	}

	return outputExportJob(cmd.OutOrStdout(), job)
}

// outputExportJob renders job and reports a failed job as an error.
func outputExportJob(w io.Writer, job *polar.ExportJob) error {
	err := renderOutput(w, job, func(w io.Writer) error {
		return renderDetails(w, exportJobRows(job))
	})
	if err != nil {
		return err
	}

	if job.Status == polar.ExportStatusFailed {
		reason := "no reason given"
		if job.Error != nil {
			reason = *job.Error
		}

		return fmt.Errorf("%w: %s: %s", constants.ErrExportFailed, job.ID, reason)
	}

	return nil
}

func exportJobRows(job *polar.ExportJob) [][2]string {
	rows := [][2]string{
		{"ID", job.ID},
		{"Status", string(job.Status)},
		{"Format", valueOrNA(string(job.Format))},
		{"Created", formatTimePtr(job.CreatedAt)},
		{"Completed", formatTimePtr(job.CompletedAt)},
	}

	if job.ExportURL != nil {
		rows = append(rows, [2]string{"URL", *job.ExportURL})
	}

	if job.RecordCount != nil {
		rows = append(rows, [2]string{"Records", strconv.FormatInt(*job.RecordCount, 10)})
	}

	if job.SizeBytes != nil {
		rows = append(rows, [2]string{"Size (bytes)", strconv.FormatInt(*job.SizeBytes, 10)})
	}

	if job.Error != nil {
		rows = append(rows, [2]string{"Error", *job.Error})
	}

	return rows
}

func metadataRows(metadata polar.Metadata) [][2]string {
	rows := make([][2]string, 0, len(metadata))
	for _, key := range slices.Sorted(maps.Keys(metadata)) {
		rows = append(rows, [2]string{"Metadata " + key, metadata[key]})
	}

	return rows
}
