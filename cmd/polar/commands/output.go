package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// renderOutput writes value in the --output format, using renderTable for
// the table format.
func renderOutput(w io.Writer, value any, renderTable func(io.Writer) error) error {
	switch viper.GetString("output") {
	case constants.FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		return encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(w)
		defer func() { _ = encoder.Close() }()

		return encoder.Encode(value)
	case constants.FormatTable, "":
		return renderTable(w)
	default:
		return fmt.Errorf("%w: %q", constants.ErrInvalidOutputFormat, viper.GetString("output"))
	}
}

// renderDetails renders property/value rows as a two-column table.
func renderDetails(w io.Writer, rows [][2]string) error {
	table := tablewriter.NewWriter(w)
	table.Header("Property", "Value")

	for _, row := range rows {
		_ = table.Append(row[0], row[1])
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderList renders a table of items, or message when there are none.
func renderList[T any](w io.Writer, items []T, info polar.PageInfo, message string, header []any, row func(T) []any) error {
	if len(items) == 0 {
		_, _ = fmt.Fprintln(w, message)

		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header(header...)

	for _, item := range items {
		_ = table.Append(row(item)...)
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	renderListFooter(w, len(items), info)

	return nil
}

func renderListFooter(w io.Writer, shown int, info polar.PageInfo) {
	switch {
	case info.TotalCount != nil:
		_, _ = fmt.Fprintf(w, "Showing %d of %d\n", shown, *info.TotalCount)
	case info.HasMore:
		_, _ = fmt.Fprintf(w, "Showing %d, more available (use --limit)\n", shown)
	}
}

// formatMoney formats an amount in minor units, e.g. 1500 "usd" as "15.00 USD".
func formatMoney(amount int64, currency string) string {
	formatted := decimal.New(amount, -2).StringFixed(2)
	if currency == "" {
		return formatted
	}

	return formatted + " " + strings.ToUpper(currency)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return constants.NotAvailable
	}

	return t.Local().Format(constants.DateTimeLayout)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return constants.NotAvailable
	}

	return formatTime(*t)
}

func valueOrNA(s string) string {
	if s == "" {
		return constants.NotAvailable
	}

	return s
}

func stringOrNA(s *string) string {
	if s == nil {
		return constants.NotAvailable
	}

	return valueOrNA(*s)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "no"
}
