package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/polar-client/internal/constants"
	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// listFlags are the filter, sort and paging flags shared by list commands.
type listFlags struct {
	filters  []string
	in       []string
	ranges   []string
	sort     string
	pageSize int
	limit    int
}

func (f *listFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "filter by field equality, e.g. --filter is_archived=false (repeatable)")
	cmd.Flags().StringArrayVar(&f.in, "in", nil, "filter by membership, e.g. --in status=active,trialing (repeatable)")
	cmd.Flags().StringArrayVar(&f.ranges, "range", nil, "filter by inclusive range, e.g. --range created_at=2024-01-01..2024-06-30 (repeatable)")
	cmd.Flags().StringVar(&f.sort, "sort", "", "sort field, optionally with :asc or :desc, e.g. created_at:desc")
	cmd.Flags().IntVar(&f.pageSize, "page-size", 0, fmt.Sprintf("items per request, 1 to %d", constants.MaxPageSize))
	cmd.Flags().IntVar(&f.limit, "limit", 0, "maximum number of items, fetching further pages as needed (0 for the first page only)")
}

// query applies the flags to base.
func (f *listFlags) query(base polar.QueryBuilder) (polar.QueryBuilder, error) {
	q := base

	for _, filter := range f.filters {
		field, value, err := splitAssignment(filter)
		if err != nil {
			return q, err
		}

		q = q.WithField(field, value)
	}

	for _, in := range f.in {
		field, value, err := splitAssignment(in)
		if err != nil {
			return q, err
		}

		q = q.WithIn(field, splitList(value))
	}

	for _, r := range f.ranges {
		field, gte, lte, err := parseRange(r)
		if err != nil {
			return q, err
		}

		q = q.WithRange(field, gte, lte)
	}

	if f.sort != "" {
		field, ascending, err := parseSort(f.sort)
		if err != nil {
			return q, err
		}

		q = q.WithSort(field, ascending)
	}

	if f.pageSize != 0 {
		q = q.WithPageSize(f.pageSize)
	}

	return q, q.Err()
}

func splitAssignment(s string) (string, string, error) {
	field, value, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)

	if !ok || field == "" {
		return "", "", fmt.Errorf("%w: %q", constants.ErrInvalidFilterFormat, s)
	}

	return field, strings.TrimSpace(value), nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	values := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}

	return values
}

// parseRange parses field=min..max where either bound may be omitted.
func parseRange(s string) (string, any, any, error) {
	field, bounds, ok := strings.Cut(s, "=")
	field = strings.TrimSpace(field)

	if !ok || field == "" {
		return "", nil, nil, fmt.Errorf("%w: %q", constants.ErrInvalidRangeFormat, s)
	}

	lower, upper, ok := strings.Cut(bounds, "..")
	if !ok {
		return "", nil, nil, fmt.Errorf("%w: %q", constants.ErrInvalidRangeFormat, s)
	}

	gte, lte := parseBound(lower), parseBound(upper)
	if gte == nil && lte == nil {
		return "", nil, nil, fmt.Errorf("%w: %q", constants.ErrInvalidRangeFormat, s)
	}

	return field, gte, lte, nil
}

// parseBound types a range bound so bounds compare correctly: numbers as
// decimals, dates and timestamps as times, anything else as a string.
func parseBound(s string) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	if d, err := decimal.NewFromString(s); err == nil {
		return d
	}

	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	return s
}

// parseSort parses "field", "field:asc", "field:desc" or "-field".
func parseSort(s string) (string, bool, error) {
	s = strings.TrimSpace(s)

	if field, ok := strings.CutPrefix(s, "-"); ok {
		if field == "" {
			return "", false, fmt.Errorf("%w: %q", constants.ErrInvalidSortFormat, s)
		}

		return field, false, nil
	}

	field, direction, _ := strings.Cut(s, ":")
	if field == "" {
		return "", false, fmt.Errorf("%w: %q", constants.ErrInvalidSortFormat, s)
	}

	switch strings.ToLower(direction) {
	case "", "asc":
		return field, true, nil
	case "desc":
		return field, false, nil
	default:
		return "", false, fmt.Errorf("%w: %q", constants.ErrInvalidSortFormat, s)
	}
}

// exportFlags are the flags shared by export commands.
type exportFlags struct {
	format  string
	timeout time.Duration
	listFlags
}

func (f *exportFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.format, "format", constants.DefaultExportFormat, "export format (csv, json, excel)")
	cmd.Flags().DurationVar(&f.timeout, "timeout", constants.DefaultExportTimeout, "how long to wait for the export to finish")
	cmd.Flags().StringArrayVar(&f.filters, "filter", nil, "export only items matching field=value (repeatable)")
	cmd.Flags().StringArrayVar(&f.in, "in", nil, "export only items with field in v1,v2 (repeatable)")
	cmd.Flags().StringArrayVar(&f.ranges, "range", nil, "export only items with field in min..max (repeatable)")
}

func (f *exportFlags) options(base polar.QueryBuilder) (*polar.ExportOptions, error) {
	format, err := polar.ParseExportFormat(f.format)
	if err != nil {
		return nil, err
	}

	q, err := f.query(base)
	if err != nil {
		return nil, err
	}

	return &polar.ExportOptions{
		Format: format,
		Query:  q,
		Poll:   polar.PollOptions{Timeout: f.timeout},
	}, nil
}
