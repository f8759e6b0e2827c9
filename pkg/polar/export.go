package polar

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/polar-client/internal/constants"
)

// ExportFormat is the file format of an export.
type ExportFormat string

// Supported export formats.
const (
	ExportFormatCSV   ExportFormat = "csv"
	ExportFormatJSON  ExportFormat = "json"
	ExportFormatExcel ExportFormat = "excel"
)

// Valid reports whether the format is supported.
func (f ExportFormat) Valid() bool {
	switch f {
	case ExportFormatCSV, ExportFormatJSON, ExportFormatExcel:
		return true
	default:
		return false
	}
}

// ParseExportFormat parses a case-insensitive format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	f := ExportFormat(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", invalidArgument("format", s, "expected csv, json or excel")
	}

	return f, nil
}

// ExportStatus is the lifecycle state of an export job.
type ExportStatus string

// Export job states. Ready and failed are terminal.
const (
	ExportStatusPending    ExportStatus = "pending"
	ExportStatusProcessing ExportStatus = "processing"
	ExportStatusReady      ExportStatus = "ready"
	ExportStatusFailed     ExportStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s ExportStatus) IsTerminal() bool {
	return s == ExportStatusReady || s == ExportStatusFailed
}

func (s ExportStatus) rank() int {
	switch s {
	case ExportStatusPending:
		return 0
	case ExportStatusProcessing:
		return 1
	case ExportStatusReady, ExportStatusFailed:
		return 2
	default:
		return -1
	}
}

// ExportJob is a server-side export. ExportURL, SizeBytes and RecordCount are
// set once the job is ready; Error is set once it has failed.
type ExportJob struct {
	ID          string       `json:"id"                     yaml:"id"`
	Status      ExportStatus `json:"status"                 yaml:"status"`
	Format      ExportFormat `json:"format,omitempty"       yaml:"format,omitempty"`
	ExportURL   *string      `json:"export_url,omitempty"   yaml:"export_url,omitempty"`
	SizeBytes   *int64       `json:"size,omitempty"         yaml:"size,omitempty"`
	RecordCount *int64       `json:"record_count,omitempty" yaml:"record_count,omitempty"`
	Error       *string      `json:"error,omitempty"        yaml:"error,omitempty"`
	CreatedAt   *time.Time   `json:"created_at,omitempty"   yaml:"created_at,omitempty"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

// IsTerminal reports whether the job is ready or failed.
func (j *ExportJob) IsTerminal() bool {
	return j.Status.IsTerminal()
}

func (j *ExportJob) validate() error {
	if j.ID == "" {
		return ErrMissingJobID
	}

	switch j.Status {
	case ExportStatusPending, ExportStatusProcessing:
		return nil
	case ExportStatusReady:
		if j.ExportURL == nil || j.SizeBytes == nil || j.RecordCount == nil {
			return fmt.Errorf("%w: ready job %s needs export_url, size and record_count", ErrIncompleteJob, j.ID)
		}
	case ExportStatusFailed:
		if j.Error == nil {
			return fmt.Errorf("%w: failed job %s has no error", ErrIncompleteJob, j.ID)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobStatus, j.Status)
	}

	return nil
}

// PollOptions controls AwaitCompletion. Zero fields take defaults.
type PollOptions struct {
	// Interval is the delay before the second poll.
	Interval time.Duration
	// MaxInterval caps the delay between polls.
	MaxInterval time.Duration
	// BackoffFactor multiplies the delay after each poll. Values below 1 keep
	// the delay fixed.
	BackoffFactor float64
	// Timeout bounds the whole wait.
	Timeout time.Duration
}

// DefaultPollOptions returns 2s polling backed off by 1.5x up to 10s, for at
// most 60s.
func DefaultPollOptions() PollOptions {
	return PollOptions{
		Interval:      constants.DefaultPollInterval,
		MaxInterval:   constants.MaxPollInterval,
		BackoffFactor: constants.DefaultPollBackoffFactor,
		Timeout:       constants.DefaultExportTimeout,
	}
}

func (o PollOptions) withDefaults() PollOptions {
	def := DefaultPollOptions()

	if o.Interval <= 0 {
		o.Interval = def.Interval
	}

	if o.MaxInterval <= 0 {
		o.MaxInterval = def.MaxInterval
	}

	if o.MaxInterval < o.Interval {
		o.MaxInterval = o.Interval
	}

	if o.BackoffFactor == 0 {
		o.BackoffFactor = def.BackoffFactor
	}

	if o.BackoffFactor < 1 {
		o.BackoffFactor = 1
	}

	if o.Timeout <= 0 {
		o.Timeout = def.Timeout
	}

	return o
}

func (o PollOptions) nextInterval(current time.Duration) time.Duration {
	next := time.Duration(math.Round(float64(current) * o.BackoffFactor))
	if next > o.MaxInterval {
		return o.MaxInterval
	}

	return next
}

// ExportOptions configures a resource export. The zero value exports every
// record as CSV with default polling.
type ExportOptions struct {
	Format ExportFormat
	Query  Querier
	Poll   PollOptions
}

type exportRequest struct {
	Format ExportFormat `json:"format"`
}

// ExportOrchestrator submits export jobs and polls them to completion.
type ExportOrchestrator struct {
	transport  Transport
	statusPath string
	logger     Logger
}

// NewExportOrchestrator creates an orchestrator. A nil logger discards output.
func NewExportOrchestrator(transport Transport, logger Logger) *ExportOrchestrator {
	return &ExportOrchestrator{
		transport:  transport,
		statusPath: constants.ExportsPath,
		logger:     loggerOrNop(logger),
	}
}

// Submit starts an export of the collection at path. The format is checked
// before any request is made; filters and sort order travel as query
// parameters.
func (o *ExportOrchestrator) Submit(ctx context.Context, path string, query CompiledQuery, format ExportFormat) (*ExportJob, error) {
	if format == "" {
		format = ExportFormat(constants.DefaultExportFormat)
	}

	if !format.Valid() {
		return nil, invalidArgument("format", string(format), "expected csv, json or excel")
	}

	exportPath := strings.TrimSuffix(path, "/") + "/export"

	o.logger.Debug("Submitting export", map[string]interface{}{
		"path":   exportPath,
		"format": string(format),
		"query":  query.Encode(),
	})

	data, err := o.transport.Request(ctx, http.MethodPost, exportPath, query.FilterValues(), exportRequest{Format: format})
	if err != nil {
		return nil, asTransportError(http.MethodPost, exportPath, err)
	}

	job, err := decodeJob(data, "export job")
	if err != nil {
		return nil, err
	}

	if job.Format == "" {
		job.Format = format
	}

	o.logger.Info("Export submitted", map[string]interface{}{
		"job_id": job.ID,
		"status": string(job.Status),
	})

	return job, nil
}

// Get fetches the current state of an export job.
func (o *ExportOrchestrator) Get(ctx context.Context, jobID string) (*ExportJob, error) {
	if strings.TrimSpace(jobID) == "" {
		return nil, invalidArgument("job_id", jobID, "job id is required")
	}

	path := o.statusPath + "/" + url.PathEscape(jobID)

	data, err := o.transport.Request(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, asTransportError(http.MethodGet, path, err)
	}

	return decodeJob(data, "export job "+jobID)
}

// AwaitCompletion polls job until it is ready or failed. The first poll is
// immediate; later polls wait Interval, multiplied by BackoffFactor after each
// poll and capped at MaxInterval. A failed job is returned without error.
//
// When Timeout elapses first, a *TimeoutError carrying the last observed state
// is returned. Cancelling ctx returns the context error instead.
func (o *ExportOrchestrator) AwaitCompletion(ctx context.Context, job *ExportJob, opts PollOptions) (*ExportJob, error) {
	if job == nil || job.ID == "" {
		return nil, invalidArgument("job", job, "a submitted job is required")
	}

	if job.IsTerminal() {
		return job, nil
	}

	opts = opts.withDefaults()
	start := time.Now()

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	current := job
	interval := opts.Interval
	polls := 0

	for {
		next, err := o.Get(pollCtx, current.ID)
		polls++

		if err != nil {
			if pollCtx.Err() != nil {
				return nil, o.stopped(ctx, current, start)
			}

			return nil, err
		}

		current = o.advance(current, next)

		o.logger.Debug("Polled export", map[string]interface{}{
			"job_id": current.ID,
			"status": string(current.Status),
			"poll":   polls,
		})

		if current.IsTerminal() {
			o.logger.Info("Export finished", map[string]interface{}{
				"job_id":  current.ID,
				"status":  string(current.Status),
				"polls":   polls,
				"elapsed": time.Since(start).String(),
			})

			return current, nil
		}

		timer := time.NewTimer(interval)

		select {
		case <-pollCtx.Done():
			timer.Stop()
			return nil, o.stopped(ctx, current, start)
		case <-timer.C:
		}

		interval = opts.nextInterval(interval)
	}
}

// advance applies a polled state. Backward transitions are ignored.
func (o *ExportOrchestrator) advance(current, next *ExportJob) *ExportJob {
	if next.Status.rank() < current.Status.rank() {
		o.logger.Warn("Ignoring export status regression", map[string]interface{}{
			"job_id": current.ID,
			"from":   string(current.Status),
			"to":     string(next.Status),
		})

		return current
	}

	if next.Format == "" {
		next.Format = current.Format
	}

	return next
}

func (o *ExportOrchestrator) stopped(ctx context.Context, last *ExportJob, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("awaiting export %s: %w", last.ID, err)
	}

	return &TimeoutError{JobID: last.ID, Elapsed: time.Since(start), Job: last}
}

func decodeJob(data []byte, target string) (*ExportJob, error) {
	job, err := Decode[ExportJob](data, target)
	if err != nil {
		return nil, err
	}

	if job.Status == "" {
		job.Status = ExportStatusPending
	}

	err = job.validate()
	if err != nil {
		return nil, &DeserializationError{Target: target, Err: err}
	}

	return &job, nil
}
