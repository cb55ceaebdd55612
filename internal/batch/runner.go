package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"placematch/internal/logging"
	"placematch/internal/place"
	"placematch/internal/report"
	"placematch/internal/search"
	"placematch/internal/store"
)

// Source lists the records a run works through.
type Source interface {
	List(ctx context.Context, f store.Filter) ([]place.Record, error)
}

// Matcher decides one record.
type Matcher interface {
	Match(ctx context.Context, r place.Record) (place.Decision, error)
}

// Recorder stores outcomes in apply mode.
type Recorder interface {
	RecordMatch(ctx context.Context, id string, d place.Decision) error
	RecordError(ctx context.Context, id, message string) error
}

// Options configures a Runner.
type Options struct {
	Filter  store.Filter
	Reports report.Paths
	// Apply writes each outcome back through the Recorder.
	Apply bool
	// Delay separates consecutive records.
	Delay  time.Duration
	Logger *slog.Logger
	// Sleep waits between records; defaults to search.SleepWithContext.
	Sleep func(ctx context.Context, d time.Duration) error
	// Progress receives every outcome after it is reported. Optional.
	Progress func(done, total int, r place.Record, status place.Status)
}

// Summary describes a finished run.
type Summary struct {
	RunID string
	report.Counts
	Applied     int
	ApplyErrors int
	Collisions  []report.Collision
	Reports     report.Paths
	Elapsed     time.Duration
	// Canceled is set when the run stopped before every record was processed.
	Canceled bool
}

// Runner drives one batch run.
type Runner struct {
	source   Source
	matcher  Matcher
	recorder Recorder
	opts     Options
	logger   *slog.Logger
}

// New builds a Runner. recorder may be nil when Apply is false.
func New(source Source, matcher Matcher, recorder Recorder, opts Options) (*Runner, error) {
	if source == nil || matcher == nil {
		return nil, errors.New("batch: source and matcher are required")
	}
	if opts.Apply && recorder == nil {
		return nil, errors.New("batch: apply mode requires a recorder")
	}
	if opts.Sleep == nil {
		opts.Sleep = search.SleepWithContext
	}
	return &Runner{
		source:   source,
		matcher:  matcher,
		recorder: recorder,
		opts:     opts,
		logger:   logging.NewComponentLogger(opts.Logger, "batch"),
	}, nil
}

// Run processes every selected record and returns the tallies. The reports
// are complete for the records processed even when ctx ends the run early;
// in that case the summary is returned together with ctx's error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString(), Reports: r.opts.Reports}
	ctx = logging.WithRunID(ctx, summary.RunID)

	records, err := r.source.List(ctx, r.opts.Filter)
	if err != nil {
		return summary, fmt.Errorf("list places: %w", err)
	}
	total := len(records)
	r.logger.InfoContext(ctx, "batch run started",
		logging.Int("records", total),
		logging.Bool("apply", r.opts.Apply),
		logging.String("state", r.opts.Filter.State),
		logging.String("status", r.opts.Filter.Status),
		logging.Duration("delay", r.opts.Delay),
		logging.String(logging.FieldEventType, "batch_started"),
	)

	reports, err := report.Open(r.opts.Reports)
	if err != nil {
		return summary, err
	}
	collisions := report.NewCollisions()
	sampler := logging.NewProgressSampler(10)

	var runErr error
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		status, err := r.process(ctx, reports, collisions, &summary, rec)
		if err != nil {
			runErr = err
			break
		}
		if r.opts.Progress != nil {
			r.opts.Progress(i+1, total, rec, status)
		}
		if sampler.ShouldLog(i+1, total, "match") {
			counts := reports.Counts()
			r.logger.InfoContext(ctx, "batch progress",
				logging.Int("done", i+1),
				logging.Int("total", total),
				logging.Int("matched", counts.Matched),
				logging.Int("review", counts.Review),
				logging.Int("unmatched", counts.Unmatched),
				logging.Int("errors", counts.Errors),
			)
		}
		if r.opts.Delay > 0 && i < total-1 {
			if err := r.opts.Sleep(ctx, r.opts.Delay); err != nil {
				runErr = err
				break
			}
		}
	}

	closeErr := reports.Close()
	summary.Counts = reports.Counts()
	summary.Collisions = collisions.List()
	summary.Elapsed = time.Since(started)
	summary.Canceled = runErr != nil && ctx.Err() != nil

	if len(summary.Collisions) > 0 {
		logging.WarnWithContext(r.logger, "external ids matched by several places", "batch_collisions",
			logging.Int("collisions", len(summary.Collisions)),
			logging.String(logging.FieldErrorHint, "inspect the matched report for duplicate local records"),
			logging.String(logging.FieldImpact, "apply mode linked one external place to several records"),
		)
	}
	r.logger.InfoContext(ctx, "batch run finished",
		logging.Int("processed", summary.Processed),
		logging.Int("matched", summary.Matched),
		logging.Int("review", summary.Review),
		logging.Int("unmatched", summary.Unmatched),
		logging.Int("errors", summary.Errors),
		logging.Duration("elapsed", summary.Elapsed),
		logging.Bool("canceled", summary.Canceled),
		logging.String(logging.FieldEventType, "batch_finished"),
	)
	if closeErr != nil {
		return summary, fmt.Errorf("close reports: %w", closeErr)
	}
	return summary, runErr
}

// process matches one record and reports it. Only report write failures and
// cancellation are returned.
func (r *Runner) process(ctx context.Context, reports *report.Set, collisions *report.Collisions, summary *Summary, rec place.Record) (place.Status, error) {
	decision, err := r.matcher.Match(ctx, rec)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return place.StatusError, ctxErr
		}
		logging.WarnWithContext(r.logger, "match failed", "match_failed",
			logging.String(logging.FieldPlaceID, rec.ID),
			logging.String("name", rec.Name),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "rerun with --ids-file to retry failed records"),
			logging.String(logging.FieldImpact, "record written to the unmatched report as an error"),
		)
		if werr := reports.Failure(rec, err); werr != nil {
			return place.StatusError, werr
		}
		r.applyError(ctx, summary, rec, report.ErrorReason(err))
		return place.StatusError, nil
	}

	if werr := reports.Decision(rec, decision); werr != nil {
		return decision.Status, werr
	}
	if decision.Status == place.StatusMatched {
		collisions.Track(decision.ExternalID(), rec.ID)
	}
	r.applyMatch(ctx, summary, rec, decision)
	return decision.Status, nil
}

func (r *Runner) applyMatch(ctx context.Context, summary *Summary, rec place.Record, d place.Decision) {
	if !r.opts.Apply {
		return
	}
	if err := r.recorder.RecordMatch(ctx, rec.ID, d); err != nil {
		summary.ApplyErrors++
		logging.WarnWithContext(r.logger, "store match outcome failed", "apply_failed",
			logging.String(logging.FieldPlaceID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "record keeps its previous match state"),
		)
		return
	}
	summary.Applied++
}

func (r *Runner) applyError(ctx context.Context, summary *Summary, rec place.Record, message string) {
	if !r.opts.Apply {
		return
	}
	if err := r.recorder.RecordError(ctx, rec.ID, message); err != nil {
		summary.ApplyErrors++
		logging.WarnWithContext(r.logger, "store match error failed", "apply_failed",
			logging.String(logging.FieldPlaceID, rec.ID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "record keeps its previous match state"),
		)
		return
	}
	summary.Applied++
}
