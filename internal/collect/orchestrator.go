// Package collect runs the configured sources for one target day and
// gathers one result list per source.
package collect

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/earnings-cli/internal/calendar"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/resilience"
	"github.com/sells-group/earnings-cli/internal/source"
)

// DefaultMaxConcurrent is the number of sources fetched at once when
// Options.MaxConcurrent is unset.
const DefaultMaxConcurrent = 5

// Options configures an Orchestrator.
type Options struct {
	Retry resilience.RetryConfig
	// AttemptTimeout bounds a single adapter call. Zero means no bound.
	AttemptTimeout time.Duration
	// RunTimeout bounds the whole run. Zero means no bound.
	RunTimeout time.Duration
	// MaxConcurrent caps parallel fetches; 1 fetches one source at a time.
	MaxConcurrent int
	Observer      Observer
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator fetches every configured source for a target day.
type Orchestrator struct {
	adapters []source.Adapter
	fetcher  *Fetcher
	opts     Options
}

// NewOrchestrator creates an Orchestrator over adapters, which are queried
// and reported in the given order.
func NewOrchestrator(adapters []source.Adapter, opts Options) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Orchestrator{
		adapters: adapters,
		fetcher:  NewFetcher(opts.Retry, opts.AttemptTimeout, opts.Observer),
		opts:     opts,
	}
}

// Sources returns the configured source names in order.
func (o *Orchestrator) Sources() []string {
	names := make([]string, len(o.adapters))
	for i, a := range o.adapters {
		names[i] = a.Name()
	}
	return names
}

// Run is the outcome of one orchestrator run.
type Run struct {
	ID   string
	Day  calendar.RelativeDay
	Date time.Time
	// Results holds one entry per configured source, in configured order.
	Results   []SourceResult
	Attempted int
	Succeeded int
	Elapsed   time.Duration
}

// Lists returns the per-source company lists in configured order.
func (r *Run) Lists() [][]model.Company {
	lists := make([][]model.Company, len(r.Results))
	for i, res := range r.Results {
		lists[i] = res.Companies
	}
	return lists
}

// Merged returns every company of every source, unfiltered.
func (r *Run) Merged() []model.Company {
	var merged []model.Company
	for _, res := range r.Results {
		merged = append(merged, res.Companies...)
	}
	return merged
}

// Summarize builds the end-of-run summary for the given candidates.
func (r *Run) Summarize(candidates []model.Candidate) Summary {
	s := Summary{
		RunID:            r.ID,
		Day:              r.Day,
		Date:             r.Date,
		SourcesAttempted: r.Attempted,
		SourcesSucceeded: r.Succeeded,
		CandidateCount:   len(candidates),
		Elapsed:          r.Elapsed,
	}
	for _, res := range r.Results {
		s.TotalEntries += len(res.Companies)
		if !res.OK() {
			s.FailedSources = append(s.FailedSources, res.Source)
		}
	}
	s.EmptyCorpus = s.TotalEntries == 0
	return s
}

// Run resolves day and fetches every source. Source failures never fail
// the run: they leave an empty list in Results. The only error is a day
// that cannot be resolved, or an orchestrator without sources.
func (o *Orchestrator) Run(ctx context.Context, day calendar.RelativeDay) (*Run, error) {
	if len(o.adapters) == 0 {
		return nil, eris.New("collect: no sources configured")
	}

	date, err := calendar.Resolve(day, o.opts.Now())
	if err != nil {
		return nil, eris.Wrap(err, "collect: resolve day")
	}

	run := &Run{
		ID:        uuid.New().String(),
		Day:       day,
		Date:      date,
		Results:   make([]SourceResult, len(o.adapters)),
		Attempted: len(o.adapters),
	}
	log := zap.L().With(zap.String("component", "collect.orchestrator"), zap.String("run_id", run.ID))

	runCtx := WithRunID(ctx, run.ID)
	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(runCtx, o.opts.RunTimeout)
		defer cancel()
	}

	limit := o.opts.MaxConcurrent
	for _, a := range o.adapters {
		if source.IsShared(a) {
			limit = 1
			break
		}
	}

	log.Info("run started",
		zap.String("day", day.String()),
		zap.String("date", date.Format(time.DateOnly)),
		zap.Int("sources", len(o.adapters)),
		zap.Int("concurrency", limit),
	)
	start := time.Now()

	var g errgroup.Group
	g.SetLimit(limit)
	for i, a := range o.adapters {
		g.Go(func() error {
			// Indexed writes keep configured order whatever the completion order.
			run.Results[i] = o.fetcher.Fetch(runCtx, a, date)
			return nil
		})
	}
	_ = g.Wait()
	run.Elapsed = time.Since(start)

	for _, res := range run.Results {
		if res.OK() {
			run.Succeeded++
		}
	}

	log.Info("run complete",
		zap.Int("attempted", run.Attempted),
		zap.Int("succeeded", run.Succeeded),
		zap.Duration("elapsed", run.Elapsed),
	)
	return run, nil
}
