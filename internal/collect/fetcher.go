package collect

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/resilience"
	"github.com/sells-group/earnings-cli/internal/source"
)

// ErrSourceFetch marks a source that produced no data after all attempts.
// It never aborts a run.
var ErrSourceFetch = eris.New("collect: source fetch failed")

// FetchError records why a source contributed an empty list.
type FetchError struct {
	Source   string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("collect: %s failed after %d attempt(s): %v", e.Source, e.Attempts, e.Err)
}

// Unwrap returns the last attempt's error.
func (e *FetchError) Unwrap() error { return e.Err }

// Is matches ErrSourceFetch.
func (e *FetchError) Is(target error) bool { return target == ErrSourceFetch }

// SourceResult is the outcome of fetching one source. Companies is never
// nil; it is empty when Err is set.
type SourceResult struct {
	Source    string
	Companies []model.Company
	Attempts  int
	Err       error
	Elapsed   time.Duration
}

// OK reports whether the source produced data, possibly an empty list.
func (r SourceResult) OK() bool { return r.Err == nil }

// Fetcher wraps adapter calls with bounded retries.
type Fetcher struct {
	retry          resilience.RetryConfig
	attemptTimeout time.Duration
	observer       Observer
}

// NewFetcher creates a Fetcher. attemptTimeout <= 0 leaves attempts bounded
// only by ctx. A nil observer discards events. Without a ShouldRetry policy
// every error except a permanent one gets the retry budget.
func NewFetcher(retry resilience.RetryConfig, attemptTimeout time.Duration, observer Observer) *Fetcher {
	if retry.ShouldRetry == nil {
		retry.ShouldRetry = resilience.RetryUnlessPermanent
	}
	if observer == nil {
		observer = ObserverFunc(func(Event) {})
	}
	return &Fetcher{retry: retry, attemptTimeout: attemptTimeout, observer: observer}
}

// Fetch calls a.Parse for date until it succeeds or the retry budget is
// spent. Success returns at once, even with an empty list. Failure yields an
// empty list and an error matching ErrSourceFetch.
func (f *Fetcher) Fetch(ctx context.Context, a source.Adapter, date time.Time) SourceResult {
	start := time.Now()
	res := SourceResult{Source: a.Name()}
	runID := RunIDFrom(ctx)

	// A run cancelled before this source got its turn fails it without a call.
	if err := ctx.Err(); err != nil {
		f.observer.Observe(Event{RunID: runID, Source: res.Source, Attempt: 0, Outcome: OutcomeFailed, Err: err})
		res.Companies = []model.Company{}
		res.Err = &FetchError{Source: res.Source, Err: err}
		res.Elapsed = time.Since(start)
		return res
	}

	cfg := f.retry
	cfg.OnAttempt = func(at resilience.Attempt) {
		res.Attempts = at.Number
		ev := Event{RunID: runID, Source: res.Source, Attempt: at.Number, Err: at.Err}
		switch {
		case at.Err == nil:
			ev.Outcome = OutcomeSuccess
			ev.Entries = len(res.Companies)
		case at.WillRetry:
			ev.Outcome = OutcomeRetry
		default:
			ev.Outcome = OutcomeFailed
		}
		f.observer.Observe(ev)
	}

	companies, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]model.Company, error) {
		actx := ctx
		if f.attemptTimeout > 0 {
			var cancel context.CancelFunc
			actx, cancel = context.WithTimeout(ctx, f.attemptTimeout)
			defer cancel()
		}
		list, err := a.Parse(actx, date)
		if err != nil {
			return nil, err
		}
		if list == nil {
			list = []model.Company{}
		}
		// Stored before DoVal notifies, so the success event sees the count.
		res.Companies = list
		return list, nil
	})
	res.Elapsed = time.Since(start)

	if err != nil {
		res.Companies = []model.Company{}
		res.Err = &FetchError{Source: res.Source, Attempts: res.Attempts, Err: err}
		return res
	}
	res.Companies = companies
	return res
}
