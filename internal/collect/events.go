package collect

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/calendar"
)

// Outcome classifies one fetch attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeRetry   Outcome = "retry"
	OutcomeFailed  Outcome = "failed"
)

// Event reports one attempt against one source.
type Event struct {
	RunID   string
	Source  string
	Attempt int
	Outcome Outcome
	Entries int
	Err     error
}

// Observer receives attempt events while a run is in progress. Observe is
// called from fetch goroutines and must return quickly.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(Event)

// Observe calls f(e).
func (f ObserverFunc) Observe(e Event) { f(e) }

// LogObserver writes events to the global zap logger.
type LogObserver struct{}

// Observe logs e. Failed attempts are logged at warn level.
func (LogObserver) Observe(e Event) {
	fields := []zap.Field{
		zap.String("run_id", e.RunID),
		zap.String("source", e.Source),
		zap.Int("attempt", e.Attempt),
		zap.String("outcome", string(e.Outcome)),
	}
	switch e.Outcome {
	case OutcomeSuccess:
		zap.L().Info("source fetched", append(fields, zap.Int("entries", e.Entries))...)
	default:
		zap.L().Warn("source attempt failed", append(fields, zap.Error(e.Err))...)
	}
}

// Summary is the end-of-run report.
type Summary struct {
	RunID            string               `json:"run_id"`
	Day              calendar.RelativeDay `json:"-"`
	Date             time.Time            `json:"date"`
	SourcesAttempted int                  `json:"sources_attempted"`
	SourcesSucceeded int                  `json:"sources_succeeded"`
	FailedSources    []string             `json:"failed_sources,omitempty"`
	TotalEntries     int                  `json:"total_entries"`
	CandidateCount   int                  `json:"candidate_count"`
	EmptyCorpus      bool                 `json:"empty_corpus"`
	Elapsed          time.Duration        `json:"-"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d of %d sources succeeded, %d entries, %d candidates",
		s.SourcesSucceeded, s.SourcesAttempted, s.TotalEntries, s.CandidateCount)
}

type runIDKey struct{}

// WithRunID attaches a run ID to ctx. Fetch events carry it.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFrom returns the run ID attached to ctx, if any.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
