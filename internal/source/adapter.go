// Package source holds the earnings-calendar source adapters and the
// plumbing they share: an HTTP client with per-host rate limiting and
// block detection, a YAML source catalog and a registry.
package source

import (
	"context"
	"time"

	"github.com/sells-group/earnings-cli/internal/model"
)

// Names of the bundled sources, in the default catalog order.
const (
	MarketWatch = "marketwatch"
	Zacks       = "zacks"
	TradingView = "tradingview"
	Investing   = "investing"
	Benzinga    = "benzinga"
)

// Adapter extracts the earnings-calendar listings of one external source.
type Adapter interface {
	// Name returns the unique source identifier (e.g., "zacks").
	Name() string

	// Parse returns the companies scheduled to report on date. An empty
	// slice with a nil error means the source has no listings that day.
	Parse(ctx context.Context, date time.Time) ([]model.Company, error)
}

// SharedSession is implemented by adapters that navigate a single shared
// session (e.g., one browser). The orchestrator never runs two of them at
// the same time.
type SharedSession interface {
	Adapter
	SharesSession() bool
}

// IsShared reports whether a must be serialized with other shared adapters.
func IsShared(a Adapter) bool {
	s, ok := a.(SharedSession)
	return ok && s.SharesSession()
}

// AdapterFunc adapts a plain function to the Adapter interface.
type AdapterFunc struct {
	SourceName string
	Fn         func(ctx context.Context, date time.Time) ([]model.Company, error)
}

func (f AdapterFunc) Name() string { return f.SourceName }

func (f AdapterFunc) Parse(ctx context.Context, date time.Time) ([]model.Company, error) {
	return f.Fn(ctx, date)
}
