package main

import (
	"context"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/earnings-cli/internal/calendar"
	"github.com/sells-group/earnings-cli/internal/collect"
	"github.com/sells-group/earnings-cli/internal/correlate"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/resilience"
	"github.com/sells-group/earnings-cli/internal/source"
)

const defaultPreviewDir = "preview"

// collectorOptions carries command-line overrides for initCollector.
type collectorOptions struct {
	Sources     []string
	Concurrency int
	Preview     bool
}

// initCollector loads the source catalog and builds an orchestrator over
// the enabled sources, in catalog order.
func initCollector(opts collectorOptions) (*collect.Orchestrator, error) {
	if err := cfg.Validate("collect"); err != nil {
		return nil, err
	}

	cat, err := source.LoadCatalog(cfg.Sources.CatalogPath)
	if err != nil {
		return nil, err
	}

	previewDir := ""
	if opts.Preview {
		previewDir = cfg.Sources.PreviewDir
		if previewDir == "" {
			previewDir = defaultPreviewDir
		}
	}
	client := source.NewClient(source.ClientOptions{
		UserAgent:  cfg.Sources.UserAgent,
		Timeout:    cfg.Collect.SourceTimeout(),
		PreviewDir: previewDir,
	})

	reg := source.Build(cat, client, map[string]string{
		source.Benzinga: cfg.Sources.BenzingaToken,
	})
	adapters, err := reg.Select(opts.Sources)
	if err != nil {
		return nil, err
	}
	if len(adapters) == 0 {
		return nil, eris.New("no sources enabled")
	}

	concurrency := cfg.Collect.MaxConcurrent
	if opts.Concurrency > 0 {
		concurrency = opts.Concurrency
	}

	return collect.NewOrchestrator(adapters, collect.Options{
		Retry:          resilience.FromRetryConfig(cfg.Collect.MaxRetries, cfg.Collect.InitialBackoffMs, cfg.Collect.MaxBackoffMs),
		AttemptTimeout: cfg.Collect.SourceTimeout(),
		RunTimeout:     cfg.Collect.RunTimeout(),
		MaxConcurrent:  concurrency,
		Observer:       collect.LogObserver{},
	}), nil
}

// parseMinRefs reads a minimum reference count, which must lie in 0..sources.
func parseMinRefs(s string, sources int) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, eris.Errorf("minimum references must be an integer (got %q)", s)
	}
	if err := checkMinRefs(n, sources); err != nil {
		return 0, err
	}
	return n, nil
}

func checkMinRefs(n, sources int) error {
	if n < 0 || n > sources {
		return eris.Errorf("minimum references must be between 0 and %d (got %d)", sources, n)
	}
	return nil
}

// collectCandidates runs orch for day and keeps the companies reported by
// at least minRefs sources.
func collectCandidates(ctx context.Context, orch *collect.Orchestrator, day calendar.RelativeDay, minRefs int) ([]model.Candidate, collect.Summary, error) {
	run, err := orch.Run(ctx, day)
	if err != nil {
		return nil, collect.Summary{}, err
	}
	candidates := correlate.Correlate(run.Lists(), minRefs)
	return candidates, run.Summarize(candidates), nil
}
