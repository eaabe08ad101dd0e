package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/calendar"
	"github.com/sells-group/earnings-cli/internal/collect"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/report"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve cross-checked earnings candidates over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}
		orch, err := initCollector(collectorOptions{})
		if err != nil {
			return err
		}

		mux := buildMux(ctx, orch, cfg.Collect.MinReferences)
		return startServer(ctx, mux, resolvePort(servePort, cfg.Server.Port))
	},
}

type candidatesResponse struct {
	Summary    collect.Summary   `json:"summary"`
	Candidates []model.Candidate `json:"candidates"`
}

// buildMux registers the HTTP routes. A nil orchestrator answers
// /v1/candidates with 503.
func buildMux(ctx context.Context, orch *collect.Orchestrator, defaultMinRefs int) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("GET /v1/candidates", func(w http.ResponseWriter, r *http.Request) {
		if orch == nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "no sources configured"})
			return
		}

		q := r.URL.Query()
		day, err := calendar.ParseRelativeDay(q.Get("day"))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		nSources := len(orch.Sources())
		minRefs := min(defaultMinRefs, nSources)
		if s := q.Get("min_refs"); s != "" {
			if minRefs, err = parseMinRefs(s, nSources); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
		}

		format := report.JSON
		if s := q.Get("format"); s != "" {
			if format, err = report.ParseFormat(s); err != nil || format == report.XLSX {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unsupported format %q", s)})
				return
			}
		}

		// Requests end with the client; the server context bounds them on shutdown.
		runCtx, cancel := context.WithCancel(r.Context())
		defer cancel()
		stopAfter := context.AfterFunc(ctx, cancel)
		defer stopAfter()

		candidates, summary, err := collectCandidates(runCtx, orch, day, minRefs)
		if err != nil {
			zap.L().Error("candidates request failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		switch format {
		case report.JSON:
			if candidates == nil {
				candidates = []model.Candidate{}
			}
			writeJSON(w, http.StatusOK, candidatesResponse{Summary: summary, Candidates: candidates})
		default:
			contentType := "text/tab-separated-values; charset=utf-8"
			if format == report.CSV {
				contentType = "text/csv; charset=utf-8"
			}
			w.Header().Set("Content-Type", contentType)
			w.Header().Set("X-Sources-Succeeded", fmt.Sprintf("%d/%d", summary.SourcesSucceeded, summary.SourcesAttempted))
			if err := report.Encode(w, format, candidates); err != nil {
				zap.L().Warn("write candidates response", zap.Error(err))
			}
		}
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("write json response", zap.Error(err))
	}
}

// resolvePort prefers the --port flag over the configured port.
func resolvePort(flagPort, cfgPort int) int {
	if flagPort != 0 {
		return flagPort
	}
	return cfgPort
}

// startServer serves mux on port until ctx is cancelled, then shuts down
// gracefully.
func startServer(ctx context.Context, mux *http.ServeMux, port int) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server listen")
	}
	return nil
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
