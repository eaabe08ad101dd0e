package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/sells-group/earnings-cli/internal/calendar"
	"github.com/sells-group/earnings-cli/internal/model"
	"github.com/sells-group/earnings-cli/internal/report"
)

var collectCmd = &cobra.Command{
	Use:   "collect [min-refs]",
	Short: "Collect and cross-check one day's earnings calendar",
	Long: `Fetches the earnings calendar of every enabled source for the target day
and writes the companies reported by at least min-refs distinct sources,
most-referenced first.

min-refs defaults to collect.min_references and must not exceed the number
of enabled sources.`,
	Example: `  earnings-cli collect 3
  earnings-cli collect 2 --tomorrow --format csv --output -
  earnings-cli collect --yesterday --sources zacks,tradingview`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		day := dayFromFlags(cmd)
		preview, _ := cmd.Flags().GetBool("preview")
		sources, _ := cmd.Flags().GetStringSlice("sources")
		concurrency, _ := cmd.Flags().GetInt("concurrency")
		formatFlag, _ := cmd.Flags().GetString("format")
		output, _ := cmd.Flags().GetString("output")

		if formatFlag == "" {
			formatFlag = cfg.Report.Format
		}
		format, err := report.ParseFormat(formatFlag)
		if err != nil {
			return err
		}
		if output == "" {
			output = cfg.Report.Output
		}
		emitter, err := report.New(format, output)
		if err != nil {
			return err
		}

		orch, err := initCollector(collectorOptions{
			Sources:     sources,
			Concurrency: concurrency,
			Preview:     preview,
		})
		if err != nil {
			return err
		}

		nSources := len(orch.Sources())
		minRefs := cfg.Collect.MinReferences
		if len(args) == 1 {
			if minRefs, err = parseMinRefs(args[0], nSources); err != nil {
				return err
			}
		} else if minRefs > nSources {
			// The configured default may exceed a narrowed --sources list.
			minRefs = nSources
		}

		candidates, summary, err := collectCandidates(ctx, orch, day, minRefs)
		if err != nil {
			return err
		}

		out := cmd.ErrOrStderr()
		fmt.Fprintf(out, "%s earnings (%s): %s\n", summary.Date.Format("Mon Jan 2 2006"), day, summary)
		if len(summary.FailedSources) > 0 {
			fmt.Fprintf(out, "failed sources: %v\n", summary.FailedSources)
		}
		if summary.EmptyCorpus {
			fmt.Fprintln(out, "no source listed any company for this day")
		}

		if err := writeReport(ctx, emitter, candidates); err != nil {
			return err
		}
		if output != report.Stdout {
			path := output
			if path == "" {
				path = report.DefaultPath(format)
			}
			fmt.Fprintf(out, "wrote %d candidates (min %d references) to %s\n", len(candidates), minRefs, path)
		}
		return nil
	},
}

// writeReport emits candidates even when ctx was cancelled mid-run, so an
// interrupted run still reports what the finished sources found.
func writeReport(ctx context.Context, emitter report.Emitter, candidates []model.Candidate) error {
	if err := emitter.Write(context.WithoutCancel(ctx), candidates); err != nil {
		zap.L().Error("report write failed", zap.Int("candidates", len(candidates)), zap.Error(err))
		return eris.Wrap(err, "collect: write report")
	}
	return nil
}

// dayFromFlags returns the target day selected by the mutually exclusive
// day flags. Today is the default.
func dayFromFlags(cmd *cobra.Command) calendar.RelativeDay {
	if y, _ := cmd.Flags().GetBool("yesterday"); y {
		return calendar.Yesterday
	}
	if t, _ := cmd.Flags().GetBool("tomorrow"); t {
		return calendar.Tomorrow
	}
	return calendar.Today
}

// dayFlagAliases maps --now onto --today.
func dayFlagAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if name == "now" {
		name = "today"
	}
	return pflag.NormalizedName(name)
}

func init() {
	f := collectCmd.Flags()
	f.BoolP("yesterday", "y", false, "collect yesterday's calendar")
	f.BoolP("today", "n", false, "collect today's calendar (default; alias --now)")
	f.BoolP("tomorrow", "t", false, "collect tomorrow's calendar")
	f.SetNormalizeFunc(dayFlagAliases)
	collectCmd.MarkFlagsMutuallyExclusive("yesterday", "today", "tomorrow")

	f.Bool("preview", false, "save every fetched page to sources.preview_dir for inspection")
	f.StringSlice("sources", nil, "restrict the run to these sources (comma-separated)")
	f.Int("concurrency", 0, "sources fetched in parallel (default from config; 1 = one at a time)")
	f.String("format", "", "report format: tsv, csv, json or xlsx (default from config)")
	f.StringP("output", "o", "", "report path, - for stdout (default company_candidates.<ext>)")

	rootCmd.AddCommand(collectCmd)
}
