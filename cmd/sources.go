package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/earnings-cli/internal/source"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List the configured calendar sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		cat, err := source.LoadCatalog(cfg.Sources.CatalogPath)
		if err != nil {
			return err
		}
		reg := source.Build(cat, source.NewClient(source.ClientOptions{}), map[string]string{
			source.Benzinga: cfg.Sources.BenzingaToken,
		})

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "#\tSOURCE\tSTATUS\tBASE URL")
		for i, e := range cat.Sources {
			baseURL := e.BaseURL
			if baseURL == "" {
				baseURL = "(default)"
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", i+1, e.Name, sourceStatus(e, reg), baseURL)
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d of %d sources active\n", reg.Len(), len(cat.Sources))
		return nil
	},
}

func sourceStatus(e source.Entry, reg *source.Registry) string {
	if !e.IsEnabled() {
		return "disabled"
	}
	if _, err := reg.Get(e.Name); err != nil {
		return "missing token"
	}
	return "active"
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}
