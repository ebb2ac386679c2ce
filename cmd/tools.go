package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type toolOutput struct {
	Name        domain.ToolName `json:"name"`
	Gate        domain.Gate     `json:"gate"`
	Cacheable   bool            `json:"cacheable"`
	Description string          `json:"description"`
}

func newToolsCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools available to tool-use sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			limiter, err := application.NewRateLimiter(app.cfg.RateLimit.Capacity, app.cfg.RateLimit.Pacing, app.clock)
			if err != nil {
				return fmt.Errorf("wire rate limiter: %w", err)
			}
			tools, err := app.tools(cmd.Context(), limiter)
			if err != nil {
				return err
			}
			dispatcher := application.NewDispatcher(limiter, application.WithDispatcherLogger(app.logger))
			if err := dispatcher.Register(tools...); err != nil {
				return err
			}

			specs := dispatcher.Specs()
			out := make([]toolOutput, 0, len(specs))
			for _, spec := range specs {
				out = append(out, toolOutput{
					Name:        spec.Name,
					Gate:        spec.Gate,
					Cacheable:   spec.Cacheable,
					Description: spec.Description,
				})
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tGATE\tCACHED\tDESCRIPTION")
			for _, tool := range out {
				_, _ = fmt.Fprintf(w, "%s\t%s\t%t\t%s\n", tool.Name, tool.Gate, tool.Cacheable, firstSentence(tool.Description))
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the catalog with full descriptions as JSON")

	return cmd
}

func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.Index(text, ". "); i >= 0 {
		return text[:i+1]
	}
	return text
}
