package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/application"
	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

type askOutput struct {
	Question      string              `json:"question"`
	Thoughts      string              `json:"thoughts"`
	Answer        *string             `json:"answer"`
	State         domain.SessionState `json:"state"`
	FailureReason domain.FailureKind  `json:"failure_reason,omitempty"`
	Degraded      bool                `json:"degraded,omitempty"`
	Turns         int                 `json:"turns"`
	ToolCalls     int                 `json:"tool_calls"`
}

func newAskCmd(app *app) *cobra.Command {
	var flags runFlags
	var category string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question and print the answer record as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.TrimSpace(strings.Join(args, " "))
			if question == "" {
				return fmt.Errorf("question must not be empty")
			}

			opts := app.engineOptions()
			changed := cmd.Flags().Changed
			if changed("provider") {
				opts.Provider = flags.provider
			}
			if changed("model") {
				opts.Model = flags.model
			}
			if changed("tool-use") {
				opts.ToolUse = flags.toolUse
			}
			if changed("max-turns") {
				opts.MaxTurns = flags.maxTurns
			}

			eng, err := app.newEngine(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer func() { _ = eng.Close() }()

			scheduler := application.NewScheduler(1, application.WithSchedulerLogger(app.logger))
			outcome := scheduler.AnswerOne(cmd.Context(), domain.Question{
				Key: domain.QuestionKey{Category: domain.Category(category), Text: question},
			}, eng.agent)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(askOutput{
				Question:      question,
				Thoughts:      outcome.Answer.Thoughts,
				Answer:        outcome.Answer.Prediction(),
				State:         outcome.State,
				FailureReason: outcome.Failure,
				Degraded:      outcome.Degraded,
				Turns:         outcome.Turns,
				ToolCalls:     outcome.ToolCalls,
			})
		},
	}

	cmd.Flags().StringVar(&category, "category", "", "Category label attached to log lines")
	cmd.Flags().StringVar(&flags.provider, "provider", "", "Model provider: azure, ollama, or openai")
	cmd.Flags().StringVar(&flags.model, "model", "", "Model or deployment name")
	cmd.Flags().BoolVar(&flags.toolUse, "tool-use", false, "Let the model call NCBI, BLAST, and web search tools")
	cmd.Flags().IntVar(&flags.maxTurns, "max-turns", 0, "Model turns allowed")

	return cmd
}
