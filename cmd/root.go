package cmd

import (
	"io"
	"log/slog"

	"github.com/spf13/cobra"
)

func Execute() error {
	return newRootCmd().Execute()
}

type rootOptions struct {
	configPath string
	verbose    bool
	logJSON    bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	app := &app{opts: opts}

	rootCmd := &cobra.Command{
		Use:           "genegpt",
		Short:         "GeneGPT: answer genomics questions with tool-using LLM agents",
		Long:          "genegpt runs LLM agents over genomics question datasets, letting the model call NCBI E-utilities, BLAST, and web search, then scores the answers against ground truth.",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return app.wire(cmd.ErrOrStderr())
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "Config file (default ~/.genegpt/config.toml)")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "Enable debug logging")
	flags.BoolVar(&opts.logJSON, "log-json", false, "Write logs as JSON")

	rootCmd.AddCommand(
		newVersionCmd(),
		newRunCmd(app),
		newAskCmd(app),
		newReportCmd(app),
		newRunsCmd(app),
		newToolsCmd(app),
		newCredentialsCmd(app),
	)

	return rootCmd
}

func newLogger(w io.Writer, verbose, asJSON bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}
	if asJSON {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}
