package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/hamzameer/GeneGPT-Tool-use-in-LLMs/internal/domain"
)

func newCredentialsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "credentials",
		Short: "Manage provider and NCBI credentials",
	}

	cmd.AddCommand(
		newCredentialsSetCmd(app),
		newCredentialsRemoveCmd(app),
		newCredentialsStatusCmd(app),
	)

	return cmd
}

func newCredentialsSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set <name>",
		Short: "Store a credential in the first writable store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := domain.ParseCredentialName(args[0])
			if err != nil {
				return err
			}
			if err := app.credentials.Put(cmd.Context(), name, value); err != nil {
				return fmt.Errorf("store credential %s: %w", name, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored %s\n", name)
			return err
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Credential value")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func newCredentialsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <name>",
		Short: "Remove a credential from every writable store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := domain.ParseCredentialName(args[0])
			if err != nil {
				return err
			}
			if err := app.credentials.Delete(cmd.Context(), name); err != nil {
				return fmt.Errorf("remove credential %s: %w", name, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", name)
			return err
		},
	}
}

func newCredentialsStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which store answers each credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tENV\tSOURCE")
			for _, name := range domain.CredentialNames() {
				_, source, err := app.credentials.Resolve(cmd.Context(), name)
				switch {
				case errors.Is(err, domain.ErrCredentialMissing):
					source = "missing"
				case err != nil:
					return fmt.Errorf("resolve credential %s: %w", name, err)
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\n", name, name.EnvVar(), source)
			}
			return w.Flush()
		},
	}
}
