package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/qos-dev/qosdash/internal/cli/userconfig"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change CLI settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, opts)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Persist a setting to the config file",
		Long: `Persist a setting to the config file.

Keys:
  api_base_url  Base URL of the authentication API
  gateway_url   Base URL of the stats gateway
  storage       Credential storage backend: keyring or file`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := userconfig.Set(args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s updated\n", args[0])
			return nil
		},
	})

	return cmd
}

func runConfigShow(cmd *cobra.Command, opts *Options) error {
	settings, err := userconfig.Resolve(userconfig.Settings{
		APIBaseURL: opts.APIBaseURL,
		GatewayURL: opts.GatewayURL,
		Storage:    opts.Storage,
	})
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	path, err := userconfig.GetConfigPath()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "config file\t%s\n", path)
	fmt.Fprintf(w, "api_base_url\t%s\n", settings.APIBaseURL)
	fmt.Fprintf(w, "gateway_url\t%s\n", settings.GatewayURL)
	fmt.Fprintf(w, "storage\t%s\n", settings.Storage)
	if settings.Storage == "file" {
		fmt.Fprintf(w, "storage file\t%s\n", settings.StoragePath)
	}
	return w.Flush()
}
