package cli

import (
	"fmt"
	"os"

	"github.com/qos-dev/qosdash/internal/cli/commands"
	"github.com/qos-dev/qosdash/internal/logger"
	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

// NewRootCmd builds the qosdash command tree.
func NewRootCmd() *cobra.Command {
	opts := &commands.Options{}

	rootCmd := &cobra.Command{
		Use:   "qosdash",
		Short: "qosdash - location-visit statistics from the command line",
		Long: `qosdash CLI - Sign in and browse anonymized location-visit statistics.

Statistics are fetched through the qosdash gateway, which forwards them from
the analytics API using your access token.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Diagnostics go to stderr so command output stays pipeable
			logger.InitWriter(cmd.ErrOrStderr(), opts.LogLevel, "console")
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.APIBaseURL, "api-url", "", "Authentication API base URL (or set QOS_API_BASE_URL)")
	flags.StringVar(&opts.GatewayURL, "gateway-url", "", "Stats gateway base URL (or set QOS_GATEWAY_URL)")
	flags.StringVar(&opts.Storage, "storage", "", "Credential storage: keyring, file or memory (or set QOS_STORAGE)")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "qosdash version %s\n", version)
		},
	})

	rootCmd.AddCommand(commands.NewLoginCmd(opts))
	rootCmd.AddCommand(commands.NewLogoutCmd(opts))
	rootCmd.AddCommand(commands.NewStatusCmd(opts))
	rootCmd.AddCommand(commands.NewStatsCmd(opts))
	rootCmd.AddCommand(commands.NewConfigCmd(opts))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
