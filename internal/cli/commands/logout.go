package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command
func NewLogoutCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout(cmd, opts)
		},
	}
}

func runLogout(cmd *cobra.Command, opts *Options) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}

	wasLoggedIn := a.session.IsAuthenticated()

	if err := a.session.Logout(); err != nil {
		return fmt.Errorf("failed to clear stored credentials: %w", err)
	}

	if wasLoggedIn {
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
	}
	return nil
}
