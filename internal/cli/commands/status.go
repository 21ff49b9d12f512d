package commands

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
)

// timeNow is swapped out in tests.
var timeNow = time.Now

// NewStatusCmd creates the status command
func NewStatusCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show who is logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, opts)
		},
	}
}

func runStatus(cmd *cobra.Command, opts *Options) error {
	a, err := openApp(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if err := a.session.BootErr(); err != nil {
		return fmt.Errorf("failed to read stored credentials: %w", err)
	}

	if !a.session.IsAuthenticated() {
		fmt.Fprintln(out, "Not logged in.")
		fmt.Fprintln(out, "\nSign in with: qosdash login")
		return nil
	}

	user := a.session.User()
	token, _ := a.session.Token()

	fmt.Fprintln(out, "Logged in")
	fmt.Fprintf(out, "  User:    %s (%s)\n", displayName(user.Nickname, user.Email), user.Email)
	fmt.Fprintf(out, "  User ID: %s\n", user.UserID)
	fmt.Fprintf(out, "  Storage: %s\n", a.settings.Storage)
	fmt.Fprintf(out, "  Token:   %s\n", describeExpiry(token, timeNow()))

	return nil
}

// describeExpiry reads the exp claim of a JWT without verifying it. The value
// is for display only; the gateway and API decide whether a token is valid.
func describeExpiry(token string, now time.Time) string {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return "opaque (expiry unknown)"
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "no expiry"
	}

	if !exp.After(now) {
		return fmt.Sprintf("expired at %s", exp.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("expires at %s (in %s)", exp.UTC().Format(time.RFC3339), exp.Sub(now).Round(time.Minute))
}
