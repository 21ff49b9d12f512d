package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/manifoldco/promptui"
	"github.com/qos-dev/qosdash/internal/cli/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Environment fallbacks for non-interactive logins.
const (
	EnvEmail    = "QOS_EMAIL"
	EnvPassword = "QOS_PASSWORD"
)

// stdinIsTerminal is swapped out in tests.
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var validate = validator.New()

// NewLoginCmd creates the login command
func NewLoginCmd(opts *Options) *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Sign in with email and password.

The access token and user profile are kept in the configured storage backend
(OS keyring by default) and reused by later commands until 'qosdash logout'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, opts, email, password)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (or set QOS_EMAIL, will prompt if not provided)")
	cmd.Flags().StringVar(&password, "password", "", "Password (or set QOS_PASSWORD, will prompt if not provided)")

	return cmd
}

func runLogin(cmd *cobra.Command, opts *Options, email, password string) error {
	// Check for environment variables (useful for CI/CD)
	if email == "" {
		email = os.Getenv(EnvEmail)
	}
	if password == "" {
		password = os.Getenv(EnvPassword)
	}

	var err error
	if email == "" {
		if !stdinIsTerminal() {
			return fmt.Errorf("email is required in non-interactive mode (use --email flag or %s env var)", EnvEmail)
		}
		if email, err = promptEmail(); err != nil {
			return err
		}
	}

	if password == "" {
		if !stdinIsTerminal() {
			return fmt.Errorf("password is required in non-interactive mode (use --password flag or %s env var)", EnvPassword)
		}
		if password, err = promptPassword(cmd); err != nil {
			return err
		}
	}

	a, err := openApp(opts)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logging in to %s...\n", a.settings.APIBaseURL)

	if err := a.session.Login(cmd.Context(), email, password); err != nil {
		var authErr *session.AuthenticationError
		if errors.As(err, &authErr) {
			return authErr
		}
		return fmt.Errorf("login failed: %w", err)
	}

	user := a.session.User()
	fmt.Fprintln(out, "✓ Login successful!")
	fmt.Fprintf(out, "  User: %s (%s)\n", displayName(user.Nickname, user.Email), user.Email)

	return nil
}

func promptEmail() (string, error) {
	prompt := promptui.Prompt{
		Label: "Email",
		Validate: func(input string) error {
			return validate.Var(strings.TrimSpace(input), "required,email")
		},
	}

	email, err := prompt.Run()
	if err != nil {
		return "", fmt.Errorf("email prompt cancelled: %w", err)
	}
	return strings.TrimSpace(email), nil
}

func promptPassword(cmd *cobra.Command) (string, error) {
	fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
	bytePassword, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(bytePassword), nil
}

func displayName(nickname, email string) string {
	if nickname != "" {
		return nickname
	}
	return email
}
