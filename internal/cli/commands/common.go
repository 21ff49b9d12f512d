package commands

import (
	"fmt"

	"github.com/qos-dev/qosdash/internal/cli/auth"
	"github.com/qos-dev/qosdash/internal/cli/client"
	"github.com/qos-dev/qosdash/internal/cli/session"
	"github.com/qos-dev/qosdash/internal/cli/storage"
	"github.com/qos-dev/qosdash/internal/cli/userconfig"
	"github.com/qos-dev/qosdash/internal/logger"
)

// Options holds the root command's persistent flags. Empty fields fall back
// to the environment, the config file and the defaults.
type Options struct {
	APIBaseURL string
	GatewayURL string
	Storage    string
	LogLevel   string
}

// app is what a command needs once settings are resolved and the session has
// been booted from storage.
type app struct {
	settings *userconfig.Settings
	session  *session.Manager
	client   *client.Client
}

// openApp resolves settings and boots the session. This is common logic used
// by every command that talks to the API or the gateway.
func openApp(opts *Options) (*app, error) {
	settings, err := userconfig.Resolve(userconfig.Settings{
		APIBaseURL: opts.APIBaseURL,
		GatewayURL: opts.GatewayURL,
		Storage:    opts.Storage,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	backend, err := storage.Open(settings.Storage, settings.StoragePath)
	if err != nil {
		return nil, err
	}

	log := logger.GetLogger()
	mgr := session.Open(
		auth.NewTokenStore(backend, log),
		session.WithAPIBaseURL(settings.APIBaseURL),
		session.WithLogger(log),
	)

	return &app{
		settings: settings,
		session:  mgr,
		client:   client.New(settings.GatewayURL, mgr),
	}, nil
}
