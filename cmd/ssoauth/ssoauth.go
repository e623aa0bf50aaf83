package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ssoauth/ssoauth/internal/bootstrap"
	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/loaders"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/rs/zerolog/log"
	"github.com/traefik/paerser/cli"
)

func NewSsoauthCmdConfiguration() *config.Config {
	return &config.Config{
		AppURL:       "http://localhost:9000",
		DatabasePath: "./ssoauth.db",
		Server: config.ServerConfig{
			Port:    9000,
			Address: "0.0.0.0",
		},
		Token: config.TokenConfig{
			ExpiresIn:                3600,
			TimeToCheckExpiredTokens: 3600,
			AuthorizationCodeLength:  16,
			AccessTokenLength:        256,
			RefreshTokenLength:       256,
		},
		Auth: config.AuthConfig{
			SessionExpiry:   86400,
			LoginTimeout:    300,
			LoginMaxRetries: 5,
		},
		CORS: config.CORSConfig{
			Origin: "http://localhost:9000",
		},
		RateLimit: map[string]config.RateLimit{
			service.LimitByLogin:  {Max: 5, Duration: 60000},
			service.LimitByAnyone: {Max: 1000, Duration: 60000},
			service.LimitByUser:   {Max: 150, Duration: 60000},
			service.LimitByIP:     {Max: 150, Duration: 60000},
		},
		Ldap: config.LdapConfig{
			Insecure:     false,
			SearchFilter: "(uid=%s)",
		},
		Log: config.LogConfig{
			Level: "info",
			Json:  false,
			Streams: config.LogStreams{
				HTTP:  config.LogStreamConfig{Enabled: true},
				App:   config.LogStreamConfig{Enabled: true},
				Audit: config.LogStreamConfig{Enabled: true},
			},
		},
		Experimental: config.ExperimentalConfig{
			ConfigFile: "",
		},
	}
}

func main() {
	tConfig := NewSsoauthCmdConfiguration()

	loaders := []cli.ResourceLoader{
		&loaders.FileLoader{},
		&loaders.FlagLoader{},
		&loaders.EnvLoader{},
	}

	cmdSsoauth := &cli.Command{
		Name:          "ssoauth",
		Description:   "An OAuth 2.0 authorization server with CAS support.",
		Configuration: tConfig,
		Resources:     loaders,
		Run: func(_ []string) error {
			return runCmd(*tConfig)
		},
	}

	subCommands := []*cli.Command{
		versionCmd(),
		healthcheckCmd(),
		userCmd(),
		clientCmd(),
	}

	for _, subCommand := range subCommands {
		err := cmdSsoauth.AddCommand(subCommand)

		if err != nil {
			log.Fatal().Err(err).Str("command", subCommand.Name).Msg("Failed to add command")
		}
	}

	err := cli.Execute(cmdSsoauth)

	if err != nil {
		log.Fatal().Err(err).Msg("Failed to execute command")
	}
}

func runCmd(cfg config.Config) error {
	tlog.NewLogger(cfg.Log).Init()

	tlog.App.Info().Str("version", config.Version).Msg("Starting ssoauth")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := bootstrap.NewBootstrapApp(cfg)

	err := app.Setup(ctx)

	if err != nil {
		return fmt.Errorf("failed to bootstrap app: %w", err)
	}

	return app.Run(ctx)
}
