package bootstrap

import (
	"context"
	"fmt"
	"os"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"gopkg.in/yaml.v3"
)

type seedClient struct {
	id     string
	client config.ClientConfig
}

var demoClients = []seedClient{
	{"1", config.ClientConfig{Name: "CAS Client", ClientID: "cas123", ClientSecret: "ssh-secret", RedirectURI: "http://localhost:9000/callback", Scopes: []string{"login"}}},
	{"2", config.ClientConfig{Name: "Trusted CAS Client", ClientID: "cas456", ClientSecret: "ssh-othersecret", RedirectURI: "http://localhost:9000/callback", Scopes: []string{"login"}, Trusted: true}},
	{"3", config.ClientConfig{Name: "Samplr2", ClientID: "xyz123", ClientSecret: "ssh-password"}},
	{"4", config.ClientConfig{Name: "Samplr3", ClientID: "trustedClient", ClientSecret: "ssh-otherpassword", Trusted: true}},
	// installed client, the secret is not a secret and any localhost port is accepted
	{"5", config.ClientConfig{Name: "Mobile Application", ClientID: "phonegap-angular-client", ClientSecret: "ssh-not-secret", RedirectURI: "http://localhost"}},
}

var demoUsers = []config.SeedUser{
	{Username: "admin", Email: "admin@local.host", Name: "Admin", Password: "admin", Role: "admin"},
	{Username: "test", Email: "test@test.com", Name: "Test User", Password: "test"},
}

func (app *BootstrapApp) seed(ctx context.Context) error {
	if !app.config.DisableSeed {
		for _, demo := range demoClients {
			if _, err := app.services.clientService.Seed(ctx, demo.id, demo.client); err != nil {
				return err
			}
		}

		for _, user := range demoUsers {
			if err := app.services.userService.SeedUser(ctx, user); err != nil {
				return err
			}
		}

		tlog.App.Debug().Int("clients", len(demoClients)).Int("users", len(demoUsers)).Msg("Seeded demo data")
	}

	for id, client := range app.config.Clients {
		if _, err := app.services.clientService.Seed(ctx, id, client); err != nil {
			return err
		}
	}

	if app.config.SeedFile == "" {
		return nil
	}

	seedFile, err := loadSeedFile(app.config.SeedFile)

	if err != nil {
		return err
	}

	for _, client := range seedFile.Clients {
		if _, err := app.services.clientService.Seed(ctx, "", client); err != nil {
			return err
		}
	}

	for _, user := range seedFile.Users {
		if err := app.services.userService.SeedUser(ctx, user); err != nil {
			return err
		}
	}

	tlog.App.Info().Str("file", app.config.SeedFile).Int("clients", len(seedFile.Clients)).Int("users", len(seedFile.Users)).Msg("Loaded seed file")

	return nil
}

func loadSeedFile(path string) (*config.SeedFile, error) {
	data, err := os.ReadFile(path)

	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}

	var seedFile config.SeedFile

	err = yaml.Unmarshal(data, &seedFile)

	if err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}

	return &seedFile, nil
}
