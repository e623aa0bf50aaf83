package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ssoauth/ssoauth/internal/bootstrap"
	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/charmbracelet/huh"
	"github.com/traefik/paerser/cli"
)

type CreateUserConfig struct {
	Interactive  bool   `description:"Create a user interactively."`
	DatabasePath string `description:"The path to the database file."`
	Username     string `description:"Username."`
	Email        string `description:"Email address."`
	Name         string `description:"Display name."`
	Password     string `description:"Password."`
	Role         string `description:"Role (user or admin)."`
}

func NewCreateUserConfig() *CreateUserConfig {
	return &CreateUserConfig{
		Interactive:  false,
		DatabasePath: "./ssoauth.db",
		Role:         "user",
	}
}

func notEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return fmt.Errorf("%s cannot be empty", field)
		}
		return nil
	}
}

func userCmd() *cli.Command {
	cmd := &cli.Command{
		Name:          "user",
		Description:   "Manage local users",
		Configuration: nil,
		Resources:     nil,
		Run: func(_ []string) error {
			return errors.New("missing subcommand, use ssoauth user create")
		},
	}

	// only fails on duplicate names
	_ = cmd.AddCommand(createUserCmd())

	return cmd
}

func createUserCmd() *cli.Command {
	tCfg := NewCreateUserConfig()

	loaders := []cli.ResourceLoader{
		&cli.FlagLoader{},
	}

	return &cli.Command{
		Name:          "create",
		Description:   "Create a local user",
		Configuration: tCfg,
		Resources:     loaders,
		Run: func(_ []string) error {
			tlog.NewSimpleLogger().Init()

			if tCfg.Interactive {
				form := huh.NewForm(
					huh.NewGroup(
						huh.NewInput().Title("Username").Value(&tCfg.Username).Validate(notEmpty("username")),
						huh.NewInput().Title("Email").Value(&tCfg.Email),
						huh.NewInput().Title("Name").Value(&tCfg.Name),
						huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&tCfg.Password).Validate(notEmpty("password")),
						huh.NewSelect[string]().Title("Role").Options(huh.NewOption("User", "user"), huh.NewOption("Admin", "admin")).Value(&tCfg.Role),
					),
				)

				var baseTheme *huh.Theme = huh.ThemeBase()

				err := form.WithTheme(baseTheme).Run()

				if err != nil {
					return fmt.Errorf("failed to run interactive prompt: %w", err)
				}
			}

			if tCfg.Username == "" || tCfg.Password == "" {
				return errors.New("username and password cannot be empty")
			}

			db, err := bootstrap.SetupDatabase(tCfg.DatabasePath)

			if err != nil {
				return fmt.Errorf("failed to setup database: %w", err)
			}

			defer db.Close()

			users := service.NewUserService(service.UserServiceConfig{}, repository.New(db), nil)

			ctx := context.Background()

			existing, err := users.FindByLogin(ctx, tCfg.Username)

			if err != nil {
				return err
			}

			if existing != nil {
				return fmt.Errorf("user %s already exists", tCfg.Username)
			}

			tlog.App.Info().Str("username", tCfg.Username).Msg("Creating user")

			user, err := users.CreateUser(ctx, config.SeedUser{
				Username: tCfg.Username,
				Email:    tCfg.Email,
				Name:     tCfg.Name,
				Password: tCfg.Password,
				Role:     tCfg.Role,
			})

			if err != nil {
				return err
			}

			tlog.App.Info().Str("id", user.ID).Str("username", user.Username).Str("role", user.Role).Msg("User created")

			return nil
		},
	}
}
