package main

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils"

	"github.com/google/uuid"
	"github.com/traefik/paerser/cli"
)

var clientNamePattern = regexp.MustCompile("^[a-zA-Z0-9-]+$")

type CreateClientConfig struct {
	RedirectURI string `description:"Redirect URI prefix of the client."`
	Trusted     bool   `description:"Skip the consent step for this client."`
}

func clientCmd() *cli.Command {
	cmd := &cli.Command{
		Name:          "client",
		Description:   "Manage OAuth clients",
		Configuration: nil,
		Resources:     nil,
		Run: func(_ []string) error {
			return errors.New("missing subcommand, use ssoauth client create <name>")
		},
	}

	_ = cmd.AddCommand(createClientCmd())

	return cmd
}

func createClientCmd() *cli.Command {
	tCfg := &CreateClientConfig{}

	return &cli.Command{
		Name:          "create",
		Description:   "Create credentials for a new OAuth client",
		Configuration: tCfg,
		Resources:     []cli.ResourceLoader{&cli.FlagLoader{}},
		AllowArg:      true,
		Run: func(args []string) error {
			if len(args) == 0 {
				return errors.New("client name is required. use ssoauth client create <name>")
			}

			clientName := args[0]

			if !clientNamePattern.MatchString(clientName) {
				return errors.New("client name can only contain alphanumeric characters and hyphens")
			}

			random, err := utils.GetRandomString(61)

			if err != nil {
				return fmt.Errorf("failed to generate client secret: %w", err)
			}

			clientId := uuid.NewString()
			clientSecret := "sa-" + random

			uclientName := strings.ToUpper(clientName)
			lclientName := strings.ToLower(clientName)
			prefix := config.DefaultNamePrefix + "CLIENTS_" + uclientName

			builder := strings.Builder{}

			fmt.Fprintf(&builder, "Created credentials for client %s\n\n", clientName)

			fmt.Fprintf(&builder, "Client Name: %s\n", clientName)
			fmt.Fprintf(&builder, "Client ID: %s\n", clientId)
			fmt.Fprintf(&builder, "Client Secret: %s\n\n", clientSecret)

			fmt.Fprint(&builder, "Environment variables:\n\n")
			fmt.Fprintf(&builder, "%s_CLIENTID=%s\n", prefix, clientId)
			fmt.Fprintf(&builder, "%s_CLIENTSECRET=%s\n", prefix, clientSecret)
			fmt.Fprintf(&builder, "%s_NAME=%s\n", prefix, utils.Capitalize(lclientName))
			if tCfg.RedirectURI != "" {
				fmt.Fprintf(&builder, "%s_REDIRECTURI=%s\n", prefix, tCfg.RedirectURI)
			}
			if tCfg.Trusted {
				fmt.Fprintf(&builder, "%s_TRUSTED=true\n", prefix)
			}
			fmt.Fprintln(&builder)

			fmt.Fprint(&builder, "CLI flags:\n\n")
			fmt.Fprintf(&builder, "--clients.%s.clientid=%s\n", lclientName, clientId)
			fmt.Fprintf(&builder, "--clients.%s.clientsecret=%s\n", lclientName, clientSecret)
			fmt.Fprintf(&builder, "--clients.%s.name=%s\n", lclientName, utils.Capitalize(lclientName))
			if tCfg.RedirectURI != "" {
				fmt.Fprintf(&builder, "--clients.%s.redirecturi=%s\n", lclientName, tCfg.RedirectURI)
			}
			if tCfg.Trusted {
				fmt.Fprintf(&builder, "--clients.%s.trusted=true\n", lclientName)
			}
			fmt.Fprintln(&builder)

			fmt.Fprintln(&builder, "Make sure to save these credentials, the secret cannot be recovered.")

			fmt.Print(builder.String())
			return nil
		},
	}
}
