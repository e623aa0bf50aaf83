package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/traefik/paerser/cli"
)

type healthResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func healthcheckCmd() *cli.Command {
	return &cli.Command{
		Name:          "healthcheck",
		Description:   "Perform a health check",
		Configuration: nil,
		Resources:     nil,
		AllowArg:      true,
		Run: func(args []string) error {
			tlog.NewSimpleLogger().Init()

			appUrl := os.Getenv(config.DefaultNamePrefix + "APPURL")

			if len(args) > 0 {
				appUrl = args[0]
			}

			if appUrl == "" {
				return errors.New(config.DefaultNamePrefix + "APPURL is not set and no argument was provided")
			}

			tlog.App.Info().Str("app_url", appUrl).Msg("Performing health check")

			client := http.Client{
				Timeout: 30 * time.Second,
			}

			req, err := http.NewRequest("GET", strings.TrimSuffix(appUrl, "/")+"/api/health", nil)

			if err != nil {
				return fmt.Errorf("failed to create request: %w", err)
			}

			resp, err := client.Do(req)

			if err != nil {
				return fmt.Errorf("failed to perform request: %w", err)
			}

			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("service is not healthy, got: %s", resp.Status)
			}

			var health healthResponse

			body, err := io.ReadAll(resp.Body)

			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			err = json.Unmarshal(body, &health)

			if err != nil {
				return fmt.Errorf("failed to decode response: %w", err)
			}

			tlog.App.Info().Interface("response", health).Msg("ssoauth is healthy")

			return nil
		},
	}
}
