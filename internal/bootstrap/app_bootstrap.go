package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var overrideProviderNames = map[string]string{
	"google": "Google",
	"github": "GitHub",
}

type BootstrapApp struct {
	config  config.Config
	context struct {
		uuid              string
		cookieDomain      string
		sessionCookieName string
		stateCookieName   string
		csrfCookieName    string
		oauthProviders    map[string]config.OAuthServiceConfig
	}
	db       *sql.DB
	services Services
	router   *gin.Engine
}

func NewBootstrapApp(config config.Config) *BootstrapApp {
	return &BootstrapApp{
		config: config,
	}
}

// Setup prepares the database, services and routes without starting to listen.
func (app *BootstrapApp) Setup(ctx context.Context) error {
	appUrl, err := url.Parse(app.config.AppURL)

	if err != nil || appUrl.Hostname() == "" {
		return fmt.Errorf("invalid app url: %s", app.config.AppURL)
	}

	// Setup OAuth providers
	app.context.oauthProviders = make(map[string]config.OAuthServiceConfig, len(app.config.OAuth.Providers))

	for id, provider := range app.config.OAuth.Providers {
		provider.ClientSecret = utils.GetSecret(provider.ClientSecret, provider.ClientSecretFile)
		provider.ClientSecretFile = ""

		if provider.RedirectURL == "" {
			provider.RedirectURL = strings.TrimSuffix(app.config.AppURL, "/") + "/auth/" + id + "/callback"
		}

		if provider.Name == "" {
			if name, ok := overrideProviderNames[id]; ok {
				provider.Name = name
			} else {
				provider.Name = utils.Capitalize(id)
			}
		}

		app.context.oauthProviders[id] = provider
	}

	// Get cookie domain
	cookieDomain, err := utils.GetCookieDomain(app.config.AppURL)

	if err != nil {
		return err
	}

	app.context.cookieDomain = cookieDomain

	// Cookie names, the csrf cookie keeps its well known name so browser clients can read it
	app.context.uuid = utils.GenerateUUID(appUrl.Hostname())
	cookieId := strings.Split(app.context.uuid, "-")[0]
	app.context.sessionCookieName = fmt.Sprintf("%s-%s", config.SessionCookieName, cookieId)
	app.context.stateCookieName = fmt.Sprintf("%s-%s", config.StateCookieName, cookieId)
	app.context.csrfCookieName = config.CSRFCookieName

	// Dumps
	tlog.App.Trace().Interface("config", app.config).Msg("Config dump")
	tlog.App.Trace().Str("cookieDomain", app.context.cookieDomain).Msg("Cookie domain")
	tlog.App.Trace().Str("sessionCookieName", app.context.sessionCookieName).Msg("Session cookie name")
	tlog.App.Trace().Str("stateCookieName", app.context.stateCookieName).Msg("State cookie name")

	// Database
	db, err := SetupDatabase(app.config.DatabasePath)

	if err != nil {
		return fmt.Errorf("failed to setup database: %w", err)
	}

	app.db = db

	// Queries
	queries := repository.New(db)

	// Services
	services, err := app.initServices(queries)

	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	app.services = services

	// Seed
	err = app.seed(ctx)

	if err != nil {
		return fmt.Errorf("failed to seed database: %w", err)
	}

	// Setup router
	router, err := app.setupRouter()

	if err != nil {
		return fmt.Errorf("failed to setup routes: %w", err)
	}

	app.router = router

	return nil
}

func (app *BootstrapApp) Router() http.Handler {
	return app.router
}

func (app *BootstrapApp) SessionCookieName() string {
	return app.context.sessionCookieName
}

// Run serves HTTP and the background sweepers until ctx is cancelled.
func (app *BootstrapApp) Run(ctx context.Context) error {
	defer app.db.Close()

	address := fmt.Sprintf("%s:%d", app.config.Server.Address, app.config.Server.Port)

	server := &http.Server{
		Addr:              address,
		Handler:           app.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		tlog.App.Info().Msgf("Starting server on %s", address)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		tlog.App.Info().Msg("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	group.Go(func() error {
		return app.tokenCleanup(ctx)
	})

	group.Go(func() error {
		return app.dbCleanup(ctx)
	})

	if app.services.ldapService != nil {
		group.Go(func() error {
			return app.services.ldapService.Heartbeat(ctx, 5*time.Minute)
		})
	}

	return group.Wait()
}

func (app *BootstrapApp) tokenCleanup(ctx context.Context) error {
	interval := time.Duration(app.config.Token.TimeToCheckExpiredTokens) * time.Second

	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			removed, err := app.services.tokenService.RemoveExpired(ctx)
			if err != nil {
				tlog.App.Error().Err(err).Msg("Failed to remove expired access tokens")
				continue
			}
			tlog.App.Debug().Int64("removed", removed).Msg("Removed expired access tokens")
		}
	}
}

func (app *BootstrapApp) dbCleanup(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(30) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			tlog.App.Debug().Msg("Cleaning up old database sessions")
			if err := app.services.sessionService.DeleteExpired(ctx); err != nil {
				tlog.App.Error().Err(err).Msg("Failed to clean up old database sessions")
			}
			if err := app.services.oauth2Service.DeleteExpiredTransactions(ctx); err != nil {
				tlog.App.Error().Err(err).Msg("Failed to clean up expired transactions")
			}
			if err := app.services.rateLimitService.DeleteExpired(ctx); err != nil {
				tlog.App.Error().Err(err).Msg("Failed to clean up rate limit windows")
			}
		}
	}
}
