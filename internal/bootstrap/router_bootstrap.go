package bootstrap

import (
	"fmt"
	"strings"

	"github.com/ssoauth/ssoauth/internal/controller"
	"github.com/ssoauth/ssoauth/internal/middleware"
	"github.com/ssoauth/ssoauth/internal/policy"

	"github.com/gin-gonic/gin"
)

func (app *BootstrapApp) setupRouter() (*gin.Engine, error) {
	engine := gin.New()
	engine.Use(gin.Recovery())

	if len(app.config.TrustedProxies) > 0 {
		err := engine.SetTrustedProxies(strings.Split(app.config.TrustedProxies, ","))

		if err != nil {
			return nil, fmt.Errorf("failed to set trusted proxies: %w", err)
		}
	}

	zerologMiddleware := middleware.NewZerologMiddleware()

	err := zerologMiddleware.Init()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize zerolog middleware: %w", err)
	}

	engine.Use(zerologMiddleware.Middleware())

	policies := policy.NewEngine(policy.EngineConfig{
		AppURL:         app.config.AppURL,
		CORSOrigin:     app.config.CORS.Origin,
		CSRFCookieName: app.context.csrfCookieName,
	}, app.services.sessionService, app.services.userService, app.services.oauth2Service, app.services.rateLimitService)

	err = policies.Init()

	if err != nil {
		return nil, fmt.Errorf("failed to initialize policy engine: %w", err)
	}

	rootRouter := &engine.RouterGroup
	apiRouter := engine.Group("/api")

	sessionController := controller.NewSessionController(rootRouter, policies, app.services.userService, app.services.sessionService, app.services.oauthBrokerService)

	sessionController.SetupRoutes()

	oauthController := controller.NewOAuthController(controller.OAuthControllerConfig{
		StateCookieName: app.context.stateCookieName,
		SecureCookie:    app.config.Auth.SecureCookie,
		CookieDomain:    app.context.cookieDomain,
	}, rootRouter, policies, app.services.oauthBrokerService, app.services.userService, app.services.sessionService)

	oauthController.SetupRoutes()

	oauth2Controller := controller.NewOAuth2Controller(rootRouter, policies, app.services.oauth2Service, app.services.clientService)

	oauth2Controller.SetupRoutes()

	casController := controller.NewCasController(rootRouter, policies, app.services.oauth2Service, app.services.clientService, app.services.casService, app.services.sessionService)

	casController.SetupRoutes()

	apiController := controller.NewApiController(rootRouter, policies)

	apiController.SetupRoutes()

	healthController := controller.NewHealthController(apiRouter)

	healthController.SetupRoutes()

	return engine, nil
}
