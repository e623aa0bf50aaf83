package bootstrap

import (
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"
)

type Services struct {
	ldapService        *service.LdapService
	clientService      *service.ClientService
	tokenService       *service.TokenService
	userService        *service.UserService
	sessionService     *service.SessionService
	rateLimitService   *service.RateLimitService
	oauth2Service      *service.OAuth2Service
	casService         *service.CasService
	oauthBrokerService *service.OAuthBrokerService
}

type initializer interface {
	Init() error
}

func initAll(services ...initializer) error {
	for _, svc := range services {
		if err := svc.Init(); err != nil {
			return err
		}
	}
	return nil
}

func (app *BootstrapApp) initServices(queries *repository.Queries) (Services, error) {
	services := Services{}

	if app.config.Ldap.Address != "" {
		ldapService := service.NewLdapService(service.LdapServiceConfig{
			Address:      app.config.Ldap.Address,
			BindDN:       app.config.Ldap.BindDN,
			BindPassword: app.config.Ldap.BindPassword,
			BaseDN:       app.config.Ldap.BaseDN,
			Insecure:     app.config.Ldap.Insecure,
			SearchFilter: app.config.Ldap.SearchFilter,
			AuthCert:     app.config.Ldap.AuthCert,
			AuthKey:      app.config.Ldap.AuthKey,
		})

		err := ldapService.Init()

		if err == nil {
			services.ldapService = ldapService
		} else {
			tlog.App.Warn().Err(err).Msg("Failed to initialize LDAP service, continuing without it")
		}
	}

	services.clientService = service.NewClientService(queries)

	services.tokenService = service.NewTokenService(service.TokenServiceConfig{
		ExpiresIn:               app.config.Token.ExpiresIn,
		AuthorizationCodeLength: app.config.Token.AuthorizationCodeLength,
		AccessTokenLength:       app.config.Token.AccessTokenLength,
		RefreshTokenLength:      app.config.Token.RefreshTokenLength,
	}, queries)

	services.userService = service.NewUserService(service.UserServiceConfig{
		LoginTimeout:    app.config.Auth.LoginTimeout,
		LoginMaxRetries: app.config.Auth.LoginMaxRetries,
	}, queries, services.ldapService)

	services.sessionService = service.NewSessionService(service.SessionServiceConfig{
		CookieName:     app.context.sessionCookieName,
		CSRFCookieName: app.context.csrfCookieName,
		CookieDomain:   app.context.cookieDomain,
		SecureCookie:   app.config.Auth.SecureCookie,
		SessionExpiry:  app.config.Auth.SessionExpiry,
	}, queries)

	services.rateLimitService = service.NewRateLimitService(app.config.RateLimit, service.NewMemoryRateLimitStore())

	services.oauth2Service = service.NewOAuth2Service(service.OAuth2ServiceConfig{}, queries, services.clientService, services.tokenService, services.userService)

	services.casService = service.NewCasService(services.tokenService, services.userService)

	services.oauthBrokerService = service.NewOAuthBrokerService(app.context.oauthProviders)

	err := initAll(
		services.clientService,
		services.tokenService,
		services.userService,
		services.sessionService,
		services.rateLimitService,
		services.oauth2Service,
		services.casService,
		services.oauthBrokerService,
	)

	if err != nil {
		return Services{}, err
	}

	return services, nil
}
