package service

import (
	"context"
	"errors"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"golang.org/x/exp/slices"
	"golang.org/x/oauth2"
)

type OAuthService interface {
	Init() error
	GenerateState() (string, error)
	GenerateVerifier() string
	GetAuthURL(state string, verifier string) string
	VerifyCode(ctx context.Context, code string, verifier string) (*oauth2.Token, error)
	Userinfo(ctx context.Context, token *oauth2.Token) (config.Claims, error)
	GetName() string
}

type OAuthBrokerService struct {
	services map[string]OAuthService
	configs  map[string]config.OAuthServiceConfig
}

func NewOAuthBrokerService(configs map[string]config.OAuthServiceConfig) *OAuthBrokerService {
	return &OAuthBrokerService{
		services: make(map[string]OAuthService),
		configs:  configs,
	}
}

func (broker *OAuthBrokerService) Init() error {
	for name, cfg := range broker.configs {
		switch name {
		case "github":
			broker.services[name] = NewGithubOAuthService(cfg)
		case "google":
			broker.services[name] = NewGoogleOAuthService(cfg)
		default:
			broker.services[name] = NewGenericOAuthService(cfg)
		}
	}

	for name, service := range broker.services {
		err := service.Init()
		if err != nil {
			tlog.App.Error().Err(err).Str("service", name).Msg("Failed to initialize OAuth service")
			return err
		}
		tlog.App.Info().Str("service", name).Msg("Initialized OAuth service")
	}

	return nil
}

func (broker *OAuthBrokerService) GetConfiguredServices() []string {
	services := make([]string, 0, len(broker.services))
	for name := range broker.services {
		services = append(services, name)
	}
	slices.Sort(services)
	return services
}

func (broker *OAuthBrokerService) GetService(name string) (OAuthService, bool) {
	service, exists := broker.services[name]
	return service, exists
}

func (broker *OAuthBrokerService) GetUser(ctx context.Context, name string, token *oauth2.Token) (config.Claims, error) {
	oauthService, exists := broker.services[name]
	if !exists {
		return config.Claims{}, errors.New("oauth service not found")
	}
	return oauthService.Userinfo(ctx, token)
}
