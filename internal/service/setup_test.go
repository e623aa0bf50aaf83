package service_test

import (
	"context"
	"testing"

	"github.com/ssoauth/ssoauth/internal/bootstrap"
	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"gotest.tools/v3/assert"
)

type testServices struct {
	queries *repository.Queries
	clients *service.ClientService
	tokens  *service.TokenService
	users   *service.UserService
	oauth2  *service.OAuth2Service
	cas     *service.CasService
}

func setupServices(t *testing.T) *testServices {
	tlog.NewSimpleLogger().Init()

	db, err := bootstrap.SetupDatabase(":memory:")
	assert.NilError(t, err)

	t.Cleanup(func() { db.Close() })

	queries := repository.New(db)

	clients := service.NewClientService(queries)
	assert.NilError(t, clients.Init())

	tokens := service.NewTokenService(service.TokenServiceConfig{
		ExpiresIn:               3600,
		AuthorizationCodeLength: 16,
		AccessTokenLength:       256,
		RefreshTokenLength:      256,
	}, queries)
	assert.NilError(t, tokens.Init())

	users := service.NewUserService(service.UserServiceConfig{
		LoginTimeout:    300,
		LoginMaxRetries: 3,
	}, queries, nil)
	assert.NilError(t, users.Init())

	oauth2 := service.NewOAuth2Service(service.OAuth2ServiceConfig{}, queries, clients, tokens, users)
	assert.NilError(t, oauth2.Init())

	cas := service.NewCasService(tokens, users)
	assert.NilError(t, cas.Init())

	return &testServices{
		queries: queries,
		clients: clients,
		tokens:  tokens,
		users:   users,
		oauth2:  oauth2,
		cas:     cas,
	}
}

func (s *testServices) seedClient(t *testing.T, id string, cfg config.ClientConfig) *repository.Client {
	client, err := s.clients.Seed(context.Background(), id, cfg)
	assert.NilError(t, err)
	return client
}

func (s *testServices) seedUser(t *testing.T, username string, password string) *repository.User {
	user, err := s.users.CreateUser(context.Background(), config.SeedUser{
		Username: username,
		Email:    username + "@example.com",
		Password: password,
	})
	assert.NilError(t, err)
	return user
}
