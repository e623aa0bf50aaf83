package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"
)

type ClientService struct {
	queries *repository.Queries
}

func NewClientService(queries *repository.Queries) *ClientService {
	return &ClientService{
		queries: queries,
	}
}

func (service *ClientService) Init() error {
	return nil
}

func (service *ClientService) FindByID(ctx context.Context, id string) (*repository.Client, error) {
	client, err := service.queries.GetClientByID(ctx, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by id: %w", err)
	}

	return &client, nil
}

func (service *ClientService) FindByClientID(ctx context.Context, clientID string) (*repository.Client, error) {
	client, err := service.queries.GetClientByClientID(ctx, clientID)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by client id: %w", err)
	}

	return &client, nil
}

// FindByRedirectPrefix returns the first registered client whose redirect URI is a literal prefix of uri.
func (service *ClientService) FindByRedirectPrefix(ctx context.Context, uri string) (*repository.Client, error) {
	if uri == "" {
		return nil, nil
	}

	client, err := service.queries.GetClientByRedirectPrefix(ctx, uri)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get client by redirect uri: %w", err)
	}

	return &client, nil
}

func (service *ClientService) VerifySecret(client *repository.Client, secret string) bool {
	if client == nil || client.ClientSecret == "" {
		return false
	}
	return utils.SecureCompare(client.ClientSecret, secret)
}

// Authenticate resolves a client by its public id and checks the secret.
func (service *ClientService) Authenticate(ctx context.Context, clientID string, secret string) (*repository.Client, error) {
	client, err := service.FindByClientID(ctx, clientID)

	if err != nil {
		return nil, err
	}

	if client == nil || !service.VerifySecret(client, secret) {
		return nil, nil
	}

	return client, nil
}

func (service *ClientService) Seed(ctx context.Context, id string, cfg config.ClientConfig) (*repository.Client, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}

	if id == "" {
		id = utils.GenerateUUID(cfg.ClientID)
	}

	secret := utils.GetSecret(cfg.ClientSecret, cfg.ClientSecretFile)

	name := cfg.Name

	if name == "" {
		name = utils.Capitalize(cfg.ClientID)
	}

	client, err := service.queries.UpsertClient(ctx, repository.UpsertClientParams{
		ID:            id,
		ClientID:      cfg.ClientID,
		ClientSecret:  secret,
		Name:          name,
		TrustedClient: cfg.Trusted,
		RedirectURI:   cfg.RedirectURI,
		AllowedScopes: FormatScope(cfg.Scopes),
		CreatedAt:     time.Now().Unix(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to seed client %s: %w", cfg.ClientID, err)
	}

	tlog.App.Debug().Str("clientId", client.ClientID).Str("name", client.Name).Msg("Seeded client")

	return &client, nil
}
