package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"
)

type TokenServiceConfig struct {
	// seconds
	ExpiresIn               int
	AuthorizationCodeLength int
	AccessTokenLength       int
	RefreshTokenLength      int
}

type TokenService struct {
	config  TokenServiceConfig
	queries *repository.Queries
	now     func() time.Time
}

func NewTokenService(config TokenServiceConfig, queries *repository.Queries) *TokenService {
	return &TokenService{
		config:  config,
		queries: queries,
		now:     time.Now,
	}
}

func (service *TokenService) Init() error {
	if service.config.ExpiresIn <= 0 {
		return errors.New("token lifetime must be greater than 0")
	}

	for _, length := range []int{service.config.AuthorizationCodeLength, service.config.AccessTokenLength, service.config.RefreshTokenLength} {
		if length < 16 {
			return fmt.Errorf("token length %d is too short, must be at least 16", length)
		}
	}

	return nil
}

func (service *TokenService) ExpiresIn() int {
	return service.config.ExpiresIn
}

func (service *TokenService) IssueAuthorizationCode(ctx context.Context, clientID string, redirectURI string, userID string, scope []string) (string, error) {
	code, err := utils.GetRandomString(service.config.AuthorizationCodeLength)

	if err != nil {
		return "", fmt.Errorf("failed to generate authorization code: %w", err)
	}

	err = service.queries.CreateAuthorizationCode(ctx, repository.CreateAuthorizationCodeParams{
		Code:        code,
		ClientID:    clientID,
		UserID:      userID,
		RedirectURI: redirectURI,
		Scope:       FormatScope(scope),
		CreatedAt:   service.now().Unix(),
	})

	if err != nil {
		return "", fmt.Errorf("failed to store authorization code: %w", err)
	}

	return code, nil
}

func (service *TokenService) FindAuthorizationCode(ctx context.Context, code string) (*repository.AuthorizationCode, error) {
	authCode, err := service.queries.GetAuthorizationCode(ctx, code)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get authorization code: %w", err)
	}

	return &authCode, nil
}

// DeleteAuthorizationCode returns the number of rows removed, only one caller ever sees 1 for a given code.
func (service *TokenService) DeleteAuthorizationCode(ctx context.Context, code string) (int64, error) {
	deleted, err := service.queries.DeleteAuthorizationCode(ctx, code)

	if err != nil {
		return 0, fmt.Errorf("failed to delete authorization code: %w", err)
	}

	return deleted, nil
}

// IssueAccessToken stores a new bearer token, userID is empty for client credentials tokens.
func (service *TokenService) IssueAccessToken(ctx context.Context, userID string, clientID string, scope []string) (string, int, error) {
	token, err := utils.GetRandomString(service.config.AccessTokenLength)

	if err != nil {
		return "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	expiresIn := service.config.ExpiresIn
	expiration := service.now().Add(time.Duration(expiresIn) * time.Second).UnixMilli()

	err = service.queries.CreateAccessToken(ctx, repository.CreateAccessTokenParams{
		Token:          token,
		UserID:         nullString(userID),
		ClientID:       clientID,
		ExpirationDate: expiration,
		Scope:          FormatScope(scope),
	})

	if err != nil {
		return "", 0, fmt.Errorf("failed to store access token: %w", err)
	}

	return token, expiresIn, nil
}

// FindAccessToken returns nil for unknown tokens and for expired ones, which are removed on sight.
func (service *TokenService) FindAccessToken(ctx context.Context, token string) (*repository.AccessToken, error) {
	accessToken, err := service.queries.GetAccessToken(ctx, token)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get access token: %w", err)
	}

	if accessToken.ExpirationDate < service.now().UnixMilli() {
		tlog.App.Debug().Str("clientId", accessToken.ClientID).Msg("Access token expired, removing")

		_, err := service.queries.DeleteAccessToken(ctx, token)

		if err != nil {
			return nil, fmt.Errorf("failed to delete expired access token: %w", err)
		}

		return nil, nil
	}

	return &accessToken, nil
}

func (service *TokenService) DeleteAccessToken(ctx context.Context, token string) (int64, error) {
	deleted, err := service.queries.DeleteAccessToken(ctx, token)

	if err != nil {
		return 0, fmt.Errorf("failed to delete access token: %w", err)
	}

	return deleted, nil
}

// ExpiresInSeconds is the remaining lifetime of a token, floored.
func (service *TokenService) ExpiresInSeconds(token *repository.AccessToken) int64 {
	return (token.ExpirationDate - service.now().UnixMilli()) / 1000
}

func (service *TokenService) IssueRefreshToken(ctx context.Context, userID string, clientID string, scope []string) (string, error) {
	token, err := utils.GetRandomString(service.config.RefreshTokenLength)

	if err != nil {
		return "", fmt.Errorf("failed to generate refresh token: %w", err)
	}

	err = service.queries.CreateRefreshToken(ctx, repository.CreateRefreshTokenParams{
		Token:    token,
		UserID:   nullString(userID),
		ClientID: clientID,
		Scope:    FormatScope(scope),
	})

	if err != nil {
		return "", fmt.Errorf("failed to store refresh token: %w", err)
	}

	return token, nil
}

func (service *TokenService) FindRefreshToken(ctx context.Context, token string) (*repository.RefreshToken, error) {
	refreshToken, err := service.queries.GetRefreshToken(ctx, token)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get refresh token: %w", err)
	}

	return &refreshToken, nil
}

func (service *TokenService) DeleteRefreshToken(ctx context.Context, token string) (int64, error) {
	deleted, err := service.queries.DeleteRefreshToken(ctx, token)

	if err != nil {
		return 0, fmt.Errorf("failed to delete refresh token: %w", err)
	}

	return deleted, nil
}

// RemoveExpired deletes every access token past its expiration date.
func (service *TokenService) RemoveExpired(ctx context.Context) (int64, error) {
	deleted, err := service.queries.DeleteExpiredAccessTokens(ctx, service.now().UnixMilli())

	if err != nil {
		return 0, fmt.Errorf("failed to delete expired access tokens: %w", err)
	}

	return deleted, nil
}

func nullString(str string) sql.NullString {
	return sql.NullString{String: str, Valid: str != ""}
}
