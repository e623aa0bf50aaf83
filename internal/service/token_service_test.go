package service_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"

	"gotest.tools/v3/assert"
)

func TestTokenServiceInit(t *testing.T) {
	tokens := service.NewTokenService(service.TokenServiceConfig{
		ExpiresIn:               3600,
		AuthorizationCodeLength: 8,
		AccessTokenLength:       256,
		RefreshTokenLength:      256,
	}, nil)

	assert.ErrorContains(t, tokens.Init(), "too short")

	tokens = service.NewTokenService(service.TokenServiceConfig{}, nil)

	assert.ErrorContains(t, tokens.Init(), "token lifetime must be greater than 0")
}

func TestTokensNeverCarryTheirValue(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	client := s.seedClient(t, "1", config.ClientConfig{ClientID: "opaque", ClientSecret: "secret"})
	user := s.seedUser(t, "opaque", "password")

	code, err := s.tokens.IssueAuthorizationCode(ctx, client.ID, "http://localhost/callback", user.ID, []string{"login"})
	assert.NilError(t, err)
	assert.Equal(t, 16, len(code))

	token, expiresIn, err := s.tokens.IssueAccessToken(ctx, user.ID, client.ID, []string{"profile"})
	assert.NilError(t, err)
	assert.Equal(t, 256, len(token))
	assert.Equal(t, 3600, expiresIn)

	refreshToken, err := s.tokens.IssueRefreshToken(ctx, user.ID, client.ID, []string{"offline_access"})
	assert.NilError(t, err)

	foundCode, err := s.tokens.FindAuthorizationCode(ctx, code)
	assert.NilError(t, err)
	assert.Assert(t, foundCode != nil)
	assert.Equal(t, "login", foundCode.Scope)

	foundToken, err := s.tokens.FindAccessToken(ctx, token)
	assert.NilError(t, err)
	assert.Assert(t, foundToken != nil)
	assert.Equal(t, user.ID, foundToken.UserID.String)

	foundRefresh, err := s.tokens.FindRefreshToken(ctx, refreshToken)
	assert.NilError(t, err)
	assert.Assert(t, foundRefresh != nil)

	for value, record := range map[string]any{code: foundCode, token: foundToken, refreshToken: foundRefresh} {
		encoded, err := json.Marshal(record)
		assert.NilError(t, err)
		assert.Assert(t, !strings.Contains(string(encoded), value))
	}
}

func TestExpiredAccessTokenIsAbsent(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	client := s.seedClient(t, "1", config.ClientConfig{ClientID: "expiring", ClientSecret: "secret"})

	err := s.queries.CreateAccessToken(ctx, repository.CreateAccessTokenParams{
		Token:          "expired-token",
		UserID:         sql.NullString{},
		ClientID:       client.ID,
		ExpirationDate: time.Now().Add(-time.Minute).UnixMilli(),
		Scope:          "*",
	})
	assert.NilError(t, err)

	found, err := s.tokens.FindAccessToken(ctx, "expired-token")
	assert.NilError(t, err)
	assert.Assert(t, found == nil)

	// removed on sight
	deleted, err := s.tokens.DeleteAccessToken(ctx, "expired-token")
	assert.NilError(t, err)
	assert.Equal(t, int64(0), deleted)

	info, err := s.oauth2.TokenInfo(ctx, "expired-token")
	assert.Assert(t, info == nil)
	assert.ErrorContains(t, err, service.ErrInvalidToken)
}

func TestRemoveExpired(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	client := s.seedClient(t, "1", config.ClientConfig{ClientID: "sweep", ClientSecret: "secret"})

	for i, expiration := range []time.Duration{-time.Hour, -time.Second, time.Hour} {
		err := s.queries.CreateAccessToken(ctx, repository.CreateAccessTokenParams{
			Token:          "token-" + string(rune('a'+i)),
			ClientID:       client.ID,
			ExpirationDate: time.Now().Add(expiration).UnixMilli(),
		})
		assert.NilError(t, err)
	}

	removed, err := s.tokens.RemoveExpired(ctx)
	assert.NilError(t, err)
	assert.Equal(t, int64(2), removed)

	live, err := s.tokens.FindAccessToken(ctx, "token-c")
	assert.NilError(t, err)
	assert.Assert(t, live != nil)
	assert.Assert(t, s.tokens.ExpiresInSeconds(live) > 3590)
}

func TestDeleteAuthorizationCodeOnce(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	code, err := s.tokens.IssueAuthorizationCode(ctx, "client", "http://localhost", "user", nil)
	assert.NilError(t, err)

	deleted, err := s.tokens.DeleteAuthorizationCode(ctx, code)
	assert.NilError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = s.tokens.DeleteAuthorizationCode(ctx, code)
	assert.NilError(t, err)
	assert.Equal(t, int64(0), deleted)
}
