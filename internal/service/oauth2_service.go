package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/google/go-querystring/query"
	"github.com/google/uuid"
)

const (
	ResponseTypeCode  = "code"
	ResponseTypeToken = "token"
	ResponseTypeCas   = "cas"
)

const (
	GrantAuthorizationCode = "authorization_code"
	GrantPassword          = "password"
	GrantClientCredentials = "client_credentials"
	GrantRefreshToken      = "refresh_token"
)

const TicketPrefix = "ST-"

type OAuth2ServiceConfig struct {
	// seconds a pending consent decision stays valid
	TransactionExpiry int
}

type AuthorizeRequest struct {
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        []string
	State        string
}

type TokenRequest struct {
	GrantType    string
	Code         string
	RedirectURI  string
	Username     string
	Password     string
	RefreshToken string
	Scope        []string
}

type TokenResponse struct {
	AccessToken  string `json:"access_token" url:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty" url:"refresh_token,omitempty"`
	ExpiresIn    int    `json:"expires_in" url:"expires_in"`
	TokenType    string `json:"token_type" url:"token_type"`
	// user id, or the client id for client credentials tokens
	Subject string `json:"-" url:"-"`
}

type TokenInfo struct {
	Audience  string `json:"audience"`
	UserID    string `json:"userid,omitempty"`
	ExpiresIn int64  `json:"expires_in"`
}

type OAuth2Service struct {
	config  OAuth2ServiceConfig
	queries *repository.Queries
	clients *ClientService
	tokens  *TokenService
	users   *UserService
}

func NewOAuth2Service(config OAuth2ServiceConfig, queries *repository.Queries, clients *ClientService, tokens *TokenService, users *UserService) *OAuth2Service {
	return &OAuth2Service{
		config:  config,
		queries: queries,
		clients: clients,
		tokens:  tokens,
		users:   users,
	}
}

func (service *OAuth2Service) Init() error {
	if service.config.TransactionExpiry <= 0 {
		service.config.TransactionExpiry = 600
	}
	return nil
}

// Authorize resolves and validates the client of an authorization request.
func (service *OAuth2Service) Authorize(ctx context.Context, req *AuthorizeRequest) (*repository.Client, error) {
	if req.ResponseType == "" {
		return nil, InvalidRequest("Missing required parameter: response_type")
	}

	if !isSupportedResponseType(req.ResponseType) {
		return nil, UnsupportedResponseType("Unsupported response type: " + req.ResponseType)
	}

	if len(req.Scope) == 0 {
		req.Scope = []string{WildcardScope}
	}

	var client *repository.Client
	var err error

	if req.ClientID == "" && req.RedirectURI != "" {
		client, err = service.clients.FindByRedirectPrefix(ctx, req.RedirectURI)
	} else {
		client, err = service.clients.FindByClientID(ctx, req.ClientID)
	}

	if err != nil {
		return nil, err
	}

	if client == nil {
		return nil, InvalidRequest("Unknown client")
	}

	// the supplied value stays on the request, codes are bound to exactly what the client sent
	target := redirectTarget(client, req.RedirectURI)

	if target == "" || !strings.HasPrefix(target, client.RedirectURI) {
		return nil, UnauthorizedClient("Invalid redirectUri")
	}

	if !HasAllowedScopes(req.Scope, client) {
		return nil, InvalidScope("Invalid scope")
	}

	return client, nil
}

// redirectTarget is where the user agent is sent, the registered uri when none was supplied.
func redirectTarget(client *repository.Client, redirectURI string) string {
	if redirectURI == "" {
		return client.RedirectURI
	}
	return redirectURI
}

func isSupportedResponseType(responseType string) bool {
	switch responseType {
	case ResponseTypeCode, ResponseTypeToken, ResponseTypeCas:
		return true
	default:
		return false
	}
}

// Grant issues whatever the response type asks for and returns the redirect target.
func (service *OAuth2Service) Grant(ctx context.Context, client *repository.Client, user *repository.User, responseType string, redirectURI string, scope []string, state string) (string, error) {
	target := redirectTarget(client, redirectURI)

	switch responseType {
	case ResponseTypeCode:
		code, err := service.tokens.IssueAuthorizationCode(ctx, client.ID, redirectURI, user.ID, scope)

		if err != nil {
			return "", err
		}

		return withQuery(target, config.CodeRedirectQuery{Code: code, State: state})
	case ResponseTypeToken:
		token, expiresIn, err := service.tokens.IssueAccessToken(ctx, user.ID, client.ID, scope)

		if err != nil {
			return "", err
		}

		return withFragment(target, config.TokenFragment{
			AccessToken: token,
			ExpiresIn:   expiresIn,
			TokenType:   "Bearer",
			State:       state,
		})
	case ResponseTypeCas:
		code, err := service.tokens.IssueAuthorizationCode(ctx, client.ID, redirectURI, user.ID, scope)

		if err != nil {
			return "", err
		}

		return withQuery(target, config.TicketRedirectQuery{Ticket: TicketPrefix + code})
	default:
		return "", UnsupportedResponseType("Unsupported response type: " + responseType)
	}
}

// DenyRedirect is where the user agent goes when consent is refused.
func (service *OAuth2Service) DenyRedirect(client *repository.Client, responseType string, redirectURI string, state string) (string, error) {
	redirectURI = redirectTarget(client, redirectURI)

	params := config.ErrorRedirectQuery{
		Error:            ErrAccessDenied,
		ErrorDescription: "User denied access",
		State:            state,
	}

	if responseType == ResponseTypeToken {
		return withFragment(redirectURI, params)
	}

	return withQuery(redirectURI, params)
}

func (service *OAuth2Service) CreateTransaction(ctx context.Context, sessionUUID string, user *repository.User, client *repository.Client, req *AuthorizeRequest) (string, error) {
	id := uuid.NewString()

	err := service.queries.CreateTransaction(ctx, repository.CreateTransactionParams{
		ID:           id,
		SessionUUID:  sessionUUID,
		UserID:       user.ID,
		ClientID:     client.ID,
		RedirectURI:  req.RedirectURI,
		ResponseType: req.ResponseType,
		Scope:        FormatScope(req.Scope),
		State:        req.State,
		Expiry:       time.Now().Add(time.Duration(service.config.TransactionExpiry) * time.Second).Unix(),
	})

	if err != nil {
		return "", fmt.Errorf("failed to create transaction: %w", err)
	}

	return id, nil
}

// ConsumeTransaction loads a pending decision bound to this session and user and removes it.
func (service *OAuth2Service) ConsumeTransaction(ctx context.Context, id string, sessionUUID string, userID string) (*repository.OauthTransaction, error) {
	if id == "" {
		return nil, InvalidRequest("Missing required parameter: transaction_id")
	}

	txn, err := service.queries.GetTransaction(ctx, id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, InvalidRequest("Unable to load OAuth 2.0 transaction: " + id)
		}
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}

	if txn.SessionUUID != sessionUUID || txn.UserID != userID {
		return nil, InvalidRequest("Unable to load OAuth 2.0 transaction: " + id)
	}

	deleted, err := service.queries.DeleteTransaction(ctx, id)

	if err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}

	if deleted == 0 || txn.Expiry < time.Now().Unix() {
		return nil, InvalidRequest("Unable to load OAuth 2.0 transaction: " + id)
	}

	return &txn, nil
}

func (service *OAuth2Service) DeleteExpiredTransactions(ctx context.Context) error {
	err := service.queries.DeleteExpiredTransactions(ctx, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to delete expired transactions: %w", err)
	}

	return nil
}

// Exchange runs a token endpoint grant for an authenticated client.
func (service *OAuth2Service) Exchange(ctx context.Context, client *repository.Client, req *TokenRequest) (*TokenResponse, error) {
	if len(req.Scope) == 0 {
		req.Scope = []string{WildcardScope}
	}

	switch req.GrantType {
	case GrantAuthorizationCode:
		return service.exchangeCode(ctx, client, req)
	case GrantPassword:
		return service.exchangePassword(ctx, client, req)
	case GrantClientCredentials:
		return service.exchangeClientCredentials(ctx, client, req)
	case GrantRefreshToken:
		return service.exchangeRefreshToken(ctx, client, req)
	default:
		return nil, UnsupportedGrantType("Unsupported grant type: " + req.GrantType)
	}
}

func (service *OAuth2Service) exchangeCode(ctx context.Context, client *repository.Client, req *TokenRequest) (*TokenResponse, error) {
	if req.Code == "" {
		return nil, InvalidRequest("Missing required parameter: code")
	}

	code, err := service.tokens.FindAuthorizationCode(ctx, req.Code)

	if err != nil {
		return nil, err
	}

	if code == nil || code.ClientID != client.ID || code.RedirectURI != req.RedirectURI {
		return nil, InvalidGrant("Invalid authorization code")
	}

	deleted, err := service.tokens.DeleteAuthorizationCode(ctx, req.Code)

	if err != nil {
		return nil, err
	}

	// lost the race against a concurrent exchange of the same code
	if deleted == 0 {
		return nil, InvalidGrant("Invalid authorization code")
	}

	return service.issue(ctx, code.UserID, client.ID, ParseScope(code.Scope), true)
}

func (service *OAuth2Service) exchangePassword(ctx context.Context, client *repository.Client, req *TokenRequest) (*TokenResponse, error) {
	if !HasAllowedScopes(req.Scope, client) {
		return nil, InvalidScope("Invalid scope")
	}

	if req.Username == "" || req.Password == "" {
		return nil, InvalidRequest("Missing required parameter: username or password")
	}

	locked, remaining := service.users.IsAccountLocked(req.Username)

	if locked {
		return nil, &OAuthError{
			Code:        ErrInvalidGrant,
			Description: fmt.Sprintf("Too many failed login attempts. Try again in %d seconds", remaining),
			Status:      http.StatusTooManyRequests,
		}
	}

	user, err := service.users.Authenticate(ctx, req.Username, req.Password)

	if err != nil {
		return nil, err
	}

	if user == nil {
		service.users.RecordLoginAttempt(req.Username, false)
		return nil, InvalidGrant("Invalid resource owner credentials")
	}

	service.users.RecordLoginAttempt(req.Username, true)

	return service.issue(ctx, user.ID, client.ID, req.Scope, true)
}

func (service *OAuth2Service) exchangeClientCredentials(ctx context.Context, client *repository.Client, req *TokenRequest) (*TokenResponse, error) {
	if !HasAllowedScopes(req.Scope, client) {
		return nil, InvalidScope("Invalid scope")
	}

	response, err := service.issue(ctx, "", client.ID, req.Scope, false)

	if err != nil {
		return nil, err
	}

	response.Subject = client.ClientID
	return response, nil
}

func (service *OAuth2Service) exchangeRefreshToken(ctx context.Context, client *repository.Client, req *TokenRequest) (*TokenResponse, error) {
	if req.RefreshToken == "" {
		return nil, InvalidRequest("Missing required parameter: refresh_token")
	}

	refreshToken, err := service.tokens.FindRefreshToken(ctx, req.RefreshToken)

	if err != nil {
		return nil, err
	}

	if refreshToken == nil || refreshToken.ClientID != client.ID {
		return nil, InvalidGrant("Invalid refresh token")
	}

	token, expiresIn, err := service.tokens.IssueAccessToken(ctx, refreshToken.UserID.String, client.ID, ParseScope(refreshToken.Scope))

	if err != nil {
		return nil, err
	}

	return &TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Subject:     refreshToken.UserID.String,
	}, nil
}

func (service *OAuth2Service) issue(ctx context.Context, userID string, clientID string, scope []string, allowRefresh bool) (*TokenResponse, error) {
	token, expiresIn, err := service.tokens.IssueAccessToken(ctx, userID, clientID, scope)

	if err != nil {
		return nil, err
	}

	response := &TokenResponse{
		AccessToken: token,
		ExpiresIn:   expiresIn,
		TokenType:   "Bearer",
		Subject:     userID,
	}

	if allowRefresh && userID != "" && slices.Contains(scope, OfflineAccessScope) {
		refreshToken, err := service.tokens.IssueRefreshToken(ctx, userID, clientID, scope)

		if err != nil {
			return nil, err
		}

		response.RefreshToken = refreshToken
	}

	return response, nil
}

// TokenInfo describes a live access token, every failure is reported as invalid_token.
func (service *OAuth2Service) TokenInfo(ctx context.Context, token string) (*TokenInfo, error) {
	if token == "" {
		return nil, InvalidToken()
	}

	accessToken, err := service.tokens.FindAccessToken(ctx, token)

	if err != nil {
		return nil, err
	}

	if accessToken == nil {
		return nil, InvalidToken()
	}

	client, err := service.clients.FindByID(ctx, accessToken.ClientID)

	if err != nil {
		return nil, err
	}

	if client == nil {
		return nil, InvalidToken()
	}

	expiresIn := service.tokens.ExpiresInSeconds(accessToken)

	if expiresIn <= 0 {
		return nil, InvalidToken()
	}

	return &TokenInfo{
		Audience:  client.ClientID,
		UserID:    accessToken.UserID.String,
		ExpiresIn: expiresIn,
	}, nil
}

// Introspect resolves a bearer token into the principal it was issued for. It returns nil when the
// token is unknown, expired, or its client or user is gone.
func (service *OAuth2Service) Introspect(ctx context.Context, token string) (*config.UserContext, error) {
	accessToken, err := service.tokens.FindAccessToken(ctx, token)

	if err != nil || accessToken == nil {
		return nil, err
	}

	client, err := service.clients.FindByID(ctx, accessToken.ClientID)

	if err != nil || client == nil {
		return nil, err
	}

	authInfo := &config.AuthInfo{
		Scope:  ParseScope(accessToken.Scope),
		Client: client,
	}

	if !accessToken.UserID.Valid {
		return &config.UserContext{
			Principal:  config.ClientPrincipal(client),
			IsLoggedIn: true,
			AuthInfo:   authInfo,
		}, nil
	}

	user, err := service.users.FindByID(ctx, accessToken.UserID.String)

	if err != nil || user == nil {
		return nil, err
	}

	tlog.App.Trace().Str("username", user.Username).Str("clientId", client.ClientID).Msg("Bearer token verified")

	return &config.UserContext{
		Principal:  config.UserPrincipal(user),
		IsLoggedIn: true,
		AuthInfo:   authInfo,
	}, nil
}

func withQuery(base string, params any) (string, error) {
	values, err := query.Values(params)

	if err != nil {
		return "", fmt.Errorf("failed to encode redirect query: %w", err)
	}

	separator := "?"

	if strings.Contains(base, "?") {
		separator = "&"
	}

	return base + separator + values.Encode(), nil
}

func withFragment(base string, params any) (string, error) {
	values, err := query.Values(params)

	if err != nil {
		return "", fmt.Errorf("failed to encode redirect fragment: %w", err)
	}

	return base + "#" + values.Encode(), nil
}
