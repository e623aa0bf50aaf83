package controller_test

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"gotest.tools/v3/assert"
)

type userInfo struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
}

type clientInfo struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Trusted  bool     `json:"trusted"`
	Scope    []string `json:"scope"`
}

func authorizePath(params url.Values) string {
	return "/oauth2/authorize?" + params.Encode()
}

func TestClientCredentialsFlow(t *testing.T) {
	app := setupApp(t)
	ctx := context.Background()

	cfg := clientcredentials.Config{
		ClientID:     "xyz123",
		ClientSecret: "ssh-password",
		TokenURL:     app.server.URL + "/oauth2/token",
	}

	token, err := cfg.Token(ctx)
	assert.NilError(t, err)
	assert.Equal(t, 256, len(token.AccessToken))
	assert.Equal(t, "", token.RefreshToken)
	assert.Equal(t, "Bearer", token.TokenType)
	assert.Equal(t, float64(3600), token.Extra("expires_in"))

	res := app.api(t, http.MethodGet, "/api2/clientinfo", bearer(token.AccessToken), nil)
	assert.Equal(t, http.StatusOK, res.status)

	var info clientInfo
	res.json(t, &info)

	expected := clientInfo{ClientID: "xyz123", Name: "Samplr2", Scope: []string{"*"}}

	if diff := cmp.Diff(expected, info); diff != "" {
		t.Fatalf("unexpected client info (-want +got):\n%s", diff)
	}

	res = app.api(t, http.MethodGet, "/oauth2/tokeninfo?access_token="+url.QueryEscape(token.AccessToken), nil, nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Assert(t, strings.Contains(res.body, `"audience":"xyz123"`), res.body)
	assert.Assert(t, !strings.Contains(res.body, "userid"), res.body)

	// the sdk client attaches the token itself
	client := oauth2.NewClient(ctx, cfg.TokenSource(ctx))

	httpRes, err := client.Get(app.server.URL + "/api2/me")
	assert.NilError(t, err)
	httpRes.Body.Close()
	assert.Equal(t, http.StatusOK, httpRes.StatusCode)

	_, err = (&clientcredentials.Config{
		ClientID:     "xyz123",
		ClientSecret: "wrong",
		TokenURL:     app.server.URL + "/oauth2/token",
	}).Token(ctx)
	assert.ErrorContains(t, err, "invalid_client")
}

func TestAuthorizationCodeFlow(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	res := b.get(t, authorizePath(url.Values{
		"client_id":     {"cas456"},
		"redirect_uri":  {callbackURL},
		"response_type": {"code"},
		"scope":         {"login"},
		"state":         {"xyz"},
	}))
	assert.Equal(t, http.StatusFound, res.status, res.body)

	location := res.location(t)
	assert.Equal(t, "localhost:9000", location.Host)
	assert.Equal(t, "/callback", location.Path)
	assert.Equal(t, "xyz", location.Query().Get("state"))

	code := location.Query().Get("code")
	assert.Equal(t, 16, len(code))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"redirect_uri":  {callbackURL},
		"client_id":     {"cas456"},
		"client_secret": {"ssh-othersecret"},
	}

	res = app.api(t, http.MethodPost, "/oauth2/token", nil, form)
	assert.Equal(t, http.StatusOK, res.status, res.body)
	assert.Equal(t, "no-store", res.header.Get("Cache-Control"))

	var token tokenResponse
	res.json(t, &token)
	assert.Equal(t, 256, len(token.AccessToken))
	assert.Equal(t, "", token.RefreshToken)
	assert.Equal(t, 3600, token.ExpiresIn)
	assert.Equal(t, "Bearer", token.TokenType)

	res = app.api(t, http.MethodPost, "/oauth2/token", nil, form)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`, res.body)

	res = app.api(t, http.MethodGet, "/api2/me", bearer(token.AccessToken), nil)
	assert.Equal(t, http.StatusOK, res.status)

	var me userInfo
	res.json(t, &me)
	assert.Equal(t, "test", me.Username)
	assert.Equal(t, "Test User", me.Name)
	assert.Equal(t, "test@test.com", me.Email)

	res = app.api(t, http.MethodGet, "/oauth2/tokeninfo?access_token="+url.QueryEscape(token.AccessToken), nil, nil)
	assert.Equal(t, http.StatusOK, res.status)
	assert.Assert(t, strings.Contains(res.body, `"audience":"cas456"`), res.body)
	assert.Assert(t, strings.Contains(res.body, `"userid":"`+me.ID+`"`), res.body)
}

func TestAuthorizationCodeWithoutRedirectURI(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	res := b.get(t, authorizePath(url.Values{
		"client_id":     {"cas456"},
		"response_type": {"code"},
		"scope":         {"login"},
	}))
	assert.Equal(t, http.StatusFound, res.status, res.body)

	// sent back to the registered redirect uri
	location := res.location(t)
	assert.Equal(t, "localhost:9000", location.Host)
	assert.Equal(t, "/callback", location.Path)

	code := location.Query().Get("code")
	assert.Equal(t, 16, len(code))

	form := url.Values{
		"grant_type":    {"authorization_code"},
		"code":          {code},
		"client_id":     {"cas456"},
		"client_secret": {"ssh-othersecret"},
	}

	// the code remembers that no redirect uri was sent
	withRedirect := url.Values{"redirect_uri": {callbackURL}}
	for key, values := range form {
		withRedirect[key] = values
	}

	res = app.api(t, http.MethodPost, "/oauth2/token", nil, withRedirect)
	assert.Equal(t, http.StatusForbidden, res.status)
	assert.Equal(t, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`, res.body)

	res = app.api(t, http.MethodPost, "/oauth2/token", nil, form)
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var token tokenResponse
	res.json(t, &token)
	assert.Equal(t, 256, len(token.AccessToken))

	// consent refused without a redirect uri lands on the registered one too
	res = b.get(t, authorizePath(url.Values{
		"client_id":     {"phonegap-angular-client"},
		"response_type": {"code"},
	}))
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var view decisionView
	res.json(t, &view)

	res = b.postForm(t, "/oauth2/authorize/decision", url.Values{
		"transaction_id": {view.TransactionID},
		"cancel":         {"Deny"},
	})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "http://localhost?error=access_denied&error_description=User+denied+access", res.header.Get("Location"))
}

func TestAuthorizeErrors(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	tests := []struct {
		name        string
		params      url.Values
		status      int
		code        string
		description string
	}{
		{
			name:        "unknown client",
			params:      url.Values{"client_id": {"nope"}, "redirect_uri": {callbackURL}, "response_type": {"code"}},
			status:      http.StatusBadRequest,
			code:        "invalid_request",
			description: "Unknown client",
		},
		{
			name:        "redirect outside the registered prefix",
			params:      url.Values{"client_id": {"cas456"}, "redirect_uri": {"http://evil.example.com/callback"}, "response_type": {"code"}, "scope": {"login"}},
			status:      http.StatusForbidden,
			code:        "unauthorized_client",
			description: "Invalid redirectUri",
		},
		{
			name:        "scope outside the allowed list",
			params:      url.Values{"client_id": {"cas123"}, "redirect_uri": {callbackURL}, "response_type": {"code"}, "scope": {"login profile"}},
			status:      http.StatusForbidden,
			code:        "invalid_scope",
			description: "Invalid scope",
		},
		{
			name:        "default scope on a restricted client",
			params:      url.Values{"client_id": {"cas123"}, "redirect_uri": {callbackURL}, "response_type": {"code"}},
			status:      http.StatusForbidden,
			code:        "invalid_scope",
			description: "Invalid scope",
		},
		{
			name:        "unsupported response type",
			params:      url.Values{"client_id": {"cas456"}, "redirect_uri": {callbackURL}, "response_type": {"id_token"}},
			status:      http.StatusNotImplemented,
			code:        "unsupported_response_type",
			description: "Unsupported response type: id_token",
		},
		{
			name:        "missing response type",
			params:      url.Values{"client_id": {"cas456"}, "redirect_uri": {callbackURL}},
			status:      http.StatusBadRequest,
			code:        "invalid_request",
			description: "Missing required parameter: response_type",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			res := b.get(t, authorizePath(test.params))
			assert.Equal(t, test.status, res.status, res.body)

			var body oauthError
			res.json(t, &body)
			assert.Equal(t, test.code, body.Error)
			assert.Equal(t, test.description, body.ErrorDescription)
		})
	}
}

func TestConsentDecision(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	// a restricted client accepts exactly its allowed scope
	res := b.get(t, authorizePath(url.Values{
		"client_id":     {"cas123"},
		"redirect_uri":  {callbackURL},
		"response_type": {"code"},
		"scope":         {"login"},
	}))
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var view decisionView
	res.json(t, &view)
	assert.Equal(t, "cas123", view.Client.ClientID)
	assert.Assert(t, cmp.Equal([]string{"login"}, view.Scope))

	// decisions are bound to the session that asked for them
	other := app.browser(t)
	other.mustLogin(t, "test", "test")

	res = other.postForm(t, "/oauth2/authorize/decision", url.Values{"transaction_id": {view.TransactionID}})
	assert.Equal(t, http.StatusBadRequest, res.status)

	// a decision without the csrf token is refused
	req, err := http.NewRequest(http.MethodPost, b.url("/oauth2/authorize/decision"), strings.NewReader("transaction_id="+view.TransactionID))
	assert.NilError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res = do(t, b.client, req)
	assert.Equal(t, http.StatusForbidden, res.status)

	res = b.postForm(t, "/oauth2/authorize/decision", url.Values{"transaction_id": {view.TransactionID}})
	assert.Equal(t, http.StatusFound, res.status, res.body)
	assert.Assert(t, strings.HasPrefix(res.header.Get("Location"), callbackURL+"?code="))

	// transactions are single use
	res = b.postForm(t, "/oauth2/authorize/decision", url.Values{"transaction_id": {view.TransactionID}})
	assert.Equal(t, http.StatusBadRequest, res.status)

	var body oauthError
	res.json(t, &body)
	assert.Equal(t, "invalid_request", body.Error)
	assert.Equal(t, "Unable to load OAuth 2.0 transaction: "+view.TransactionID, body.ErrorDescription)
}

func TestConsentDenied(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	res := b.get(t, authorizePath(url.Values{
		"client_id":     {"phonegap-angular-client"},
		"redirect_uri":  {"http://localhost:8100/cb"},
		"response_type": {"code"},
		"state":         {"s1"},
	}))
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var view decisionView
	res.json(t, &view)

	res = b.postForm(t, "/oauth2/authorize/decision", url.Values{
		"transaction_id": {view.TransactionID},
		"cancel":         {"Deny"},
	})
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "http://localhost:8100/cb?error=access_denied&error_description=User+denied+access&state=s1", res.header.Get("Location"))
}

func TestImplicitGrant(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)
	b.mustLogin(t, "admin", "admin")

	res := b.get(t, authorizePath(url.Values{
		"client_id":     {"phonegap-angular-client"},
		"redirect_uri":  {"http://localhost:8100/cb"},
		"response_type": {"token"},
	}))
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var view decisionView
	res.json(t, &view)

	// an empty scope means everything
	assert.Assert(t, cmp.Equal([]string{"*"}, view.Scope))

	res = b.postForm(t, "/oauth2/authorize/decision", url.Values{"transaction_id": {view.TransactionID}})
	assert.Equal(t, http.StatusFound, res.status)

	location := res.location(t)
	assert.Equal(t, "", location.RawQuery)

	fragment, err := url.ParseQuery(location.Fragment)
	assert.NilError(t, err)
	assert.Equal(t, "Bearer", fragment.Get("token_type"))
	assert.Equal(t, "3600", fragment.Get("expires_in"))

	res = app.api(t, http.MethodGet, "/api2/me", bearer(fragment.Get("access_token")), nil)
	assert.Equal(t, http.StatusOK, res.status)

	var me userInfo
	res.json(t, &me)
	assert.Equal(t, "admin", me.Username)
}

func TestLoginReturnsToAuthorization(t *testing.T) {
	app := setupApp(t)

	b := app.browser(t)

	path := authorizePath(url.Values{
		"client_id":     {"cas456"},
		"redirect_uri":  {callbackURL},
		"response_type": {"code"},
		"scope":         {"login"},
	})

	res := b.get(t, path)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Equal(t, "/login", res.header.Get("Location"))

	res = b.login(t, "test", "test")
	assert.Equal(t, http.StatusOK, res.status)

	var body struct {
		ReturnTo string `json:"returnTo"`
	}
	res.json(t, &body)
	assert.Equal(t, path, body.ReturnTo)

	res = b.get(t, body.ReturnTo)
	assert.Equal(t, http.StatusFound, res.status)
	assert.Assert(t, strings.HasPrefix(res.header.Get("Location"), callbackURL+"?code="))
}

func TestPasswordAndRefreshGrants(t *testing.T) {
	app := setupApp(t)

	basic := func(id string, secret string) http.Header {
		req, _ := http.NewRequest(http.MethodPost, "/", nil)
		req.SetBasicAuth(id, secret)
		return req.Header
	}

	res := app.api(t, http.MethodPost, "/oauth2/token", basic("trustedClient", "ssh-otherpassword"), url.Values{
		"grant_type": {"password"},
		"username":   {"test"},
		"password":   {"test"},
		"scope":      {"offline_access"},
	})
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var token tokenResponse
	res.json(t, &token)
	assert.Equal(t, 256, len(token.RefreshToken))

	res = app.api(t, http.MethodPost, "/oauth2/token", basic("trustedClient", "ssh-otherpassword"), url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	})
	assert.Equal(t, http.StatusOK, res.status, res.body)

	var refreshed tokenResponse
	res.json(t, &refreshed)
	assert.Assert(t, refreshed.AccessToken != token.AccessToken)
	assert.Equal(t, "", refreshed.RefreshToken)

	// refresh tokens belong to the client they were issued to
	res = app.api(t, http.MethodPost, "/oauth2/token", basic("xyz123", "ssh-password"), url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {token.RefreshToken},
	})
	assert.Equal(t, http.StatusForbidden, res.status)

	res = app.api(t, http.MethodPost, "/oauth2/token", basic("trustedClient", "wrong"), url.Values{
		"grant_type": {"client_credentials"},
	})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, `Basic realm="Clients"`, res.header.Get("WWW-Authenticate"))

	res = app.api(t, http.MethodPost, "/oauth2/token", basic("trustedClient", "ssh-otherpassword"), url.Values{
		"grant_type": {"device_code"},
	})
	assert.Equal(t, http.StatusNotImplemented, res.status)
}

func TestTokenInfoInvalid(t *testing.T) {
	app := setupApp(t)

	for _, path := range []string{"/oauth2/tokeninfo", "/oauth2/tokeninfo?access_token=unknown"} {
		res := app.api(t, http.MethodGet, path, nil, nil)
		assert.Equal(t, http.StatusBadRequest, res.status)
		assert.Equal(t, `{"error":"invalid_token"}`, res.body)
	}
}

func TestBearerApi(t *testing.T) {
	app := setupApp(t)

	res := app.api(t, http.MethodGet, "/api2/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)

	res = app.api(t, http.MethodGet, "/api2/me", bearer("unknown"), nil)
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Equal(t, `Bearer realm="Users", error="invalid_token"`, res.header.Get("WWW-Authenticate"))

	b := app.browser(t)
	b.mustLogin(t, "test", "test")

	// the session is used even when a broken bearer token comes along
	req, err := http.NewRequest(http.MethodGet, b.url("/api2/me"), nil)
	assert.NilError(t, err)
	req.Header.Set("Authorization", "Bearer unknown")

	res = do(t, b.client, req)
	assert.Equal(t, http.StatusOK, res.status)

	var me userInfo
	res.json(t, &me)
	assert.Equal(t, "test", me.Username)

	// sessions carry no client
	res = b.get(t, "/api2/clientinfo")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "{}", res.body)

	res = b.get(t, "/api/realtime/handshake")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Assert(t, strings.Contains(res.body, `"principal":"user"`), res.body)
}

func TestCorsPreflight(t *testing.T) {
	app := setupApp(t)

	header := http.Header{
		"Origin":                         {"http://localhost:9000"},
		"Access-Control-Request-Method":  {"POST"},
		"Access-Control-Request-Headers": {"Authorization"},
	}

	res := app.api(t, http.MethodOptions, "/oauth2/token", header, nil)
	assert.Equal(t, http.StatusNoContent, res.status)
	assert.Equal(t, "http://localhost:9000", res.header.Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Authorization", res.header.Get("Access-Control-Allow-Headers"))
}
