package controller_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ssoauth/ssoauth/internal/bootstrap"
	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
)

const callbackURL = "http://localhost:9000/callback"

func testConfig() config.Config {
	return config.Config{
		AppURL:       "http://localhost:9000",
		DatabasePath: ":memory:",
		Token: config.TokenConfig{
			ExpiresIn:                3600,
			TimeToCheckExpiredTokens: 3600,
			AuthorizationCodeLength:  16,
			AccessTokenLength:        256,
			RefreshTokenLength:       256,
		},
		Auth: config.AuthConfig{
			SessionExpiry:   86400,
			LoginTimeout:    300,
			LoginMaxRetries: 3,
		},
		CORS: config.CORSConfig{
			Origin: "http://localhost:9000",
		},
	}
}

type testApp struct {
	server        *httptest.Server
	sessionCookie string
}

func setupApp(t *testing.T, modify ...func(cfg *config.Config)) *testApp {
	tlog.NewSimpleLogger().Init()
	gin.SetMode(gin.TestMode)

	cfg := testConfig()

	for _, fn := range modify {
		fn(&cfg)
	}

	app := bootstrap.NewBootstrapApp(cfg)

	err := app.Setup(context.Background())
	assert.NilError(t, err)

	server := httptest.NewServer(app.Router())
	t.Cleanup(server.Close)

	return &testApp{
		server:        server,
		sessionCookie: app.SessionCookieName(),
	}
}

// browser keeps cookies like a user agent but never follows redirects.
type browser struct {
	base   *url.URL
	jar    *cookiejar.Jar
	client *http.Client
}

func (app *testApp) browser(t *testing.T) *browser {
	jar, err := cookiejar.New(nil)
	assert.NilError(t, err)

	base, err := url.Parse(app.server.URL)
	assert.NilError(t, err)

	return &browser{
		base: base,
		jar:  jar,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

type response struct {
	status int
	header http.Header
	body   string
}

func (r response) json(t *testing.T, target any) {
	assert.NilError(t, json.Unmarshal([]byte(r.body), target))
}

func (r response) location(t *testing.T) *url.URL {
	location, err := url.Parse(r.header.Get("Location"))
	assert.NilError(t, err)
	return location
}

func do(t *testing.T, client *http.Client, req *http.Request) response {
	res, err := client.Do(req)
	assert.NilError(t, err)

	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	assert.NilError(t, err)

	return response{
		status: res.StatusCode,
		header: res.Header,
		body:   string(body),
	}
}

func (b *browser) url(path string) string {
	return b.base.String() + path
}

func (b *browser) cookie(name string) string {
	for _, cookie := range b.jar.Cookies(b.base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}

func (b *browser) csrf() string {
	return b.cookie(config.CSRFCookieName)
}

func (b *browser) get(t *testing.T, path string) response {
	req, err := http.NewRequest(http.MethodGet, b.url(path), nil)
	assert.NilError(t, err)
	return do(t, b.client, req)
}

func (b *browser) send(t *testing.T, method string, path string, contentType string, body string) response {
	req, err := http.NewRequest(method, b.url(path), strings.NewReader(body))
	assert.NilError(t, err)

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	if token := b.csrf(); token != "" {
		req.Header.Set("X-XSRF-TOKEN", token)
	}

	return do(t, b.client, req)
}

func (b *browser) postForm(t *testing.T, path string, values url.Values) response {
	return b.send(t, http.MethodPost, path, "application/x-www-form-urlencoded", values.Encode())
}

// login opens the login page for its cookies and posts the credentials.
func (b *browser) login(t *testing.T, username string, password string) response {
	page := b.get(t, "/login")
	assert.Equal(t, http.StatusOK, page.status)

	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	assert.NilError(t, err)

	return b.send(t, http.MethodPost, "/api/session", "application/json", string(body))
}

func (b *browser) mustLogin(t *testing.T, username string, password string) {
	res := b.login(t, username, password)
	assert.Equal(t, http.StatusOK, res.status, res.body)
}

// api sends a request without cookies, as a backend client would.
func (app *testApp) api(t *testing.T, method string, path string, header http.Header, form url.Values) response {
	var body io.Reader

	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequest(method, app.server.URL+path, body)
	assert.NilError(t, err)

	for key, values := range header {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	return do(t, app.server.Client(), req)
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": []string{"Bearer " + token}}
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	TokenType    string `json:"token_type"`
}

type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

type decisionView struct {
	TransactionID string `json:"transactionID"`
	Client        struct {
		ClientID string `json:"client_id"`
	} `json:"client"`
	Scope []string `json:"scope"`
}
