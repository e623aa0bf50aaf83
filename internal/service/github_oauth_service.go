package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

var GithubOAuthScopes = []string{"user:email", "read:user"}

type GithubEmailResponse []struct {
	Email   string `json:"email"`
	Primary bool   `json:"primary"`
}

type GithubUserInfoResponse struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	ID    int    `json:"id"`
}

type GithubOAuthService struct {
	config     oauth2.Config
	httpClient *http.Client
	name       string
}

func NewGithubOAuthService(config config.OAuthServiceConfig) *GithubOAuthService {
	name := config.Name

	if name == "" {
		name = "GitHub"
	}

	return &GithubOAuthService{
		config: oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: utils.GetSecret(config.ClientSecret, config.ClientSecretFile),
			RedirectURL:  config.RedirectURL,
			Scopes:       GithubOAuthScopes,
			Endpoint:     endpoints.GitHub,
		},
		name: name,
	}
}

func (github *GithubOAuthService) Init() error {
	github.httpClient = &http.Client{
		Timeout: 30 * time.Second,
	}
	return nil
}

func (github *GithubOAuthService) GenerateState() (string, error) {
	return utils.GetRandomString(64)
}

func (github *GithubOAuthService) GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

func (github *GithubOAuthService) GetAuthURL(state string, verifier string) string {
	return github.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.S256ChallengeOption(verifier))
}

func (github *GithubOAuthService) VerifyCode(ctx context.Context, code string, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, github.httpClient)
	return github.config.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

func (github *GithubOAuthService) Userinfo(ctx context.Context, token *oauth2.Token) (config.Claims, error) {
	var user config.Claims

	client := github.config.Client(context.WithValue(ctx, oauth2.HTTPClient, github.httpClient), token)

	var userInfo GithubUserInfoResponse

	err := github.get(ctx, client, "https://api.github.com/user", &userInfo)

	if err != nil {
		return user, err
	}

	var emails GithubEmailResponse

	err = github.get(ctx, client, "https://api.github.com/user/emails", &emails)

	if err != nil {
		return user, err
	}

	if len(emails) == 0 {
		return user, errors.New("no emails found")
	}

	for _, email := range emails {
		if email.Primary {
			user.Email = email.Email
			break
		}
	}

	// first available email if none is primary
	if user.Email == "" {
		user.Email = emails[0].Email
	}

	user.PreferredUsername = userInfo.Login
	user.Name = userInfo.Name

	return user, nil
}

func (github *GithubOAuthService) get(ctx context.Context, client *http.Client, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)

	if err != nil {
		return err
	}

	req.Header.Set("Accept", "application/vnd.github+json")

	res, err := client.Do(req)

	if err != nil {
		return err
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("request failed with status: %s", res.Status)
	}

	body, err := io.ReadAll(res.Body)

	if err != nil {
		return err
	}

	return json.Unmarshal(body, target)
}

func (github *GithubOAuthService) GetName() string {
	return github.name
}
