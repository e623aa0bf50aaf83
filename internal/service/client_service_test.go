package service_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils"

	"gotest.tools/v3/assert"
)

func TestClientLookups(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	s.seedClient(t, "1", config.ClientConfig{Name: "CAS Client", ClientID: "cas123", ClientSecret: "ssh-secret", RedirectURI: "http://localhost:9000/callback", Scopes: []string{"login"}})
	s.seedClient(t, "5", config.ClientConfig{Name: "Mobile Application", ClientID: "phonegap-angular-client", ClientSecret: "ssh-not-secret", RedirectURI: "http://localhost"})

	client, err := s.clients.FindByID(ctx, "1")
	assert.NilError(t, err)
	assert.Equal(t, "cas123", client.ClientID)
	assert.Equal(t, "login", client.AllowedScopes)

	client, err = s.clients.FindByClientID(ctx, "phonegap-angular-client")
	assert.NilError(t, err)
	assert.Equal(t, "5", client.ID)

	client, err = s.clients.FindByClientID(ctx, "unknown")
	assert.NilError(t, err)
	assert.Assert(t, client == nil)

	client, err = s.clients.FindByRedirectPrefix(ctx, "http://localhost:9000/callback/page")
	assert.NilError(t, err)
	assert.Equal(t, "cas123", client.ClientID)

	// a bare host prefix matches any port
	client, err = s.clients.FindByRedirectPrefix(ctx, "http://localhost:8100/")
	assert.NilError(t, err)
	assert.Equal(t, "phonegap-angular-client", client.ClientID)

	client, err = s.clients.FindByRedirectPrefix(ctx, "https://example.com")
	assert.NilError(t, err)
	assert.Assert(t, client == nil)

	client, err = s.clients.FindByRedirectPrefix(ctx, "")
	assert.NilError(t, err)
	assert.Assert(t, client == nil)
}

func TestClientAuthenticate(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	secretFile := filepath.Join(t.TempDir(), "secret")
	assert.NilError(t, os.WriteFile(secretFile, []byte("file-secret\n"), 0600))

	s.seedClient(t, "", config.ClientConfig{ClientID: "from-file", ClientSecretFile: secretFile})
	s.seedClient(t, "", config.ClientConfig{ClientID: "public"})

	client, err := s.clients.Authenticate(ctx, "from-file", "file-secret")
	assert.NilError(t, err)
	assert.Equal(t, utils.GenerateUUID("from-file"), client.ID)
	assert.Equal(t, "From-file", client.Name)

	client, err = s.clients.Authenticate(ctx, "from-file", "wrong")
	assert.NilError(t, err)
	assert.Assert(t, client == nil)

	// an empty secret never authenticates
	client, err = s.clients.Authenticate(ctx, "public", "")
	assert.NilError(t, err)
	assert.Assert(t, client == nil)

	_, err = s.clients.Seed(ctx, "", config.ClientConfig{})
	assert.ErrorContains(t, err, "client id is required")
}
