package service_test

import (
	"context"
	"testing"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/service"

	"github.com/google/go-cmp/cmp"
	"gotest.tools/v3/assert"
)

func TestUserAuthenticate(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	created := s.seedUser(t, "test", "test")

	user, err := s.users.Authenticate(ctx, "test", "test")
	assert.NilError(t, err)
	assert.Equal(t, created.ID, user.ID)
	assert.Equal(t, "Test", user.Name)
	assert.Equal(t, "user", user.Role)
	assert.Equal(t, service.ProviderLocal, user.Provider)

	user, err = s.users.Authenticate(ctx, "test@example.com", "test")
	assert.NilError(t, err)
	assert.Equal(t, created.ID, user.ID)

	user, err = s.users.Authenticate(ctx, "test", "wrong")
	assert.NilError(t, err)
	assert.Assert(t, user == nil)

	// without a directory unknown users simply fail
	user, err = s.users.Authenticate(ctx, "nobody", "test")
	assert.NilError(t, err)
	assert.Assert(t, user == nil)
}

func TestSeedUserSkipsExisting(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	seed := config.SeedUser{Username: "admin", Email: "admin@local.host", Password: "admin", Role: "admin", Groups: []string{"ops", "dev"}}

	assert.NilError(t, s.users.SeedUser(ctx, seed))

	seed.Password = "changed"
	assert.NilError(t, s.users.SeedUser(ctx, seed))

	user, err := s.users.Authenticate(ctx, "admin", "admin")
	assert.NilError(t, err)
	assert.Assert(t, user != nil)
	assert.Assert(t, user.HasRole("admin"))
	assert.Assert(t, user.HasGroup([]string{"dev"}))
	assert.Assert(t, !user.HasGroup([]string{"finance"}))

	_, err = s.users.CreateUser(ctx, config.SeedUser{Username: "nopass"})
	assert.ErrorContains(t, err, "username and password are required")
}

func TestGetOrCreateFederated(t *testing.T) {
	s := setupServices(t)
	ctx := context.Background()

	user, err := s.users.GetOrCreateFederated(ctx, "github", config.Claims{
		Name:   "Jane Doe",
		Email:  "jane@example.com",
		Groups: []any{"admins", "devs"},
	})
	assert.NilError(t, err)
	assert.Equal(t, "jane", user.Username)
	assert.Equal(t, "github", user.Provider)

	again, err := s.users.GetOrCreateFederated(ctx, "github", config.Claims{
		Name:              "Jane D.",
		Email:             "jane@example.com",
		PreferredUsername: "jane",
		Groups:            "devs",
	})
	assert.NilError(t, err)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Jane D.", again.Name)

	if diff := cmp.Diff([]string{"devs"}, again.GroupList()); diff != "" {
		t.Fatalf("unexpected groups (-want +got):\n%s", diff)
	}

	// federated users never log in with a password
	found, err := s.users.Authenticate(ctx, "jane", "")
	assert.NilError(t, err)
	assert.Assert(t, found == nil)

	s.seedUser(t, "local", "local")

	_, err = s.users.GetOrCreateFederated(ctx, "google", config.Claims{PreferredUsername: "local"})
	assert.ErrorContains(t, err, "managed by provider local")

	_, err = s.users.GetOrCreateFederated(ctx, "google", config.Claims{})
	assert.ErrorContains(t, err, "neither a username nor an email")
}

func TestLoginLockout(t *testing.T) {
	users := service.NewUserService(service.UserServiceConfig{
		LoginTimeout:    300,
		LoginMaxRetries: 2,
	}, nil, nil)

	locked, _ := users.IsAccountLocked("test")
	assert.Assert(t, !locked)

	users.RecordLoginAttempt("test", false)

	locked, _ = users.IsAccountLocked("test")
	assert.Assert(t, !locked)

	users.RecordLoginAttempt("test", false)

	locked, remaining := users.IsAccountLocked("test")
	assert.Assert(t, locked)
	assert.Assert(t, remaining > 290 && remaining <= 300)

	users.RecordLoginAttempt("test", true)

	locked, _ = users.IsAccountLocked("test")
	assert.Assert(t, !locked)

	disabled := service.NewUserService(service.UserServiceConfig{}, nil, nil)

	for range 10 {
		disabled.RecordLoginAttempt("test", false)
	}

	locked, _ = disabled.IsAccountLocked("test")
	assert.Assert(t, !locked)
}
