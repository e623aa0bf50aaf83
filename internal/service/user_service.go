package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	ProviderLocal = "local"
	ProviderLdap  = "ldap"
)

type LoginAttempt struct {
	FailedAttempts int
	LastAttempt    time.Time
	LockedUntil    time.Time
}

type UserServiceConfig struct {
	LoginTimeout    int
	LoginMaxRetries int
}

type UserService struct {
	config        UserServiceConfig
	queries       *repository.Queries
	ldap          *LdapService
	loginAttempts map[string]*LoginAttempt
	loginMutex    sync.RWMutex
}

func NewUserService(config UserServiceConfig, queries *repository.Queries, ldap *LdapService) *UserService {
	return &UserService{
		config:        config,
		queries:       queries,
		ldap:          ldap,
		loginAttempts: make(map[string]*LoginAttempt),
	}
}

func (service *UserService) Init() error {
	return nil
}

func (service *UserService) FindByID(ctx context.Context, id string) (*repository.User, error) {
	return service.lookup(service.queries.GetUserByID(ctx, id))
}

// FindByLogin treats logins containing an @ as email addresses and everything else as usernames.
func (service *UserService) FindByLogin(ctx context.Context, login string) (*repository.User, error) {
	if login == "" {
		return nil, nil
	}

	if strings.Contains(login, "@") {
		return service.lookup(service.queries.GetUserByEmail(ctx, login))
	}

	return service.lookup(service.queries.GetUserByUsername(ctx, login))
}

func (service *UserService) lookup(user repository.User, err error) (*repository.User, error) {
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// Authenticate checks the credentials against the local table and then LDAP. It returns nil
// without an error when the credentials are wrong.
func (service *UserService) Authenticate(ctx context.Context, login string, password string) (*repository.User, error) {
	user, err := service.FindByLogin(ctx, login)

	if err != nil {
		return nil, err
	}

	if user != nil && user.Provider == ProviderLocal {
		if !CheckPassword(user.Password, password) {
			tlog.App.Debug().Str("username", user.Username).Msg("Invalid password for local user")
			return nil, nil
		}
		return user, nil
	}

	if service.ldap == nil {
		return nil, nil
	}

	if user != nil && user.Provider != ProviderLdap {
		tlog.App.Debug().Str("username", user.Username).Str("provider", user.Provider).Msg("User cannot log in with a password")
		return nil, nil
	}

	return service.authenticateLdap(ctx, login, password)
}

func (service *UserService) authenticateLdap(ctx context.Context, login string, password string) (*repository.User, error) {
	ldapUser, err := service.ldap.Search(login)

	if err != nil {
		tlog.App.Debug().Err(err).Str("username", login).Msg("User not found in LDAP")
		return nil, nil
	}

	err = service.ldap.Authenticate(ldapUser.DN, password)

	if err != nil {
		tlog.App.Debug().Err(err).Str("username", login).Msg("LDAP bind failed")
		return nil, nil
	}

	groups, err := service.ldap.GetUserGroups(ldapUser.DN)

	if err != nil {
		tlog.App.Warn().Err(err).Str("dn", ldapUser.DN).Msg("Failed to get LDAP groups")
		groups = []string{}
	}

	return service.mirror(ctx, ProviderLdap, login, ldapUser.Email, ldapUser.Name, groups)
}

// mirror keeps a local copy of an externally managed user, refreshing the profile on every login.
func (service *UserService) mirror(ctx context.Context, provider string, username string, email string, name string, groups []string) (*repository.User, error) {
	existing, err := service.FindByLogin(ctx, username)

	if err != nil {
		return nil, err
	}

	if existing == nil && email != "" {
		existing, err = service.FindByLogin(ctx, email)

		if err != nil {
			return nil, err
		}
	}

	if existing != nil {
		if existing.Provider != provider {
			return nil, fmt.Errorf("user %s is managed by provider %s", existing.Username, existing.Provider)
		}

		user, err := service.queries.UpdateUserProfile(ctx, repository.UpdateUserProfileParams{
			Email:  email,
			Name:   name,
			Groups: strings.Join(groups, ","),
			ID:     existing.ID,
		})

		if err != nil {
			return nil, fmt.Errorf("failed to update user profile: %w", err)
		}

		return &user, nil
	}

	if name == "" {
		name = utils.Capitalize(username)
	}

	user, err := service.queries.CreateUser(ctx, repository.CreateUserParams{
		ID:        uuid.NewString(),
		Username:  username,
		Email:     email,
		Name:      name,
		Role:      "user",
		Groups:    strings.Join(groups, ","),
		Provider:  provider,
		CreatedAt: time.Now().Unix(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create %s user: %w", provider, err)
	}

	tlog.App.Info().Str("username", user.Username).Str("provider", provider).Msg("Created user from external provider")

	return &user, nil
}

// GetOrCreateFederated maps the claims returned by an OAuth provider onto a local user.
func (service *UserService) GetOrCreateFederated(ctx context.Context, provider string, claims config.Claims) (*repository.User, error) {
	username := claims.PreferredUsername

	if username == "" && claims.Email != "" {
		username = strings.SplitN(claims.Email, "@", 2)[0]
	}

	if username == "" {
		return nil, errors.New("provider returned neither a username nor an email")
	}

	return service.mirror(ctx, provider, username, claims.Email, claims.Name, utils.SplitList(utils.CoalesceToString(claims.Groups)))
}

// CreateUser stores a local user, hashing the plain text password.
func (service *UserService) CreateUser(ctx context.Context, seed config.SeedUser) (*repository.User, error) {
	if seed.Username == "" || seed.Password == "" {
		return nil, errors.New("username and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)

	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	role := seed.Role

	if role == "" {
		role = "user"
	}

	name := seed.Name

	if name == "" {
		name = utils.Capitalize(seed.Username)
	}

	user, err := service.queries.CreateUser(ctx, repository.CreateUserParams{
		ID:        uuid.NewString(),
		Username:  seed.Username,
		Email:     seed.Email,
		Name:      name,
		Password:  string(hash),
		Role:      role,
		Groups:    strings.Join(seed.Groups, ","),
		Provider:  ProviderLocal,
		CreatedAt: time.Now().Unix(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// SeedUser creates the user unless one with the same username exists already.
func (service *UserService) SeedUser(ctx context.Context, seed config.SeedUser) error {
	existing, err := service.FindByLogin(ctx, seed.Username)

	if err != nil {
		return err
	}

	if existing != nil {
		tlog.App.Debug().Str("username", seed.Username).Msg("User exists, skipping seed")
		return nil
	}

	_, err = service.CreateUser(ctx, seed)

	return err
}

func CheckPassword(hash string, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

func (service *UserService) IsAccountLocked(identifier string) (bool, int) {
	service.loginMutex.RLock()
	defer service.loginMutex.RUnlock()

	if service.config.LoginMaxRetries <= 0 || service.config.LoginTimeout <= 0 {
		return false, 0
	}

	attempt, exists := service.loginAttempts[identifier]

	if !exists {
		return false, 0
	}

	if attempt.LockedUntil.After(time.Now()) {
		remaining := int(time.Until(attempt.LockedUntil).Seconds())
		return true, remaining
	}

	return false, 0
}

func (service *UserService) RecordLoginAttempt(identifier string, success bool) {
	if service.config.LoginMaxRetries <= 0 || service.config.LoginTimeout <= 0 {
		return
	}

	service.loginMutex.Lock()
	defer service.loginMutex.Unlock()

	attempt, exists := service.loginAttempts[identifier]

	if !exists {
		attempt = &LoginAttempt{}
		service.loginAttempts[identifier] = attempt
	}

	attempt.LastAttempt = time.Now()

	if success {
		attempt.FailedAttempts = 0
		attempt.LockedUntil = time.Time{}
		return
	}

	attempt.FailedAttempts++

	if attempt.FailedAttempts >= service.config.LoginMaxRetries {
		attempt.LockedUntil = time.Now().Add(time.Duration(service.config.LoginTimeout) * time.Second)
		tlog.App.Warn().Str("identifier", identifier).Int("timeout", service.config.LoginTimeout).Msg("Account locked due to too many failed login attempts")
	}
}
