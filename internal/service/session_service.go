package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const csrfTokenLength = 32

// gin context key caching the session resolved for the current request
const sessionContextKey = "session"

type SessionServiceConfig struct {
	CookieName     string
	CSRFCookieName string
	CookieDomain   string
	SecureCookie   bool
	SessionExpiry  int
}

// SessionService keeps server side sessions in the database, the cookie only carries the session id.
type SessionService struct {
	config  SessionServiceConfig
	queries *repository.Queries
}

func NewSessionService(config SessionServiceConfig, queries *repository.Queries) *SessionService {
	return &SessionService{
		config:  config,
		queries: queries,
	}
}

func (service *SessionService) Init() error {
	if service.config.SessionExpiry <= 0 {
		return errors.New("session expiry must be greater than 0")
	}
	if service.config.CookieName == "" {
		service.config.CookieName = config.SessionCookieName
	}
	if service.config.CSRFCookieName == "" {
		service.config.CSRFCookieName = config.CSRFCookieName
	}
	return nil
}

// GetSession returns the session referenced by the request cookie, or nil when there is none.
func (service *SessionService) GetSession(c *gin.Context) (*repository.Session, error) {
	if cached, exists := c.Get(sessionContextKey); exists {
		session, _ := cached.(*repository.Session)
		return session, nil
	}

	id, err := c.Cookie(service.config.CookieName)

	if err != nil || id == "" {
		return nil, nil
	}

	session, err := service.queries.GetSession(c.Request.Context(), id)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			tlog.App.Debug().Msg("Session cookie references an unknown session")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if session.Expiry < time.Now().Unix() {
		tlog.App.Debug().Str("uuid", session.UUID).Msg("Session expired, removing")

		err := service.queries.DeleteSession(c.Request.Context(), session.UUID)

		if err != nil {
			return nil, fmt.Errorf("failed to delete expired session: %w", err)
		}

		return nil, nil
	}

	c.Set(sessionContextKey, &session)

	return &session, nil
}

// EnsureSession returns the current session, creating an anonymous one when needed.
func (service *SessionService) EnsureSession(c *gin.Context) (*repository.Session, error) {
	session, err := service.GetSession(c)

	if err != nil {
		return nil, err
	}

	if session != nil {
		return session, nil
	}

	return service.create(c, "", "", "")
}

func (service *SessionService) create(c *gin.Context, userID string, provider string, returnTo string) (*repository.Session, error) {
	csrfToken, err := utils.GetRandomString(csrfTokenLength)

	if err != nil {
		return nil, fmt.Errorf("failed to generate csrf token: %w", err)
	}

	now := time.Now()

	session, err := service.queries.CreateSession(c.Request.Context(), repository.CreateSessionParams{
		UUID:      uuid.NewString(),
		UserID:    userID,
		Provider:  provider,
		CsrfToken: csrfToken,
		ReturnTo:  returnTo,
		Expiry:    now.Add(time.Duration(service.config.SessionExpiry) * time.Second).Unix(),
		CreatedAt: now.Unix(),
	})

	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	service.setCookie(c, session.UUID, service.config.SessionExpiry)
	service.SetCsrfCookie(c, session.CsrfToken)
	c.Set(sessionContextKey, &session)

	return &session, nil
}

// Login replaces the current session with a fresh authenticated one and returns the
// page the user was sent away from, if any.
func (service *SessionService) Login(c *gin.Context, user *repository.User, provider string) (*repository.Session, string, error) {
	current, err := service.GetSession(c)

	if err != nil {
		return nil, "", err
	}

	returnTo := ""

	if current != nil {
		returnTo = current.ReturnTo

		err = service.queries.DeleteSession(c.Request.Context(), current.UUID)

		if err != nil {
			return nil, "", fmt.Errorf("failed to delete previous session: %w", err)
		}
	}

	session, err := service.create(c, user.ID, provider, "")

	if err != nil {
		return nil, "", err
	}

	return session, returnTo, nil
}

// Logout drops the user from the session, the anonymous session and its csrf token survive.
func (service *SessionService) Logout(c *gin.Context) error {
	session, err := service.GetSession(c)

	if err != nil {
		return err
	}

	if session == nil {
		return nil
	}

	err = service.queries.UpdateSessionUser(c.Request.Context(), repository.UpdateSessionUserParams{
		UserID:   "",
		Provider: "",
		Expiry:   session.Expiry,
		UUID:     session.UUID,
	})

	if err != nil {
		return fmt.Errorf("failed to logout session: %w", err)
	}

	session.UserID = ""
	session.Provider = ""
	return nil
}

func (service *SessionService) SetReturnTo(ctx context.Context, session *repository.Session, returnTo string) error {
	err := service.queries.UpdateSessionReturnTo(ctx, returnTo, session.UUID)

	if err != nil {
		return fmt.Errorf("failed to store return url: %w", err)
	}

	session.ReturnTo = returnTo
	return nil
}

// EnsureCsrfToken returns the session's csrf token, generating one for sessions created without it.
func (service *SessionService) EnsureCsrfToken(ctx context.Context, session *repository.Session) (string, error) {
	if session.CsrfToken != "" {
		return session.CsrfToken, nil
	}

	token, err := utils.GetRandomString(csrfTokenLength)

	if err != nil {
		return "", fmt.Errorf("failed to generate csrf token: %w", err)
	}

	err = service.queries.UpdateSessionCsrfToken(ctx, token, session.UUID)

	if err != nil {
		return "", fmt.Errorf("failed to store csrf token: %w", err)
	}

	session.CsrfToken = token
	return token, nil
}

func (service *SessionService) DeleteExpired(ctx context.Context) error {
	err := service.queries.DeleteExpiredSessions(ctx, time.Now().Unix())

	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	return nil
}

func (service *SessionService) setCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.config.CookieName, value, maxAge, "/", service.config.CookieDomain, service.config.SecureCookie, true)
}

// SetCsrfCookie exposes the token to scripts so they can echo it in the X-XSRF-TOKEN header.
func (service *SessionService) SetCsrfCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(service.config.CSRFCookieName, token, service.config.SessionExpiry, "/", service.config.CookieDomain, service.config.SecureCookie, false)
}
