package repository

import (
	"database/sql"
)

type User struct {
	ID        string
	Username  string
	Email     string
	Name      string
	Password  string `json:"-"`
	Role      string
	Groups    string
	Provider  string
	CreatedAt int64
}

type Client struct {
	ID            string
	ClientID      string
	ClientSecret  string `json:"-"`
	Name          string
	TrustedClient bool
	RedirectURI   string
	AllowedScopes string
	CreatedAt     int64
}

// AuthorizationCode, AccessToken and RefreshToken intentionally carry no
// code/token value, lookups never select it.

type AuthorizationCode struct {
	ClientID    string
	UserID      string
	RedirectURI string
	Scope       string
	CreatedAt   int64
}

type AccessToken struct {
	UserID         sql.NullString
	ClientID       string
	ExpirationDate int64
	Scope          string
}

type RefreshToken struct {
	UserID   sql.NullString
	ClientID string
	Scope    string
}

type Session struct {
	UUID      string
	UserID    string
	Provider  string
	CsrfToken string
	ReturnTo  string
	Expiry    int64
	CreatedAt int64
}

type OauthTransaction struct {
	ID           string
	SessionUUID  string
	UserID       string
	ClientID     string
	RedirectURI  string
	ResponseType string
	Scope        string
	State        string
	Expiry       int64
}
