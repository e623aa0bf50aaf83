package config

import "github.com/ssoauth/ssoauth/internal/repository"

// Version information, set at build time

var Version = "development"
var CommitHash = "development"
var BuildTimestamp = "0000-00-00T00:00:00Z"

// Base cookie names

var SessionCookieName = "ssoauth-session"
var StateCookieName = "ssoauth-state"
var CSRFCookieName = "XSRF-TOKEN"

// Environment variable prefix used by the env loader

var DefaultNamePrefix = "SSOAUTH_"

// Main app config

type Config struct {
	AppURL         string                  `description:"The public root URL of the server." yaml:"appUrl"`
	DatabasePath   string                  `description:"The path to the database file." yaml:"databasePath"`
	SeedFile       string                  `description:"Path to a YAML file with users and clients to seed on startup." yaml:"seedFile"`
	DisableSeed    bool                    `description:"Do not seed the built-in demo users and clients." yaml:"disableSeed"`
	TrustedProxies string                  `description:"Comma separated list of trusted proxy addresses." yaml:"trustedProxies"`
	Server         ServerConfig            `description:"Server configuration." yaml:"server"`
	Token          TokenConfig             `description:"Token lifecycle configuration." yaml:"token"`
	Auth           AuthConfig              `description:"Session and login configuration." yaml:"auth"`
	CORS           CORSConfig              `description:"CORS configuration." yaml:"cors"`
	RateLimit      map[string]RateLimit    `description:"Rate limit strategies by name." yaml:"rateLimit"`
	Clients        map[string]ClientConfig `description:"OAuth clients to register on startup." yaml:"clients"`
	Ldap           LdapConfig              `description:"LDAP configuration." yaml:"ldap"`
	OAuth          OAuthConfig             `description:"Federated login providers." yaml:"oauth"`
	Log            LogConfig               `description:"Logging configuration." yaml:"log"`
	Experimental   ExperimentalConfig      `description:"Experimental features, use with caution." yaml:"experimental"`
}

type ServerConfig struct {
	Port    int    `description:"The port on which the server listens." yaml:"port"`
	Address string `description:"The address on which the server listens." yaml:"address"`
}

type TokenConfig struct {
	ExpiresIn                int `description:"Access token lifetime in seconds." yaml:"expiresIn"`
	TimeToCheckExpiredTokens int `description:"Interval in seconds between expired token sweeps." yaml:"timeToCheckExpiredTokens"`
	AuthorizationCodeLength  int `description:"Length of authorization codes." yaml:"authorizationCodeLength"`
	AccessTokenLength        int `description:"Length of access tokens." yaml:"accessTokenLength"`
	RefreshTokenLength       int `description:"Length of refresh tokens." yaml:"refreshTokenLength"`
}

type AuthConfig struct {
	SessionExpiry   int  `description:"Session lifetime in seconds." yaml:"sessionExpiry"`
	SecureCookie    bool `description:"Set the secure flag on cookies." yaml:"secureCookie"`
	LoginTimeout    int  `description:"Lockout duration in seconds after too many failed logins." yaml:"loginTimeout"`
	LoginMaxRetries int  `description:"Failed logins before an account is locked." yaml:"loginMaxRetries"`
}

type CORSConfig struct {
	Origin string `description:"Allowed CORS origin." yaml:"origin"`
}

type RateLimit struct {
	Max      int `description:"Requests allowed per window." yaml:"max"`
	Duration int `description:"Window length in milliseconds." yaml:"duration"`
}

type ClientConfig struct {
	ClientID         string   `description:"Public client identifier." yaml:"clientId"`
	ClientSecret     string   `description:"Client secret." yaml:"clientSecret"`
	ClientSecretFile string   `description:"Path to a file containing the client secret." yaml:"clientSecretFile"`
	Name             string   `description:"Display name." yaml:"name"`
	RedirectURI      string   `description:"Registered redirect URI prefix." yaml:"redirectUri"`
	Scopes           []string `description:"Allowed scopes, empty means unrestricted." yaml:"scopes"`
	Trusted          bool     `description:"Skip the consent step for this client." yaml:"trusted"`
}

type LdapConfig struct {
	Address      string `description:"LDAP server address." yaml:"address"`
	BindDN       string `description:"Bind DN for LDAP authentication." yaml:"bindDn"`
	BindPassword string `description:"Bind password for LDAP authentication." yaml:"bindPassword"`
	BaseDN       string `description:"Base DN for LDAP searches." yaml:"baseDn"`
	Insecure     bool   `description:"Allow insecure LDAP connections." yaml:"insecure"`
	SearchFilter string `description:"LDAP search filter." yaml:"searchFilter"`
	AuthCert     string `description:"Certificate for mTLS authentication." yaml:"authCert"`
	AuthKey      string `description:"Certificate key for mTLS authentication." yaml:"authKey"`
}

type OAuthConfig struct {
	Providers map[string]OAuthServiceConfig `description:"OAuth providers configuration." yaml:"providers"`
}

type LogConfig struct {
	Level   string     `description:"Log level (trace, debug, info, warn, error)." yaml:"level"`
	Json    bool       `description:"Enable JSON formatted logs." yaml:"json"`
	Streams LogStreams `description:"Configuration for specific log streams." yaml:"streams"`
}

type LogStreams struct {
	HTTP  LogStreamConfig `description:"HTTP request logging." yaml:"http"`
	App   LogStreamConfig `description:"Application logging." yaml:"app"`
	Audit LogStreamConfig `description:"Audit logging." yaml:"audit"`
}

type LogStreamConfig struct {
	Enabled bool   `description:"Enable this log stream." yaml:"enabled"`
	Level   string `description:"Log level override for this stream." yaml:"level"`
}

type ExperimentalConfig struct {
	ConfigFile string `description:"Path to config file." yaml:"-"`
}

// OAuth/federated login config

type Claims struct {
	Name              string `json:"name"`
	Email             string `json:"email"`
	PreferredUsername string `json:"preferred_username"`
	Groups            any    `json:"groups"`
}

type OAuthServiceConfig struct {
	ClientID           string   `description:"OAuth client ID." yaml:"clientId"`
	ClientSecret       string   `description:"OAuth client secret." yaml:"clientSecret"`
	ClientSecretFile   string   `description:"Path to the file containing the OAuth client secret." yaml:"clientSecretFile"`
	Scopes             []string `description:"OAuth scopes." yaml:"scopes"`
	RedirectURL        string   `description:"OAuth redirect URL." yaml:"redirectUrl"`
	AuthURL            string   `description:"OAuth authorization URL." yaml:"authUrl"`
	TokenURL           string   `description:"OAuth token URL." yaml:"tokenUrl"`
	UserinfoURL        string   `description:"OAuth userinfo URL." yaml:"userinfoUrl"`
	InsecureSkipVerify bool     `description:"Skip TLS verification." yaml:"insecure"`
	Name               string   `description:"Provider name in UI." yaml:"name"`
}

// Principal and request context

type PrincipalKind int

const (
	PrincipalUser PrincipalKind = iota + 1
	PrincipalClient
)

// Principal is either an end user or, for client credentials tokens, the client itself.
// Exactly one of User and Client is set, matching Kind.
type Principal struct {
	Kind   PrincipalKind
	User   *repository.User
	Client *repository.Client
}

func UserPrincipal(user *repository.User) Principal {
	return Principal{Kind: PrincipalUser, User: user}
}

func ClientPrincipal(client *repository.Client) Principal {
	return Principal{Kind: PrincipalClient, Client: client}
}

func (p Principal) IsUser() bool {
	return p.Kind == PrincipalUser && p.User != nil
}

func (p Principal) IsClient() bool {
	return p.Kind == PrincipalClient && p.Client != nil
}

// AuthInfo is attached to bearer authenticated requests only.
type AuthInfo struct {
	Scope  []string
	Client *repository.Client
}

type UserContext struct {
	Principal   Principal
	IsLoggedIn  bool
	SessionUUID string
	// set when the request was authenticated with a bearer token
	AuthInfo *AuthInfo
}

// Seed file

type SeedFile struct {
	Users   []SeedUser     `yaml:"users"`
	Clients []ClientConfig `yaml:"clients"`
}

type SeedUser struct {
	Username string   `yaml:"username"`
	Email    string   `yaml:"email"`
	Name     string   `yaml:"name"`
	Password string   `yaml:"password"`
	Role     string   `yaml:"role"`
	Groups   []string `yaml:"groups"`
}

// API queries

type CodeRedirectQuery struct {
	Code  string `url:"code"`
	State string `url:"state,omitempty"`
}

type TokenFragment struct {
	AccessToken string `url:"access_token"`
	ExpiresIn   int    `url:"expires_in"`
	TokenType   string `url:"token_type"`
	State       string `url:"state,omitempty"`
}

type TicketRedirectQuery struct {
	Ticket string `url:"ticket"`
}

type ErrorRedirectQuery struct {
	Error            string `url:"error"`
	ErrorDescription string `url:"error_description,omitempty"`
	State            string `url:"state,omitempty"`
}
