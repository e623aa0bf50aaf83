package service

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/cenkalti/backoff/v5"
	ldapgo "github.com/go-ldap/ldap/v3"
)

type LdapServiceConfig struct {
	Address      string
	BindDN       string
	BindPassword string
	BaseDN       string
	Insecure     bool
	SearchFilter string
	AuthCert     string
	AuthKey      string
}

type LdapUser struct {
	DN    string
	Email string
	Name  string
}

type LdapService struct {
	config LdapServiceConfig
	conn   *ldapgo.Conn
	mutex  sync.RWMutex
	cert   *tls.Certificate
}

func NewLdapService(config LdapServiceConfig) *LdapService {
	return &LdapService{
		config: config,
	}
}

func (ldap *LdapService) Init() error {
	if ldap.config.SearchFilter == "" {
		ldap.config.SearchFilter = "(uid=%s)"
	}

	if ldap.config.AuthCert != "" && ldap.config.AuthKey != "" {
		cert, err := tls.LoadX509KeyPair(ldap.config.AuthCert, ldap.config.AuthKey)
		if err != nil {
			return fmt.Errorf("failed to initialize LDAP with mTLS authentication: %w", err)
		}
		ldap.cert = &cert
		tlog.App.Info().Msg("Using LDAP with mTLS authentication")
	}

	_, err := ldap.connect()

	if err != nil {
		return fmt.Errorf("failed to connect to LDAP server: %w", err)
	}

	return nil
}

// Heartbeat keeps the connection alive until ctx is done, reconnecting when a probe fails.
func (ldap *LdapService) Heartbeat(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			ldap.Close()
			return nil
		case <-ticker.C:
			err := ldap.heartbeat()
			if err != nil {
				tlog.App.Error().Err(err).Msg("LDAP connection heartbeat failed")
				if reconnectErr := ldap.reconnect(ctx); reconnectErr != nil {
					tlog.App.Error().Err(reconnectErr).Msg("Failed to reconnect to LDAP server")
					continue
				}
				tlog.App.Info().Msg("Successfully reconnected to LDAP server")
			}
		}
	}
}

func (ldap *LdapService) Close() {
	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	if ldap.conn != nil {
		ldap.conn.Close()
	}
}

func (ldap *LdapService) connect() (*ldapgo.Conn, error) {
	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	var conn *ldapgo.Conn
	var err error

	if ldap.cert != nil {
		conn, err = ldapgo.DialURL(ldap.config.Address, ldapgo.DialWithTLSConfig(&tls.Config{
			MinVersion:   tls.VersionTLS12,
			Certificates: []tls.Certificate{*ldap.cert},
		}))
	} else {
		conn, err = ldapgo.DialURL(ldap.config.Address, ldapgo.DialWithTLSConfig(&tls.Config{
			InsecureSkipVerify: ldap.config.Insecure,
			MinVersion:         tls.VersionTLS12,
		}))
	}

	if err != nil {
		return nil, err
	}

	ldap.conn = conn

	// mutex is already held
	err = ldap.bindService()

	if err != nil {
		return nil, err
	}

	return ldap.conn, nil
}

func (ldap *LdapService) Search(username string) (LdapUser, error) {
	escapedUsername := ldapgo.EscapeFilter(username)
	filter := fmt.Sprintf(ldap.config.SearchFilter, escapedUsername)

	searchRequest := ldapgo.NewSearchRequest(
		ldap.config.BaseDN,
		ldapgo.ScopeWholeSubtree, ldapgo.NeverDerefAliases, 0, 0, false,
		filter,
		[]string{"dn", "mail", "cn"},
		nil,
	)

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	searchResult, err := ldap.conn.Search(searchRequest)

	if err != nil {
		return LdapUser{}, err
	}

	if len(searchResult.Entries) != 1 {
		return LdapUser{}, fmt.Errorf("multiple or no entries found for user %s", username)
	}

	entry := searchResult.Entries[0]

	return LdapUser{
		DN:    entry.DN,
		Email: entry.GetAttributeValue("mail"),
		Name:  entry.GetAttributeValue("cn"),
	}, nil
}

func (ldap *LdapService) GetUserGroups(userDN string) ([]string, error) {
	searchRequest := ldapgo.NewSearchRequest(
		ldap.config.BaseDN,
		ldapgo.ScopeWholeSubtree, ldapgo.NeverDerefAliases, 0, 0, false,
		"(objectclass=groupOfUniqueNames)",
		[]string{"uniquemember"},
		nil,
	)

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	searchResult, err := ldap.conn.Search(searchRequest)

	if err != nil {
		return []string{}, err
	}

	groups := []string{}

	for _, entry := range searchResult.Entries {
		if !slices.Contains(entry.GetAttributeValues("uniquemember"), userDN) {
			continue
		}
		groups = append(groups, groupName(entry.DN))
	}

	return groups, nil
}

// groupName turns "cn=admins,ou=groups,dc=example" into "admins".
func groupName(groupDN string) string {
	groupDN = strings.TrimPrefix(groupDN, "cn=")
	parts := strings.SplitN(groupDN, ",", 2)
	return parts[0]
}

func (ldap *LdapService) bindService() error {
	if ldap.cert != nil {
		return ldap.conn.ExternalBind()
	}
	return ldap.conn.Bind(ldap.config.BindDN, ldap.config.BindPassword)
}

// Authenticate binds as the user and then restores the service binding on the shared connection.
func (ldap *LdapService) Authenticate(userDN string, password string) error {
	if password == "" {
		return errors.New("empty password")
	}

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	bindErr := ldap.conn.Bind(userDN, password)

	err := ldap.bindService()

	if err != nil {
		return fmt.Errorf("failed to rebind with service account: %w", err)
	}

	return bindErr
}

func (ldap *LdapService) heartbeat() error {
	tlog.App.Debug().Msg("Performing LDAP connection heartbeat")

	searchRequest := ldapgo.NewSearchRequest(
		"",
		ldapgo.ScopeBaseObject, ldapgo.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)",
		[]string{},
		nil,
	)

	ldap.mutex.Lock()
	defer ldap.mutex.Unlock()

	_, err := ldap.conn.Search(searchRequest)

	return err
}

func (ldap *LdapService) reconnect(ctx context.Context) error {
	tlog.App.Info().Msg("Reconnecting to LDAP server")

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.RandomizationFactor = 0.1
	exp.Multiplier = 1.5
	exp.Reset()

	operation := func() (*ldapgo.Conn, error) {
		ldap.Close()
		return ldap.connect()
	}

	_, err := backoff.Retry(ctx, operation, backoff.WithBackOff(exp), backoff.WithMaxTries(3))

	return err
}
