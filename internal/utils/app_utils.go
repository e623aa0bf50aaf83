package utils

import (
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/ssoauth/ssoauth/internal/config"

	"github.com/gin-gonic/gin"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

// GetCookieDomain returns the registrable domain of the app URL, or an empty
// string (host-only cookie) for localhost and IP addresses.
func GetCookieDomain(appUrl string) (string, error) {
	parsed, err := url.Parse(appUrl)

	if err != nil {
		return "", err
	}

	host := parsed.Hostname()

	if host == "" {
		return "", errors.New("invalid app url, missing host")
	}

	if host == "localhost" || net.ParseIP(host) != nil {
		return "", nil
	}

	domain, err := publicsuffix.Domain(host)

	if err != nil {
		return "", fmt.Errorf("domain in public suffix list, cannot set cookies: %w", err)
	}

	return domain, nil
}

func GetContext(c *gin.Context) (*config.UserContext, error) {
	userContextValue, exists := c.Get("context")

	if !exists {
		return nil, errors.New("no user context in request")
	}

	userContext, ok := userContextValue.(*config.UserContext)

	if !ok {
		return nil, errors.New("invalid user context in request")
	}

	return userContext, nil
}
