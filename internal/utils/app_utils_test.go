package utils_test

import (
	"testing"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/utils"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
)

func TestGetCookieDomain(t *testing.T) {
	// Normal case
	result, err := utils.GetCookieDomain("http://sub.ssoauth.app")
	assert.NilError(t, err)
	assert.Equal(t, "ssoauth.app", result)

	// Multiple subdomains
	result, err = utils.GetCookieDomain("https://a.b.ssoauth.app/path")
	assert.NilError(t, err)
	assert.Equal(t, "ssoauth.app", result)

	// Port
	result, err = utils.GetCookieDomain("http://sub.ssoauth.app:8080")
	assert.NilError(t, err)
	assert.Equal(t, "ssoauth.app", result)

	// Localhost and IP addresses get host-only cookies
	result, err = utils.GetCookieDomain("http://localhost:9000")
	assert.NilError(t, err)
	assert.Equal(t, "", result)

	result, err = utils.GetCookieDomain("http://10.10.10.10")
	assert.NilError(t, err)
	assert.Equal(t, "", result)

	// Public suffix
	_, err = utils.GetCookieDomain("http://co.uk")
	assert.ErrorContains(t, err, "domain in public suffix list")

	// Missing host
	_, err = utils.GetCookieDomain("com")
	assert.ErrorContains(t, err, "missing host")

	// Invalid URL
	_, err = utils.GetCookieDomain("http://[::1]:namedport")
	assert.ErrorContains(t, err, "invalid port")
}

func TestGetContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(nil)

	_, err := utils.GetContext(c)
	assert.Error(t, err, "no user context in request")

	c.Set("context", "invalid")
	_, err = utils.GetContext(c)
	assert.Error(t, err, "invalid user context in request")

	c.Set("context", &config.UserContext{IsLoggedIn: true})
	ctx, err := utils.GetContext(c)
	assert.NilError(t, err)
	assert.Assert(t, ctx.IsLoggedIn)
}
