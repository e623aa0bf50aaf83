package controller

import (
	"errors"
	"net/http"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type UserInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Role     string   `json:"role"`
	Groups   []string `json:"groups"`
	Provider string   `json:"provider"`
}

type ClientInfo struct {
	ClientID string   `json:"client_id"`
	Name     string   `json:"name"`
	Trusted  bool     `json:"trusted"`
	Scope    []string `json:"scope,omitempty"`
}

func newUserInfo(user *repository.User) UserInfo {
	return UserInfo{
		ID:       user.ID,
		Name:     user.Name,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
		Groups:   user.GroupList(),
		Provider: user.Provider,
	}
}

func newClientInfo(client *repository.Client) ClientInfo {
	return ClientInfo{
		ClientID: client.ClientID,
		Name:     client.Name,
		Trusted:  client.TrustedClient,
	}
}

// asOAuthError maps any error to something renderable, hiding internal failures.
func asOAuthError(err error) *service.OAuthError {
	var oauthErr *service.OAuthError

	if errors.As(err, &oauthErr) {
		return oauthErr
	}

	tlog.App.Error().Err(err).Msg("Unexpected error while processing OAuth request")
	return service.ServerError("")
}

func renderOAuthError(c *gin.Context, err error) {
	oauthErr := asOAuthError(err)

	body := gin.H{
		"error": oauthErr.Code,
	}

	if oauthErr.Description != "" {
		body["error_description"] = oauthErr.Description
	}

	if oauthErr.URI != "" {
		body["error_uri"] = oauthErr.URI
	}

	c.JSON(oauthErr.Status, body)
}

func setNoStore(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}

// currentUser returns the user principal of the request, rendering a failure when there is none.
func currentUser(c *gin.Context) (*config.UserContext, bool) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to get user context")
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return nil, false
	}

	if !userContext.Principal.IsUser() {
		c.String(http.StatusForbidden, "Forbidden")
		return nil, false
	}

	return userContext, true
}
