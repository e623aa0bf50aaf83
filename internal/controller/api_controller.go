package controller

import (
	"net/http"

	"github.com/ssoauth/ssoauth/internal/policy"
	"github.com/ssoauth/ssoauth/internal/utils"

	"github.com/gin-gonic/gin"
)

type HandshakeResponse struct {
	Principal string   `json:"principal"`
	ID        string   `json:"id"`
	Scope     []string `json:"scope,omitempty"`
}

type ApiController struct {
	router   *gin.RouterGroup
	policies *policy.Engine
}

func NewApiController(router *gin.RouterGroup, policies *policy.Engine) *ApiController {
	return &ApiController{
		router:   router,
		policies: policies,
	}
}

func (controller *ApiController) SetupRoutes() {
	api2Group := controller.router.Group("/api2")
	api2Group.OPTIONS("/me", controller.policies.Preflight())
	api2Group.GET("/me", controller.policies.Middleware(policy.KnownUserApi), controller.meHandler)
	api2Group.OPTIONS("/clientinfo", controller.policies.Preflight())
	api2Group.GET("/clientinfo", controller.policies.Middleware(policy.KnownUserApi), controller.clientInfoHandler)

	controller.router.GET("/api/realtime/handshake", controller.policies.EnforceHandshake(policy.KnownUserApi), controller.handshakeHandler)
}

func (controller *ApiController) meHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	switch {
	case userContext.Principal.IsUser():
		c.JSON(http.StatusOK, newUserInfo(userContext.Principal.User))
	case userContext.Principal.IsClient():
		c.JSON(http.StatusOK, newClientInfo(userContext.Principal.Client))
	default:
		c.String(http.StatusUnauthorized, "Unauthorized")
	}
}

// clientInfoHandler describes the client behind a bearer token, sessions have none.
func (controller *ApiController) clientInfoHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	if userContext.AuthInfo == nil || userContext.AuthInfo.Client == nil {
		c.JSON(http.StatusOK, gin.H{})
		return
	}

	info := newClientInfo(userContext.AuthInfo.Client)
	info.Scope = userContext.AuthInfo.Scope

	c.JSON(http.StatusOK, info)
}

func (controller *ApiController) handshakeHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	response := HandshakeResponse{}

	switch {
	case userContext.Principal.IsUser():
		response.Principal = "user"
		response.ID = userContext.Principal.User.ID
	case userContext.Principal.IsClient():
		response.Principal = "client"
		response.ID = userContext.Principal.Client.ClientID
	}

	if userContext.AuthInfo != nil {
		response.Scope = userContext.AuthInfo.Scope
	}

	c.JSON(http.StatusOK, response)
}
