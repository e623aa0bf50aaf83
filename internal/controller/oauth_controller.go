package controller

import (
	"net/http"
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/policy"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type OAuthRequest struct {
	Provider string `uri:"provider" binding:"required"`
}

type OAuthControllerConfig struct {
	StateCookieName string
	SecureCookie    bool
	CookieDomain    string
}

// OAuthController logs users in through the configured upstream OAuth providers.
type OAuthController struct {
	config   OAuthControllerConfig
	router   *gin.RouterGroup
	policies *policy.Engine
	broker   *service.OAuthBrokerService
	users    *service.UserService
	sessions *service.SessionService
}

func NewOAuthController(config OAuthControllerConfig, router *gin.RouterGroup, policies *policy.Engine, broker *service.OAuthBrokerService, users *service.UserService, sessions *service.SessionService) *OAuthController {
	return &OAuthController{
		config:   config,
		router:   router,
		policies: policies,
		broker:   broker,
		users:    users,
		sessions: sessions,
	}
}

func (controller *OAuthController) SetupRoutes() {
	authGroup := controller.router.Group("/auth")
	authGroup.Use(controller.policies.Middleware(policy.AnonUserPage))
	authGroup.GET("/:provider", controller.oauthURLHandler)
	authGroup.GET("/:provider/callback", controller.oauthCallbackHandler)
}

func (controller *OAuthController) oauthURLHandler(c *gin.Context) {
	var req OAuthRequest

	err := c.BindUri(&req)
	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	oauthService, exists := controller.broker.GetService(req.Provider)

	if !exists {
		tlog.App.Warn().Str("provider", req.Provider).Msg("OAuth provider not found")
		c.JSON(404, gin.H{
			"status":  404,
			"message": "Not Found",
		})
		return
	}

	state, err := oauthService.GenerateState()

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to generate OAuth state")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	verifier := oauthService.GenerateVerifier()

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(controller.config.StateCookieName, state+"."+verifier, int(time.Hour.Seconds()), "/", controller.config.CookieDomain, controller.config.SecureCookie, true)

	c.Redirect(http.StatusFound, oauthService.GetAuthURL(state, verifier))
}

func (controller *OAuthController) oauthCallbackHandler(c *gin.Context) {
	var req OAuthRequest

	err := c.BindUri(&req)
	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to bind URI")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	stateCookie, err := c.Cookie(controller.config.StateCookieName)
	state, verifier, _ := strings.Cut(stateCookie, ".")

	if err != nil || state == "" || !utils.SecureCompare(state, c.Query("state")) {
		tlog.App.Warn().Err(err).Msg("OAuth state mismatch or cookie missing")
		controller.fail(c, req.Provider)
		return
	}

	c.SetCookie(controller.config.StateCookieName, "", -1, "/", controller.config.CookieDomain, controller.config.SecureCookie, true)

	oauthService, exists := controller.broker.GetService(req.Provider)

	if !exists {
		tlog.App.Warn().Str("provider", req.Provider).Msg("OAuth provider not found")
		controller.fail(c, req.Provider)
		return
	}

	token, err := oauthService.VerifyCode(c.Request.Context(), c.Query("code"), verifier)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to verify OAuth code")
		controller.fail(c, req.Provider)
		return
	}

	claims, err := controller.broker.GetUser(c.Request.Context(), req.Provider, token)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to get user from OAuth provider")
		controller.fail(c, req.Provider)
		return
	}

	user, err := controller.users.GetOrCreateFederated(c.Request.Context(), req.Provider, claims)

	if err != nil {
		tlog.App.Error().Err(err).Str("provider", req.Provider).Msg("Failed to map OAuth user")
		controller.fail(c, req.Provider)
		return
	}

	_, returnTo, err := controller.sessions.Login(c, user, req.Provider)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to create session")
		controller.fail(c, req.Provider)
		return
	}

	tlog.AuditLoginSuccess(c, user.Username, req.Provider)

	// returnTo is recorded server side from the request path, it is always local
	if returnTo == "" || !strings.HasPrefix(returnTo, "/") || strings.HasPrefix(returnTo, "//") {
		returnTo = "/"
	}

	c.Redirect(http.StatusFound, returnTo)
}

func (controller *OAuthController) fail(c *gin.Context, provider string) {
	tlog.AuditLoginFailure(c, "", provider)
	c.Redirect(http.StatusFound, "/login")
}
