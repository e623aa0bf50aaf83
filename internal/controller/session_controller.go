package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ssoauth/ssoauth/internal/policy"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" form:"username"`
	Email    string `json:"email" form:"email"`
	Password string `json:"password" form:"password"`
}

type SessionController struct {
	router   *gin.RouterGroup
	policies *policy.Engine
	users    *service.UserService
	sessions *service.SessionService
	broker   *service.OAuthBrokerService
}

func NewSessionController(router *gin.RouterGroup, policies *policy.Engine, users *service.UserService, sessions *service.SessionService, broker *service.OAuthBrokerService) *SessionController {
	return &SessionController{
		router:   router,
		policies: policies,
		users:    users,
		sessions: sessions,
		broker:   broker,
	}
}

func (controller *SessionController) SetupRoutes() {
	controller.router.GET("/login", controller.policies.Middleware(policy.AnonUserPage), controller.loginPageHandler)
	controller.router.GET("/logout", controller.policies.Middleware(policy.AnonUserPage), controller.logoutPageHandler)
	controller.router.POST("/api/session", controller.policies.Middleware(policy.LoginUserPageApi), controller.loginHandler)
	controller.router.DELETE("/api/session", controller.policies.Middleware(policy.AnonUserPageApi), controller.logoutHandler)
}

// loginPageHandler stands in for the login page, the policy hands out the session and XSRF cookie.
func (controller *SessionController) loginPageHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to get user context")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	body := gin.H{
		"status":        200,
		"message":       "OK",
		"authenticated": userContext.IsLoggedIn,
		"providers":     controller.broker.GetConfiguredServices(),
	}

	if userContext.Principal.IsUser() {
		body["user"] = newUserInfo(userContext.Principal.User)
	}

	c.JSON(200, body)
}

func (controller *SessionController) logoutPageHandler(c *gin.Context) {
	controller.logout(c)
	c.Redirect(http.StatusFound, "/login")
}

func (controller *SessionController) loginHandler(c *gin.Context) {
	var req LoginRequest

	err := c.ShouldBind(&req)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to bind login request")
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	login := req.Username

	if login == "" {
		login = req.Email
	}

	if login == "" || req.Password == "" {
		c.JSON(400, gin.H{
			"status":  400,
			"message": "Bad Request",
		})
		return
	}

	tlog.App.Debug().Str("username", login).Msg("Login attempt")

	isLocked, remaining := controller.users.IsAccountLocked(login)

	if isLocked {
		tlog.App.Warn().Str("username", login).Msg("Account is locked due to too many failed login attempts")
		c.Header("x-ssoauth-lock-locked", "true")
		c.Header("x-ssoauth-lock-reset", time.Now().Add(time.Duration(remaining)*time.Second).Format(time.RFC3339))
		c.JSON(429, gin.H{
			"status":  429,
			"message": fmt.Sprintf("Too many failed login attempts. Try again in %d seconds", remaining),
		})
		return
	}

	user, err := controller.users.Authenticate(c.Request.Context(), login, req.Password)

	if err != nil {
		tlog.App.Error().Err(err).Str("username", login).Msg("Failed to authenticate user")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	if user == nil {
		tlog.App.Warn().Str("username", login).Msg("Invalid credentials")
		controller.users.RecordLoginAttempt(login, false)
		tlog.AuditLoginFailure(c, login, "username")
		c.JSON(401, gin.H{
			"status":  401,
			"message": "Unauthorized",
		})
		return
	}

	controller.users.RecordLoginAttempt(login, true)

	_, returnTo, err := controller.sessions.Login(c, user, user.Provider)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to create session")
		c.JSON(500, gin.H{
			"status":  500,
			"message": "Internal Server Error",
		})
		return
	}

	tlog.AuditLoginSuccess(c, user.Username, user.Provider)

	c.JSON(200, gin.H{
		"status":   200,
		"message":  "Login successful",
		"user":     newUserInfo(user),
		"returnTo": returnTo,
	})
}

func (controller *SessionController) logoutHandler(c *gin.Context) {
	controller.logout(c)

	c.JSON(200, gin.H{
		"status":  200,
		"message": "Logout successful",
	})
}

func (controller *SessionController) logout(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err == nil && userContext.Principal.IsUser() {
		tlog.AuditLogout(c, userContext.Principal.User.Username, userContext.Principal.User.Provider)
	}

	err = controller.sessions.Logout(c)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to logout")
	}
}
