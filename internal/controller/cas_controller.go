package controller

import (
	"net/http"

	"github.com/ssoauth/ssoauth/internal/policy"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/google/go-querystring/query"
)

type CasValidateQuery struct {
	Ticket  string `form:"ticket"`
	Service string `form:"service"`
}

type CasProfileAttribute struct {
	Code string `json:"code"`
}

type CasProfile struct {
	ID         string                `json:"id"`
	Attributes []CasProfileAttribute `json:"attributes"`
}

type CasController struct {
	router   *gin.RouterGroup
	policies *policy.Engine
	flow     *oauth2Flow
	cas      *service.CasService
	sessions *service.SessionService
}

func NewCasController(router *gin.RouterGroup, policies *policy.Engine, oauth2 *service.OAuth2Service, clients *service.ClientService, cas *service.CasService, sessions *service.SessionService) *CasController {
	return &CasController{
		router:   router,
		policies: policies,
		flow: &oauth2Flow{
			oauth2:  oauth2,
			clients: clients,
		},
		cas:      cas,
		sessions: sessions,
	}
}

func (controller *CasController) SetupRoutes() {
	casGroup := controller.router.Group("/cas")
	casGroup.GET("/login", controller.policies.Middleware(policy.KnownUserPage), controller.loginHandler)
	casGroup.GET("/logout", controller.policies.Middleware(policy.AnonUserPage), controller.logoutHandler)
	casGroup.OPTIONS("/validate", controller.policies.Preflight())
	casGroup.GET("/validate", controller.policies.Middleware(policy.LoginUserApi), controller.validateHandler(service.CasV1))
	casGroup.OPTIONS("/serviceValidate", controller.policies.Preflight())
	casGroup.GET("/serviceValidate", controller.policies.Middleware(policy.LoginUserApi), controller.validateHandler(service.CasV2))

	oauthGroup := casGroup.Group("/oauth2.0")
	oauthGroup.GET("/authorize", controller.policies.Middleware(policy.KnownUserPage), controller.oauthAuthorizeHandler)
	oauthGroup.OPTIONS("/accessToken", controller.policies.Preflight())
	oauthGroup.GET("/accessToken", controller.policies.Middleware(policy.LoginUserApi), controller.accessTokenHandler)
	oauthGroup.OPTIONS("/profile", controller.policies.Preflight())
	oauthGroup.GET("/profile", controller.policies.Middleware(policy.KnownUserApi), controller.profileHandler)
}

func (controller *CasController) loginHandler(c *gin.Context) {
	serviceURL := c.Query("service")

	if serviceURL == "" {
		renderOAuthError(c, service.InvalidRequest("Missing required parameter: service"))
		return
	}

	controller.flow.authorize(c, &service.AuthorizeRequest{
		RedirectURI:  serviceURL,
		ResponseType: service.ResponseTypeCas,
		Scope:        []string{service.LoginScope},
	})
}

func (controller *CasController) logoutHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err == nil && userContext.Principal.IsUser() {
		tlog.AuditLogout(c, userContext.Principal.User.Username, userContext.Principal.User.Provider)
	}

	err = controller.sessions.Logout(c)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to logout")
	}

	c.Redirect(http.StatusFound, "/login")
}

func (controller *CasController) validateHandler(version service.CasVersion) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req CasValidateQuery

		// missing parameters are reported by the validation itself
		_ = c.ShouldBindQuery(&req)

		c.Header("Content-Type", "text/plain; charset=us-ascii")
		setNoStore(c)

		username, err := controller.cas.Validate(c.Request.Context(), req.Ticket, req.Service)

		if err != nil {
			tlog.AuditCasValidate(c, req.Service, "", false)

			status := asOAuthError(err).Status

			if status < 400 {
				status = http.StatusInternalServerError
			}

			c.String(status, controller.cas.RenderFailure(version, req.Ticket))
			return
		}

		tlog.AuditCasValidate(c, req.Service, username, true)

		c.String(http.StatusOK, controller.cas.RenderSuccess(version, username))
	}
}

func (controller *CasController) oauthAuthorizeHandler(c *gin.Context) {
	var query AuthorizeQuery

	err := c.ShouldBindQuery(&query)

	if err != nil {
		renderOAuthError(c, service.InvalidRequest("Malformed authorization request"))
		return
	}

	controller.flow.authorize(c, &service.AuthorizeRequest{
		ClientID:     query.ClientID,
		RedirectURI:  query.RedirectURI,
		ResponseType: service.ResponseTypeCode,
		Scope:        []string{service.LoginScope},
		State:        query.State,
	})
}

func (controller *CasController) accessTokenHandler(c *gin.Context) {
	setNoStore(c)

	response, err := controller.flow.exchange(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	values, err := query.Values(response)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	c.Data(http.StatusOK, "application/x-www-form-urlencoded", []byte(values.Encode()))
}

func (controller *CasController) profileHandler(c *gin.Context) {
	userContext, err := utils.GetContext(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	id := ""

	switch {
	case userContext.Principal.IsUser():
		id = userContext.Principal.User.Username
	case userContext.Principal.IsClient():
		id = userContext.Principal.Client.ClientID
	}

	c.JSON(http.StatusOK, CasProfile{
		ID:         id,
		Attributes: []CasProfileAttribute{{Code: "SUCCESS"}},
	})
}
