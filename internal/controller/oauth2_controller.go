package controller

import (
	"net/http"

	"github.com/ssoauth/ssoauth/internal/policy"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

type AuthorizeQuery struct {
	ClientID     string `form:"client_id"`
	RedirectURI  string `form:"redirect_uri"`
	ResponseType string `form:"response_type"`
	Scope        string `form:"scope"`
	State        string `form:"state"`
}

type DecisionRequest struct {
	TransactionID string `form:"transaction_id" json:"transaction_id"`
	Cancel        string `form:"cancel" json:"cancel"`
}

var noReturnTo = false

// decision posts come from the consent page, a lost session goes back to the login page
var decisionPolicy = policy.KnownUserPage.With(func(p *policy.Policy) {
	p.Name = "decision"
	p.SetReturnTo = &noReturnTo
})

type OAuth2Controller struct {
	router   *gin.RouterGroup
	policies *policy.Engine
	flow     *oauth2Flow
}

func NewOAuth2Controller(router *gin.RouterGroup, policies *policy.Engine, oauth2 *service.OAuth2Service, clients *service.ClientService) *OAuth2Controller {
	return &OAuth2Controller{
		router:   router,
		policies: policies,
		flow: &oauth2Flow{
			oauth2:  oauth2,
			clients: clients,
		},
	}
}

func (controller *OAuth2Controller) SetupRoutes() {
	oauth2Group := controller.router.Group("/oauth2")
	oauth2Group.GET("/authorize", controller.policies.Middleware(policy.KnownUserPage), controller.authorizeHandler)
	oauth2Group.POST("/authorize/decision", controller.policies.Middleware(decisionPolicy), controller.decisionHandler)
	oauth2Group.OPTIONS("/token", controller.policies.Preflight())
	oauth2Group.POST("/token", controller.policies.Middleware(policy.LoginUserApi), controller.tokenHandler)
	oauth2Group.OPTIONS("/tokeninfo", controller.policies.Preflight())
	oauth2Group.GET("/tokeninfo", controller.policies.Middleware(policy.LoginUserApi), controller.tokenInfoHandler)
}

func (controller *OAuth2Controller) authorizeHandler(c *gin.Context) {
	var query AuthorizeQuery

	err := c.ShouldBindQuery(&query)

	if err != nil {
		renderOAuthError(c, service.InvalidRequest("Malformed authorization request"))
		return
	}

	controller.flow.authorize(c, &service.AuthorizeRequest{
		ClientID:     query.ClientID,
		RedirectURI:  query.RedirectURI,
		ResponseType: query.ResponseType,
		Scope:        service.ParseScope(query.Scope),
		State:        query.State,
	})
}

func (controller *OAuth2Controller) decisionHandler(c *gin.Context) {
	var req DecisionRequest

	err := c.ShouldBind(&req)

	if err != nil {
		renderOAuthError(c, service.InvalidRequest("Malformed decision request"))
		return
	}

	userContext, ok := currentUser(c)

	if !ok {
		return
	}

	user := userContext.Principal.User

	txn, err := controller.flow.oauth2.ConsumeTransaction(c.Request.Context(), req.TransactionID, userContext.SessionUUID, user.ID)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	client, err := controller.flow.clients.FindByID(c.Request.Context(), txn.ClientID)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	if client == nil {
		renderOAuthError(c, service.InvalidRequest("Unknown client"))
		return
	}

	if req.Cancel != "" {
		tlog.App.Debug().Str("username", user.Username).Msg("User denied authorization")

		location, err := controller.flow.oauth2.DenyRedirect(client, txn.ResponseType, txn.RedirectURI, txn.State)

		if err != nil {
			renderOAuthError(c, err)
			return
		}

		c.Redirect(http.StatusFound, location)
		return
	}

	controller.flow.grant(c, client, user, txn.ResponseType, txn.RedirectURI, service.ParseScope(txn.Scope), txn.State)
}

func (controller *OAuth2Controller) tokenHandler(c *gin.Context) {
	setNoStore(c)

	response, err := controller.flow.exchange(c)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, response)
}

func (controller *OAuth2Controller) tokenInfoHandler(c *gin.Context) {
	setNoStore(c)

	info, err := controller.flow.oauth2.TokenInfo(c.Request.Context(), c.Query("access_token"))

	if err != nil {
		oauthErr := asOAuthError(err)

		if oauthErr.Code == service.ErrServerError {
			renderOAuthError(c, oauthErr)
			return
		}

		c.JSON(http.StatusBadRequest, gin.H{
			"error": service.ErrInvalidToken,
		})
		return
	}

	c.JSON(http.StatusOK, info)
}
