package controller

import (
	"net/http"

	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

// TokenRequest is the token endpoint input, accepted as form, JSON or query parameters.
type TokenRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Code         string `form:"code" json:"code"`
	RedirectURI  string `form:"redirect_uri" json:"redirect_uri"`
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
	Scope        string `form:"scope" json:"scope"`
	ClientID     string `form:"client_id" json:"client_id"`
	ClientSecret string `form:"client_secret" json:"client_secret"`
}

// merge fills empty fields from other, body values take precedence over the query.
func (req *TokenRequest) merge(other TokenRequest) {
	fill := func(dst *string, src string) {
		if *dst == "" {
			*dst = src
		}
	}
	fill(&req.GrantType, other.GrantType)
	fill(&req.Code, other.Code)
	fill(&req.RedirectURI, other.RedirectURI)
	fill(&req.Username, other.Username)
	fill(&req.Password, other.Password)
	fill(&req.RefreshToken, other.RefreshToken)
	fill(&req.Scope, other.Scope)
	fill(&req.ClientID, other.ClientID)
	fill(&req.ClientSecret, other.ClientSecret)
}

type DecisionView struct {
	TransactionID string     `json:"transactionID"`
	User          UserInfo   `json:"user"`
	Client        ClientInfo `json:"client"`
	Scope         []string   `json:"scope"`
}

// oauth2Flow is the authorization and token machinery shared by the OAuth2 and CAS routes.
type oauth2Flow struct {
	oauth2  *service.OAuth2Service
	clients *service.ClientService
}

// authorize runs an authorization request for the logged in user, either redirecting with a grant
// or asking for consent.
func (flow *oauth2Flow) authorize(c *gin.Context, req *service.AuthorizeRequest) {
	userContext, ok := currentUser(c)

	if !ok {
		return
	}

	user := userContext.Principal.User

	client, err := flow.oauth2.Authorize(c.Request.Context(), req)

	if err != nil {
		tlog.App.Debug().Err(err).Str("clientId", req.ClientID).Str("redirectUri", req.RedirectURI).Msg("Authorization request rejected")
		renderOAuthError(c, err)
		return
	}

	if client.TrustedClient {
		tlog.App.Debug().Str("clientId", client.ClientID).Str("username", user.Username).Msg("Trusted client, skipping consent")
		flow.grant(c, client, user, req.ResponseType, req.RedirectURI, req.Scope, req.State)
		return
	}

	transactionID, err := flow.oauth2.CreateTransaction(c.Request.Context(), userContext.SessionUUID, user, client, req)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	c.JSON(http.StatusOK, DecisionView{
		TransactionID: transactionID,
		User:          newUserInfo(user),
		Client:        newClientInfo(client),
		Scope:         req.Scope,
	})
}

func (flow *oauth2Flow) grant(c *gin.Context, client *repository.Client, user *repository.User, responseType string, redirectURI string, scope []string, state string) {
	location, err := flow.oauth2.Grant(c.Request.Context(), client, user, responseType, redirectURI, scope, state)

	if err != nil {
		renderOAuthError(c, err)
		return
	}

	if responseType == service.ResponseTypeToken {
		tlog.AuditTokenIssued(c, client.ClientID, user.ID, "implicit")
	}

	c.Redirect(http.StatusFound, location)
}

// exchange authenticates the client and runs the requested grant.
func (flow *oauth2Flow) exchange(c *gin.Context) (*service.TokenResponse, error) {
	var req TokenRequest

	// bind errors leave the fields empty, the grant reports what is missing
	_ = c.ShouldBind(&req)

	var query TokenRequest
	_ = c.ShouldBindQuery(&query)

	req.merge(query)

	if req.GrantType == "" {
		req.GrantType = service.GrantAuthorizationCode
	}

	if req.Scope == "" {
		req.Scope = service.WildcardScope
	}

	clientID, clientSecret, basic := c.Request.BasicAuth()

	if !basic {
		clientID = req.ClientID
		clientSecret = req.ClientSecret
	}

	client, err := flow.clients.Authenticate(c.Request.Context(), clientID, clientSecret)

	if err != nil {
		return nil, err
	}

	if client == nil {
		if basic {
			c.Header("WWW-Authenticate", `Basic realm="Clients"`)
		}
		tlog.AuditTokenDenied(c, clientID, req.GrantType, "client authentication failed")
		return nil, service.InvalidClient("Client authentication failed")
	}

	response, err := flow.oauth2.Exchange(c.Request.Context(), client, &service.TokenRequest{
		GrantType:    req.GrantType,
		Code:         req.Code,
		RedirectURI:  req.RedirectURI,
		Username:     req.Username,
		Password:     req.Password,
		RefreshToken: req.RefreshToken,
		Scope:        service.ParseScope(req.Scope),
	})

	if err != nil {
		tlog.AuditTokenDenied(c, client.ClientID, req.GrantType, err.Error())
		return nil, err
	}

	tlog.AuditTokenIssued(c, client.ClientID, response.Subject, req.GrantType)

	return response, nil
}
