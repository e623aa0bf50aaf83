package policy

import (
	"slices"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/service"

	"github.com/gin-gonic/gin"
)

type CSRFMode int

const (
	CSRFOff CSRFMode = iota
	CSRFOn
	// enforced only when the request relies on the cookie session
	CSRFNotCors
)

// Policy describes how a route is protected. Build variations with With, never by mutating a shared value.
type Policy struct {
	Name        string
	CORS        bool
	CSRF        CSRFMode
	Session     bool
	Anonymous   bool
	XFrame      string
	NoRedirect  bool
	SetReturnTo *bool
	AuthLimit   string
	Limit       string
	Scope       []string
	Role        string
	Groups      []string
	// when it returns true the role and group checks are skipped, the bearer scope check never is
	Override func(c *gin.Context, userContext *config.UserContext) bool
}

// With returns a copy of the policy with fn applied.
func (p Policy) With(fn func(p *Policy)) Policy {
	copied := p
	copied.Scope = slices.Clone(p.Scope)
	copied.Groups = slices.Clone(p.Groups)
	if p.SetReturnTo != nil {
		setReturnTo := *p.SetReturnTo
		copied.SetReturnTo = &setReturnTo
	}
	fn(&copied)
	return copied
}

func (p Policy) setReturnTo() bool {
	return p.SetReturnTo == nil || *p.SetReturnTo
}

func webPage() Policy {
	return Policy{
		CSRF:    CSRFOn,
		Session: true,
		XFrame:  "DENY",
	}
}

func webPageApi() Policy {
	return Policy{
		CSRF:       CSRFOn,
		Session:    true,
		NoRedirect: true,
	}
}

func corsApi() Policy {
	return Policy{
		CORS:       true,
		CSRF:       CSRFNotCors,
		NoRedirect: true,
	}
}

// Page routes that may ask the user to enter credentials.
var AnonUserPage = webPage().With(func(p *Policy) {
	p.Name = "anonUserPage"
	p.Anonymous = true
})

// Page routes that require a known user.
var KnownUserPage = webPage().With(func(p *Policy) {
	p.Name = "knownUserPage"
})

// Page API routes open to anonymous users but not CORS enabled.
var AnonUserPageApi = webPageApi().With(func(p *Policy) {
	p.Name = "anonUserPageApi"
	p.Anonymous = true
})

// Page API routes that create a new interactive session.
var LoginUserPageApi = webPageApi().With(func(p *Policy) {
	p.Name = "loginUserPageApi"
	p.Anonymous = true
	p.AuthLimit = service.LimitByLogin
})

// Page API routes that require an interactive session.
var KnownUserPageApi = webPageApi().With(func(p *Policy) {
	p.Name = "knownUserPageApi"
})

// API routes open to anonymous users.
var AnonUserApi = corsApi().With(func(p *Policy) {
	p.Name = "anonUserApi"
	p.Anonymous = true
	p.AuthLimit = service.LimitByAnyone
})

// API routes open to anonymous users that authenticate the request themselves.
var LoginUserApi = corsApi().With(func(p *Policy) {
	p.Name = "loginUserApi"
	p.CSRF = CSRFOff
	p.Anonymous = true
	p.AuthLimit = service.LimitByAnyone
})

// API routes that use a session when one exists, or a bearer token.
var KnownUserApi = corsApi().With(func(p *Policy) {
	p.Name = "knownUserApi"
})

var named = map[string]Policy{
	AnonUserPage.Name:     AnonUserPage,
	KnownUserPage.Name:    KnownUserPage,
	AnonUserPageApi.Name:  AnonUserPageApi,
	LoginUserPageApi.Name: LoginUserPageApi,
	KnownUserPageApi.Name: KnownUserPageApi,
	AnonUserApi.Name:      AnonUserApi,
	LoginUserApi.Name:     LoginUserApi,
	KnownUserApi.Name:     KnownUserApi,
}

// Named looks up one of the predefined policies.
func Named(name string) (Policy, bool) {
	p, ok := named[name]
	if !ok {
		return Policy{}, false
	}
	return p.With(func(*Policy) {}), true
}
