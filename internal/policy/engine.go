package policy

import (
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/config"
	"github.com/ssoauth/ssoauth/internal/repository"
	"github.com/ssoauth/ssoauth/internal/service"
	"github.com/ssoauth/ssoauth/internal/utils"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
)

const loginPath = "/login"

type EngineConfig struct {
	AppURL         string
	CORSOrigin     string
	CSRFCookieName string
}

// Engine turns policies into gin handlers.
type Engine struct {
	config    EngineConfig
	sessions  *service.SessionService
	users     *service.UserService
	oauth2    *service.OAuth2Service
	rateLimit *service.RateLimitService
}

// per request pipeline state
type state struct {
	policy      Policy
	notCors     bool
	userContext *config.UserContext
	csrfToken   string
}

type stage func(c *gin.Context, st *state) bool

func NewEngine(config EngineConfig, sessions *service.SessionService, users *service.UserService, oauth2 *service.OAuth2Service, rateLimit *service.RateLimitService) *Engine {
	return &Engine{
		config:    config,
		sessions:  sessions,
		users:     users,
		oauth2:    oauth2,
		rateLimit: rateLimit,
	}
}

func (engine *Engine) Init() error {
	if engine.config.CSRFCookieName == "" {
		engine.config.CSRFCookieName = config.CSRFCookieName
	}
	engine.config.AppURL = strings.TrimSuffix(engine.config.AppURL, "/")
	return nil
}

// Middleware enforces the full policy pipeline.
func (engine *Engine) Middleware(p Policy) gin.HandlerFunc {
	return engine.run(p,
		engine.openCors,
		engine.setXframe,
		engine.rateLimitStage(p.AuthLimit),
		engine.authenticate,
		engine.hasCsrf,
		engine.hasAuthorization,
		engine.rateLimitStage(p.Limit),
		engine.setCsrf,
	)
}

// EnforceHandshake is the subset used to authenticate realtime socket handshakes.
func (engine *Engine) EnforceHandshake(p Policy) gin.HandlerFunc {
	return engine.run(p,
		engine.rateLimitStage(p.AuthLimit),
		engine.authenticate,
		engine.hasAuthorization,
	)
}

// Preflight answers CORS OPTIONS requests, register it for every CORS route.
func (engine *Engine) Preflight() gin.HandlerFunc {
	return engine.run(Policy{Name: "preflight", CORS: true}, engine.openCors)
}

func (engine *Engine) run(p Policy, stages ...stage) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := &state{policy: p}

		for _, s := range stages {
			if !s(c, st) {
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

func (engine *Engine) openCors(c *gin.Context, st *state) bool {
	if !st.policy.CORS {
		return true
	}

	origin := engine.config.CORSOrigin

	if origin == "" {
		origin = "*"
	}

	c.Header("Access-Control-Allow-Origin", origin)

	if origin != "*" {
		c.Header("Vary", "Origin")
	}

	if c.Request.Method != http.MethodOptions {
		return true
	}

	c.Header("Access-Control-Allow-Methods", "GET,HEAD,PUT,PATCH,POST,DELETE")

	if headers := c.GetHeader("Access-Control-Request-Headers"); headers != "" {
		c.Header("Access-Control-Allow-Headers", headers)
		c.Header("Vary", "Origin, Access-Control-Request-Headers")
	}

	c.Header("Content-Length", "0")
	c.Status(http.StatusNoContent)
	return false
}

func (engine *Engine) setXframe(c *gin.Context, st *state) bool {
	if st.policy.XFrame != "" {
		c.Header("X-FRAME-OPTIONS", st.policy.XFrame)
	}
	return true
}

func (engine *Engine) rateLimitStage(strategy string) stage {
	return func(c *gin.Context, st *state) bool {
		if strategy == "" {
			return true
		}

		limit, ok := engine.rateLimit.Strategy(strategy)

		if !ok {
			return true
		}

		result, err := engine.rateLimit.Get(c.Request.Context(), engine.limitKey(c, st, strategy), limit.Max, time.Duration(limit.Duration)*time.Millisecond)

		if err != nil {
			tlog.App.Error().Err(err).Str("strategy", strategy).Msg("Failed to apply rate limit")
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return false
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(result.Total))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

		if !result.Exceeded {
			return true
		}

		delta := time.Until(result.Reset)
		c.Header("Retry-After", strconv.Itoa(int(delta.Seconds())))

		tlog.App.Warn().Str("strategy", strategy).Str("ip", c.ClientIP()).Msg("Rate limit exceeded")

		c.String(http.StatusTooManyRequests, "Too Many Requests, retry in "+LongDuration(delta))
		return false
	}
}

func (engine *Engine) limitKey(c *gin.Context, st *state, strategy string) string {
	switch strategy {
	case service.LimitByLogin:
		return "login"
	case service.LimitByAnyone:
		return "anyone"
	case service.LimitByUser:
		return "user:" + principalID(st.userContext)
	case service.LimitByIP:
		ip := c.GetHeader("X-Forwarded-For")
		if ip == "" {
			ip, _, _ = net.SplitHostPort(c.Request.RemoteAddr)
		}
		return "ip:" + ip
	default:
		return strategy
	}
}

func principalID(userContext *config.UserContext) string {
	switch {
	case userContext == nil:
		return ""
	case userContext.Principal.IsUser():
		return userContext.Principal.User.ID
	case userContext.Principal.IsClient():
		return userContext.Principal.Client.ID
	default:
		return ""
	}
}

// hasBearer mirrors where a bearer strategy would look for credentials.
func hasBearer(c *gin.Context) bool {
	return c.GetHeader("Authorization") != "" || c.PostForm("access_token") != "" || c.Query("access_token") != ""
}

func bearerToken(c *gin.Context) string {
	if scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if token := c.PostForm("access_token"); token != "" {
		return token
	}
	return c.Query("access_token")
}

func (engine *Engine) authenticate(c *gin.Context, st *state) bool {
	session, err := engine.sessions.GetSession(c)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to load session")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return false
	}

	// an existing user session wins over any bearer material
	if session != nil && session.UserID != "" {
		user, err := engine.users.FindByID(c.Request.Context(), session.UserID)

		if err != nil {
			tlog.App.Error().Err(err).Msg("Failed to load session user")
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return false
		}

		if user != nil {
			st.notCors = true
			st.userContext = &config.UserContext{
				Principal:   config.UserPrincipal(user),
				IsLoggedIn:  true,
				SessionUUID: session.UUID,
			}
			c.Set("context", st.userContext)
			return true
		}
	}

	if hasBearer(c) {
		if st.policy.Anonymous {
			engine.setAnonymous(c, st, session)
			return true
		}

		userContext, err := engine.oauth2.Introspect(c.Request.Context(), bearerToken(c))

		if err != nil {
			tlog.App.Error().Err(err).Msg("Failed to verify bearer token")
			c.String(http.StatusInternalServerError, "Internal Server Error")
			return false
		}

		if userContext == nil {
			c.Header("WWW-Authenticate", `Bearer realm="Users", error="invalid_token"`)
			c.String(http.StatusUnauthorized, "Unauthorized")
			return false
		}

		st.userContext = userContext
		c.Set("context", st.userContext)
		return true
	}

	origin := c.GetHeader("Origin")

	if st.policy.CSRF != CSRFOff && (origin == "" || strings.TrimSuffix(origin, "/") == engine.config.AppURL) {
		st.notCors = true
	}

	return engine.finishAuthentication(c, st, session)
}

func (engine *Engine) finishAuthentication(c *gin.Context, st *state, session *repository.Session) bool {
	if st.policy.Anonymous {
		engine.setAnonymous(c, st, session)
		return true
	}

	if !st.policy.Session || st.policy.NoRedirect {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return false
	}

	if st.policy.setReturnTo() {
		session, err := engine.sessions.EnsureSession(c)

		if err == nil {
			err = engine.sessions.SetReturnTo(c.Request.Context(), session, c.Request.URL.RequestURI())
		}

		if err != nil {
			tlog.App.Error().Err(err).Msg("Failed to store return url")
		}
	}

	c.Redirect(http.StatusFound, loginPath)
	return false
}

func (engine *Engine) setAnonymous(c *gin.Context, st *state, session *repository.Session) {
	st.userContext = &config.UserContext{}

	if session != nil {
		st.userContext.SessionUUID = session.UUID
	}

	c.Set("context", st.userContext)
}

func isSafeMethod(method string) bool {
	return method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions
}

func (engine *Engine) hasCsrf(c *gin.Context, st *state) bool {
	if st.policy.CSRF == CSRFOff {
		return true
	}

	if st.policy.CSRF == CSRFNotCors && !st.notCors {
		return true
	}

	expected, err := engine.expectedCsrfToken(c, st)

	if err != nil {
		tlog.App.Error().Err(err).Msg("Failed to resolve csrf token")
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return false
	}

	st.csrfToken = expected

	if isSafeMethod(c.Request.Method) {
		return true
	}

	if expected == "" || !utils.SecureCompare(expected, submittedCsrfToken(c)) {
		tlog.App.Warn().Str("path", c.Request.URL.Path).Str("ip", c.ClientIP()).Msg("Invalid csrf token")
		c.String(http.StatusForbidden, "Forbidden")
		return false
	}

	return true
}

// expectedCsrfToken reads the token from the session, creating one for page policies, and falls
// back to the double submit cookie when no session can hold it.
func (engine *Engine) expectedCsrfToken(c *gin.Context, st *state) (string, error) {
	var session *repository.Session
	var err error

	if st.policy.Session {
		session, err = engine.sessions.EnsureSession(c)
	} else {
		session, err = engine.sessions.GetSession(c)
	}

	if err != nil {
		return "", err
	}

	if session != nil {
		return engine.sessions.EnsureCsrfToken(c.Request.Context(), session)
	}

	cookie, err := c.Cookie(engine.config.CSRFCookieName)

	if err != nil {
		return "", nil
	}

	return cookie, nil
}

func submittedCsrfToken(c *gin.Context) string {
	if token := c.GetHeader("X-XSRF-TOKEN"); token != "" {
		return token
	}
	if token := c.GetHeader("X-CSRF-TOKEN"); token != "" {
		return token
	}
	return c.PostForm("_csrf")
}

func (engine *Engine) hasAuthorization(c *gin.Context, st *state) bool {
	if st.policy.Anonymous {
		return true
	}

	userContext := st.userContext

	if userContext == nil {
		c.String(http.StatusUnauthorized, "Unauthorized")
		return false
	}

	if userContext.AuthInfo != nil && !service.HasAtLeastOneScope(st.policy.Scope, userContext.AuthInfo.Scope) {
		c.String(http.StatusForbidden, "Forbidden")
		return false
	}

	if st.policy.Override != nil && st.policy.Override(c, userContext) {
		return true
	}

	if !hasRoleAndGroup(userContext.Principal, st.policy.Role, st.policy.Groups) {
		c.String(http.StatusForbidden, "Forbidden")
		return false
	}

	return true
}

// clients carry no role or group, they only pass checks that require none
func hasRoleAndGroup(principal config.Principal, role string, groups []string) bool {
	if principal.IsUser() {
		return principal.User.HasRole(role) && principal.User.HasGroup(groups)
	}
	return role == "" && len(groups) == 0
}

func (engine *Engine) setCsrf(c *gin.Context, st *state) bool {
	if st.policy.Session && st.csrfToken != "" {
		engine.sessions.SetCsrfCookie(c, st.csrfToken)
	}
	return true
}

// LongDuration formats d the way a person would read it, "1 minute" or "59 seconds".
func LongDuration(d time.Duration) string {
	ms := float64(d.Milliseconds())

	units := []struct {
		size float64
		name string
	}{
		{float64(24 * time.Hour / time.Millisecond), "day"},
		{float64(time.Hour / time.Millisecond), "hour"},
		{float64(time.Minute / time.Millisecond), "minute"},
		{float64(time.Second / time.Millisecond), "second"},
	}

	for _, unit := range units {
		if ms < unit.size {
			continue
		}
		if ms < unit.size*1.5 {
			return fmt.Sprintf("%d %s", int64(math.Floor(ms/unit.size)), unit.name)
		}
		// partial units round up once the count is plural
		return fmt.Sprintf("%d %ss", int64(math.Ceil(ms/unit.size)), unit.name)
	}

	return fmt.Sprintf("%d ms", int64(ms))
}
