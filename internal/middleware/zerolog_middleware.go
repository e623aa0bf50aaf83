package middleware

import (
	"strings"
	"time"

	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

var (
	loggerSkipPathsPrefix = []string{
		"GET /api/health",
		"HEAD /api/health",
		"GET /favicon.ico",
		"OPTIONS ",
	}
)

type ZerologMiddleware struct{}

func NewZerologMiddleware() *ZerologMiddleware {
	return &ZerologMiddleware{}
}

func (m *ZerologMiddleware) Init() error {
	return nil
}

func (m *ZerologMiddleware) logPath(path string) bool {
	for _, prefix := range loggerSkipPathsPrefix {
		if strings.HasPrefix(path, prefix) {
			return false
		}
	}
	return true
}

func (m *ZerologMiddleware) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tStart := time.Now()

		c.Next()

		code := c.Writer.Status()
		method := c.Request.Method
		path := c.Request.URL.Path

		var event *zerolog.Event

		// noisy paths only show up at debug level
		if m.logPath(method + " " + path) {
			switch {
			case code >= 500:
				event = tlog.HTTP.Error()
			case code >= 400:
				event = tlog.HTTP.Warn()
			default:
				event = tlog.HTTP.Info()
			}
		} else {
			event = tlog.HTTP.Debug()
		}

		event.Str("method", method).
			Str("path", path).
			Str("address", c.Request.RemoteAddr).
			Str("clientIp", c.ClientIP()).
			Int("status", code).
			Dur("latency", time.Since(tStart)).
			Msg("Request")
	}
}
