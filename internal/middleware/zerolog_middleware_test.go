package middleware_test

import (
	"net/http/httptest"
	"testing"

	"github.com/ssoauth/ssoauth/internal/middleware"
	"github.com/ssoauth/ssoauth/internal/utils/tlog"

	"github.com/gin-gonic/gin"
	"gotest.tools/v3/assert"
)

func TestZerologMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tlog.NewSimpleLogger().Init()

	zerologMiddleware := middleware.NewZerologMiddleware()
	assert.NilError(t, zerologMiddleware.Init())

	router := gin.New()
	router.Use(zerologMiddleware.Middleware())
	router.GET("/api/health", func(c *gin.Context) { c.Status(200) })
	router.GET("/boom", func(c *gin.Context) { c.Status(500) })

	for _, path := range []string{"/api/health", "/boom", "/missing"} {
		recorder := httptest.NewRecorder()
		req := httptest.NewRequest("GET", path, nil)
		router.ServeHTTP(recorder, req)
		assert.Assert(t, recorder.Code != 0)
	}
}
