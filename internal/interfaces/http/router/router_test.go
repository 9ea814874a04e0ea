package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type pingRegistrar struct{}

func (pingRegistrar) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	rg.POST("/:id/finalize", func(c *gin.Context) {
		c.String(http.StatusOK, c.Param("id"))
	})
}

func serve(engine *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	return w
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())

	assert.NotNil(t, r)
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.Groups())
}

func TestRouterWithAPIVersion(t *testing.T) {
	r := NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register("invoices", "/invoices", pingRegistrar{})
	r.Setup()

	w := serve(engine, http.MethodGet, "/api/v1/invoices/ping")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = serve(engine, http.MethodPost, "/api/v1/invoices/42/finalize")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "42", w.Body.String())

	assert.Equal(t, http.StatusNotFound, serve(engine, http.MethodGet, "/health").Code)
	assert.Len(t, r.Groups(), 1)
	assert.Equal(t, "invoices", r.Groups()[0].Name)
}

func TestRouterAPIMiddlewareSkipsHealth(t *testing.T) {
	engine := gin.New()
	var guarded []string
	guard := func(c *gin.Context) {
		guarded = append(guarded, c.Request.URL.Path)
		c.Next()
	}

	r := NewRouter(engine,
		WithAPIMiddleware(guard),
		WithHealthHandler(func(c *gin.Context) { c.String(http.StatusOK, "ok") }),
	)
	r.Register("invoices", "/invoices", pingRegistrar{})
	r.Setup()

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/health").Code)
	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/health").Code)
	assert.Empty(t, guarded)

	assert.Equal(t, http.StatusOK, serve(engine, http.MethodGet, "/api/v1/invoices/ping").Code)
	assert.Equal(t, []string{"/api/v1/invoices/ping"}, guarded)
}
