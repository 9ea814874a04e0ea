package router

import (
	"github.com/gin-gonic/gin"
)

// RouteRegistrar defines the interface for registering routes
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router mounts domain route groups under a versioned API prefix
type Router struct {
	engine        *gin.Engine
	apiVersion    string
	apiMiddleware []gin.HandlerFunc
	health        gin.HandlerFunc
	groups        []DomainGroup
}

// DomainGroup is a registrar mounted at a prefix below the API root
type DomainGroup struct {
	Name      string
	Prefix    string
	Registrar RouteRegistrar
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// WithAPIMiddleware adds middleware that runs only for versioned API routes
func WithAPIMiddleware(middleware ...gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.apiMiddleware = append(r.apiMiddleware, middleware...)
	}
}

// WithHealthHandler serves h at /health and /api/<version>/health
func WithHealthHandler(h gin.HandlerFunc) RouterOption {
	return func(r *Router) {
		r.health = h
	}
}

// NewRouter creates a new Router instance
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register adds a registrar to be mounted at prefix by Setup
func (r *Router) Register(name, prefix string, registrar RouteRegistrar) *Router {
	r.groups = append(r.groups, DomainGroup{Name: name, Prefix: prefix, Registrar: registrar})
	return r
}

// Groups returns the registered domain groups in registration order
func (r *Router) Groups() []DomainGroup {
	return r.groups
}

// Setup registers all routes with the engine
func (r *Router) Setup() {
	base := "/api/" + r.apiVersion
	if r.health != nil {
		r.engine.GET("/health", r.health)
		r.engine.GET(base+"/health", r.health)
	}

	api := r.engine.Group(base, r.apiMiddleware...)
	for _, g := range r.groups {
		g.Registrar.RegisterRoutes(api.Group(g.Prefix))
	}
}
