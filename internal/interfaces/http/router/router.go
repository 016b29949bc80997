package router

import (
	"net/http"
	"path"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar mounts a set of routes on the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RegistrarFunc adapts a plain function to RouteRegistrar
type RegistrarFunc func(rg *gin.RouterGroup)

// RegisterRoutes calls f(rg)
func (f RegistrarFunc) RegisterRoutes(rg *gin.RouterGroup) { f(rg) }

// Router mounts registrars under /api/<version> behind shared middleware
type Router struct {
	engine     *gin.Engine
	apiVersion string
	middleware []gin.HandlerFunc
	registrars []RouteRegistrar
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) { r.apiVersion = version }
}

// NewRouter creates a Router that serves /api/v1 unless told otherwise
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Use adds middleware to every API route. Routes on the bare engine are unaffected.
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// BasePath returns the API prefix, e.g. "/api/v1"
func (r *Router) BasePath() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered registrar
func (r *Router) Setup() {
	api := r.engine.Group(r.BasePath(), r.middleware...)
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Resource groups the routes of one API resource under a shared prefix
type Resource struct {
	prefix     string
	middleware []gin.HandlerFunc
	routes     []route
}

type route struct {
	method   string
	path     string
	handlers []gin.HandlerFunc
}

// NewResource creates a resource mounted at prefix. middleware runs before every route of the resource.
func NewResource(prefix string, middleware ...gin.HandlerFunc) *Resource {
	return &Resource{prefix: prefix, middleware: middleware}
}

// Handle adds a route relative to the resource prefix
func (res *Resource) Handle(method, relativePath string, handlers ...gin.HandlerFunc) *Resource {
	res.routes = append(res.routes, route{method: method, path: relativePath, handlers: handlers})
	return res
}

// GET adds a GET route
func (res *Resource) GET(relativePath string, handlers ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodGet, relativePath, handlers...)
}

// POST adds a POST route
func (res *Resource) POST(relativePath string, handlers ...gin.HandlerFunc) *Resource {
	return res.Handle(http.MethodPost, relativePath, handlers...)
}

// Prefix returns the mount prefix
func (res *Resource) Prefix() string {
	return res.prefix
}

// Endpoints lists "METHOD /prefix/path" for every route, in registration order
func (res *Resource) Endpoints() []string {
	endpoints := make([]string, 0, len(res.routes))
	for _, rt := range res.routes {
		endpoints = append(endpoints, rt.method+" "+path.Join(res.prefix, rt.path))
	}
	return endpoints
}

// RegisterRoutes implements RouteRegistrar
func (res *Resource) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(res.prefix, res.middleware...)
	for _, rt := range res.routes {
		group.Handle(rt.method, rt.path, rt.handlers...)
	}
}
