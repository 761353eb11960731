// Package handler provides HTTP handlers for the settings server.
package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/dig"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/internal/definitions"
	"github.com/goliatone/go-settings/internal/i18n"
	"github.com/goliatone/go-settings/internal/middleware"
	"github.com/goliatone/go-settings/internal/nonce"
	"github.com/goliatone/go-settings/pkg/render"
	"github.com/goliatone/go-settings/schema/openapi"
)

// Server contains dependencies for HTTP handlers
type Server struct {
	Catalog   *definitions.Catalog
	Renderer  *render.Renderer
	Nonces    *nonce.Manager
	I18n      *i18n.Manager
	Generator *openapi.Generator
}

// NewServerParams defines the dependencies for the NewServer constructor.
type NewServerParams struct {
	dig.In
	Catalog   *definitions.Catalog
	Renderer  *render.Renderer
	Nonces    *nonce.Manager
	I18n      *i18n.Manager
	Generator *openapi.Generator
}

// NewServer creates a new handler instance with dependencies injected by dig.
func NewServer(params NewServerParams) *Server {
	return &Server{
		Catalog:   params.Catalog,
		Renderer:  params.Renderer,
		Nonces:    params.Nonces,
		I18n:      params.I18n,
		Generator: params.Generator,
	}
}

// Health handles health check requests
func (s *Server) Health(c *gin.Context) {
	uptime := "unknown"
	if startTime, exists := c.Get("serverStartTime"); exists {
		if st, ok := startTime.(time.Time); ok {
			uptime = time.Since(st).String()
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    uptime,
		"groups":    len(s.Catalog.Groups()),
	})
}

// ListGroups returns the option groups served.
func (s *Server) ListGroups(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": s.Catalog.Groups()})
}

// registry resolves the :group parameter, answering 404 when it is unknown.
func (s *Server) registry(c *gin.Context) (*settings.Registry, bool) {
	group := c.Param("group")
	registry, ok := s.Catalog.Get(group)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown option group", "group": group})
		return nil, false
	}
	return registry, true
}

func (s *Server) translator(c *gin.Context) render.Translator {
	if s.I18n == nil {
		return render.TranslatorFunc(nil)
	}
	return s.I18n.Translator(c.GetHeader("Accept-Language"))
}

func actor(c *gin.Context) settings.Actor {
	return settings.Actor{ID: c.GetString(middleware.ActorKey)}
}
