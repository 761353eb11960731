package router

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-contrib/static"
	"github.com/gin-gonic/gin"

	"github.com/goliatone/go-settings/internal/config"
	"github.com/goliatone/go-settings/internal/handler"
	"github.com/goliatone/go-settings/internal/middleware"
)

//go:embed assets
var assetsFS embed.FS

type embedFileSystem struct {
	http.FileSystem
}

func (e embedFileSystem) Exists(prefix string, path string) bool {
	trimmed := strings.TrimPrefix(path, prefix)
	if len(trimmed) == len(path) || trimmed == "" || trimmed == "/" {
		return false
	}
	_, err := e.Open(trimmed)
	return err == nil
}

// EmbedFolder exposes targetPath of fsEmbed to the static middleware.
func EmbedFolder(fsEmbed embed.FS, targetPath string) static.ServeFileSystem {
	efs, err := fs.Sub(fsEmbed, targetPath)
	if err != nil {
		panic(err)
	}
	return embedFileSystem{
		FileSystem: http.FS(efs),
	}
}

// NewRouter wires middleware and routes.
func NewRouter(serverHandler *handler.Server, configManager *config.Manager) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Recovery())
	router.Use(middleware.Logger(configManager.GetLogConfig()))
	router.Use(gzip.Gzip(gzip.DefaultCompression))
	startTime := time.Now()
	router.Use(func(c *gin.Context) {
		c.Set("serverStartTime", startTime)
		c.Next()
	})

	registerSystemRoutes(router, serverHandler)
	registerSettingsRoutes(router, serverHandler, configManager)
	registerAssetRoutes(router)

	return router
}

// registerSystemRoutes registers system-level routes
func registerSystemRoutes(router *gin.Engine, serverHandler *handler.Server) {
	router.GET("/health", serverHandler.Health)
}

// registerSettingsRoutes registers the authenticated settings routes
func registerSettingsRoutes(router *gin.Engine, serverHandler *handler.Server, configManager *config.Manager) {
	settings := router.Group("/settings")
	settings.Use(middleware.Auth(configManager.GetAuthConfig()))
	{
		settings.GET("", serverHandler.ListGroups)
		settings.GET("/:group", serverHandler.RenderSettings)
		settings.POST("/:group", serverHandler.SaveSettings)
		settings.GET("/:group/export", serverHandler.ExportSettings)
		settings.POST("/:group/import", serverHandler.ImportSettings)
		settings.GET("/:group/values", serverHandler.GetValues)
		settings.PATCH("/:group/values", serverHandler.PatchValues)
		settings.DELETE("/:group/values", serverHandler.DeleteValues)
		settings.GET("/:group/schema", serverHandler.GetSchema)
	}
}

// registerAssetRoutes serves the embedded stylesheet
func registerAssetRoutes(router *gin.Engine) {
	router.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "Method not allowed"})
	})
	router.Use(static.Serve("/assets", EmbedFolder(assetsFS, "assets")))
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not Found"})
	})
}
