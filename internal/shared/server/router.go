package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "github.com/nits830/pdf-mechanic/internal/auth"
	"github.com/nits830/pdf-mechanic/internal/pdfs"
	"github.com/nits830/pdf-mechanic/internal/services/health"
	"github.com/nits830/pdf-mechanic/internal/shared/config"
	"github.com/nits830/pdf-mechanic/internal/shared/metrics"
	"github.com/nits830/pdf-mechanic/internal/shared/server/middleware"
	"github.com/nits830/pdf-mechanic/internal/shared/server/respond"
	"github.com/nits830/pdf-mechanic/internal/users"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config      config.Config
	Health      *health.Service
	PDFHandler  *pdfs.Handler
	UserHandler *users.Handler
	GoogleAuth  *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		if deps.Health != nil {
			respond.JSON(c, http.StatusOK, deps.Health.Status())
			return
		}
		respond.JSON(c, http.StatusOK, gin.H{"status": "ok"})
	})
	api.GET("/metrics", metrics.Handler())

	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}

	if deps.UserHandler != nil {
		deps.UserHandler.RegisterPublicRoutes(api.Group("/users"))
		deps.UserHandler.RegisterRoutes(api.Group("/users", middleware.Auth()))
	}

	if deps.PDFHandler != nil {
		pdfsGroup := api.Group("/pdfs", middleware.Auth())
		deps.PDFHandler.RegisterRoutes(pdfsGroup)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
