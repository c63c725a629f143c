package api

import (
	"github.com/gin-gonic/gin"

	"docquery/internal/config"
)

// SetupRouter wires the middleware stack and routes.
func SetupRouter(h *Handler, cfg *config.AppConfig) *gin.Engine {
	r := gin.Default()

	r.GET("/healthz", h.Health)

	apiV1 := r.Group("/api/v1")
	if cfg.Middleware.RateLimiter.Enabled {
		apiV1.Use(RateLimitMiddleware(NewRateLimiter(cfg.Middleware.RateLimiter)))
	}
	switch cfg.Auth.Method {
	case "jwt":
		apiV1.Use(JWTAuthMiddleware(cfg.Auth.JwtSecret))
	default:
		apiV1.Use(BearerAuthMiddleware(cfg.Auth.BearerToken))
	}
	{
		hackrx := apiV1.Group("/hackrx")
		hackrx.POST("/run", h.Run)
	}

	return r
}
