package http

import (
	"time"

	"task_webapp/internal/http/handlers"
	"task_webapp/internal/http/middleware"
	"task_webapp/internal/ws"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the routes are wired to. Hub and Limiter may be
// nil.
type Deps struct {
	Tasks   handlers.TaskService
	DB      handlers.Pinger
	Hub     *ws.Hub
	Limiter *middleware.RedisLimiter

	RateLimit     int
	RateWindow    time.Duration
	AllowedOrigin string
	Version       string
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	h := handlers.NewHandler(d.Tasks)
	healthHandler := handlers.NewHealthHandler(d.DB, d.Version)
	if d.Limiter.Enabled() {
		healthHandler.AddCheck("redis", d.Limiter)
	}

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)

	var limit []gin.HandlerFunc
	if d.RateLimit > 0 {
		limit = append(limit, middleware.RateLimit(d.Limiter, d.RateLimit, d.RateWindow))
	}

	// same surface under both prefixes, sharing one limiter
	registerTaskRoutes(r.Group("/tasks", limit...), h)
	registerTaskRoutes(r.Group("/api/tasks", limit...), h)

	if d.Hub != nil {
		r.GET("/ws", ws.HandleWS(d.Hub, d.AllowedOrigin))
	}
}

func registerTaskRoutes(g *gin.RouterGroup, h *handlers.Handler) {
	g.GET("", h.ListTasks)
	g.POST("", h.CreateTask)
	g.GET("/:id", h.GetTask)
	g.PATCH("/:id", h.UpdateTask)
	g.DELETE("/:id", h.DeleteTask)
}
