package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"task_webapp/internal/config"
	"task_webapp/internal/db"
	httpServer "task_webapp/internal/http"
	"task_webapp/internal/http/middleware"
	"task_webapp/internal/logger"
	"task_webapp/internal/repository"
	"task_webapp/internal/service"
	"task_webapp/internal/ws"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// set via ldflags
var version = "dev"

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("database connect failed", "error", err)
	}

	gdb, err := db.Open(db.Postgres(pool), cfg.Database.Debug)
	if err != nil {
		logger.Fatal("orm init failed", "error", err)
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		logger.Fatal("orm init failed", "error", err)
	}

	repo := repository.NewTaskRepository(gdb)
	hub := ws.NewHub()
	tasks := service.NewTaskService(repo, hub)
	limiter := middleware.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.AccessLog(),
		middleware.Metrics(),
		middleware.CORS(cfg.AllowedOrigin),
	)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	httpServer.RegisterRoutes(r, httpServer.Deps{
		Tasks:         tasks,
		DB:            repo,
		Hub:           hub,
		Limiter:       limiter,
		RateLimit:     cfg.APIRateLimit,
		RateWindow:    cfg.APIRateWindow,
		AllowedOrigin: cfg.AllowedOrigin,
		Version:       version,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "version", version, "redis", limiter.Enabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	// operations run concurrently, so ordering lives inside one operation
	wait := gfshutdown.GracefulShutdown(ctx, shutdownTimeout, map[string]gfshutdown.Operation{
		"server": func(ctx context.Context) error {
			logger.Info("shutting down server")
			hub.Close()
			err := srv.Shutdown(ctx)
			err = errors.Join(err, sqlDB.Close(), limiter.Close())
			pool.Close()
			return err
		},
	})

	code := <-wait
	logger.Info("server exited", "code", code)
	os.Exit(code)
}
