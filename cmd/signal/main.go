package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"droplink/internal/core/ports"
	"droplink/internal/core/services"
	"droplink/internal/infrastructure/middleware"
	"droplink/internal/infrastructure/monitoring"
	signalgw "droplink/internal/infrastructure/signal"
	"droplink/pkg/config"
	"droplink/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		cfg = config.DefaultConfig()
	}

	zapLogger := logger.New(cfg.Logging.Level)
	defer zapLogger.Sync()

	log := zapLogger.Sugar()

	var collector ports.StatsCollector
	if cfg.Monitoring.MetricsEnabled {
		collector = monitoring.NewPrometheusCollector()
	}

	registry := services.NewRoomRegistry(log, collector)
	relay := services.NewRelayEngine(registry, cfg.Keepalive.Interval, log, collector)
	gateway := signalgw.NewServer(registry, relay, cfg.Server.ReadLimitBytes, cfg.Server.WriteTimeout, log)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	if cfg.RateLimiting.Enabled {
		router.Use(middleware.NewConnectionRateLimit(
			cfg.RateLimiting.ConnectionsPerSecond,
			cfg.RateLimiting.Burst,
		))
	}

	router.GET("/server", func(c *gin.Context) {
		gateway.HandleWebSocket(c.Writer, c.Request)
	})
	router.GET("/health", monitoring.HealthHandler(registry))
	if cfg.Monitoring.MetricsEnabled {
		router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	go func() {
		log.Infow("droplink is running", "address", cfg.Server.Address)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("graceful shutdown failed", "error", err)
	}
}
