package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auction-bidgate/internal/api/handlers"
	"auction-bidgate/internal/config"
	"auction-bidgate/internal/domain"
	"auction-bidgate/internal/infrastructure/api"
	"auction-bidgate/internal/infrastructure/leader"
	"auction-bidgate/internal/infrastructure/redis"
	"auction-bidgate/internal/obs"
	"auction-bidgate/internal/services"
	"auction-bidgate/pkg/logger"
	"auction-bidgate/pkg/utils"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const leaderKey = "bidgate:lots_leader"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithConfig(cfg.Log.Level)
	log.Info("Starting bid gateway", "config", cfg.GetConfigString())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb := utils.InitializeRedis(ctx, cfg, log)
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := obs.NewMetrics(reg)

	remote := api.NewClient(api.Options{
		BaseURL:           cfg.API.BaseURL,
		Timeout:           cfg.API.Timeout,
		MaxRetries:        cfg.API.MaxRetries,
		RetryDelay:        cfg.API.RetryDelay,
		RequestsPerSecond: cfg.API.RequestsPerSecond,
		WPNonce:           cfg.API.WPNonce,
		Observer:          metrics,
	}, log)

	// Increment table
	schedule, err := services.LoadIncrementSchedule(ctx, services.NewBiddingRuleDao(rdb))
	if err != nil {
		log.Warn("Using default increment table", "error", err)
	}

	// Rate limiter backend
	var (
		limiter domain.AttemptLimiter
		sweeper services.Sweeper
	)
	switch cfg.Limiter.Backend {
	case "redis":
		limiter = redis.NewRedisRateLimiter(rdb, cfg.Limiter.AnonymousIdentity)
	default:
		memory := services.NewRateLimiter(
			services.WithAnonymousIdentity(cfg.Limiter.AnonymousIdentity),
			services.WithIdleTTL(cfg.Limiter.IdleTTL),
		)
		limiter, sweeper = memory, memory
	}
	limits := cfg.RateLimits()

	lotCache := redis.NewRedisLotCache(rdb, cfg.Refresh.SnapshotTTL)
	preferenceStore := redis.NewRedisPreferenceStore(rdb)
	eventPublisher := redis.NewEventPublisher(rdb)
	leaderElection := leader.NewRedisLeaderElection(rdb, leaderKey, cfg.Leader.TTL)

	lotService := services.NewLotService(remote, lotCache, schedule, log)
	bidService := services.NewBidService(remote, lotCache, schedule, services.NewBidValidator(), limiter, limits,
		eventPublisher, metrics, log)
	sessionService := services.NewSessionService(remote, limiter, limits, log)
	preferenceService := services.NewPreferenceService(preferenceStore, lotService, remote, limiter, limits, log)

	scheduler := services.NewCronScheduler(lotService, sweeper, leaderElection, cfg.Instance.ID, services.JobSchedules{
		LotRefresh:   cfg.Refresh.Lots,
		LimiterSweep: cfg.Refresh.LimiterSweep,
	}, log)

	// Initialize Echo
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Format: `{"time":"${time_rfc3339}","id":"${id}","remote_ip":"${remote_ip}","method":"${method}","uri":"${uri}","status":${status},"error":"${error}","latency_human":"${latency_human}"}` + "\n",
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			echo.HeaderXRequestedWith,
			"X-Telegram-Init-Data",
		},
		ExposeHeaders: []string{echo.HeaderRetryAfter},
		MaxAge:        86400,
	}))

	gateway := handlers.NewGatewayHandler(sessionService, lotService, bidService, preferenceService, log)
	gateway.Register(e.Group("/api/v1"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "bid-gateway",
			"instance":  cfg.Instance.ID,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Start background services
	bgCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if err := scheduler.Start(bgCtx); err != nil {
		log.Error("Failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Try to become leader
	go func() {
		for {
			became, err := leaderElection.BecomeLeader(bgCtx, cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
			} else if became {
				log.Info("Became lot refresh leader", "instance_id", cfg.Instance.ID)
				if _, err := lotService.Refresh(bgCtx); err != nil {
					log.Error("Initial lot refresh failed", "error", err)
				}
			}

			select {
			case <-bgCtx.Done():
				return
			case <-time.After(10 * time.Second):
			}
		}
	}()

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting gateway server", "address", serverAddr)
		if err := e.Start(serverAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down bid gateway...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopBackground()
	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	if err := rdb.Close(); err != nil {
		log.Error("Failed to close Redis client", "error", err)
	}

	log.Info("Bid gateway stopped")
}
