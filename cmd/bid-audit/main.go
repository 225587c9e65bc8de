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
	"auction-bidgate/internal/infrastructure/mysql"
	"auction-bidgate/internal/infrastructure/redis"
	"auction-bidgate/internal/services"
	"auction-bidgate/pkg/logger"
	"auction-bidgate/pkg/utils"

	"github.com/gorilla/mux"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New().Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.NewWithConfig(cfg.Log.Level)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	rdb := utils.InitializeRedis(ctx, cfg, log)
	db := utils.InitializeMysql(ctx, cfg, log)
	defer db.Close()

	auditService := services.NewAuditService(
		redis.NewRedisEventSubscriber(rdb, log),
		mysql.NewMySQLBidAttemptRepository(db),
		log,
	)
	auditHandler := handlers.NewAuditHandler(auditService, log)

	router := mux.NewRouter()
	router.HandleFunc("/api/v1/users/{telegramID}/attempts", auditHandler.ListAttempts).Methods("GET")
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	listenCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	go func() {
		if err := auditService.Start(listenCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Audit service failed", "error", err)
			os.Exit(1)
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Audit.Host, cfg.Audit.Port),
		Handler: router,
	}
	go func() {
		log.Info("Starting audit server", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down audit service...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopListener()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	log.Info("Audit service stopped")
}
