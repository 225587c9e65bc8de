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
	"auction-bidgate/internal/api/middleware"
	"auction-bidgate/internal/config"
	"auction-bidgate/internal/infrastructure/redis"
	"auction-bidgate/internal/infrastructure/websocket"
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

	eventSubscriber := redis.NewRedisEventSubscriber(rdb, log)
	connManager := websocket.NewConnectionManager(log)
	eventListener := services.NewEventListener(websocket.NewWebSocketNotifier(connManager), log)
	if cfg.Telegram.BotToken == "" {
		log.Warn("No telegram bot token configured, init data signatures are not checked")
	}
	verifier := websocket.NewInitDataVerifier(cfg.Telegram.BotToken, cfg.Telegram.InitDataMaxAge)
	wsHandlers := handlers.NewWebSocketHandlers(connManager, verifier, log)

	// Setup routes
	router := mux.NewRouter()
	router.Use(middleware.CORS(log))
	router.HandleFunc("/ws/users/{telegramID}", wsHandlers.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	listenCtx, stopListener := context.WithCancel(context.Background())
	defer stopListener()
	go func() {
		if err := eventListener.Start(listenCtx, eventSubscriber); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Event listener stopped", "error", err)
			os.Exit(1)
		}
	}()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Notifier.Host, cfg.Notifier.Port),
		Handler: router,
	}
	go func() {
		log.Info("Starting notifier", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notifier...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stopListener()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}
	connManager.CloseAll()

	log.Info("Notifier stopped")
}
