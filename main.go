package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/waegarcia/conversational-assistant/internal/adapter/weather"
	"github.com/waegarcia/conversational-assistant/internal/config"
	"github.com/waegarcia/conversational-assistant/internal/logging"
	"github.com/waegarcia/conversational-assistant/internal/metrics"
	"github.com/waegarcia/conversational-assistant/internal/policy"
	"github.com/waegarcia/conversational-assistant/internal/repository"
	"github.com/waegarcia/conversational-assistant/internal/service"
	httptransport "github.com/waegarcia/conversational-assistant/internal/transport/http"
	"github.com/waegarcia/conversational-assistant/internal/transport/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("starting assistant",
		zap.Int("http_port", cfg.HTTPPort),
		zap.String("storage", cfg.StorageBackend),
		zap.String("weather_url", cfg.Weather.BaseURL))

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	store, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize store", zap.Error(err))
	}
	defer store.Close()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy, policy.Limits{
		MaxUserIDLength:  cfg.Limits.MaxUserIDLength,
		MaxMessageLength: cfg.Limits.MaxMessageLength,
	})
	if err != nil {
		logger.Fatal("failed to initialize policy engine", zap.Error(err))
	}

	gateway := weather.NewGateway(weather.Config{
		BaseURL: cfg.Weather.BaseURL,
		APIKey:  cfg.Weather.APIKey,
		Units:   cfg.Weather.Units,
		Lang:    cfg.Weather.Lang,
		Timeout: cfg.Weather.Timeout,
	}, logger)

	sink := metrics.NewPrometheus()
	svc := service.New(store, gateway, sink, policyEngine, cfg, logger)
	go svc.RunActiveGaugeSync(ctx)

	server := httptransport.NewServer(svc, sink.Handler(), logger)
	wsServer := ws.NewServer(cfg.WS, svc, logger)
	server.GET("/ws", wsServer.HandleWebSocket)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := server.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	logger.Info("API started", zap.Int("port", cfg.HTTPPort))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down assistant")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("failed to shutdown server gracefully", zap.Error(err))
	}

	logger.Info("assistant stopped")
}
