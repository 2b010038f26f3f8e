package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/qrave1/RehearsalHub/internal/application/config"
	"github.com/qrave1/RehearsalHub/internal/application/constant"
	"github.com/qrave1/RehearsalHub/internal/application/metric"
	"github.com/qrave1/RehearsalHub/internal/infra/adapters/memory"
	"github.com/qrave1/RehearsalHub/internal/infra/adapters/token"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/handlers"
	"github.com/qrave1/RehearsalHub/internal/infra/ports/http/server"
	"github.com/qrave1/RehearsalHub/internal/usecase"
)

// liveStats отдаёт /health число соединений и комнат
type liveStats struct {
	memory.ConnectionRepository
	memory.RoomRegistry
}

func runApp() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.New()
	if err != nil {
		slog.Error("parse config", slog.Any(constant.Error, err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}

	slog.SetDefault(
		slog.New(
			slog.NewJSONHandler(
				os.Stdout,
				&slog.HandlerOptions{Level: level},
			),
		),
	)

	connRepo := memory.NewConnectionRepository()
	roomRegistry := memory.NewRoomRegistry()
	verifier := token.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	gatekeeper := usecase.NewGatekeeper(verifier, cfg.WS.SendBuffer)
	broadcastUsecase := usecase.NewBroadcastUsecase(roomRegistry, cfg.Broadcast.ExcludeSender)
	realtimeUsecase := usecase.NewRealtimeUsecase(connRepo, roomRegistry, broadcastUsecase)

	wsHandler := handlers.NewWebSocketHandler(cfg, gatekeeper, realtimeUsecase)
	realtimeHandler := handlers.NewRealtimeHandler(realtimeUsecase)

	echoSrv := server.New(verifier, wsHandler, realtimeHandler)

	metricsSrv := metric.NewServer(liveStats{connRepo, roomRegistry})

	echoSrvCh := make(chan error, 1)
	metricsSrvCh := make(chan error, 1)

	go func() {
		echoSrvCh <- echoSrv.Start(":" + cfg.Port)
	}()

	go func() {
		metricsSrvCh <- metricsSrv.Start(":" + cfg.MetricPort)
	}()

	slog.Info(
		"servers started",
		slog.String("port", cfg.Port),
		slog.String("metric_port", cfg.MetricPort),
	)

	select {
	case <-ctx.Done():
		slog.Info("Shutting down servers due to context cancel")
	case err := <-echoSrvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server failed", slog.Any(constant.Error, err))
			os.Exit(1)
		}
	case err := <-metricsSrvCh:
		if !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server failed", slog.Any(constant.Error, err))
			os.Exit(1)
		}
	}

	// Graceful shutdown
	timeoutCtx, timeoutCancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.ShutdownTimeout)
	defer timeoutCancel()

	if err := echoSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown HTTP server", slog.Any(constant.Error, err))
	}

	// Shutdown не трогает hijacked соединения, закрываем их сами
	realtimeUsecase.CloseAll(timeoutCtx)

	if err := metricsSrv.Shutdown(timeoutCtx); err != nil {
		slog.Error("Failed to gracefully shutdown metric server", slog.Any(constant.Error, err))
	}
}
