package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthgrpc "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/nupi-ai/plugin-translate-local/internal/adapterinfo"
	"github.com/nupi-ai/plugin-translate-local/internal/config"
	"github.com/nupi-ai/plugin-translate-local/internal/logging"
	"github.com/nupi-ai/plugin-translate-local/internal/server"
	"github.com/nupi-ai/plugin-translate-local/internal/service"
	"github.com/nupi-ai/plugin-translate-local/internal/telemetry"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Loader{}.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel)
	logger.Info("starting adapter",
		"version", adapterinfo.Version(),
		"listen_addr", cfg.ListenAddr,
		"model_type", cfg.ModelType,
		"source_language", cfg.SourceLanguage,
		"target_language", cfg.TargetLanguage,
		"data_dir", cfg.DataDir,
	)

	recorder := telemetry.NewRecorder(logger)

	translator, err := service.FromConfig(cfg, logger)
	if err != nil {
		logger.Error("failed to initialise translation service", "error", err)
		os.Exit(1)
	}
	defer translator.Close()

	if installed, err := translator.Installed(); err != nil {
		logger.Warn("failed to list installed models", "error", err)
	} else {
		logger.Info("model library scanned", "installed_pairs", len(installed))
	}

	lis, err := net.Listen("tcp", cfg.ListenAddr)
	if err != nil {
		logger.Error("failed to bind listener", "error", err)
		os.Exit(1)
	}
	defer lis.Close()

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthgrpc.RegisterHealthServer(grpcServer, healthServer)

	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus(server.ServiceName, healthgrpc.HealthCheckResponse_NOT_SERVING)

	server.Register(grpcServer, server.New(cfg, logger, translator, recorder))

	healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(server.ServiceName, healthgrpc.HealthCheckResponse_SERVING)

	go func() {
		<-ctx.Done()
		logger.Info("shutdown requested, stopping gRPC server")
		healthServer.SetServingStatus(server.ServiceName, healthgrpc.HealthCheckResponse_NOT_SERVING)
		healthServer.SetServingStatus("", healthgrpc.HealthCheckResponse_NOT_SERVING)

		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()

		select {
		case <-stopped:
		case <-time.After(5 * time.Second):
			logger.Warn("graceful stop timed out, forcing stop")
			grpcServer.Stop()
		}
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		logger.Error("gRPC server terminated with error", "error", err)
		os.Exit(1)
	}

	if snapshot := recorder.Snapshot(); snapshot.TotalRequests > 0 {
		logger.Info("telemetry totals",
			"total_requests", snapshot.TotalRequests,
			"total_translations", snapshot.TotalTranslations,
			"total_detections", snapshot.TotalDetections,
			"total_failures", snapshot.TotalFailures,
			"total_input_runes", snapshot.TotalInputRunes,
			"total_output_runes", snapshot.TotalOutputRunes,
			"total_inference", snapshot.TotalInference,
		)
	}

	logger.Info("adapter stopped")
}
