package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/congo-pay/custody/internal/config"
	"github.com/congo-pay/custody/internal/funding"
	"github.com/congo-pay/custody/internal/infra"
	"github.com/congo-pay/custody/internal/logging"
	"github.com/congo-pay/custody/internal/metrics"
	"github.com/congo-pay/custody/internal/notification"
	"github.com/congo-pay/custody/internal/routes"
	"github.com/congo-pay/custody/internal/server"
)

func main() {
	// A missing .env is fine; the process environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.AppName, cfg.AppEnv)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited", "error", err)
		os.Exit(1)
	}
	logger.Info("server exited cleanly")
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	stores, err := infra.OpenStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open stores: %w", err)
	}
	defer stores.Close()

	notifier, closeNotifier, err := newNotifier(cfg, logger)
	if err != nil {
		return fmt.Errorf("build notifier: %w", err)
	}
	defer closeNotifier()

	registry := prometheus.NewRegistry()
	srv, err := server.New(routes.Deps{
		Cfg:      cfg,
		Logger:   logger,
		Stores:   stores,
		Notifier: notifier,
		Verifier: newVerifier(cfg, logger),
		Metrics:  metrics.New(registry),
		Registry: registry,
	})
	if err != nil {
		return fmt.Errorf("build server: %w", err)
	}

	srvErrCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Address())
		srvErrCh <- srv.Listen()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	case err := <-srvErrCh:
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownPeriod)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newNotifier(cfg config.Config, logger *slog.Logger) (notification.Notifier, func(), error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Warn("no kafka brokers configured, notifications are only logged")
		return notification.NewLoggerNotifier(logger), func() {}, nil
	}
	producer, err := notification.NewSyncProducer(cfg.KafkaBrokers)
	if err != nil {
		return nil, nil, err
	}
	kafka := notification.NewKafkaNotifier(producer, cfg.NotifyTopic, logger)
	return kafka, func() {
		if err := kafka.Close(); err != nil {
			logger.Warn("close kafka producer", "error", err)
		}
	}, nil
}

func newVerifier(cfg config.Config, logger *slog.Logger) funding.Verifier {
	if cfg.VerifierURL == "" {
		logger.Warn("no payment verifier configured, every payment is accepted")
		return funding.StaticVerifier{}
	}
	return funding.NewHTTPVerifier(cfg.VerifierURL, cfg.VerifierSecret, cfg.VerifyTimeout)
}
