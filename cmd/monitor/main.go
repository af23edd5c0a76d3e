package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"

	httpadapter "github.com/roadwatch/datex-zone-monitor/internal/adapter/http"
	kafkaadapter "github.com/roadwatch/datex-zone-monitor/internal/adapter/kafka"
	"github.com/roadwatch/datex-zone-monitor/internal/config"
	"github.com/roadwatch/datex-zone-monitor/internal/datex"
	"github.com/roadwatch/datex-zone-monitor/internal/domain"
	"github.com/roadwatch/datex-zone-monitor/internal/fetch"
	"github.com/roadwatch/datex-zone-monitor/internal/geo"
	"github.com/roadwatch/datex-zone-monitor/internal/monitor"
	"github.com/roadwatch/datex-zone-monitor/internal/observability"
)

func main() {
	configPath := flag.String("config", "config.yml", "path to the YAML configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Service.LogLevel, cfg.Service.LogFormat)
	metrics := observability.NewMetrics()

	client := fetch.NewClient(cfg.Service.FetchTimeout.Std(), logger)
	cached := fetch.NewCached(client, cfg.Service.CacheTTL.Std(), clockwork.NewRealClock())

	store := monitor.NewResultStore()
	publishers := monitor.MultiPublisher{store}

	var kafkaWriter *kafkaadapter.Writer
	if cfg.Kafka.Enabled() {
		kafkaWriter = kafkaadapter.NewWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic, logger)
		publishers = append(publishers, kafkaWriter)
		logger.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	} else {
		logger.Info("kafka sink disabled")
	}

	decoder := monitor.DecodeFunc(func(kind domain.Kind, data []byte) ([]domain.Record, int, error) {
		res, err := datex.Decode(kind, data)
		if err != nil {
			return nil, 0, err
		}
		return res.Records, res.Skipped, nil
	})

	// Person and sensor references need a location lookup from the host
	// environment; none is wired here, so only static zones resolve.
	coordinator := monitor.NewCoordinator(
		cfg.DomainZones(),
		cached,
		decoder,
		geo.NewResolver(nil),
		publishers,
		logger,
		metrics,
		cfg.Service.CycleTimeout.Std(),
	)

	srv := httpadapter.NewServer(cfg.Service.HTTPAddr, coordinator, store, coordinator, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scheduler := cron.New()
	for _, zone := range cfg.Zones {
		name := zone.Name
		spec := fmt.Sprintf("@every %s", zone.Interval.Std())
		if _, err := scheduler.AddFunc(spec, func() {
			if err := coordinator.RunCycle(ctx, name); err != nil && !errors.Is(err, monitor.ErrCycleInProgress) {
				logger.Error("scheduled cycle failed", "zone", name, "error", err)
			}
		}); err != nil {
			logger.Error("failed to schedule zone", "zone", name, "error", err)
			os.Exit(1)
		}
		logger.Info("zone scheduled", "zone", name, "interval", zone.Interval.Std())
	}

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Run every zone once at startup so readiness does not wait for the
	// first scheduled tick.
	go func() {
		for _, zone := range cfg.Zones {
			if err := coordinator.RunCycle(ctx, zone.Name); err != nil {
				logger.Error("initial cycle failed", "zone", zone.Name, "error", err)
			}
		}
	}()

	scheduler.Start()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Service.ShutdownTimeout.Std())
	defer cancel()

	cronCtx := scheduler.Stop()
	select {
	case <-cronCtx.Done():
	case <-shutdownCtx.Done():
		logger.Warn("scheduler jobs still running at shutdown deadline")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
