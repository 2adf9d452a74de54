// v2
// cmd/aquafleet/main.go
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/handlers"

	"github.com/riverbotics/aquafleet/internal/api"
	"github.com/riverbotics/aquafleet/internal/config"
	"github.com/riverbotics/aquafleet/internal/fleet"
	"github.com/riverbotics/aquafleet/internal/logging"
	"github.com/riverbotics/aquafleet/internal/metrics"
	"github.com/riverbotics/aquafleet/internal/quality"
	"github.com/riverbotics/aquafleet/internal/report"
	"github.com/riverbotics/aquafleet/internal/robot"
	"github.com/riverbotics/aquafleet/internal/sensor"
	"github.com/riverbotics/aquafleet/internal/storage"
	"github.com/riverbotics/aquafleet/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger, _ := logging.New("")
		logger.Error("configuration invalid", "err", err)
		os.Exit(1)
	}

	logger, closeLog := logging.New(cfg.LogFilePath)
	defer closeLog()
	logger.Info("aquafleet starting",
		"listenAddr", cfg.ListenAddress,
		"dataDir", cfg.DataDir,
		"rivers", len(cfg.Rivers),
		"telemetrySink", cfg.TelemetrySink,
	)

	met := metrics.NewRegistry()

	store, err := storage.New(cfg.DataDir, cfg.MaxHistory, logger)
	if err != nil {
		logger.Error("storage init failed", "err", err)
		os.Exit(1)
	}

	model, err := loadModel(cfg, logger)
	if err != nil {
		logger.Error("quality model init failed", "err", err)
		os.Exit(1)
	}

	pub := buildPublisher(cfg, logger)
	defer func() {
		if err := pub.Close(); err != nil {
			logger.Warn("telemetry close failed", "err", err)
		}
	}()

	specs := make([]fleet.RiverSpec, 0, len(cfg.Rivers))
	for _, rc := range cfg.Rivers {
		specs = append(specs, fleet.RiverSpec{ID: rc.ID, RobotID: rc.RobotID, DefaultName: rc.DefaultName})
	}
	factory := func(spec fleet.RiverSpec, nameFn func() string) *robot.Session {
		gen := sensor.NewGenerator(sensor.DefaultCalibration(), time.Now().UnixNano())
		return robot.NewSession(robot.Config{
			RobotID:         spec.RobotID,
			RiverID:         spec.ID,
			Tick:            cfg.Tick,
			MaxHistory:      cfg.MaxHistory,
			DefaultDuration: cfg.DefaultMissionDuration,
		}, store, gen, model, pub, met, nameFn, logger)
	}
	namesPath := filepath.Join(cfg.DataDir, "river_names.json")
	registry, err := fleet.NewRegistry(specs, namesPath, factory, logger)
	if err != nil {
		logger.Error("fleet init failed", "err", err)
		os.Exit(1)
	}

	reports := report.NewFacade(registry)
	h := api.NewHandlers(logger, registry, reports, met)
	router := api.NewRouter(h)

	srv := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      handlers.LoggingHandler(os.Stdout, router),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("http server listening", "addr", cfg.ListenAddress)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logger.Info("shutdown signal received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown incomplete", "err", err)
	}
	registry.Shutdown(ctx)
	logger.Info("aquafleet stopped")
}

// loadModel restores persisted weights when configured and present,
// otherwise fits at startup and writes the weights back for the next run.
func loadModel(cfg config.Config, logger *slog.Logger) (*quality.Model, error) {
	if cfg.ModelWeightsPath != "" {
		if _, err := os.Stat(cfg.ModelWeightsPath); err == nil {
			logger.Info("loading quality model weights", "path", cfg.ModelWeightsPath)
			return quality.LoadWeights(cfg.ModelWeightsPath)
		}
	}
	model := quality.NewModel()
	if cfg.ModelWeightsPath != "" {
		if err := model.SaveWeights(cfg.ModelWeightsPath); err != nil {
			return nil, err
		}
		logger.Info("saved quality model weights", "path", cfg.ModelWeightsPath)
	}
	return model, nil
}

// buildPublisher selects the telemetry sink. A broker connection failure
// degrades to the no-op publisher rather than blocking startup.
func buildPublisher(cfg config.Config, logger *slog.Logger) telemetry.Publisher {
	switch cfg.TelemetrySink {
	case "mqtt":
		pub, err := telemetry.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, logger)
		if err != nil {
			logger.Warn("mqtt unavailable, telemetry disabled", "broker", cfg.MQTTBroker, "err", err)
			return telemetry.NopPublisher{}
		}
		logger.Info("mqtt telemetry enabled", "broker", cfg.MQTTBroker)
		return pub
	case "kafka":
		logger.Info("kafka telemetry enabled", "brokers", cfg.KafkaBrokers, "topicPrefix", cfg.TopicPrefix)
		return telemetry.NewKafkaPublisher(cfg.KafkaBrokers, cfg.TopicPrefix, logger)
	default:
		return telemetry.NopPublisher{}
	}
}
