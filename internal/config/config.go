// v1
// internal/config/config.go

// Package config resolves runtime settings by layering defaults, an
// optional properties file, and environment variables, in that order.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// RiverConfig describes one fleet entry.
type RiverConfig struct {
	ID          string
	RobotID     string
	DefaultName string
}

// Config captures all runtime settings for the aquafleet service.
type Config struct {
	// ListenAddress is the TCP address for the HTTP server.
	ListenAddress string
	// LogFilePath is where the text log is mirrored; empty disables the file.
	LogFilePath string
	// DataDir holds the per-river durable documents and the name overlay.
	DataDir string
	// PropertiesPath records the properties file used, if any.
	PropertiesPath string

	// HTTPReadTimeout bounds reading incoming requests.
	HTTPReadTimeout time.Duration
	// HTTPWriteTimeout bounds writing responses.
	HTTPWriteTimeout time.Duration
	// ShutdownTimeout limits graceful shutdown, including session joins.
	ShutdownTimeout time.Duration

	// Tick is the acquisition cadence per running mission.
	Tick time.Duration
	// MaxHistory bounds the per-river record history.
	MaxHistory int
	// DefaultMissionDuration applies when a start request omits duration.
	DefaultMissionDuration time.Duration

	// TelemetrySink selects the broker publisher: none, mqtt or kafka.
	TelemetrySink string
	// MQTTBroker is the broker URL for the mqtt sink.
	MQTTBroker string
	// MQTTClientID identifies this process to the broker.
	MQTTClientID string
	// KafkaBrokers lists bootstrap brokers for the kafka sink.
	KafkaBrokers []string
	// TopicPrefix prefixes per-robot kafka topics.
	TopicPrefix string

	// ModelWeightsPath, when set, is loaded at startup if present and
	// written after the startup fit otherwise.
	ModelWeightsPath string

	// Rivers is the fixed fleet, in declaration order.
	Rivers []RiverConfig
}

const (
	defaultListenAddress   = ":8080"
	defaultLogFile         = "logs/aquafleet.log"
	defaultDataDir         = "data"
	defaultPropsPath       = "aquafleet.properties"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultShutdown        = 5 * time.Second
	defaultTick            = time.Second
	defaultMaxHistory      = 1000
	defaultMissionDuration = 5 * time.Minute
	defaultTelemetrySink   = "none"
	defaultMQTTBroker      = "tcp://localhost:1883"
	defaultMQTTClientID    = "aquafleet"
	defaultKafkaBrokers    = "kafka:9092"
	defaultTopicPrefix     = "water.quality"
	defaultRiverCount      = 5
)

// Load resolves the configuration. The properties file location can be
// overridden with AQUAFLEET_PROPERTIES_PATH; a missing file is fine.
func Load() (Config, error) {
	cfg := Config{
		ListenAddress:          defaultListenAddress,
		LogFilePath:            filepath.Clean(defaultLogFile),
		DataDir:                defaultDataDir,
		HTTPReadTimeout:        defaultReadTimeout,
		HTTPWriteTimeout:       defaultWriteTimeout,
		ShutdownTimeout:        defaultShutdown,
		Tick:                   defaultTick,
		MaxHistory:             defaultMaxHistory,
		DefaultMissionDuration: defaultMissionDuration,
		TelemetrySink:          defaultTelemetrySink,
		MQTTBroker:             defaultMQTTBroker,
		MQTTClientID:           defaultMQTTClientID,
		KafkaBrokers:           splitAndTrim(defaultKafkaBrokers),
		TopicPrefix:            defaultTopicPrefix,
	}

	propsPath := strings.TrimSpace(os.Getenv("AQUAFLEET_PROPERTIES_PATH"))
	if propsPath == "" {
		propsPath = defaultPropsPath
	}
	cfg.PropertiesPath = propsPath

	props, err := loadProperties(propsPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
		props = map[string]string{}
	}
	applyProperties(&cfg, props)
	applyEnv(&cfg)

	cfg.Rivers = buildRivers(props)
	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.TelemetrySink {
	case "none", "mqtt", "kafka":
	default:
		return fmt.Errorf("invalid telemetry sink %q (use none, mqtt or kafka)", cfg.TelemetrySink)
	}
	if cfg.Tick <= 0 {
		return errors.New("tick must be positive")
	}
	if cfg.MaxHistory <= 0 {
		return errors.New("max_history must be positive")
	}
	return nil
}

func loadProperties(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := map[string]string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") || strings.HasPrefix(raw, ";") {
			continue
		}
		parts := strings.SplitN(raw, "=", 2)
		if len(parts) != 2 {
			continue
		}
		m[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read properties: %w", err)
	}
	return m, nil
}

func applyProperties(cfg *Config, props map[string]string) {
	if v := props["listen_addr"]; v != "" {
		cfg.ListenAddress = v
	}
	if v := props["log_file"]; v != "" {
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v := props["data_dir"]; v != "" {
		cfg.DataDir = v
	}
	cfg.HTTPReadTimeout = getDuration(props, "http_read_timeout", cfg.HTTPReadTimeout)
	cfg.HTTPWriteTimeout = getDuration(props, "http_write_timeout", cfg.HTTPWriteTimeout)
	cfg.ShutdownTimeout = getDuration(props, "shutdown_timeout", cfg.ShutdownTimeout)
	cfg.Tick = getDuration(props, "tick", cfg.Tick)
	cfg.MaxHistory = getInt(props, "max_history", cfg.MaxHistory)
	cfg.DefaultMissionDuration = getDuration(props, "default_mission_duration", cfg.DefaultMissionDuration)
	if v := props["telemetry.sink"]; v != "" {
		cfg.TelemetrySink = strings.ToLower(v)
	}
	if v := props["mqtt.broker"]; v != "" {
		cfg.MQTTBroker = v
	}
	if v := props["mqtt.client_id"]; v != "" {
		cfg.MQTTClientID = v
	}
	if v := props["kafka.brokers"]; v != "" {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	if v := props["kafka.topic_prefix"]; v != "" {
		cfg.TopicPrefix = v
	}
	if v := props["model.weights_path"]; v != "" {
		cfg.ModelWeightsPath = v
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_LISTEN_ADDR")); v != "" {
		cfg.ListenAddress = v
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_LOG_FILE")); v != "" {
		cfg.LogFilePath = filepath.Clean(v)
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_TELEMETRY_SINK")); v != "" {
		cfg.TelemetrySink = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_MQTT_BROKER")); v != "" {
		cfg.MQTTBroker = v
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_KAFKA_BROKERS")); v != "" {
		cfg.KafkaBrokers = splitAndTrim(v)
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_TOPIC_PREFIX")); v != "" {
		cfg.TopicPrefix = v
	}
	if v := strings.TrimSpace(os.Getenv("AQUAFLEET_MODEL_WEIGHTS")); v != "" {
		cfg.ModelWeightsPath = v
	}
}

// buildRivers resolves the fleet list. The `rivers` property is a
// comma-separated list of identifiers; display names can be overridden
// per river via `river.<id>.name`. Robot identifiers follow position:
// robot-001, robot-002, ...
func buildRivers(props map[string]string) []RiverConfig {
	var ids []string
	if v := props["rivers"]; v != "" {
		ids = splitAndTrim(v)
	}
	if len(ids) == 0 {
		for i := 1; i <= defaultRiverCount; i++ {
			ids = append(ids, fmt.Sprintf("river%d", i))
		}
	}

	rivers := make([]RiverConfig, 0, len(ids))
	for i, id := range ids {
		name := props["river."+id+".name"]
		if name == "" {
			name = fmt.Sprintf("River %d", i+1)
		}
		rivers = append(rivers, RiverConfig{
			ID:          id,
			RobotID:     fmt.Sprintf("robot-%03d", i+1),
			DefaultName: name,
		})
	}
	return rivers
}

func getDuration(props map[string]string, key string, def time.Duration) time.Duration {
	if v, ok := props[key]; ok {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return def
}

func getInt(props map[string]string, key string, def int) int {
	if v, ok := props[key]; ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func splitAndTrim(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
