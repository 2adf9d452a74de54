// v1
// internal/config/config_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeProps(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "aquafleet.properties")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write properties: %v", err)
	}
	return path
}

func TestDefaultsWithoutPropertiesFile(t *testing.T) {
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", filepath.Join(t.TempDir(), "missing.properties"))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":8080" {
		t.Fatalf("listen addr = %q", cfg.ListenAddress)
	}
	if cfg.Tick != time.Second {
		t.Fatalf("tick = %v", cfg.Tick)
	}
	if cfg.MaxHistory != 1000 {
		t.Fatalf("max history = %d", cfg.MaxHistory)
	}
	if cfg.DefaultMissionDuration != 5*time.Minute {
		t.Fatalf("mission duration = %v", cfg.DefaultMissionDuration)
	}
	if cfg.TelemetrySink != "none" {
		t.Fatalf("telemetry sink = %q", cfg.TelemetrySink)
	}
	if len(cfg.Rivers) != 5 {
		t.Fatalf("rivers = %d, want 5", len(cfg.Rivers))
	}
	if cfg.Rivers[0].ID != "river1" || cfg.Rivers[0].RobotID != "robot-001" || cfg.Rivers[0].DefaultName != "River 1" {
		t.Fatalf("first river = %+v", cfg.Rivers[0])
	}
	if cfg.Rivers[4].RobotID != "robot-005" {
		t.Fatalf("fifth robot = %q", cfg.Rivers[4].RobotID)
	}
}

func TestPropertiesOverrideDefaults(t *testing.T) {
	path := writeProps(t, `
# test settings
listen_addr = :9090
data_dir = /tmp/aqua-test
tick = 250ms
max_history = 50
default_mission_duration = 30s
telemetry.sink = kafka
kafka.brokers = b1:9092, b2:9092
kafka.topic_prefix = rivers.telemetry
`)
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":9090" {
		t.Fatalf("listen addr = %q", cfg.ListenAddress)
	}
	if cfg.DataDir != "/tmp/aqua-test" {
		t.Fatalf("data dir = %q", cfg.DataDir)
	}
	if cfg.Tick != 250*time.Millisecond {
		t.Fatalf("tick = %v", cfg.Tick)
	}
	if cfg.MaxHistory != 50 {
		t.Fatalf("max history = %d", cfg.MaxHistory)
	}
	if cfg.DefaultMissionDuration != 30*time.Second {
		t.Fatalf("mission duration = %v", cfg.DefaultMissionDuration)
	}
	if cfg.TelemetrySink != "kafka" {
		t.Fatalf("sink = %q", cfg.TelemetrySink)
	}
	if len(cfg.KafkaBrokers) != 2 || cfg.KafkaBrokers[0] != "b1:9092" || cfg.KafkaBrokers[1] != "b2:9092" {
		t.Fatalf("brokers = %v", cfg.KafkaBrokers)
	}
	if cfg.TopicPrefix != "rivers.telemetry" {
		t.Fatalf("topic prefix = %q", cfg.TopicPrefix)
	}
}

func TestEnvOverridesProperties(t *testing.T) {
	path := writeProps(t, "listen_addr = :9090\ntelemetry.sink = mqtt\n")
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", path)
	t.Setenv("AQUAFLEET_LISTEN_ADDR", ":7070")
	t.Setenv("AQUAFLEET_TELEMETRY_SINK", "none")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":7070" {
		t.Fatalf("listen addr = %q, env should win", cfg.ListenAddress)
	}
	if cfg.TelemetrySink != "none" {
		t.Fatalf("sink = %q, env should win", cfg.TelemetrySink)
	}
}

func TestCustomRiverList(t *testing.T) {
	path := writeProps(t, `
rivers = thames, rhine, po
river.rhine.name = Middle Rhine
`)
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(cfg.Rivers) != 3 {
		t.Fatalf("rivers = %d, want 3", len(cfg.Rivers))
	}
	if cfg.Rivers[0].ID != "thames" || cfg.Rivers[0].RobotID != "robot-001" {
		t.Fatalf("first river = %+v", cfg.Rivers[0])
	}
	if cfg.Rivers[1].DefaultName != "Middle Rhine" {
		t.Fatalf("rhine name = %q", cfg.Rivers[1].DefaultName)
	}
	if cfg.Rivers[2].DefaultName != "River 3" {
		t.Fatalf("po name = %q", cfg.Rivers[2].DefaultName)
	}
}

func TestInvalidSinkRejected(t *testing.T) {
	path := writeProps(t, "telemetry.sink = rabbitmq\n")
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", path)

	if _, err := Load(); err == nil {
		t.Fatal("invalid sink accepted")
	}
}

func TestMalformedLinesIgnored(t *testing.T) {
	path := writeProps(t, `
; comment style two
garbage line without equals
listen_addr = :6060
`)
	t.Setenv("AQUAFLEET_PROPERTIES_PATH", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ListenAddress != ":6060" {
		t.Fatalf("listen addr = %q", cfg.ListenAddress)
	}
}
