package config

import (
	"os"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	_ = os.Unsetenv("DEPTHD_CONFIG")
	_ = os.Unsetenv("DEPTHD_INSTRUMENT")
	_ = os.Unsetenv("DEPTHD_LOG_LEVEL")

	c := Load()
	if c.Instrument != "BTC-USD" {
		t.Fatalf("expected default instrument BTC-USD, got %s", c.Instrument)
	}
	if c.Grid.MaxLevels != 1_000_000 || c.Grid.PriceScale != 100 {
		t.Fatalf("unexpected default grid: %d levels, scale %v", c.Grid.MaxLevels, c.Grid.PriceScale)
	}
	if c.Logging.Level != "info" {
		t.Fatalf("expected default log level info, got %s", c.Logging.Level)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DEPTHD_INSTRUMENT", "ETH-USD")
	t.Setenv("DEPTHD_LOG_LEVEL", "debug")
	t.Setenv("DEPTHD_FEED_BROKERS", "k1:9092,k2:9092")
	t.Setenv("DEPTHD_GRID_PRICE_SCALE", "1000")

	c := Load()
	if c.Instrument != "ETH-USD" {
		t.Fatalf("env override failed for instrument, got %s", c.Instrument)
	}
	if c.Logging.Level != "debug" {
		t.Fatalf("env override failed for log level, got %s", c.Logging.Level)
	}
	if len(c.Feed.Brokers) != 2 || c.Feed.Brokers[1] != "k2:9092" {
		t.Fatalf("env override failed for feed brokers, got %v", c.Feed.Brokers)
	}
	if c.Grid.PriceScale != 1000 {
		t.Fatalf("env override failed for price scale, got %v", c.Grid.PriceScale)
	}
}

func TestYAMLFile(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "depthd*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString("instrument: SOL-USD\nsnapshot:\n  interval_seconds: 5\n")
	_ = f.Close()
	t.Setenv("DEPTHD_CONFIG", f.Name())

	c := Load()
	if c.Instrument != "SOL-USD" {
		t.Fatalf("yaml file not applied, got instrument %s", c.Instrument)
	}
	if c.Snapshot.IntervalSeconds != 5 {
		t.Fatalf("yaml file not applied, got interval %d", c.Snapshot.IntervalSeconds)
	}
}
