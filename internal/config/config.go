package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Instrument string `yaml:"instrument"`
	Grid       struct {
		MaxLevels  int     `yaml:"max_levels"`
		PriceScale float64 `yaml:"price_scale"`
	} `yaml:"grid"`
	Feed struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
		Group   string   `yaml:"group"`
	} `yaml:"feed"`
	Broadcast struct {
		Enabled bool     `yaml:"enabled"`
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic"`
	} `yaml:"broadcast"`
	Snapshot struct {
		Dir             string `yaml:"dir"`
		IntervalSeconds int    `yaml:"interval_seconds"`
	} `yaml:"snapshot"`
	Logging struct {
		Level  string `yaml:"level"`
		Pretty bool   `yaml:"pretty"`
	} `yaml:"logging"`
	Server struct {
		Addr                string   `yaml:"addr"`
		Pprof               bool     `yaml:"pprof"`
		ReadTimeoutSeconds  int      `yaml:"read_timeout_seconds"`
		WriteTimeoutSeconds int      `yaml:"write_timeout_seconds"`
		IdleTimeoutSeconds  int      `yaml:"idle_timeout_seconds"`
		AdminAllowCIDRs     []string `yaml:"admin_allow_cidrs"`
	} `yaml:"server"`
}

func defaultConfig() Config {
	var c Config
	c.Instrument = "BTC-USD"
	// One million cent-wide levels covers prices up to 10,000.00. Books of
	// the same tick-size family share one grid configuration.
	c.Grid.MaxLevels = 1_000_000
	c.Grid.PriceScale = 100
	c.Feed.Brokers = []string{"localhost:9092"}
	c.Feed.Topic = "l3-events"
	c.Feed.Group = "depthd"
	c.Broadcast.Enabled = false
	c.Broadcast.Brokers = []string{"localhost:9092"}
	c.Broadcast.Topic = "touch-updates"
	c.Snapshot.Dir = "./snapshots"
	c.Snapshot.IntervalSeconds = 30
	c.Logging.Level = "info"
	c.Logging.Pretty = false
	c.Server.Addr = ":9090"
	c.Server.Pprof = false
	c.Server.ReadTimeoutSeconds = 5
	c.Server.WriteTimeoutSeconds = 10
	c.Server.IdleTimeoutSeconds = 60
	c.Server.AdminAllowCIDRs = []string{"127.0.0.0/8", "::1/128"}
	return c
}

// Load resolves configuration as defaults, then an optional YAML file
// named by DEPTHD_CONFIG, then DEPTHD_* env overrides.
func Load() Config {
	c := defaultConfig()
	if path := os.Getenv("DEPTHD_CONFIG"); path != "" {
		if b, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(b, &c)
		}
	}
	if v := os.Getenv("DEPTHD_INSTRUMENT"); v != "" {
		c.Instrument = v
	}
	if v := os.Getenv("DEPTHD_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("DEPTHD_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("DEPTHD_PPROF"); v == "1" || v == "true" {
		c.Server.Pprof = true
	}
	if v := os.Getenv("DEPTHD_ADMIN_ALLOW_CIDRS"); v != "" {
		c.Server.AdminAllowCIDRs = splitCSV(v)
	}
	if v := os.Getenv("DEPTHD_FEED_BROKERS"); v != "" {
		c.Feed.Brokers = splitCSV(v)
	}
	if v := os.Getenv("DEPTHD_FEED_TOPIC"); v != "" {
		c.Feed.Topic = v
	}
	if v := os.Getenv("DEPTHD_FEED_GROUP"); v != "" {
		c.Feed.Group = v
	}
	if v := os.Getenv("DEPTHD_BROADCAST_ENABLED"); v == "1" || v == "true" {
		c.Broadcast.Enabled = true
	}
	if v := os.Getenv("DEPTHD_BROADCAST_BROKERS"); v != "" {
		c.Broadcast.Brokers = splitCSV(v)
	}
	if v := os.Getenv("DEPTHD_BROADCAST_TOPIC"); v != "" {
		c.Broadcast.Topic = v
	}
	if v := os.Getenv("DEPTHD_SNAPSHOT_DIR"); v != "" {
		c.Snapshot.Dir = v
	}
	if v := os.Getenv("DEPTHD_SNAPSHOT_INTERVAL"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Snapshot.IntervalSeconds = n
		}
	}
	if v := os.Getenv("DEPTHD_GRID_MAX_LEVELS"); v != "" {
		var n int
		_, _ = fmt.Sscan(v, &n)
		if n > 0 {
			c.Grid.MaxLevels = n
		}
	}
	if v := os.Getenv("DEPTHD_GRID_PRICE_SCALE"); v != "" {
		var f float64
		_, _ = fmt.Sscan(v, &f)
		if f > 0 {
			c.Grid.PriceScale = f
		}
	}
	return c
}

func splitCSV(s string) []string {
	var out []string
	buf := []rune{}
	for _, r := range s {
		if r == ',' {
			if len(buf) > 0 {
				out = append(out, string(buf))
				buf = buf[:0]
			}
			continue
		}
		buf = append(buf, r)
	}
	if len(buf) > 0 {
		out = append(out, string(buf))
	}
	return out
}
