package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Gridiron/internal/ranking"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	NATS     NATSConfig     `yaml:"nats"`
	Ranking  RankingConfig  `yaml:"ranking"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	MetricsPort        int    `yaml:"metrics_port"`
	AdminToken         string `yaml:"admin_token"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// DatabaseConfig selects the snapshot store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	URL    string `yaml:"url"`
}

type NATSConfig struct {
	URL string `yaml:"url"`
}

type RankingConfig struct {
	IDField           string           `yaml:"id_field"`
	NameField         string           `yaml:"name_field"`
	DefaultScheme     string           `yaml:"default_scheme"`
	LeaderboardLimit  int              `yaml:"leaderboard_limit"`
	MaxPopulationSize int              `yaml:"max_population_size"`
	Metrics           []ranking.Metric `yaml:"metrics"`
	Schemes           []ranking.Scheme `yaml:"schemes"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultMetrics is the NFL metric catalog used when none is configured.
func DefaultMetrics() []ranking.Metric {
	return []ranking.Metric{
		{Key: "passing_yards", Label: "Pass Yds", Precision: 0},
		{Key: "passing_tds", Label: "Pass TD", Precision: 0},
		{Key: "interceptions", Label: "INT", IsNegative: true, Precision: 0},
		{Key: "completion_pct", Label: "Comp %", Precision: 1},
		{Key: "passer_rating", Label: "Rating", Precision: 1},
		{Key: "rushing_yards", Label: "Rush Yds", Precision: 0},
		{Key: "rushing_tds", Label: "Rush TD", Precision: 0},
		{Key: "yards_per_carry", Label: "YPC", Precision: 1},
		{Key: "receiving_yards", Label: "Rec Yds", Precision: 0},
		{Key: "receptions", Label: "Rec", Precision: 0},
		{Key: "fumbles_lost", Label: "Fum Lost", IsNegative: true, Precision: 0},
		{Key: "sacks", Label: "Sacks", Precision: 1},
		{Key: "epa_per_play", Label: "EPA/Play", Precision: 3},
		{Key: "points_for", Label: "Points For", Precision: 0},
		{Key: "points_allowed", Label: "Points Allowed", IsNegative: true, Precision: 0},
		{Key: "yards_allowed", Label: "Yards Allowed", IsNegative: true, Precision: 0},
		{Key: "turnover_diff", Label: "TO Diff", Precision: 0},
	}
}

// Metric looks up a catalog entry by key.
func (c *Config) Metric(key string) (ranking.Metric, bool) {
	for _, m := range c.Ranking.Metrics {
		if m.Key == key {
			return m, true
		}
	}
	return ranking.Metric{}, false
}

// SlogLevel maps the configured level name to a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.Logging.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:               8700,
			MetricsPort:        8701,
			RateLimitPerMinute: 240,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			URL:    "./gridiron.db",
		},
		Ranking: RankingConfig{
			IDField:           "id",
			NameField:         "name",
			DefaultScheme:     ranking.SchemeTiers,
			LeaderboardLimit:  10,
			MaxPopulationSize: 5000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if len(cfg.Ranking.Metrics) == 0 {
		cfg.Ranking.Metrics = DefaultMetrics()
	}

	applyEnv(cfg)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}
	seen := make(map[string]bool)
	for _, m := range c.Ranking.Metrics {
		if m.Key == "" {
			return fmt.Errorf("metric with empty key")
		}
		if seen[m.Key] {
			return fmt.Errorf("duplicate metric %q", m.Key)
		}
		seen[m.Key] = true
	}
	return nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("GRIDIRON_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}
	if v := os.Getenv("GRIDIRON_METRICS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.MetricsPort = n
		}
	}
	if v := os.Getenv("GRIDIRON_ADMIN_TOKEN"); v != "" {
		cfg.Server.AdminToken = v
	}
	if v := os.Getenv("GRIDIRON_DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("GRIDIRON_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("GRIDIRON_NATS_URL"); v != "" {
		cfg.NATS.URL = v
	}
	if v := os.Getenv("GRIDIRON_GRADING_SCHEME"); v != "" {
		cfg.Ranking.DefaultScheme = v
	}
	if v := os.Getenv("GRIDIRON_LEADERBOARD_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Ranking.LeaderboardLimit = n
		}
	}
	if v := os.Getenv("GRIDIRON_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("GRIDIRON_LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
