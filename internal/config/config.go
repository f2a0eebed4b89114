package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Graph   GraphConfig   `mapstructure:"graph"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Log     LogConfig     `mapstructure:"log"`
}

type ServerConfig struct {
	Listen     string  `mapstructure:"listen"`
	CORSOrigin string  `mapstructure:"cors_origin"`
	RateLimit  float64 `mapstructure:"rate_limit"` // requests per second per client
	Burst      int     `mapstructure:"burst"`
}

// GraphConfig bounds the distance threshold callers may request. The
// defaults follow the 50–300 km range of the city map.
type GraphConfig struct {
	DefaultThresholdKm float64 `mapstructure:"default_threshold_km"`
	MinThresholdKm     float64 `mapstructure:"min_threshold_km"`
	MaxThresholdKm     float64 `mapstructure:"max_threshold_km"`
	CacheSize          int     `mapstructure:"cache_size"`
}

// DatasetConfig points at a GeoJSON, JSON or CSV point file. An empty path
// selects the bundled UK cities.
type DatasetConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads the configuration from file and PLANNER_* environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".planner"))
		}
		v.AddConfigPath(".")
		v.SetConfigName("planner")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("PLANNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.cors_origin", "*")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.burst", 20)
	v.SetDefault("graph.default_threshold_km", 120.0)
	v.SetDefault("graph.min_threshold_km", 50.0)
	v.SetDefault("graph.max_threshold_km", 300.0)
	v.SetDefault("graph.cache_size", 16)
	v.SetDefault("dataset.path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that the threshold range is usable.
func (c *Config) Validate() error {
	g := c.Graph
	if g.MinThresholdKm <= 0 {
		return fmt.Errorf("graph.min_threshold_km must be positive, got %v", g.MinThresholdKm)
	}
	if g.MaxThresholdKm < g.MinThresholdKm {
		return fmt.Errorf("graph.max_threshold_km (%v) is below graph.min_threshold_km (%v)",
			g.MaxThresholdKm, g.MinThresholdKm)
	}
	if g.DefaultThresholdKm < g.MinThresholdKm || g.DefaultThresholdKm > g.MaxThresholdKm {
		return fmt.Errorf("graph.default_threshold_km (%v) is outside [%v, %v]",
			g.DefaultThresholdKm, g.MinThresholdKm, g.MaxThresholdKm)
	}
	if c.Server.RateLimit <= 0 || c.Server.Burst <= 0 {
		return fmt.Errorf("server.rate_limit and server.burst must be positive")
	}
	return nil
}
