package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config is the effective application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server" yaml:"server"`
	Data    DataConfig    `mapstructure:"data" yaml:"data"`
	Chart   ChartConfig   `mapstructure:"chart" yaml:"chart"`
	Log     LogConfig     `mapstructure:"log" yaml:"log"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
	Tracing TracingConfig `mapstructure:"tracing" yaml:"tracing"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	// RateLimit is requests per second per client IP; 0 disables limiting.
	RateLimit      float64  `mapstructure:"rate_limit" yaml:"rate_limit"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

type DataConfig struct {
	Path      string `mapstructure:"path" yaml:"path"`
	Sheet     string `mapstructure:"sheet" yaml:"sheet"`
	Delimiter string `mapstructure:"delimiter" yaml:"delimiter"`
}

type ChartConfig struct {
	BinSize     float64 `mapstructure:"bin_size" yaml:"bin_size"`
	KDEPoints   int     `mapstructure:"kde_points" yaml:"kde_points"`
	PreviewRows int     `mapstructure:"preview_rows" yaml:"preview_rows"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("data.path", "car_sales_dataset.csv")
	v.SetDefault("data.sheet", "")
	v.SetDefault("data.delimiter", ",")
	v.SetDefault("chart.bin_size", 2000.0)
	v.SetDefault("chart.kde_points", 200)
	v.SetDefault("chart.preview_rows", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("tracing.enabled", false)
}

// Load reads configuration from defaults, an optional YAML file and
// CARSALES_* environment variables, in increasing precedence.
// An explicit cfgFile must exist; the default location is optional.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CARSALES")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		v.SetConfigName("carsales")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "carsales"))
		}
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var c Config
	// Defaults always decode.
	_ = v.Unmarshal(&c)
	return &c
}

// Validate checks values that would otherwise fail late at startup.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.New("server.addr is required")
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative, got %g", c.Server.RateLimit)
	}
	if c.Data.Path == "" {
		return errors.New("data.path is required")
	}
	if len([]rune(c.Data.Delimiter)) > 1 {
		return fmt.Errorf("data.delimiter must be a single character, got %q", c.Data.Delimiter)
	}
	if c.Chart.BinSize <= 0 {
		return fmt.Errorf("chart.bin_size must be positive, got %g", c.Chart.BinSize)
	}
	if c.Chart.KDEPoints < 2 {
		return fmt.Errorf("chart.kde_points must be at least 2, got %d", c.Chart.KDEPoints)
	}
	if c.Chart.PreviewRows < 0 {
		return fmt.Errorf("chart.preview_rows must not be negative, got %d", c.Chart.PreviewRows)
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		return fmt.Errorf("log.format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// DelimiterRune returns the configured delimiter, defaulting to a comma.
func (c *Config) DelimiterRune() rune {
	if r := []rune(c.Data.Delimiter); len(r) == 1 {
		return r[0]
	}
	return ','
}

// Save writes c as YAML to path, creating parent directories.
func Save(c *Config, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
