// Package config loads trialscope settings from defaults, a YAML file, a
// .env file and TRIALSCOPE_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/emiliopalmerini/trialscope/internal/adapters/httpapi"
	"github.com/emiliopalmerini/trialscope/internal/adapters/otel"
	"github.com/emiliopalmerini/trialscope/internal/adapters/turso"
	"github.com/emiliopalmerini/trialscope/internal/chart"
)

// EnvPrefix prefixes every environment variable, e.g. TRIALSCOPE_SERVER_ADDR.
const EnvPrefix = "TRIALSCOPE"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

const (
	SourceCSV = "csv"
	SourceDB  = "db"
)

type Config struct {
	Env      string         `yaml:"env"`
	Server   Server         `yaml:"server"`
	Data     Data           `yaml:"data"`
	Database turso.Config   `yaml:"database"`
	Log      Log            `yaml:"log"`
	Otel     otel.Config    `yaml:"otel"`
	Charts   Charts         `yaml:"charts"`
	API      httpapi.Config `yaml:"api"`
}

type Server struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout" split_words:"true"`
	WriteTimeout    time.Duration `yaml:"write_timeout" split_words:"true"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type Data struct {
	// Source is csv or db.
	Source string `yaml:"source"`
	Dir    string `yaml:"dir"`
	Watch  bool   `yaml:"watch"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	// File enables a rotating log file next to stderr output.
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb" split_words:"true"`
	MaxBackups int    `yaml:"max_backups" split_words:"true"`
	MaxAgeDays int    `yaml:"max_age_days" split_words:"true"`
}

type Charts struct {
	DailyWindow int `yaml:"daily_window" split_words:"true"`
	TrendWindow int `yaml:"trend_window" split_words:"true"`
	DonutTopN   int `yaml:"donut_top_n" split_words:"true"`
	Width       int `yaml:"width"`
	Height      int `yaml:"height"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Env: EnvProduction,
		Server: Server{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 5 * time.Second,
		},
		Data:     Data{Source: SourceCSV, Dir: "data", Watch: true},
		Database: turso.Config{Path: "data/trialscope.db"},
		Log:      Log{Level: "info", Format: "text", MaxSizeMB: 50, MaxBackups: 3, MaxAgeDays: 28},
		Otel:     otel.Config{Endpoint: "localhost:4317", Insecure: true},
		Charts:   Charts{DailyWindow: 30, TrendWindow: chart.DefaultTrendWindow, DonutTopN: 8, Width: chart.DefaultWidth, Height: chart.DefaultHeight},
		API:      httpapi.Config{URL: "http://localhost:8080", Timeout: 10 * time.Second},
	}
}

// Load builds the configuration. path may be empty; a missing .env file is ignored.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return cfg, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to read environment: %w", err)
	}

	return cfg, cfg.Validate()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("env must be %s or %s, got %q", EnvDevelopment, EnvProduction, c.Env)
	}
	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Dir == "" {
			return errors.New("data.dir is required for the csv source")
		}
	case SourceDB:
		if c.Database.Path == "" {
			return errors.New("database.path is required for the db source")
		}
	default:
		return fmt.Errorf("data.source must be %s or %s, got %q", SourceCSV, SourceDB, c.Data.Source)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	if c.Charts.DailyWindow < 1 || c.Charts.DailyWindow > 365 {
		return fmt.Errorf("charts.daily_window must be between 1 and 365, got %d", c.Charts.DailyWindow)
	}
	if c.Charts.TrendWindow < 1 {
		return fmt.Errorf("charts.trend_window must be positive, got %d", c.Charts.TrendWindow)
	}
	if c.Charts.DonutTopN < 0 {
		return fmt.Errorf("charts.donut_top_n must not be negative, got %d", c.Charts.DonutTopN)
	}
	return nil
}

// ChartMode maps the environment to the chart size contract mode.
func (c Config) ChartMode() chart.Mode {
	if c.Env == EnvDevelopment {
		return chart.ModeDevelopment
	}
	return chart.ModeProduction
}
