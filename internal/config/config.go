// Package config loads harness settings from a YAML file overlaid with
// HARNESS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/decision-harness/internal/env"
	"github.com/danielpatrickdp/decision-harness/internal/exploration"
	"github.com/danielpatrickdp/decision-harness/internal/logging"
	"github.com/danielpatrickdp/decision-harness/internal/state"
)

// #region types

// Config is the full harness configuration.
type Config struct {
	Exploration ExplorationConfig `json:"exploration" yaml:"exploration"`
	Training    TrainingConfig    `json:"training" yaml:"training"`
	Execution   ExecutionConfig   `json:"execution" yaml:"execution"`
	Environment EnvironmentConfig `json:"environment" yaml:"environment"`
	Log         LogConfig         `json:"log" yaml:"log"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Store       StoreConfig       `json:"store" yaml:"store"`
}

type ExplorationConfig struct {
	MinVisitsRequired int `json:"min_visits_required" yaml:"min_visits_required" validate:"gte=0"`
}

type TrainingConfig struct {
	Episodes           int `json:"episodes" yaml:"episodes" validate:"gte=0"`
	MaxStepsPerEpisode int `json:"max_steps_per_episode" yaml:"max_steps_per_episode" validate:"gte=0"`
}

type ExecutionConfig struct {
	MaxSteps int `json:"max_steps" yaml:"max_steps" validate:"gte=0"`
}

type EnvironmentConfig struct {
	Horizon        int     `json:"horizon" yaml:"horizon"`
	Signal         float64 `json:"signal" yaml:"signal"`
	RewardedAction string  `json:"rewarded_action" yaml:"rewarded_action" validate:"oneof=WAIT EXPLORE COMMIT"`
	RewardMode     string  `json:"reward_mode" yaml:"reward_mode" validate:"oneof=normal flip oscillate zero contradictory"`
	Stationary     bool    `json:"stationary" yaml:"stationary"`

	PartialObservability bool `json:"partial_observability" yaml:"partial_observability"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" validate:"oneof=debug info warn error"`
	Format string `json:"format" yaml:"format" validate:"oneof=text json"`
}

type ServerConfig struct {
	GRPCAddr    string `json:"grpc_addr" yaml:"grpc_addr" validate:"required"`
	MetricsAddr string `json:"metrics_addr" yaml:"metrics_addr"`
}

type StoreConfig struct {
	DBPath string `json:"db_path" yaml:"db_path"`
}

// #endregion types

// #region defaults

// Default returns the settings of the reference quick run: 5 episodes of at
// most 10 steps, exploiting after 2 visits.
func Default() Config {
	ec := env.DefaultConfig()
	return Config{
		Exploration: ExplorationConfig{MinVisitsRequired: exploration.DefaultMinVisits},
		Training:    TrainingConfig{Episodes: 5, MaxStepsPerEpisode: 10},
		Execution:   ExecutionConfig{MaxSteps: 10},
		Environment: EnvironmentConfig{
			Horizon:        ec.Horizon,
			Signal:         ec.Signal,
			RewardedAction: string(ec.RewardedAction),
			RewardMode:     string(ec.RewardMode),
			Stationary:     ec.Stationary,
		},
		Log:    LogConfig{Level: "info", Format: "text"},
		Server: ServerConfig{GRPCAddr: "localhost:50061", MetricsAddr: "localhost:9464"},
		Store:  StoreConfig{DBPath: ""},
	}
}

// #endregion defaults

// #region load

// Load starts from Default, applies path (if non-empty and present), then
// HARNESS_* variables, then validates.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return cfg, fmt.Errorf("load config env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var err error
	if cfg.Exploration.MinVisitsRequired, err = envInt("HARNESS_MIN_VISITS_REQUIRED", cfg.Exploration.MinVisitsRequired); err != nil {
		return err
	}
	if cfg.Training.Episodes, err = envInt("HARNESS_EPISODES", cfg.Training.Episodes); err != nil {
		return err
	}
	if cfg.Training.MaxStepsPerEpisode, err = envInt("HARNESS_MAX_STEPS_PER_EPISODE", cfg.Training.MaxStepsPerEpisode); err != nil {
		return err
	}
	if cfg.Execution.MaxSteps, err = envInt("HARNESS_EXECUTION_MAX_STEPS", cfg.Execution.MaxSteps); err != nil {
		return err
	}
	if cfg.Environment.Horizon, err = envInt("HARNESS_ENV_HORIZON", cfg.Environment.Horizon); err != nil {
		return err
	}
	if cfg.Environment.Signal, err = envFloat("HARNESS_ENV_SIGNAL", cfg.Environment.Signal); err != nil {
		return err
	}
	if cfg.Environment.Stationary, err = envBool("HARNESS_ENV_STATIONARY", cfg.Environment.Stationary); err != nil {
		return err
	}
	if cfg.Environment.PartialObservability, err = envBool("HARNESS_ENV_PARTIAL_OBSERVABILITY", cfg.Environment.PartialObservability); err != nil {
		return err
	}
	cfg.Environment.RewardedAction = strings.ToUpper(envOr("HARNESS_ENV_REWARDED_ACTION", cfg.Environment.RewardedAction))
	cfg.Environment.RewardMode = strings.ToLower(envOr("HARNESS_ENV_REWARD_MODE", cfg.Environment.RewardMode))
	cfg.Log.Level = strings.ToLower(envOr("HARNESS_LOG_LEVEL", cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(envOr("HARNESS_LOG_FORMAT", cfg.Log.Format))
	cfg.Server.GRPCAddr = envOr("HARNESS_GRPC_ADDR", cfg.Server.GRPCAddr)
	cfg.Server.MetricsAddr = envOr("HARNESS_METRICS_ADDR", cfg.Server.MetricsAddr)
	cfg.Store.DBPath = envOr("HARNESS_DB", cfg.Store.DBPath)
	return nil
}

// #endregion load

// #region validate

var configValidate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field ranges and enumerations.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s failed %s (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
		}
		return err
	}
	return nil
}

// #endregion validate

// #region accessors

// EnvConfig converts the environment section for env.NewSignal.
func (c Config) EnvConfig() env.Config {
	return env.Config{
		Horizon:        c.Environment.Horizon,
		Signal:         c.Environment.Signal,
		RewardedAction: state.Action(c.Environment.RewardedAction),
		RewardMode:     env.RewardMode(c.Environment.RewardMode),
		Stationary:     c.Environment.Stationary,

		PartialObservability: c.Environment.PartialObservability,
	}
}

// LogOptions converts the log section for logging.NewLogger.
func (c Config) LogOptions() logging.Options {
	return logging.Options{Level: c.Log.Level, Format: c.Log.Format}
}

// #endregion accessors

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := envOr(key, "")
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return i, nil
}

func envFloat(key string, fallback float64) (float64, error) {
	v := envOr(key, "")
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := envOr(key, "")
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

// #endregion helpers
