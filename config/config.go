// Package config loads the observer runtime settings from a YAML file.
//
//	log:
//	  level: debug
//	  development: false
//	metrics:
//	  enabled: true
//	notifications:
//	  local: true
//	  redis:
//	    address: localhost:6379
//	    prefix: "golem:"
//	    stream: golem:observer
//	    streamMaxLen: 10000
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/leandroluk/golem-observer/core"
	"github.com/leandroluk/golem-observer/notify/redis"
	"github.com/leandroluk/golem-observer/observer"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultLogLevel is used when the file sets no level.
const DefaultLogLevel = "info"

// Config is the root of the configuration file.
type Config struct {
	Log           LogConfig           `yaml:"log"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// MetricsConfig configures the prometheus collectors.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// NotificationsConfig selects where observer notifications are emitted.
type NotificationsConfig struct {
	// Local emits on core.DefaultEmitter. Defaults to true.
	Local *bool        `yaml:"local"`
	Redis *RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis publisher.
type RedisConfig struct {
	Address      string `yaml:"address"`
	Password     string `yaml:"password"`
	DB           int    `yaml:"db"`
	Prefix       string `yaml:"prefix"`
	Stream       string `yaml:"stream"`
	StreamMaxLen int64  `yaml:"streamMaxLen"`
}

// Parse decodes a YAML document and fills in defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Notifications.Local == nil {
		local := true
		cfg.Notifications.Local = &local
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Load reads and parses a configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	return Parse(data)
}

// Validate checks the values Parse cannot default.
func (cfg *Config) Validate() error {
	if _, err := zap.ParseAtomicLevel(cfg.Log.Level); err != nil {
		return errors.Wrapf(err, "config: log level %q", cfg.Log.Level)
	}
	if r := cfg.Notifications.Redis; r != nil && r.Address == "" {
		return errors.New("config: notifications.redis.address is required")
	}
	return nil
}

// Logger builds the configured zap logger.
func (cfg *Config) Logger() (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.Log.Level)
	if err != nil {
		return nil, errors.Wrapf(err, "config: log level %q", cfg.Log.Level)
	}
	zc := zap.NewProductionConfig()
	if cfg.Log.Development {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = level
	return zc.Build()
}

// Runtime holds what a Config builds.
type Runtime struct {
	Logger    *zap.Logger
	Metrics   *observer.Metrics
	Emitter   core.Emitter
	Publisher *redis.Publisher
}

// Build creates the logger, metrics and emitters. Metrics are registered
// on reg when enabled.
func (cfg *Config) Build(reg prometheus.Registerer) (*Runtime, error) {
	logger, err := cfg.Logger()
	if err != nil {
		return nil, err
	}
	rt := &Runtime{Logger: logger}
	if cfg.Metrics.Enabled {
		rt.Metrics = observer.NewMetrics(reg)
	}

	var emitters []core.Emitter
	if cfg.Notifications.Local == nil || *cfg.Notifications.Local {
		emitters = append(emitters, core.DefaultEmitter())
	}
	if r := cfg.Notifications.Redis; r != nil {
		opts := []redis.Option{}
		if r.Prefix != "" {
			opts = append(opts, redis.WithPrefix(r.Prefix))
		}
		if r.Stream != "" {
			opts = append(opts, redis.WithStream(r.Stream, r.StreamMaxLen))
		}
		rt.Publisher = redis.New(r.Address, r.Password, r.DB, opts...)
		emitters = append(emitters, rt.Publisher)
	}
	if len(emitters) > 0 {
		rt.Emitter = core.NewMultiEmitter(emitters...)
	}
	return rt, nil
}

// Options returns the observer options matching the runtime.
func (rt *Runtime) Options() []observer.Option {
	opts := []observer.Option{
		observer.WithLogger(rt.Logger),
		observer.WithEmitter(rt.Emitter),
	}
	if rt.Metrics != nil {
		opts = append(opts, observer.WithMetrics(rt.Metrics))
	}
	return opts
}

// Close releases the Redis connection and flushes the logger.
func (rt *Runtime) Close() error {
	var err error
	if rt.Publisher != nil {
		err = rt.Publisher.Close()
	}
	if rt.Logger != nil {
		_ = rt.Logger.Sync()
	}
	return err
}
