// Package config loads the server configuration.
//
// Values are layered: built-in defaults, then the YAML file, then COURSEFLOW_*
// environment variables. The merged tree is decoded with mapstructure, so durations
// may be written as "30s" and numbers may come from the environment as strings.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/courseflow/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "COURSEFLOW_"

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// Config is the server configuration.
type Config struct {
	Addr        string  `mapstructure:"addr" yaml:"addr"`
	MetricsAddr string  `mapstructure:"metrics_addr" yaml:"metrics_addr"`
	LogLevel    string  `mapstructure:"log_level" yaml:"log_level"`
	LogFormat   string  `mapstructure:"log_format" yaml:"log_format"`
	ContentPath string  `mapstructure:"content_path" yaml:"content_path"`
	Store       Store   `mapstructure:"store" yaml:"store"`
	Display     Display `mapstructure:"display" yaml:"display"`
}

// Store selects and configures the session store.
type Store struct {
	Backend string        `mapstructure:"backend" yaml:"backend"`
	Dir     string        `mapstructure:"dir" yaml:"dir"`
	Redis   Redis         `mapstructure:"redis" yaml:"redis"`
	TTL     time.Duration `mapstructure:"ttl" yaml:"ttl"`
	LockTTL time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl"`
}

// Redis holds the connection settings of the redis backend.
type Redis struct {
	Addr     string `mapstructure:"addr" yaml:"addr"`
	Password string `mapstructure:"password" yaml:"password"`
	DB       int    `mapstructure:"db" yaml:"db"`
	Prefix   string `mapstructure:"prefix" yaml:"prefix"`
}

// Display configures the display channel.
type Display struct {
	Buffer int `mapstructure:"buffer" yaml:"buffer"`
}

// keys lists every configurable key. Each one can be overridden from the
// environment, e.g. store.redis.addr -> COURSEFLOW_STORE_REDIS_ADDR.
var keys = []string{
	"addr",
	"metrics_addr",
	"log_level",
	"log_format",
	"content_path",
	"store.backend",
	"store.dir",
	"store.redis.addr",
	"store.redis.password",
	"store.redis.db",
	"store.redis.prefix",
	"store.ttl",
	"store.lock_ttl",
	"display.buffer",
}

func defaults() map[string]any {
	return map[string]any{
		"addr":       ":8080",
		"log_level":  "info",
		"log_format": string(logging.FormatText),
		"store": map[string]any{
			"backend":  BackendMemory,
			"dir":      ".courseflow/sessions",
			"lock_ttl": "30s",
			"redis": map[string]any{
				"addr":   "localhost:6379",
				"prefix": "courseflow:session:",
			},
		},
		"display": map[string]any{
			"buffer": 16,
		},
	}
}

// Default returns the configuration with no file and no environment.
func Default() Config {
	cfg, err := decode(defaults())
	if err != nil {
		panic(fmt.Sprintf("default config is invalid: %v", err))
	}
	return cfg
}

// Load reads path (optional) and applies environment overrides from os.LookupEnv.
func Load(path string) (Config, error) {
	return LoadWithEnv(path, os.LookupEnv)
}

// LoadWithEnv is Load with an explicit environment lookup.
func LoadWithEnv(path string, lookup func(string) (string, bool)) (Config, error) {
	tree := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
		var file map[string]any
		if err := yaml.Unmarshal(data, &file); err != nil {
			return Config{}, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
		merge(tree, file)
	}

	for _, key := range keys {
		if v, ok := lookup(EnvName(key)); ok {
			set(tree, key, v)
		}
	}

	cfg, err := decode(tree)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// EnvName returns the environment variable overriding key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		errs = append(errs, fmt.Errorf("log_format: %w", err))
	}
	switch c.Store.Backend {
	case BackendMemory, BackendFile:
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			errs = append(errs, errors.New("store.redis.addr: required by the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if c.Store.TTL < 0 {
		errs = append(errs, errors.New("store.ttl: must not be negative"))
	}
	if c.Store.LockTTL <= 0 {
		errs = append(errs, errors.New("store.lock_ttl: must be positive"))
	}
	if c.Display.Buffer <= 0 {
		errs = append(errs, errors.New("display.buffer: must be positive"))
	}
	return errors.Join(errs...)
}

func decode(tree map[string]any) (Config, error) {
	var cfg Config
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &cfg,
	})
	if err != nil {
		return Config{}, err
	}
	if err := decoder.Decode(tree); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// merge copies src into dst, descending into nested maps.
func merge(dst, src map[string]any) {
	for k, v := range src {
		if sub, ok := v.(map[string]any); ok {
			if existing, ok := dst[k].(map[string]any); ok {
				merge(existing, sub)
				continue
			}
		}
		dst[k] = v
	}
}

// set assigns a dotted key, creating intermediate maps.
func set(tree map[string]any, key string, value any) {
	parts := strings.Split(key, ".")
	node := tree
	for _, p := range parts[:len(parts)-1] {
		next, ok := node[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[p] = next
		}
		node = next
	}
	node[parts[len(parts)-1]] = value
}
