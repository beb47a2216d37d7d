package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk layout. Pointer fields distinguish "not set" from
// zero so a partial file only overrides what it names. Durations are strings
// such as "15m".
type fileConfig struct {
	LogLevel *string `toml:"log_level" json:"log_level" yaml:"log_level"`
	Backend  struct {
		Provider *string          `toml:"provider" json:"provider" yaml:"provider"`
		Model    *string          `toml:"model" json:"model" yaml:"model"`
		Command  *string          `toml:"command" json:"command" yaml:"command"`
		Endpoint *string          `toml:"endpoint" json:"endpoint" yaml:"endpoint"`
		APIKey   *string          `toml:"api_key" json:"api_key" yaml:"api_key"`
		Timeout  *string          `toml:"timeout" json:"timeout" yaml:"timeout"`
		Extra    map[string]string `toml:"extra" json:"extra" yaml:"extra"`
	} `toml:"backend" json:"backend" yaml:"backend"`
	Engine struct {
		Prompt      *string  `toml:"prompt" json:"prompt" yaml:"prompt"`
		ChunkSize   *int     `toml:"chunk_size" json:"chunk_size" yaml:"chunk_size"`
		Window      *string  `toml:"window" json:"window" yaml:"window"`
		Workers     *int     `toml:"workers" json:"workers" yaml:"workers"`
		RateLimit   *float64 `toml:"rate_limit" json:"rate_limit" yaml:"rate_limit"`
		MaxSessions *int     `toml:"max_sessions" json:"max_sessions" yaml:"max_sessions"`
	} `toml:"engine" json:"engine" yaml:"engine"`
	Output struct {
		Kind       *string `toml:"kind" json:"kind" yaml:"kind"`
		Path       *string `toml:"path" json:"path" yaml:"path"`
		WebhookURL *string `toml:"webhook_url" json:"webhook_url" yaml:"webhook_url"`
		Verbosity  *string `toml:"verbosity" json:"verbosity" yaml:"verbosity"`
		Pretty     *bool   `toml:"pretty" json:"pretty" yaml:"pretty"`
		MaxSize    *int64  `toml:"max_size" json:"max_size" yaml:"max_size"`
	} `toml:"output" json:"output" yaml:"output"`
}

// LoadFile reads the config file at path over the defaults, then applies
// environment overrides. The format follows the extension (.toml, .json,
// .yaml, .yml); other names are auto-detected.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	var fc fileConfig
	switch filepath.Ext(path) {
	case ".toml":
		if _, err := toml.Decode(string(data), &fc); err != nil {
			return Config{}, fmt.Errorf("config: decode TOML: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("config: decode JSON: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &fc); err != nil {
			return Config{}, fmt.Errorf("config: decode YAML: %w", err)
		}
	default:
		if err := autoDetect(data, &fc); err != nil {
			return Config{}, fmt.Errorf("config: %s: %w", path, err)
		}
	}

	cfg := Default()
	if err := fc.apply(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: %s: %w", path, err)
	}
	applyEnv(&cfg)
	return cfg, nil
}

// autoDetect tries TOML, then JSON, then YAML.
func autoDetect(data []byte, fc *fileConfig) error {
	if _, err := toml.Decode(string(data), fc); err == nil {
		return nil
	}
	*fc = fileConfig{}
	if err := json.Unmarshal(data, fc); err == nil {
		return nil
	}
	*fc = fileConfig{}
	if err := yaml.Unmarshal(data, fc); err == nil {
		return nil
	}
	return fmt.Errorf("unable to parse config file (tried TOML, JSON, YAML)")
}

func (fc *fileConfig) apply(cfg *Config) error {
	set(&cfg.LogLevel, fc.LogLevel)

	b := &cfg.Backend
	set(&b.Provider, fc.Backend.Provider)
	set(&b.Model, fc.Backend.Model)
	set(&b.Command, fc.Backend.Command)
	set(&b.Endpoint, fc.Backend.Endpoint)
	set(&b.APIKey, fc.Backend.APIKey)
	if err := setDuration(&b.Timeout, fc.Backend.Timeout, "backend.timeout"); err != nil {
		return err
	}
	b.Extra = mergeExtra(b.Extra, fc.Backend.Extra)

	e := &cfg.Engine
	set(&e.PromptPath, fc.Engine.Prompt)
	set(&e.ChunkSize, fc.Engine.ChunkSize)
	if err := setDuration(&e.Window, fc.Engine.Window, "engine.window"); err != nil {
		return err
	}
	set(&e.Workers, fc.Engine.Workers)
	set(&e.RateLimit, fc.Engine.RateLimit)
	set(&e.MaxSessions, fc.Engine.MaxSessions)

	o := &cfg.Output
	set(&o.Kind, fc.Output.Kind)
	set(&o.Path, fc.Output.Path)
	set(&o.WebhookURL, fc.Output.WebhookURL)
	set(&o.Verbosity, fc.Output.Verbosity)
	set(&o.Pretty, fc.Output.Pretty)
	set(&o.MaxSize, fc.Output.MaxSize)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}


func setDuration(dst *time.Duration, v *string, field string) error {
	if v == nil {
		return nil
	}
	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	*dst = d
	return nil
}
