// Package config loads the a11ybridge daemon configuration from YAML or JSON.
//
// Files are decoded into a generic map first and then into Config with
// mapstructure, so durations may be written as "5s" and numbers as strings.
// Missing keys keep their defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/aretw0/a11ybridge/internal/classifier"
	"github.com/aretw0/a11ybridge/pkg/codec"
)

// Transport kinds.
const (
	TransportMemory    = "memory"
	TransportRedis     = "redis"
	TransportWebSocket = "websocket"
)

// DefaultMemoryHistory is how many messages the memory transport retains.
const DefaultMemoryHistory = 1024

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete daemon configuration.
type Config struct {
	Tree      string          `mapstructure:"tree" yaml:"tree" json:"tree" validate:"required"`
	Log       LogConfig       `mapstructure:"log" yaml:"log" json:"log"`
	Limits    LimitsConfig    `mapstructure:"limits" yaml:"limits" json:"limits"`
	HTTP      HTTPConfig      `mapstructure:"http" yaml:"http" json:"http"`
	Transport TransportConfig `mapstructure:"transport" yaml:"transport" json:"transport"`
	Memory    MemoryConfig    `mapstructure:"memory" yaml:"memory" json:"memory"`
	Redis     RedisConfig     `mapstructure:"redis" yaml:"redis" json:"redis"`
	WebSocket WebSocketConfig `mapstructure:"websocket" yaml:"websocket" json:"websocket"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level" json:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"oneof=text json"`
}

type LimitsConfig struct {
	MaxMessageSize int `mapstructure:"max_message_size" yaml:"max_message_size" json:"max_message_size" validate:"gt=0"`
	MaxLabelSize   int `mapstructure:"max_label_size" yaml:"max_label_size" json:"max_label_size" validate:"gt=0"`
	MaxValueSize   int `mapstructure:"max_value_size" yaml:"max_value_size" json:"max_value_size" validate:"gt=0"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr" yaml:"addr" json:"addr" validate:"required"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"gte=0"`
}

type TransportConfig struct {
	Kind  string `mapstructure:"kind" yaml:"kind" json:"kind" validate:"oneof=memory redis websocket"`
	Codec string `mapstructure:"codec" yaml:"codec" json:"codec" validate:"oneof=msgpack protobuf"`
}

// MemoryConfig bounds the in-process transport's message log. Zero keeps
// every message, which only suits short replays.
type MemoryConfig struct {
	History int `mapstructure:"history" yaml:"history" json:"history" validate:"gte=0"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr" yaml:"addr" json:"addr"`
	Password string        `mapstructure:"password" yaml:"password" json:"password"`
	DB       int           `mapstructure:"db" yaml:"db" json:"db" validate:"gte=0"`
	Prefix   string        `mapstructure:"prefix" yaml:"prefix" json:"prefix"`
	MaxLen   int64         `mapstructure:"max_len" yaml:"max_len" json:"max_len" validate:"gte=0"`
	LockTTL  time.Duration `mapstructure:"lock_ttl" yaml:"lock_ttl" json:"lock_ttl" validate:"gt=0"`
}

type WebSocketConfig struct {
	URL          string        `mapstructure:"url" yaml:"url" json:"url" validate:"omitempty,url"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" json:"write_timeout" validate:"gte=0"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Tree: "default",
		Log:  LogConfig{Level: "info", Format: "text"},
		Limits: LimitsConfig{
			MaxMessageSize: classifier.DefaultMaxMessageSize,
			MaxLabelSize:   classifier.DefaultMaxLabelSize,
			MaxValueSize:   classifier.DefaultMaxValueSize,
		},
		HTTP:      HTTPConfig{Addr: ":8080", ShutdownTimeout: 5 * time.Second},
		Transport: TransportConfig{Kind: TransportMemory, Codec: codec.MsgpackName},
		Memory:    MemoryConfig{History: DefaultMemoryHistory},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			Prefix:  "a11ybridge:",
			MaxLen:  10000,
			LockTTL: 10 * time.Second,
		},
		WebSocket: WebSocketConfig{WriteTimeout: 5 * time.Second},
	}
}

// Load reads path (YAML, or JSON when the extension is .json) on top of the
// defaults and validates the result. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, cfg.Validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, cfg.Validate()
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	raw := map[string]any{}
	if strings.ToLower(filepath.Ext(path)) == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}
	}

	if err := Decode(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// Decode merges raw into cfg.
func Decode(raw map[string]any, cfg *Config) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	return nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and the transport-specific requirements.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	switch c.Transport.Kind {
	case TransportRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for the redis transport", ErrInvalid)
		}
	case TransportWebSocket:
		if c.WebSocket.URL == "" {
			return fmt.Errorf("%w: websocket.url is required for the websocket transport", ErrInvalid)
		}
	}
	return nil
}
