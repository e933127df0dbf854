package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v2"

	"github.com/jaminalder/codex-game-hub/internal/domain"
)

// RawYamlConfig mirrors the config file. Durations are strings such as "300ms".
type RawYamlConfig struct {
	Addr              string `yaml:"addr"`
	BotDelay          string `yaml:"bot_delay"`
	MemoryHideDelay   string `yaml:"memory_hide_delay"`
	HeartbeatInterval string `yaml:"heartbeat_interval"`
	DefaultDifficulty string `yaml:"default_difficulty"`
	SubscriberBuffer  int    `yaml:"subscriber_buffer"`
}

// Config is the resolved server configuration.
type Config struct {
	Addr string
	// BotDelay is the pause before the bot answers a human move.
	BotDelay time.Duration
	// MemoryHideDelay is how long a mismatched pair stays face up.
	MemoryHideDelay   time.Duration
	HeartbeatInterval time.Duration
	DefaultDifficulty domain.Difficulty
	SubscriberBuffer  int
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Addr:              ":8080",
		BotDelay:          300 * time.Millisecond,
		MemoryHideDelay:   850 * time.Millisecond,
		HeartbeatInterval: 15 * time.Second,
		DefaultDifficulty: domain.Hard,
		SubscriberBuffer:  1,
	}
}

// Load reads a YAML file over the defaults. An empty path returns Default.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults. Missing keys keep their default.
func Parse(data []byte) (Config, error) {
	var raw RawYamlConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	cfg := Default()
	if raw.Addr != "" {
		cfg.Addr = raw.Addr
	}
	durations := []struct {
		key string
		val string
		dst *time.Duration
	}{
		{"bot_delay", raw.BotDelay, &cfg.BotDelay},
		{"memory_hide_delay", raw.MemoryHideDelay, &cfg.MemoryHideDelay},
		{"heartbeat_interval", raw.HeartbeatInterval, &cfg.HeartbeatInterval},
	}
	for _, d := range durations {
		if d.val == "" {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: %s: %w", d.key, err)
		}
		*d.dst = v
	}
	if raw.DefaultDifficulty != "" {
		diff, err := domain.ParseDifficulty(raw.DefaultDifficulty)
		if err != nil {
			return Config{}, fmt.Errorf("parse config: default_difficulty: %w", err)
		}
		cfg.DefaultDifficulty = diff
	}
	if raw.SubscriberBuffer > 0 {
		cfg.SubscriberBuffer = raw.SubscriberBuffer
	}
	return cfg, nil
}

// ApplyEnv overrides fields from PORT, GAMEHUB_BOT_DELAY, GAMEHUB_DIFFICULTY
// and GAMEHUB_SUBSCRIBER_BUFFER. lookup is usually os.LookupEnv.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	if port, ok := lookup("PORT"); ok && port != "" {
		c.Addr = ":" + port
	}
	if v, ok := lookup("GAMEHUB_BOT_DELAY"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("GAMEHUB_BOT_DELAY: %w", err)
		}
		c.BotDelay = d
	}
	if v, ok := lookup("GAMEHUB_DIFFICULTY"); ok && v != "" {
		d, err := domain.ParseDifficulty(v)
		if err != nil {
			return fmt.Errorf("GAMEHUB_DIFFICULTY: %w", err)
		}
		c.DefaultDifficulty = d
	}
	if v, ok := lookup("GAMEHUB_SUBSCRIBER_BUFFER"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return fmt.Errorf("GAMEHUB_SUBSCRIBER_BUFFER: invalid value %q", v)
		}
		c.SubscriberBuffer = n
	}
	return nil
}
