// Package config loads the bridge configuration from YAML, filling defaults
// for everything the file leaves out.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Game      GameConfig      `yaml:"game"`
	Reconnect ReconnectConfig `yaml:"reconnect"`
	Area      AreaConfig      `yaml:"area"`
	Store     StoreConfig     `yaml:"store"`
}

type ServerConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type GameConfig struct {
	URL              string `yaml:"url"`
	AgentName        string `yaml:"agent_name"`
	ReadyTimeoutSecs int    `yaml:"ready_timeout_s"`
}

type ReconnectConfig struct {
	MaxAttempts int `yaml:"max_attempts"`
	BackoffSecs int `yaml:"backoff_s"`
}

type AreaConfig struct {
	Reach              float64 `yaml:"reach"`
	StepDelayMS        int     `yaml:"step_delay_ms"`
	ProgressIntervalMS int     `yaml:"progress_interval_ms"`
}

type StoreConfig struct {
	DBPath     string `yaml:"db_path"`
	JournalDir string `yaml:"journal_dir"`
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Name:    "minebridge",
			Version: "0.1.0",
		},
		Game: GameConfig{
			URL:              "ws://127.0.0.1:8080/v1/ws",
			AgentName:        "bridge",
			ReadyTimeoutSecs: 10,
		},
		Reconnect: ReconnectConfig{
			MaxAttempts: 3,
			BackoffSecs: 5,
		},
		Area: AreaConfig{
			Reach:              4.5,
			StepDelayMS:        250,
			ProgressIntervalMS: 500,
		},
		Store: StoreConfig{
			DBPath:     "./data/minebridge.db",
			JournalDir: "./data/journal",
		},
	}
}

func (c *Config) Normalize() {
	d := defaults()
	if strings.TrimSpace(c.Server.Name) == "" {
		c.Server.Name = d.Server.Name
	}
	if strings.TrimSpace(c.Server.Version) == "" {
		c.Server.Version = d.Server.Version
	}
	if strings.TrimSpace(c.Game.AgentName) == "" {
		c.Game.AgentName = d.Game.AgentName
	}
	if c.Game.ReadyTimeoutSecs <= 0 {
		c.Game.ReadyTimeoutSecs = d.Game.ReadyTimeoutSecs
	}
	if c.Reconnect.MaxAttempts <= 0 {
		c.Reconnect.MaxAttempts = d.Reconnect.MaxAttempts
	}
	if c.Reconnect.BackoffSecs <= 0 {
		c.Reconnect.BackoffSecs = d.Reconnect.BackoffSecs
	}
	if c.Area.Reach <= 0 {
		c.Area.Reach = d.Area.Reach
	}
	if c.Area.StepDelayMS < 0 {
		c.Area.StepDelayMS = d.Area.StepDelayMS
	}
	if c.Area.ProgressIntervalMS <= 0 {
		c.Area.ProgressIntervalMS = d.Area.ProgressIntervalMS
	}
}

func (c *Config) Validate() error {
	u := strings.TrimSpace(c.Game.URL)
	if u == "" {
		return fmt.Errorf("game.url is required")
	}
	if !strings.HasPrefix(u, "ws://") && !strings.HasPrefix(u, "wss://") {
		return fmt.Errorf("game.url must be a ws:// or wss:// url, got %q", u)
	}
	return nil
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.Game.ReadyTimeoutSecs) * time.Second
}

func (c *Config) Backoff() time.Duration {
	return time.Duration(c.Reconnect.BackoffSecs) * time.Second
}

func (c *Config) StepDelay() time.Duration {
	return time.Duration(c.Area.StepDelayMS) * time.Millisecond
}

func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Area.ProgressIntervalMS) * time.Millisecond
}
