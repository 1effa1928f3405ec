// Package config provides YAML-based configuration loading for the duel server.
package config

import (
	"fmt"
	"time"

	"github.com/vovakirdan/duel/internal/match"
)

// Config is the full server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Match     MatchConfig     `yaml:"match"`
	Combat    CombatConfig    `yaml:"combat"`
	Storage   StorageConfig   `yaml:"storage"`
	Spectator SpectatorConfig `yaml:"spectator"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig configures the player listener.
type ServerConfig struct {
	Address       string        `yaml:"address"`
	MaxFrameBytes int           `yaml:"max_frame_bytes"`
	SendBuffer    int           `yaml:"send_buffer"`
	WriteTimeout  time.Duration `yaml:"write_timeout"`
}

// MatchConfig configures the match loop.
type MatchConfig struct {
	TickInterval time.Duration `yaml:"tick_interval"`
	PersistQueue int           `yaml:"persist_queue"`
}

// CombatConfig configures attack resolution.
type CombatConfig struct {
	Authority string `yaml:"authority"` // "client" or "server"
}

// StorageConfig configures the match history database.
type StorageConfig struct {
	Enabled bool   `yaml:"enabled"`
	Driver  string `yaml:"driver"` // "sqlite" or "postgres"
	Path    string `yaml:"path"`   // sqlite file
	DSN     string `yaml:"dsn"`    // postgres connection string
}

// SpectatorConfig configures the read-only SSH spectator feed.
type SpectatorConfig struct {
	Enabled     bool          `yaml:"enabled"`
	Address     string        `yaml:"address"`
	HostKeyPath string        `yaml:"host_key_path"` // auto-generated under ~/.duel when empty
	IdleTimeout time.Duration `yaml:"idle_timeout"`
}

// LogConfig configures the process logger.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, logfmt
}

// Validate checks values that would otherwise fail later at runtime.
func (c Config) Validate() error {
	if c.Server.Address == "" {
		return fmt.Errorf("config: server.address is empty")
	}
	if c.Match.TickInterval <= 0 {
		return fmt.Errorf("config: match.tick_interval must be positive, got %v", c.Match.TickInterval)
	}
	if _, err := match.ParseAuthority(c.Combat.Authority); err != nil {
		return fmt.Errorf("config: combat.authority: %w", err)
	}
	if c.Storage.Enabled {
		switch c.Storage.Driver {
		case "sqlite":
			if c.Storage.Path == "" {
				return fmt.Errorf("config: storage.path is empty")
			}
		case "postgres":
			if c.Storage.DSN == "" {
				return fmt.Errorf("config: storage.dsn is empty")
			}
		default:
			return fmt.Errorf("config: unknown storage.driver %q", c.Storage.Driver)
		}
	}
	if c.Spectator.Enabled && c.Spectator.Address == "" {
		return fmt.Errorf("config: spectator.address is empty")
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if _, err := parseFormatter(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// EngineConfig converts the match and combat sections for the engine.
func (c Config) EngineConfig() (match.EngineConfig, error) {
	authority, err := match.ParseAuthority(c.Combat.Authority)
	if err != nil {
		return match.EngineConfig{}, fmt.Errorf("config: %w", err)
	}
	return match.EngineConfig{
		TickInterval: c.Match.TickInterval,
		Authority:    authority,
		PersistQueue: c.Match.PersistQueue,
	}, nil
}
