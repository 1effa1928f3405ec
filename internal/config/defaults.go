package config

import (
	_ "embed"
	"time"
)

//go:embed defaults/duel.yaml
var defaultYAML []byte

// Default returns the built-in configuration, matching defaults/duel.yaml.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Address:       "0.0.0.0:5555",
			MaxFrameBytes: 64 << 10,
			SendBuffer:    64,
			WriteTimeout:  5 * time.Second,
		},
		Match: MatchConfig{
			TickInterval: 50 * time.Millisecond,
			PersistQueue: 16,
		},
		Combat: CombatConfig{
			Authority: "client",
		},
		Storage: StorageConfig{
			Enabled: true,
			Driver:  "sqlite",
			Path:    "~/.duel/duel.db",
		},
		Spectator: SpectatorConfig{
			Enabled:     false,
			Address:     ":23235",
			IdleTimeout: 30 * time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
