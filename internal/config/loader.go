package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up in the search directories.
const FileName = "duel.yaml"

// Source names where a loaded configuration came from.
type Source string

// SourceEmbedded means no file was found and the built-in defaults were used.
const SourceEmbedded Source = "embedded"

// Load reads the configuration.
// Search order: customPath -> ~/.duel/duel.yaml -> ./configs/duel.yaml -> embedded default.
// Files are layered over the defaults, so they only need the keys they change.
// A custom path that cannot be read or parsed is an error; the other locations
// are skipped when missing or broken.
func Load(customPath string) (Config, Source, error) {
	cfg := Default()
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		cfg = Default()
	}

	if customPath != "" {
		if err := loadFile(customPath, &cfg); err != nil {
			return cfg, "", err
		}
		return cfg, Source(customPath), cfg.Validate()
	}

	for _, path := range searchPaths() {
		candidate := cfg
		if err := loadFile(path, &candidate); err == nil {
			return candidate, Source(path), candidate.Validate()
		}
	}

	return cfg, SourceEmbedded, cfg.Validate()
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: failed to parse %s: %w", path, err)
	}
	return nil
}

// searchPaths lists the implicit config locations in priority order.
func searchPaths() []string {
	var paths []string
	if p := userConfigPath(FileName); p != "" {
		paths = append(paths, p)
	}
	return append(paths, filepath.Join("configs", FileName))
}

// userConfigPath returns the path to the user config file, or empty if home is unavailable.
func userConfigPath(filename string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".duel", filename)
}

// HomeDir returns ~/.duel, the directory for the database and host key.
func HomeDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New("config: cannot determine home directory")
	}
	return filepath.Join(home, ".duel"), nil
}
