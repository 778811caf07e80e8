// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Capture CaptureConfig `toml:"capture"`
	API     APIConfig     `toml:"api"`
	Stats   StatsConfig   `toml:"stats"`
}

// CaptureConfig maps capture-related settings.
type CaptureConfig struct {
	User         *string `toml:"user"`
	PhraseFile   *string `toml:"phrase-file"`
	MinPhraseLen *int    `toml:"min-phrase-len"`
}

// APIConfig maps backend settings.
type APIConfig struct {
	URL *string `toml:"url"`
}

// StatsConfig maps stats output settings.
type StatsConfig struct {
	CurveWindow *int `toml:"curve-window"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
