package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/goccy/go-yaml"
	"github.com/k1LoW/expand"
)

const appName = "qrbatch"

var (
	homePath       string
	configHomePath string
	stateHomePath  string
)

type Config struct {
	// Width and height of generated QR codes in pixels
	Size *int `yaml:"size,omitempty" json:"size,omitempty"`
	// Error correction level (L, M, Q, H)
	Recovery string `yaml:"recovery,omitempty" json:"recovery,omitempty"`
	// Number of identifiers processed at the same time (0 means unlimited)
	Concurrency *int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	// Field delimiter of the input file
	Delimiter string `yaml:"delimiter,omitempty" json:"delimiter,omitempty"`
	// Prefix added to each identifier in the payload
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	// Whether to draw the identifier under each QR code
	Label *bool `yaml:"label,omitempty" json:"label,omitempty"`
	// CEL expression selecting identifiers to generate
	Filter string `yaml:"filter,omitempty" json:"filter,omitempty"`
	// Label font
	Font *Font `yaml:"font,omitempty" json:"font,omitempty"`
}

type Font struct {
	File string  `yaml:"file,omitempty" json:"file,omitempty"` // path to a TTF/OTF file, or "basic"
	Size float64 `yaml:"size,omitempty" json:"size,omitempty"` // point size
}

func init() {
	var err error
	homePath, err = os.UserHomeDir()
	if err != nil {
		panic(fmt.Sprintf("failed to get home directory: %v", err))
	}
}

// Load loads the configuration from the config file.
// It searches for config files in the following order:
// 1. $XDG_CONFIG_HOME/qrbatch/config-{profile}.yml
// 2. $XDG_CONFIG_HOME/qrbatch/config.yml
// Environment variables in the file are expanded before parsing.
// If no config file is found, it returns an empty Config struct.
func Load(profile string) (*Config, error) {
	var configBasePaths []string
	if profile != "" {
		configBasePaths = append(configBasePaths, filepath.Join(configPath(), fmt.Sprintf("config-%s", profile)))
	}
	configBasePaths = append(configBasePaths, filepath.Join(configPath(), "config"))
	cfg := &Config{}
	for _, basePath := range configBasePaths {
		for _, ext := range []string{".yml", ".yaml"} {
			configPath := basePath + ext
			if b, err := os.ReadFile(configPath); err == nil {
				if err := yaml.Unmarshal(expand.ExpandenvYAMLBytes(b), cfg); err != nil {
					return nil, fmt.Errorf("failed to unmarshal config %s: %w", configPath, err)
				}
				return cfg, nil
			}
		}
	}
	// If no config file is found, return an empty config
	return cfg, nil
}

// configPath returns the path to the configuration directory.
func configPath() string {
	if configHomePath != "" {
		return configHomePath
	}
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		configHomePath = filepath.Join(v, appName)
	} else {
		configHomePath = filepath.Join(homePath, ".config", appName)
	}
	return configHomePath
}

// StateHomePath returns the path to the state directory, where logs and error dumps are written.
func StateHomePath() string {
	if stateHomePath != "" {
		return stateHomePath
	}
	if v := os.Getenv("XDG_STATE_HOME"); v != "" {
		stateHomePath = filepath.Join(v, appName)
	} else {
		stateHomePath = filepath.Join(homePath, ".local", "state", appName)
	}
	return stateHomePath
}
