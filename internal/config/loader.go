package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name searched in the
// current directory.
const DefaultConfigFile = ".threadsnap.yaml"

// XDGConfigFile is the configuration file name under the XDG config
// directory.
const XDGConfigFile = "threadsnap.yaml"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// LoadConfigFile loads forum profiles from a YAML file.
// If the file does not exist, it returns ErrConfigNotFound. Callers should
// treat that error as fatal only when the path was explicitly specified by
// the user.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}

	// Initialize Forums map if nil
	if cf.Forums == nil {
		cf.Forums = make(map[string]ForumConfig)
	}

	return &cf, nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .threadsnap.yaml in the current directory
// 3. Look for threadsnap.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if
// not found.
func FindConfigFile(configPath string) string {
	// If explicit path is provided, use it
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	// Check current directory
	cwd, err := os.Getwd()
	if err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	// Check XDG config directory
	xdgConfig := filepath.Join(XDGConfigDir(), XDGConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
