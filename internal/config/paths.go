package config

import (
	"os"
	"path/filepath"
)

// Dir returns the qdpi config directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "qdpi")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", "qdpi")
	}
	return filepath.Join(home, ".config", "qdpi")
}

// Path returns the global config file path.
func Path() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DataDir returns the qdpi data directory, honoring XDG_DATA_HOME.
func DataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, "qdpi")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".local", "share", "qdpi")
	}
	return filepath.Join(home, ".local", "share", "qdpi")
}

// RegistryPath returns the path of the environment registry file.
func RegistryPath() string {
	return filepath.Join(DataDir(), "registry.json")
}

// LogPath returns the path of the qdpi log file.
func LogPath() string {
	return filepath.Join(DataDir(), "qdpi.log")
}
