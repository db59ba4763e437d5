package commands

import (
	"os"
	"path/filepath"

	"github.com/margin-sh/margin/internal/core/config"
	"github.com/margin-sh/margin/internal/stores"
)

type Flags struct {
	LogLevel   string
	LogFile    string
	ConfigPath string
	Root       string

	// Config is loaded in the Before hook and available to all commands
	Config *config.Config

	// Stores are constructed in the Before hook
	Sessions *stores.SessionStore
	Plans    *stores.PlanStore
}

// DefaultConfigPath returns the default config file path using XDG_CONFIG_HOME.
func DefaultConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, _ := os.UserHomeDir()
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "margin", "config.yaml")
}

// DefaultRoot returns the default features directory using XDG_DATA_HOME.
func DefaultRoot() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, _ := os.UserHomeDir()
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "margin", "features")
}
