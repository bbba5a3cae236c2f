// Copyright (c) 2026 ToeiRei
// check_sshfp - SSHFP record monitoring check
// This source code is licensed under the MIT license found in the LICENSE file.

// Package config loads check settings from defaults, an optional YAML file,
// CHECK_SSHFP_* environment variables and command-line flags, in increasing
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	appName    = "check_sshfp"
	envPrefix  = "check_sshfp"
	configName = "check_sshfp"
)

// Config holds every setting that may come from a file or the environment.
type Config struct {
	Nameserver string        `mapstructure:"nameserver" yaml:"nameserver"`
	Timeout    int           `mapstructure:"timeout" yaml:"timeout"`
	NoDNSSEC   bool          `mapstructure:"no-dnssec" yaml:"no-dnssec"`
	Language   string        `mapstructure:"language" yaml:"language"`
	Debug      bool          `mapstructure:"debug" yaml:"debug"`
	Keyscan    KeyscanConfig `mapstructure:"keyscan" yaml:"keyscan"`
	History    HistoryConfig `mapstructure:"history" yaml:"history"`
}

// KeyscanConfig configures the ssh-keyscan invocation.
type KeyscanConfig struct {
	Path    string `mapstructure:"path" yaml:"path"`
	Timeout int    `mapstructure:"timeout" yaml:"timeout"`
}

// HistoryConfig selects the optional database that records check runs.
// An empty DSN disables recording.
type HistoryConfig struct {
	Type string `mapstructure:"type" yaml:"type"`
	Dsn  string `mapstructure:"dsn" yaml:"dsn"`
}

// Defaults are the values used when nothing else sets a key.
func Defaults() map[string]any {
	return map[string]any{
		"nameserver":      "",
		"timeout":         10,
		"no-dnssec":       false,
		"language":        "en",
		"debug":           false,
		"keyscan.path":    "ssh-keyscan",
		"keyscan.timeout": 30,
		"history.type":    "sqlite",
		"history.dsn":     "",
	}
}

// GetConfigPath returns the full path for the configuration file.
func GetConfigPath(system bool) (string, error) {
	var configDir string
	var err error

	if system {
		switch runtime.GOOS {
		case "windows":
			configDir = filepath.Join(os.Getenv("ProgramData"), appName)
		default:
			configDir = "/etc/" + appName
		}
	} else {
		configDir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("could not get user config directory: %w", err)
		}
		configDir = filepath.Join(configDir, appName)
	}

	return filepath.Join(configDir, configName+".yaml"), nil
}

// LoadConfig reads the configuration into T. bindings maps config keys to
// the cmd flags that override them; a flag only wins when it was set on the
// command line. A missing config file is not an error unless configFile
// names it explicitly.
func LoadConfig[T any](cmd *cobra.Command, defaults map[string]any, configFile *string, bindings map[string]string) (T, error) {
	var c T
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	if configFile != nil && *configFile != "" {
		v.SetConfigFile(*configFile)
	} else {
		if userConfigPath, err := GetConfigPath(false); err == nil {
			v.AddConfigPath(filepath.Dir(userConfigPath))
		}
		if systemConfigPath, err := GetConfigPath(true); err == nil {
			v.AddConfigPath(filepath.Dir(systemConfigPath))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return c, err
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	for key, flagName := range bindings {
		f := cmd.Flags().Lookup(flagName)
		if f == nil {
			return c, fmt.Errorf("unknown flag %q bound to %q", flagName, key)
		}
		if err := v.BindPFlag(key, f); err != nil {
			return c, err
		}
	}

	if err := v.Unmarshal(&c); err != nil {
		return c, err
	}

	return c, nil
}

// WriteConfigFile serialises c to the user or system config path and
// returns the path written.
func WriteConfigFile[T any](c *T, system bool) (string, error) {
	path, err := GetConfigPath(system)
	if err != nil {
		return "", err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}

	configDir := filepath.Dir(path)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("could not create config directory %s: %w", configDir, err)
	}

	// The history DSN may carry database credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", err
	}
	return path, nil
}
