// Where: internal/config/global.go
// What: Global config load/save helpers.
// Why: Manage ~/.imx/config.yaml consistently.
package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/buildfleet/imx/internal/envutil"
	"github.com/buildfleet/imx/internal/meta"
	"gopkg.in/yaml.v3"
)

// GlobalConfig represents the ~/.imx/config.yaml global configuration.
// It stores defaults shared by every command invocation.
type GlobalConfig struct {
	Version        int    `yaml:"version"`
	MatrixPath     string `yaml:"matrix_path,omitempty"`
	Registry       string `yaml:"registry,omitempty"`
	IndexURL       string `yaml:"index_url,omitempty"`
	ArtifactBucket string `yaml:"artifact_bucket,omitempty"`
	StateTable     string `yaml:"state_table,omitempty"`
	AWSRegion      string `yaml:"aws_region,omitempty"`
	AWSEndpoint    string `yaml:"aws_endpoint,omitempty"`
}

// DefaultGlobalConfig returns an initialized GlobalConfig with version set.
func DefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{Version: 1}
}

// GlobalConfigPath returns the path to the global config file.
// Respects IMX_CONFIG_PATH and IMX_CONFIG_HOME environment variables.
func GlobalConfigPath() (string, error) {
	if override := strings.TrimSpace(envutil.GetHostEnv("CONFIG_PATH")); override != "" {
		path := override
		if !filepath.IsAbs(path) {
			if abs, err := filepath.Abs(path); err == nil {
				path = abs
			}
		}
		return path, nil
	}
	if override := strings.TrimSpace(envutil.GetHostEnv("CONFIG_HOME")); override != "" {
		return filepath.Join(override, "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, meta.HomeDir, "config.yaml"), nil
}

// EnsureGlobalConfig creates the global config file if it doesn't exist.
func EnsureGlobalConfig() error {
	path, err := GlobalConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return SaveGlobalConfig(path, DefaultGlobalConfig())
		}
		return err
	}
	return nil
}

// LoadGlobalConfig reads and parses the global configuration file.
func LoadGlobalConfig(path string) (GlobalConfig, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return GlobalConfig{}, err
	}

	var cfg GlobalConfig
	if err := yaml.Unmarshal(payload, &cfg); err != nil {
		return GlobalConfig{}, err
	}
	return cfg, nil
}

// LoadGlobalConfigOrDefault loads the global config, falling back to defaults
// when the file is missing or unreadable.
func LoadGlobalConfigOrDefault() GlobalConfig {
	path, err := GlobalConfigPath()
	if err != nil {
		return DefaultGlobalConfig()
	}
	cfg, err := LoadGlobalConfig(path)
	if err != nil {
		return DefaultGlobalConfig()
	}
	return cfg
}

// SaveGlobalConfig writes a GlobalConfig to the specified path.
func SaveGlobalConfig(path string, cfg GlobalConfig) error {
	payload, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, payload, 0o644)
}
