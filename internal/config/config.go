package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. WIREMOCKCTL_PORT
const EnvPrefix = "WIREMOCKCTL"

// DefaultDownloadURL is the Maven Central directory holding WireMock standalone jars
const DefaultDownloadURL = "https://repo1.maven.org/maven2/com/github/tomakehurst/wiremock"

// Config represents the wiremockctl configuration
type Config struct {
	Port           string        `mapstructure:"port"`
	StandalonePath string        `mapstructure:"standalone_path"`
	Version        string        `mapstructure:"version"`
	Arguments      string        `mapstructure:"arguments"` // empty means "--root-dir <standalone_path>"
	JavaPath       string        `mapstructure:"java_path"`
	ReadyTimeout   time.Duration `mapstructure:"ready_timeout"`
	StopTimeout    time.Duration `mapstructure:"stop_timeout"`
	DownloadURL    string        `mapstructure:"download_url"`
}

// Load reads the configuration. cfgFile overrides the default
// ~/.wiremockctl/config.yaml; a missing default file is not an error.
// A .env file in the working directory and WIREMOCKCTL_* variables override
// file values.
func Load(cfgFile string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		configDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDir)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Try to read config file, but don't fail if the default one doesn't exist
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) || cfgFile != "" {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	cfg.StandalonePath = expandPath(cfg.StandalonePath)
	cfg.JavaPath = expandPath(cfg.JavaPath)

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("standalone_path", "./wiremock/")
	v.SetDefault("version", "1.57")
	v.SetDefault("arguments", "")
	v.SetDefault("java_path", "java")
	v.SetDefault("ready_timeout", "30s")
	v.SetDefault("stop_timeout", "10s")
	v.SetDefault("download_url", DefaultDownloadURL)
}

// expandPath expands a leading ~ to the home directory, keeping a trailing
// separator so the value still reads as a directory
func expandPath(path string) string {
	expanded, err := homedir.Expand(path)
	if err != nil {
		// If expansion fails, use original path
		return path
	}
	if expanded != path && strings.HasSuffix(path, "/") && !strings.HasSuffix(expanded, string(filepath.Separator)) {
		expanded += string(filepath.Separator)
	}
	return expanded
}

// ConfigDir returns the wiremockctl configuration directory path
func ConfigDir() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".wiremockctl"), nil
}
