package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the resolved application configuration.
type Config struct {
	// GitBinary is the git executable; empty means a PATH lookup.
	GitBinary string `mapstructure:"git_binary"`
	// ActiveRepo is used when a command names no repository.
	ActiveRepo string `mapstructure:"active_repo"`
	// Repositories lists known repositories.
	Repositories []string `mapstructure:"repositories"`
	// Timeouts bound each class of git command.
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	// ExcludedFiles are doublestar globs hidden from status and bulk staging.
	ExcludedFiles []string `mapstructure:"excluded_files"`
	// FileEncodings maps path globs to encoding labels (WHATWG names).
	FileEncodings []EncodingRule `mapstructure:"file_encodings"`
	Log           LogConfig      `mapstructure:"log"`
	// CacheTTL is how long resolved commit info is kept.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
	// WatchDebounce coalesces bursts of file system events.
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	// Trace enables span export to stderr.
	Trace bool `mapstructure:"trace"`
}

// TimeoutsConfig holds the three timeout classes.
type TimeoutsConfig struct {
	Quick   time.Duration `mapstructure:"quick"`
	Local   time.Duration `mapstructure:"local"`
	Network time.Duration `mapstructure:"network"`
}

// EncodingRule assigns an encoding to paths matching Pattern.
type EncodingRule struct {
	Pattern  string `mapstructure:"pattern"`
	Encoding string `mapstructure:"encoding"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// Load reads configuration from ~/.config/gittools/config.yaml, or from path
// when it is non-empty. A missing default file is not an error; a missing
// explicit file is.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(configDirectory())
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("GITTOOLS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("git_binary", "")
	v.SetDefault("active_repo", "")
	v.SetDefault("repositories", []string{})
	v.SetDefault("timeouts.quick", 10*time.Second)
	v.SetDefault("timeouts.local", 30*time.Second)
	v.SetDefault("timeouts.network", 120*time.Second)
	v.SetDefault("excluded_files", []string{})
	v.SetDefault("file_encodings", []map[string]string{})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.file", "")
	v.SetDefault("cache_ttl", 5*time.Minute)
	v.SetDefault("watch_debounce", 300*time.Millisecond)
	v.SetDefault("trace", false)
}

func configDirectory() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "gittools")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "gittools")
}
