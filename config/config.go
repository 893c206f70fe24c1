// Package config loads server configuration from an optional YAML file,
// environment variables and command line flags.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all runtime settings of the server.
type Config struct {
	Listen   ListenConfig  `mapstructure:"listen"`
	Session  SessionConfig `mapstructure:"session"`
	Storage  StorageConfig `mapstructure:"storage"`
	Upload   UploadConfig  `mapstructure:"upload"`
	Ffmpeg   FfmpegConfig  `mapstructure:"ffmpeg"`
	LogLevel string        `mapstructure:"log_level"`
}

// ListenConfig holds HTTP listener settings.
type ListenConfig struct {
	Port int `mapstructure:"port"`
}

// SessionConfig holds session cookie settings.
type SessionConfig struct {
	// Secret signs the session cookie. Must be set in production.
	Secret string `mapstructure:"secret"`
	// MaxAge is the cookie lifetime in seconds.
	MaxAge int `mapstructure:"max_age"`
}

// StorageConfig holds filesystem layout settings.
type StorageConfig struct {
	// Datadir holds users.xlsx, videos.xlsx and the playstate database.
	Datadir string `mapstructure:"datadir"`
	// Mediadir is the root of the rank-partitioned video tree.
	Mediadir string `mapstructure:"mediadir"`
}

// UploadConfig holds upload limits.
type UploadConfig struct {
	// MaxBytes caps the size of a single upload request.
	MaxBytes int64 `mapstructure:"max_bytes"`
}

// FfmpegConfig holds paths of the external tools used for thumbnail
// extraction.
type FfmpegConfig struct {
	FfmpegPath  string `mapstructure:"ffmpeg_path"`
	FfprobePath string `mapstructure:"ffprobe_path"`
}

const envPrefix = "VIDGATE"

// Load reads configuration with the following precedence: flags, environment
// variables (VIDGATE_ prefix, dots as underscores), config file, defaults.
func Load(args []string) (*Config, error) {
	v := viper.New()

	v.SetDefault("listen.port", 5000)
	v.SetDefault("session.secret", "")
	v.SetDefault("session.max_age", 7*24*3600)
	v.SetDefault("storage.datadir", "data")
	v.SetDefault("storage.mediadir", "videos")
	v.SetDefault("upload.max_bytes", int64(500*1024*1024))
	v.SetDefault("ffmpeg.ffmpeg_path", "ffmpeg")
	v.SetDefault("ffmpeg.ffprobe_path", "ffprobe")
	v.SetDefault("log_level", "info")

	fs := pflag.NewFlagSet("vidgate-server", pflag.ContinueOnError)
	configFile := fs.String("config", "", "path of configuration file")
	fs.Int("port", 5000, "port to listen on")
	fs.String("datadir", "data", "directory holding spreadsheets and database")
	fs.String("mediadir", "videos", "root of the media directory tree")
	fs.String("loglevel", "info", "log level (trace, debug, info, warn, error)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	v.BindPFlag("listen.port", fs.Lookup("port"))
	v.BindPFlag("storage.datadir", fs.Lookup("datadir"))
	v.BindPFlag("storage.mediadir", fs.Lookup("mediadir"))
	v.BindPFlag("log_level", fs.Lookup("loglevel"))

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("vidgate-server")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/vidgate")
		if err := v.ReadInConfig(); err != nil {
			// Config file is optional, defaults and env carry the rest.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) validate() error {
	if c.Listen.Port <= 0 || c.Listen.Port > 65535 {
		return fmt.Errorf("invalid listen port %d", c.Listen.Port)
	}
	if c.Storage.Datadir == "" {
		return fmt.Errorf("storage datadir not set")
	}
	if c.Storage.Mediadir == "" {
		return fmt.Errorf("storage mediadir not set")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("invalid upload max_bytes %d", c.Upload.MaxBytes)
	}
	return nil
}
