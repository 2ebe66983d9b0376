package config

import (
	"fmt"
	"os"

	"github.com/mindspace/gotcha/internal/flagx"
)

const (
	NotifierLog   = "log"
	NotifierTimer = "timer"
)

// Config holds runtime settings for the gotcha client.
type Config struct {
	DataDir       string `json:"data_dir"`
	DatabaseFile  string `json:"database_file"`
	InMemory      bool   `json:"in_memory"`
	RecordingsDir string `json:"recordings_dir"`
	Notifier      string `json:"notifier"`
	LogLevel      string `json:"log_level"`
	LogFormat     string `json:"log_format"`
	// LockKeys wraps conversation keys with a passphrase-derived master key.
	LockKeys bool `json:"lock_keys"`

	S3Bucket    string `json:"s3_bucket"`
	S3Region    string `json:"s3_region"`
	S3Endpoint  string `json:"s3_endpoint"`
	S3AccessKey string `json:"s3_access_key"`
	S3SecretKey string `json:"s3_secret_key"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DataDir = ".gotcha"
	c.DatabaseFile = "gotcha.db"
	c.InMemory = false
	c.RecordingsDir = "recordings"
	c.Notifier = NotifierLog
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.LockKeys = false
	c.S3Region = "us-east-1"
}

// BackupEnabled reports whether a bucket is configured.
func (c *Config) BackupEnabled() bool {
	return c.S3Bucket != ""
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	switch c.Notifier {
	case NotifierLog, NotifierTimer:
	default:
		return fmt.Errorf("unknown notifier %q", c.Notifier)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	if !c.InMemory && c.DatabaseFile == "" {
		return fmt.Errorf("database file must be set")
	}
	return nil
}

// LoadConfig builds a Config from defaults, the environment, an optional
// JSON file and the command-line flags in args (usually os.Args[1:]).
// Later sources take precedence over earlier ones.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	if err := parseEnv(cfg, os.Getenv(envFileVar), os.LookupEnv); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, flagx.ConfigPath(args)); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
