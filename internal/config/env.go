package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/joho/godotenv"
)

const (
	envPrefix      = "GOTCHA_"
	envFileVar     = envPrefix + "ENV_FILE"
	defaultEnvFile = ".env"
)

// parseEnv overlays cfg with GOTCHA_* variables. Values come from the dotenv
// file first; lookup (the process environment) wins over the file. A missing
// dotenv file is not an error.
func parseEnv(cfg *Config, envFile string, lookup func(string) (string, bool)) error {
	if envFile == "" {
		envFile = defaultEnvFile
	}

	fileVars, err := godotenv.Read(envFile)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("reading %s: %w", envFile, err)
		}
		fileVars = map[string]string{}
	}

	get := func(name string) (string, bool) {
		if v, ok := lookup(envPrefix + name); ok {
			return v, true
		}
		v, ok := fileVars[envPrefix+name]
		return v, ok
	}

	texts := map[string]*string{
		"DATA_DIR":       &cfg.DataDir,
		"DB_FILE":        &cfg.DatabaseFile,
		"RECORDINGS_DIR": &cfg.RecordingsDir,
		"NOTIFIER":       &cfg.Notifier,
		"LOG_LEVEL":      &cfg.LogLevel,
		"LOG_FORMAT":     &cfg.LogFormat,
		"S3_BUCKET":      &cfg.S3Bucket,
		"S3_REGION":      &cfg.S3Region,
		"S3_ENDPOINT":    &cfg.S3Endpoint,
		"S3_ACCESS_KEY":  &cfg.S3AccessKey,
		"S3_SECRET_KEY":  &cfg.S3SecretKey,
	}
	for name, dst := range texts {
		if v, ok := get(name); ok {
			*dst = v
		}
	}

	bools := map[string]*bool{
		"IN_MEMORY": &cfg.InMemory,
		"LOCK_KEYS": &cfg.LockKeys,
	}
	for name, dst := range bools {
		v, ok := get(name)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, name, err)
		}
		*dst = b
	}

	return nil
}
