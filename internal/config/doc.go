// Package config loads runtime configuration for the gotcha client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. A dotenv file (".env", or the file named by GOTCHA_ENV_FILE) and the
//     process environment, which wins over the file. See parseEnv.
//  3. Optional JSON file selected with -c or --config (see parseJson).
//  4. Command-line flags (see parseFlags), which override everything else.
//
// Supported flags
//
//	-d, --data-dir string    directory holding the database and recordings
//	-n, --notifier string    notifier implementation: log or timer
//	-l, --log-level string   debug, info, warn or error
//	-m, --in-memory          keep everything in memory, nothing on disk
//
// # JSON schema
//
//	{
//	  "data_dir": "/home/me/.gotcha",
//	  "database_file": "gotcha.db",
//	  "notifier": "timer",
//	  "lock_keys": true,
//	  "s3_bucket": "gotcha-backups"
//	}
//
// Environment variables use the GOTCHA_ prefix and the upper-cased JSON
// names, e.g. GOTCHA_DATA_DIR or GOTCHA_S3_SECRET_KEY.
package config
