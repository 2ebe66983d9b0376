package config

import (
	"flag"
	"io"

	"github.com/mindspace/gotcha/internal/flagx"
)

var (
	valueFlags = []string{
		"-d", "-data-dir", "--data-dir",
		"-n", "-notifier", "--notifier",
		"-l", "-log-level", "--log-level",
	}
	boolFlags = []string{"-m", "-in-memory", "--in-memory"}
)

// parseFlags populates cfg from the flags in args it owns. Other arguments
// (subcommands, their flags) are filtered out with flagx.FilterArgs.
func parseFlags(cfg *Config, args []string) error {
	filtered := flagx.FilterArgs(args, valueFlags, boolFlags)

	fs := flag.NewFlagSet("gotcha", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.DataDir, "d", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.DataDir, "data-dir", cfg.DataDir, "data directory")
	fs.StringVar(&cfg.Notifier, "n", cfg.Notifier, "notifier: log or timer")
	fs.StringVar(&cfg.Notifier, "notifier", cfg.Notifier, "notifier: log or timer")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	fs.BoolVar(&cfg.InMemory, "m", cfg.InMemory, "keep data in memory only")
	fs.BoolVar(&cfg.InMemory, "in-memory", cfg.InMemory, "keep data in memory only")

	return fs.Parse(filtered)
}
