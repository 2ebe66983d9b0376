// Package flagx picks the flags a component owns out of a full command line,
// so configuration can be read before the command tree parses the rest.
package flagx

import (
	"flag"
	"strings"
)

// FilterArgs returns the arguments of args that belong to the allowed flags,
// keeping their values.
//
// Supported formats:
//  1. Flag and value as separate arguments:  -c conf.json
//  2. Flag and value combined with '=':      --config=conf.json
//  3. Boolean flags without a value:         -m
//
// valueFlags take the following argument as their value unless it looks like
// a flag. boolFlags never consume the following argument, so positional
// arguments after them survive. Scanning stops at "--".
func FilterArgs(args []string, valueFlags, boolFlags []string) []string {
	takesValue := make(map[string]bool, len(valueFlags)+len(boolFlags))
	for _, f := range valueFlags {
		takesValue[f] = true
	}
	for _, f := range boolFlags {
		takesValue[f] = false
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--" {
			break
		}

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := takesValue[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		value, ok := takesValue[arg]
		if !ok {
			continue
		}
		filtered = append(filtered, arg)
		if value && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			filtered = append(filtered, args[i+1])
			i++
		}
	}

	return filtered
}

// ConfigPath extracts the JSON config file path given with -c or --config.
// It returns an empty string when neither is present.
func ConfigPath(args []string) string {
	var config string

	filtered := FilterArgs(args, []string{"-c", "-config", "--config"}, nil)

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&config, "config", "", "Path to config file")
	fs.StringVar(&config, "c", "", "Path to config file (short)")
	_ = fs.Parse(filtered)

	return config
}
