// Package flagx extracts a known subset of flags from os.Args so that several
// components (config loading, the cobra command tree) can each parse their own
// flags without tripping over the others.
package flagx

import (
	"flag"
	"io"
	"os"
	"strings"
)

// FilterArgs returns only the allowed flags (and their values) from args.
//
// Both "-f value" and "-f=value" forms are recognised. A flag followed by an
// argument that itself starts with "-" is kept without a value.
func FilterArgs(args []string, allowedFlags []string) []string {
	allowed := make(map[string]struct{}, len(allowedFlags))
	for _, f := range allowedFlags {
		allowed[f] = struct{}{}
	}

	filtered := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if strings.HasPrefix(arg, "-") && strings.Contains(arg, "=") {
			name := strings.SplitN(arg, "=", 2)[0]
			if _, ok := allowed[name]; ok {
				filtered = append(filtered, arg)
			}
			continue
		}

		if _, ok := allowed[arg]; ok {
			filtered = append(filtered, arg)
			if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				filtered = append(filtered, args[i+1])
				i++
			}
		}
	}

	return filtered
}

// ConfigFile returns the path given with -c / -config, or "" when absent.
func ConfigFile() string {
	return stringFlag([]string{"-c", "-config", "--config"}, "config", "c")
}

// EnvFile returns the path given with -env-file, or "" when absent.
func EnvFile() string {
	return stringFlag([]string{"-env-file", "--env-file"}, "env-file", "")
}

// DryRun reports whether -dry-run (or -dry-run=true) was given.
func DryRun() bool {
	var value bool

	// A bool flag takes no separate value, so only the flag itself is kept.
	var args []string
	for _, a := range FilterArgs(os.Args[1:], []string{"-dry-run", "--dry-run"}) {
		if strings.HasPrefix(a, "-") {
			args = append(args, a)
		}
	}

	fs := flag.NewFlagSet("dry-run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&value, "dry-run", false, "")
	_ = fs.Parse(args)

	return value
}

func stringFlag(allowed []string, long, short string) string {
	var value string

	args := FilterArgs(os.Args[1:], allowed)

	fs := flag.NewFlagSet(long, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&value, long, "", "")
	if short != "" {
		fs.StringVar(&value, short, "", "")
	}
	_ = fs.Parse(args)

	return value
}
