// Package flagx lets several components parse their own subset of the
// command line without tripping over each other's flags.
package flagx

import (
	"flag"
	"io"
	"strings"
)

// FilterArgs keeps only the flags named in allowed together with their
// values. Both "-f value" and "-f=value" forms are recognized; a value is
// taken from the next argument only when it does not itself start with "-".
// The result is never nil.
func FilterArgs(args []string, allowed []string) []string {
	keep := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		keep[f] = true
	}

	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(arg, "-") {
			if keep[name] {
				out = append(out, arg)
			}
			continue
		}

		if !keep[arg] {
			continue
		}
		out = append(out, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, args[i+1])
			i++
		}
	}

	return out
}

// ConfigFileFlag returns the path given with -c or -config, or "" when
// neither is present. Everything else in args is ignored.
func ConfigFileFlag(args []string) string {
	var path string

	fs := flag.NewFlagSet("config", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVar(&path, "config", "", "path to JSON config file")
	fs.StringVar(&path, "c", "", "path to JSON config file (short)")
	_ = fs.Parse(FilterArgs(args, []string{"-c", "-config", "--config"}))

	return path
}
