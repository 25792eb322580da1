// Package flagx helps components share os.Args: each configuration stage
// parses only the flags it owns and leaves the rest untouched.
package flagx

import (
	"flag"
	"os"
	"strings"
)

// FilterArgs keeps only the flags named in allowed, together with their
// values. Both the "-f value" and "-f=value" (or "--flag=value") forms
// survive; everything else is dropped. The token after an allowed flag
// counts as its value unless it starts with a dash.
func FilterArgs(args []string, allowed []string) []string {
	want := make(map[string]struct{}, len(allowed))
	for _, name := range allowed {
		want[name] = struct{}{}
	}

	kept := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]

		if name, _, found := strings.Cut(arg, "="); found && strings.HasPrefix(arg, "-") {
			if _, ok := want[name]; ok {
				kept = append(kept, arg)
			}
			continue
		}

		if _, ok := want[arg]; !ok {
			continue
		}
		kept = append(kept, arg)
		if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			kept = append(kept, args[i+1])
			i++
		}
	}
	return kept
}

// JsonConfigFlags returns the config file path passed via -c or -config,
// or an empty string when neither flag is present. Unrelated flags in
// os.Args are ignored so other components stay free to define their own.
func JsonConfigFlags() string {
	var path string

	args := FilterArgs(os.Args[1:], []string{"-c", "-config"})

	fs := flag.NewFlagSet("json", flag.ContinueOnError)
	fs.StringVar(&path, "config", "", "path to config file")
	fs.StringVar(&path, "c", "", "path to config file (short)")
	_ = fs.Parse(args)

	return path
}
