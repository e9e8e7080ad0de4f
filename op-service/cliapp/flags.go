package cliapp

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

// ProtectFlags returns a copy of the flags and panics when two flags share a
// name or alias, so that a bad merge of flag lists fails at startup.
func ProtectFlags(flags []cli.Flag) []cli.Flag {
	seen := make(map[string]struct{})
	out := make([]cli.Flag, 0, len(flags))
	for _, f := range flags {
		for _, name := range f.Names() {
			if _, ok := seen[name]; ok {
				panic(fmt.Errorf("duplicate flag %q", name))
			}
			seen[name] = struct{}{}
		}
		out = append(out, f)
	}
	return out
}
