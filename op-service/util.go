package op_service

import (
	"fmt"
	"strings"
)

// PrefixEnvVar returns the environment variable name for a flag of a
// service, e.g. PrefixEnvVar("OP_BRIDGE", "RPC_PORT") yields OP_BRIDGE_RPC_PORT.
func PrefixEnvVar(prefix, suffix string) []string {
	return []string{prefix + "_" + suffix}
}

func FormatVersion(version string, gitCommit string, gitDate string, meta string) string {
	v := version
	if gitCommit != "" {
		if len(gitCommit) >= 8 {
			v += "-" + gitCommit[:8]
		} else {
			v += "-" + gitCommit
		}
	}
	if gitDate != "" {
		v += "-" + gitDate
	}
	if meta != "" {
		v += "-" + meta
	}
	return v
}

// ValidateEnvVars logs a warning for every OP_ environment variable under
// prefix that does not map onto a known flag.
func ValidateEnvVars(prefix string, flags []string, environ []string) []string {
	known := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		known[f] = struct{}{}
	}
	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(name, prefix+"_") {
			continue
		}
		if _, ok := known[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

func FlagNameToEnvVarName(f string, prefix string) string {
	return fmt.Sprintf("%s_%s", prefix, strings.ToUpper(strings.ReplaceAll(f, "-", "_")))
}
