// Package kv parses "name=value" pairs, the grammar shared by -v CLI
// overrides and the host/suite configuration files in internal/hostconfig.
package kv

import (
	"fmt"
	"strings"
)

// Parse converts a slice of "name=value" strings into a map. An entry
// without an '=' is a usage error.
func Parse(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		name, value, err := ParseOne(p)
		if err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, nil
}

// ParseOne parses a single "name=value" string.
func ParseOne(s string) (name, value string, err error) {
	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		return "", "", fmt.Errorf("kv: malformed assignment %q: expected name=value", s)
	}
	name = s[:idx]
	if name == "" {
		return "", "", fmt.Errorf("kv: malformed assignment %q: empty name", s)
	}
	value = s[idx+1:]
	return name, value, nil
}

// ParseLine parses one "name = value" line from a .conf file, tolerating
// surrounding whitespace around both name and value (unlike ParseOne,
// which is exact for CLI flags).
func ParseLine(s string) (name, value string, err error) {
	idx := strings.IndexByte(s, '=')
	if idx < 0 {
		return "", "", fmt.Errorf("kv: malformed line %q: expected name = value", s)
	}
	name = strings.TrimSpace(s[:idx])
	value = strings.TrimSpace(s[idx+1:])
	if name == "" {
		return "", "", fmt.Errorf("kv: malformed line %q: empty name", s)
	}
	return name, value, nil
}
