// Package hostconfig concretizes the "host-wide and suite-wide settings
// files" external collaborator named in spec.md §1: it loads common.conf
// and an optional <suite>.conf from a configuration directory and merges
// them into the flat mapping the core consumes as Config.
package hostconfig

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/imdario/mergo"

	"github.com/atf-go/atfrun/internal/kv"
)

// Config is the flat variable -> value mapping consumed by the rest of the
// runner (spec §3 Config).
type Config map[string]string

// Load reads <dir>/common.conf, then <dir>/<suite>.conf if present and
// suite is non-empty, merging with later files winning. Missing files are
// not an error; a config directory that doesn't exist at all yields an
// empty Config.
func Load(dir, suite string) (Config, error) {
	cfg := Config{}

	if dir == "" {
		return cfg, nil
	}

	common, err := loadFile(filepath.Join(dir, "common.conf"))
	if err != nil {
		return nil, err
	}
	if err := mergeInto(&cfg, common); err != nil {
		return nil, err
	}

	if suite != "" {
		suiteCfg, err := loadFile(filepath.Join(dir, suite+".conf"))
		if err != nil {
			return nil, err
		}
		if err := mergeInto(&cfg, suiteCfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func mergeInto(dst *Config, src Config) error {
	return mergo.Merge((*map[string]string)(dst), (map[string]string)(src), mergo.WithOverride)
}

func loadFile(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, nil
		}
		return nil, fmt.Errorf("hostconfig: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := Config{}
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, value, err := kv.ParseLine(line)
		if err != nil {
			return nil, fmt.Errorf("hostconfig: %s:%d: %w", path, lineNo, err)
		}
		cfg[name] = value
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("hostconfig: read %s: %w", path, err)
	}
	return cfg, nil
}

// Merge combines the three config scopes in the fixed, later-wins order
// spec §3 requires: host+suite config files, suite manifest declarations,
// command-line overrides.
func Merge(hostSuite, manifest, cliOverrides Config) (Config, error) {
	out := Config{}
	for _, layer := range []Config{hostSuite, manifest, cliOverrides} {
		if err := mergeInto(&out, layer); err != nil {
			return nil, err
		}
	}
	return out, nil
}
