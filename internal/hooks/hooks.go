// Package hooks invokes the optional pre/post run hooks named by
// ATF_RUN_HOOKS (spec.md's distillation drops these; this expansion adds
// them back as a cheap, concretely-specified external-shell collaborator).
package hooks

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"go.uber.org/zap"
)

// Kind names which hook point is being invoked.
type Kind string

const (
	Pre  Kind = "pre"
	Post Kind = "post"
)

// Run invokes dir/<kind> if it exists and is executable, sending both the
// hook's stdout and stderr to the parent's stderr so hook output reaches the
// same terminal/log as framework diagnostics; the hook's stdin is not
// connected. A missing or non-executable hook is not an error: hooks are
// optional. dir is typically $ATF_RUN_HOOKS; an empty dir is a no-op.
func Run(dir string, kind Kind, logger *zap.Logger) error {
	if dir == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	path := filepath.Join(dir, string(kind))
	fi, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("hooks: stat %s: %w", path, err)
	}
	if fi.Mode()&0111 == 0 {
		logger.Debug("hook exists but is not executable, skipping", zap.String("path", path))
		return nil
	}

	logger.Info("running hook", zap.String("kind", string(kind)), zap.String("path", path))
	cmd := exec.Command(path)
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("hooks: %s hook failed: %w", kind, err)
	}
	return nil
}
