package atfpath

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"go.uber.org/zap"
)

// TempDir is an ownership-scoped handle over a freshly created, unique
// directory. Close recursively removes the directory tree; failures to
// remove individual entries are logged but do not prevent removal of the
// rest of the tree (matching the "best-effort" invariant in the data
// model).
type TempDir struct {
	path   Path
	logger *zap.Logger
	closed bool
}

// NewTempDir creates a new directory from template, which must end in six
// "X" placeholders (e.g. "atf-run.XXXXXX"), with mode 0700.
func NewTempDir(dir, template string, logger *zap.Logger) (*TempDir, error) {
	if !strings.HasSuffix(template, "XXXXXX") {
		return nil, fmt.Errorf("atfpath: template %q must end in XXXXXX", template)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	prefix := strings.TrimSuffix(template, "XXXXXX")
	name, err := os.MkdirTemp(dir, prefix)
	if err != nil {
		return nil, &FsError{Path: dir, Op: "mkdtemp", Err: err}
	}
	if err := os.Chmod(name, 0700); err != nil {
		_ = os.RemoveAll(name)
		return nil, &FsError{Path: name, Op: "chmod", Err: err}
	}

	p, err := New(name)
	if err != nil {
		_ = os.RemoveAll(name)
		return nil, err
	}

	return &TempDir{path: p, logger: logger}, nil
}

// Path returns the canonical path of the directory.
func (t *TempDir) Path() Path {
	return t.path
}

// Close recursively removes the directory tree. It is idempotent and safe
// to call multiple times (e.g. once explicitly and once via defer).
func (t *TempDir) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	return removeTree(t.path.String(), t.logger)
}

// removeTree removes dir and everything beneath it, refusing to cross
// mount boundaries: an entry whose device id differs from its parent's is
// unmounted first (best effort), then removed. A failure to remove one
// entry is logged and does not abort removal of siblings.
func removeTree(dir string, logger *zap.Logger) error {
	parentDev, err := deviceOf(dir)
	if err != nil {
		logger.Warn("could not stat directory for removal", zap.String("path", dir), zap.Error(err))
		return err
	}
	return removeTreeDev(dir, parentDev, logger)
}

func removeTreeDev(path string, parentDev uint64, logger *zap.Logger) error {
	fi, err := os.Lstat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Warn("failed to stat entry during removal", zap.String("path", path), zap.Error(err))
		return err
	}

	if dev, err := deviceOf(path); err == nil && dev != parentDev {
		// Crosses a mount boundary: try to unmount before descending.
		if err := syscall.Unmount(path, 0); err != nil {
			logger.Warn("failed to unmount before removal; attempting removal anyway",
				zap.String("path", path), zap.Error(err))
		}
	}

	if !fi.IsDir() {
		if err := os.Remove(path); err != nil {
			logger.Warn("failed to remove entry", zap.String("path", path), zap.Error(err))
			return err
		}
		return nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		logger.Warn("failed to read directory during removal", zap.String("path", path), zap.Error(err))
		return err
	}

	dev, derr := deviceOf(path)
	if derr != nil {
		dev = parentDev
	}

	var lastErr error
	for _, e := range entries {
		if err := removeTreeDev(path+"/"+e.Name(), dev, logger); err != nil {
			lastErr = err
		}
	}

	if err := os.Remove(path); err != nil {
		logger.Warn("failed to remove directory", zap.String("path", path), zap.Error(err))
		lastErr = err
	}
	return lastErr
}

func deviceOf(path string) (uint64, error) {
	var st syscall.Stat_t
	if err := syscall.Lstat(path, &st); err != nil {
		return 0, err
	}
	return uint64(st.Dev), nil
}
