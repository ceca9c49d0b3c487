// Package atfpath implements the canonical path representation used
// throughout the runner: every on-disk and on-wire reference to a test
// program, manifest, or working directory flows through a Path.
package atfpath

import (
	"errors"
	"os"
	"strings"
)

// ErrEmptyPath is returned by New when given an empty string.
var ErrEmptyPath = errors.New("atfpath: path cannot be empty")

// Path is a canonical, non-empty POSIX path: consecutive separators are
// collapsed and a trailing separator is stripped (except for the root path
// itself). The zero value is not a valid Path; always construct one with
// New.
type Path struct {
	s string
}

// New canonicalizes s into a Path. It fails with ErrEmptyPath if s is
// empty.
func New(s string) (Path, error) {
	if s == "" {
		return Path{}, ErrEmptyPath
	}
	return Path{s: canonicalize(s)}, nil
}

// MustNew is like New but panics on error. Intended for tests and literal
// paths known to be valid.
func MustNew(s string) Path {
	p, err := New(s)
	if err != nil {
		panic(err)
	}
	return p
}

func canonicalize(s string) string {
	abs := strings.HasPrefix(s, "/")

	parts := strings.Split(s, "/")
	var kept []string
	for _, p := range parts {
		if p == "" {
			continue
		}
		kept = append(kept, p)
	}

	if len(kept) == 0 {
		// s was "/", "//", etc.
		return "/"
	}

	joined := strings.Join(kept, "/")
	if abs {
		return "/" + joined
	}
	return joined
}

// String returns the canonical form of the path.
func (p Path) String() string {
	return p.s
}

// IsAbsolute reports whether the path starts at the filesystem root.
func (p Path) IsAbsolute() bool {
	return strings.HasPrefix(p.s, "/")
}

// IsRoot reports whether the path is exactly "/".
func (p Path) IsRoot() bool {
	return p.s == "/"
}

// Parent returns the path's parent directory: "." for bare names, "/" for
// any absolute path with exactly one component, otherwise everything
// before the last separator.
func (p Path) Parent() Path {
	if p.IsRoot() {
		return p
	}

	idx := strings.LastIndexByte(p.s, '/')
	switch {
	case idx < 0:
		// Bare name, e.g. "foo".
		return Path{s: "."}
	case idx == 0:
		// Single leading separator and no further separator, e.g. "/foo".
		return Path{s: "/"}
	default:
		return Path{s: p.s[:idx]}
	}
}

// Leaf returns everything after the last separator, or the whole path if
// it has none.
func (p Path) Leaf() string {
	idx := strings.LastIndexByte(p.s, '/')
	if idx < 0 {
		return p.s
	}
	return p.s[idx+1:]
}

// Join returns the canonical concatenation of p and sub. sub may itself be
// absolute, in which case its leading separators are folded into the join
// point (the result is still relative to p, matching the contract of
// path.join in the original implementation: join is a pure string
// operation, not a symlink-aware resolution).
func (p Path) Join(sub string) Path {
	trimmed := strings.TrimLeft(sub, "/")
	if trimmed == "" {
		return p
	}
	if p.s == "/" {
		return Path{s: canonicalize("/" + trimmed)}
	}
	return Path{s: canonicalize(p.s + "/" + trimmed)}
}

// ToAbsolute resolves p against the current working directory. If p is
// already absolute, it is returned unchanged (still canonicalized).
func (p Path) ToAbsolute() (Path, error) {
	if p.IsAbsolute() {
		return p, nil
	}
	wd, err := os.Getwd()
	if err != nil {
		return Path{}, err
	}
	wdPath, err := New(wd)
	if err != nil {
		return Path{}, err
	}
	return wdPath.Join(p.s), nil
}

// Equal reports byte-exact equality of the canonical forms.
func (p Path) Equal(other Path) bool {
	return p.s == other.s
}
