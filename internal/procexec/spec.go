// Package procexec implements the child-process driver (spec §4.5):
// fork+exec with a pre-configured environment, process group isolation,
// and exit-status classification.
package procexec

// StreamKind selects how a child's stdin/stdout/stderr is wired.
type StreamKind int

const (
	// Inherit passes the parent's descriptor through unchanged.
	Inherit StreamKind = iota
	// Capture creates a pipe; the parent keeps the read (for stdout/stderr)
	// or write (for stdin) end.
	Capture
	// RedirectToFd dup2()s the given parent fd into the child.
	RedirectToFd
	// RedirectToPath opens Path read (for stdin) or write (for
	// stdout/stderr) in the child.
	RedirectToPath
)

// StreamSpec describes how one of the child's standard streams is wired.
type StreamSpec struct {
	Kind StreamKind
	Fd   int    // RedirectToFd
	Path string // RedirectToPath
}

var (
	InheritSpec = StreamSpec{Kind: Inherit}
	CaptureSpec = StreamSpec{Kind: Capture}
)

func RedirectToFdSpec(fd int) StreamSpec {
	return StreamSpec{Kind: RedirectToFd, Fd: fd}
}

func RedirectToPathSpec(path string) StreamSpec {
	return StreamSpec{Kind: RedirectToPath, Path: path}
}
