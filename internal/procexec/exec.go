package procexec

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

// Options configures one child invocation.
type Options struct {
	Binary  string
	Argv    []string // argv[0] is Binary by convention; Argv excludes it
	WorkDir string

	Stdin  StreamSpec
	Stdout StreamSpec
	Stderr StreamSpec

	// Env is the base environment; Spawn sanitizes it per spec §4.5: HOME
	// is set to WorkDir, LANG/LC_*/TZ are removed.
	Env []string
}

// Child wraps a running (or exited) process.
type Child struct {
	cmd *exec.Cmd

	StdoutPipe *os.File // non-nil iff Stdout.Kind == Capture
	StderrPipe *os.File // non-nil iff Stderr.Kind == Capture

	closers []func() error
}

// Pid returns the child's process group leader pid.
func (c *Child) Pid() int {
	if c.cmd.Process == nil {
		return -1
	}
	return c.cmd.Process.Pid
}

// Spawn forks and execs Binary with the given options. The child is placed
// in its own process group (setpgid(0, 0)) so the parent can signal the
// whole subtree via internal/killtree; its umask is reset to 022 and its
// locale variables are stripped before the real binary replaces the
// bootstrap shell (see sanitizeEnv and the umask comment below).
func Spawn(opts Options) (*Child, error) {
	// Go's os/exec has no pre-exec hook for raw fork+exec tweaks like
	// umask(2), which is a process attribute that is NOT reset by exec(2)
	// and therefore must be set before the target binary replaces the
	// current image. We get this, plus the "reset signal dispositions to
	// default" requirement, for free by bootstrapping through a tiny shell
	// that resets traps and the umask before exec'ing the real binary -
	// the same indirection idiomatic Go programs use when they need a
	// pre-exec step the os/exec API doesn't expose directly.
	shellArgv := append([]string{opts.Binary}, opts.Argv...)
	script := `trap - INT TERM QUIT HUP PIPE USR1 USR2; umask 022; exec "$@"`
	cmd := exec.Command("/bin/sh", append([]string{"-c", script, "--"}, shellArgv...)...)

	cmd.Dir = opts.WorkDir
	cmd.Env = sanitizeEnv(opts.Env, opts.WorkDir)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	child := &Child{cmd: cmd}

	// afterStart collects the parent's copy of whichever pipe end the
	// child now owns a dup of - e.g. the write end of a captured
	// stdout/stderr pipe. Those must close right after fork+exec, not at
	// closeAll time: if the parent keeps them open, the read end it
	// retains for the muxer never sees EOF and WaitWithTimeout hangs
	// forever waiting for a stream that can never drain.
	var afterStart []func() error

	if err := wireStream(cmd, opts.Stdin, &child.StdoutPipe, streamStdin, &child.closers, &afterStart); err != nil {
		return nil, err
	}
	if err := wireStream(cmd, opts.Stdout, &child.StdoutPipe, streamStdout, &child.closers, &afterStart); err != nil {
		return nil, err
	}
	if err := wireStream(cmd, opts.Stderr, &child.StderrPipe, streamStderr, &child.closers, &afterStart); err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		child.closeAll()
		closeEach(afterStart)
		return nil, fmt.Errorf("procexec: spawn %s: %w", opts.Binary, err)
	}

	closeEach(afterStart)

	return child, nil
}

func closeEach(closers []func() error) {
	for _, cl := range closers {
		_ = cl()
	}
}

type streamDirection int

const (
	streamStdin streamDirection = iota
	streamStdout
	streamStderr
)

func wireStream(cmd *exec.Cmd, spec StreamSpec, capturedFile **os.File, dir streamDirection, closers, afterStart *[]func() error) error {
	switch spec.Kind {
	case Inherit:
		switch dir {
		case streamStdin:
			cmd.Stdin = os.Stdin
		case streamStdout:
			cmd.Stdout = os.Stdout
		case streamStderr:
			cmd.Stderr = os.Stderr
		}
		return nil

	case Capture:
		// A plain os.Pipe gives the parent direct control of the read end,
		// which internal/stream needs for its poll-based multiplexer;
		// cmd.StdoutPipe()/StderrPipe() wrap that same pattern but close
		// the read end on Wait, too early for our use. Whichever end the
		// child now holds a dup of must be closed in the parent right
		// after Start, and whichever end the parent keeps for itself must
		// be closed once the case is done with it.
		pr, pw, err := os.Pipe()
		if err != nil {
			return err
		}
		switch dir {
		case streamStdin:
			cmd.Stdin = pr
			*afterStart = append(*afterStart, pr.Close)
			*closers = append(*closers, pw.Close)
		case streamStdout:
			cmd.Stdout = pw
			*capturedFile = pr
			*afterStart = append(*afterStart, pw.Close)
			*closers = append(*closers, pr.Close)
		case streamStderr:
			cmd.Stderr = pw
			*capturedFile = pr
			*afterStart = append(*afterStart, pw.Close)
			*closers = append(*closers, pr.Close)
		}
		return nil

	case RedirectToFd:
		f := os.NewFile(uintptr(spec.Fd), fmt.Sprintf("fd%d", spec.Fd))
		switch dir {
		case streamStdin:
			cmd.Stdin = f
		case streamStdout:
			cmd.Stdout = f
		case streamStderr:
			cmd.Stderr = f
		}
		return nil

	case RedirectToPath:
		var f *os.File
		var err error
		if dir == streamStdin {
			f, err = os.Open(spec.Path)
		} else {
			f, err = os.OpenFile(spec.Path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
		}
		if err != nil {
			return err
		}
		switch dir {
		case streamStdin:
			cmd.Stdin = f
		case streamStdout:
			cmd.Stdout = f
		case streamStderr:
			cmd.Stderr = f
		}
		*closers = append(*closers, f.Close)
		return nil
	}
	return fmt.Errorf("procexec: unknown stream kind %d", spec.Kind)
}

func (c *Child) closeAll() {
	for _, cl := range c.closers {
		_ = cl()
	}
}

// sanitizeEnv implements spec §4.5's environment rule: HOME is set to
// workDir; LANG, LC_*, and TZ are removed to make tests locale
// independent.
func sanitizeEnv(base []string, workDir string) []string {
	out := make([]string, 0, len(base)+1)
	for _, kv := range base {
		name := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			name = kv[:idx]
		}
		if name == "HOME" || name == "TZ" || name == "LANG" || strings.HasPrefix(name, "LC_") {
			continue
		}
		out = append(out, kv)
	}
	out = append(out, "HOME="+workDir)
	return out
}
