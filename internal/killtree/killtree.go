// Package killtree implements recursive process-tree termination (spec
// §4.7), grounded closely on original_source/atf/procs.cpp's
// pid_grabber/kill_tree algorithm: stop the root first so it cannot spawn
// further children mid-traversal, recurse into its current children, then
// deliver the real signal.
package killtree

import (
	"fmt"
	"syscall"
)

// PidError pairs a pid with a diagnostic message, for the non-fatal
// reporting spec §4.7 step 5 describes.
type PidError struct {
	Pid     int
	Message string
}

func (e PidError) String() string {
	return fmt.Sprintf("pid %d: %s", e.Pid, e.Message)
}

// ChildEnumerator lists the direct children of a pid. It is the
// three-tier strategy interface named in spec §9 Design Notes: an
// in-kernel process-info API, a /proc-based fallback, or an
// "unsupported platform" stub.
type ChildEnumerator interface {
	// CanEnumerate reports whether this strategy can be used at all on
	// the current platform.
	CanEnumerate() bool
	// ChildrenOf returns the direct child pids of pid.
	ChildrenOf(pid int) ([]int, error)
}

// defaultEnumerator is resolved once at package init to the best
// available strategy: gopsutil first, then a hand-rolled /proc walk, then
// the unsupported stub.
var defaultEnumerator = resolveEnumerator()

func resolveEnumerator() ChildEnumerator {
	if e := (gopsutilEnumerator{}); e.CanEnumerate() {
		return e
	}
	if e := (procfsEnumerator{}); e.CanEnumerate() {
		return e
	}
	return unsupportedEnumerator{}
}

// KillTree terminates root and every descendant it can discover, using
// the package's default ChildEnumerator.
func KillTree(root int, signal syscall.Signal) ([]PidError, error) {
	return KillTreeWith(defaultEnumerator, root, signal)
}

// KillTreeWith is KillTree with an explicit enumerator, for tests.
func KillTreeWith(pg ChildEnumerator, root int, signal syscall.Signal) ([]PidError, error) {
	var errs []PidError

	if !pg.CanEnumerate() {
		errs = append(errs, PidError{
			Pid:     root,
			Message: "only killing this process because this platform is currently unsupported for subtree kill",
		})
		trySignal(root, syscall.SIGKILL, &errs)
		return errs, nil
	}

	if !trySignal(root, syscall.SIGSTOP, &errs) {
		errs = append(errs, PidError{Pid: root, Message: "some children may not be killed"})
	}

	children, err := pg.ChildrenOf(root)
	if err != nil {
		errs = append(errs, PidError{Pid: root, Message: fmt.Sprintf("failed to enumerate children: %v", err)})
	}

	for _, child := range children {
		childErrs, _ := KillTreeWith(pg, child, signal)
		errs = append(errs, childErrs...)
	}

	if signal == syscall.SIGKILL {
		trySignal(root, signal, &errs)
	} else {
		// Deliver the target signal, then SIGCONT so the stopped process
		// resumes and acts on it.
		trySignal(root, signal, &errs)
		trySignal(root, syscall.SIGCONT, &errs)
	}

	return errs, nil
}

func trySignal(pid int, signal syscall.Signal, errs *[]PidError) bool {
	if err := syscall.Kill(pid, signal); err != nil {
		*errs = append(*errs, PidError{Pid: pid, Message: fmt.Sprintf("kill(%d, %d) failed: %v", pid, signal, err)})
		return false
	}
	return true
}
