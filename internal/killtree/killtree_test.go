package killtree

import (
	"os/exec"
	"syscall"
	"testing"
	"time"
)

type fakeEnumerator struct {
	children map[int][]int
}

func (f fakeEnumerator) CanEnumerate() bool { return true }

func (f fakeEnumerator) ChildrenOf(pid int) ([]int, error) {
	return f.children[pid], nil
}

func startSleeper(t *testing.T) *exec.Cmd {
	t.Helper()
	cmd := exec.Command("/bin/sh", "-c", "exec sleep 30")
	if err := cmd.Start(); err != nil {
		t.Fatalf("failed to start sleeper: %v", err)
	}
	return cmd
}

func waitExited(t *testing.T, cmd *exec.Cmd) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("pid %d did not exit after being killed", cmd.Process.Pid)
	}
}

func TestKillTreeWithKillsRootAndDiscoveredChildren(t *testing.T) {
	root := startSleeper(t)
	child := startSleeper(t)

	enum := fakeEnumerator{children: map[int][]int{
		root.Process.Pid:  {child.Process.Pid},
		child.Process.Pid: {},
	}}

	errs, err := KillTreeWith(enum, root.Process.Pid, syscall.SIGKILL)
	if err != nil {
		t.Fatalf("KillTreeWith: %v", err)
	}
	for _, e := range errs {
		t.Logf("non-fatal: %s", e.String())
	}

	waitExited(t, root)
	waitExited(t, child)
}

func TestKillTreeWithUnsupportedEnumeratorOnlyKillsRoot(t *testing.T) {
	root := startSleeper(t)

	errs, err := KillTreeWith(unsupportedEnumerator{}, root.Process.Pid, syscall.SIGKILL)
	if err != nil {
		t.Fatalf("KillTreeWith: %v", err)
	}
	if len(errs) == 0 {
		t.Fatal("expected a diagnostic noting the unsupported platform")
	}
	found := false
	for _, e := range errs {
		if e.Pid == root.Process.Pid {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a diagnostic mentioning pid %d, got %+v", root.Process.Pid, errs)
	}

	waitExited(t, root)
}

func TestKillTreeWithNonKillSignalSendsContAfterward(t *testing.T) {
	root := startSleeper(t)
	defer func() { _ = root.Process.Kill(); _ = root.Wait() }()

	enum := fakeEnumerator{children: map[int][]int{root.Process.Pid: {}}}

	errs, err := KillTreeWith(enum, root.Process.Pid, syscall.SIGTERM)
	if err != nil {
		t.Fatalf("KillTreeWith: %v", err)
	}
	for _, e := range errs {
		t.Logf("non-fatal: %s", e.String())
	}

	waitExited(t, root)
}
