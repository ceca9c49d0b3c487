package procexec

import (
	"context"
	"syscall"
	"time"

	"github.com/atf-go/atfrun/internal/killtree"
	"github.com/atf-go/atfrun/internal/stream"
)

// Disposition is the exit-status classification from spec §3 RunStatus /
// §4.5.
type Disposition struct {
	Kind       DispositionKind
	ExitCode   int
	Signal     syscall.Signal
	CoreDumped bool
}

type DispositionKind int

const (
	Exited DispositionKind = iota
	Signaled
	TimedOut
)

// WaitWithTimeout waits for the child, relaying its output through a
// stream.Muxer, until it exits or secs seconds elapse. secs == 0 means
// wait indefinitely (spec §4.5). On timeout, it kills the whole process
// tree rooted at the child before returning.
func (c *Child) WaitWithTimeout(ctx context.Context, secs int, onStdout, onStderr func(string)) (Disposition, error) {
	mux := &stream.Muxer{OnStdout: onStdout, OnStderr: onStderr}

	var deadline time.Time
	if secs > 0 {
		deadline = time.Now().Add(time.Duration(secs) * time.Second)
	}

	muxDone := make(chan struct{})
	var muxTimedOut bool
	var muxErr error
	go func() {
		defer close(muxDone)
		muxTimedOut, muxErr = mux.Run(ctx, c.StdoutPipe, c.StderrPipe, deadline)
	}()

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- c.cmd.Wait()
	}()

	select {
	case <-muxDone:
		if muxTimedOut {
			_, _ = killtree.KillTree(c.Pid(), syscall.SIGKILL)
			<-waitDone
			c.closeAll()
			return Disposition{Kind: TimedOut}, nil
		}
		// EOF on both pipes doesn't imply the process has exited yet;
		// fall through and wait for it below. muxErr, if any, is reported
		// to the caller as a best-effort annotation only: the executor's
		// own result reconciliation takes priority over a multiplexer
		// read error.
		werr := <-waitDone
		c.closeAll()
		return classify(c, werr), muxErr
	case werr := <-waitDone:
		// Child exited before the multiplexer noticed; still drain
		// whatever's buffered by waiting for the mux goroutine too.
		<-muxDone
		c.closeAll()
		return classify(c, werr), nil
	}
}

func classify(c *Child, waitErr error) Disposition {
	ps := c.cmd.ProcessState
	if ps == nil {
		return Disposition{Kind: Exited, ExitCode: -1}
	}
	ws, ok := ps.Sys().(syscall.WaitStatus)
	if !ok {
		return Disposition{Kind: Exited, ExitCode: ps.ExitCode()}
	}
	switch {
	case ws.Exited():
		return Disposition{Kind: Exited, ExitCode: ws.ExitStatus()}
	case ws.Signaled():
		return Disposition{Kind: Signaled, Signal: ws.Signal(), CoreDumped: ws.CoreDump()}
	default:
		return Disposition{Kind: Exited, ExitCode: ps.ExitCode()}
	}
}
