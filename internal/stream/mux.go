// Package stream implements the two-pipe stdout/stderr multiplexer (spec
// §4.4): a single-threaded, readiness-polling loop that segments each
// descriptor into lines without starving the other.
package stream

import (
	"context"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// readChunk bounds how much is read from a single descriptor between
// yields, so the multiplexer can never starve the other one (spec §4.4
// "Back-pressure").
const readChunk = 64 * 1024

// pollQuantum bounds how long a single poll(2) call blocks, so the loop can
// periodically check ctx.Done() even while genuinely idle.
const pollQuantum = 200 * time.Millisecond

// Muxer reads two pipes to completion, delivering whole lines to the
// corresponding callback as they arrive.
type Muxer struct {
	OnStdout func(line string)
	OnStderr func(line string)
}

type descriptor struct {
	file   *os.File
	buf    strings.Builder
	onLine func(string)
	closed bool
}

// Run drains outFile and errFile until both reach EOF, a deadline elapses,
// or ctx is cancelled. deadline may be the zero time, meaning no timeout.
// It reports whether the deadline was the reason for returning.
func (m *Muxer) Run(ctx context.Context, outFile, errFile *os.File, deadline time.Time) (timedOut bool, err error) {
	descs := []*descriptor{
		{file: outFile, onLine: m.OnStdout},
		{file: errFile, onLine: m.OnStderr},
	}
	// A nil file means that stream isn't captured (e.g. it was inherited
	// instead); mark it closed up front so it's never polled or
	// dereferenced.
	for _, d := range descs {
		if d.file == nil {
			d.closed = true
		}
	}

	for {
		open := openDescriptors(descs)
		if len(open) == 0 {
			return false, nil
		}

		select {
		case <-ctx.Done():
			drain(open)
			return false, ctx.Err()
		default:
		}

		if !deadline.IsZero() && !time.Now().Before(deadline) {
			return true, nil
		}

		timeoutMs := int(pollQuantum / time.Millisecond)
		if !deadline.IsZero() {
			remaining := time.Until(deadline)
			if remaining < pollQuantum {
				if ms := int(remaining / time.Millisecond); ms < timeoutMs {
					timeoutMs = ms
				}
			}
		}
		if timeoutMs < 0 {
			timeoutMs = 0
		}

		fds := make([]unix.PollFd, len(open))
		for i, d := range open {
			fds[i] = unix.PollFd{Fd: int32(d.file.Fd()), Events: unix.POLLIN}
		}

		n, perr := unix.Poll(fds, timeoutMs)
		if perr != nil {
			if perr == unix.EINTR {
				continue
			}
			return false, perr
		}
		if n == 0 {
			continue // timed out this quantum; loop to re-check ctx/deadline
		}

		for i, d := range open {
			if fds[i].Revents&(unix.POLLIN|unix.POLLHUP|unix.POLLERR) == 0 {
				continue
			}
			if readOnce(d) {
				// EOF: flush residual and stop polling this descriptor.
				d.closed = true
			}
		}
	}
}

func openDescriptors(descs []*descriptor) []*descriptor {
	var open []*descriptor
	for _, d := range descs {
		if !d.closed {
			open = append(open, d)
		}
	}
	return open
}

// readOnce reads up to readChunk bytes, emitting complete lines. It
// returns true if the descriptor reached EOF (after flushing any residual
// partial line, per spec §4.4).
func readOnce(d *descriptor) bool {
	buf := make([]byte, readChunk)
	n, err := d.file.Read(buf)
	if n > 0 {
		d.buf.Write(buf[:n])
		emitLines(d)
	}
	if err != nil {
		if residual := d.buf.String(); residual != "" {
			d.onLine(residual)
			d.buf.Reset()
		}
		return true
	}
	return false
}

func emitLines(d *descriptor) {
	full := d.buf.String()
	for {
		idx := indexByte(full, '\n')
		if idx < 0 {
			break
		}
		d.onLine(full[:idx])
		full = full[idx+1:]
	}
	d.buf.Reset()
	d.buf.WriteString(full)
}

func indexByte(s string, b byte) int {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return i
		}
	}
	return -1
}

// drain reads whatever is immediately available from each descriptor
// without blocking, per spec §4.4 cancellation semantics. It puts each fd
// in non-blocking mode for the duration of the drain so a read with no
// data ready returns EAGAIN instead of stalling on a child that is still
// alive.
func drain(open []*descriptor) {
	for _, d := range open {
		fd := int(d.file.Fd())
		_ = unix.SetNonblock(fd, true)
		for {
			buf := make([]byte, readChunk)
			n, err := unix.Read(fd, buf)
			if n > 0 {
				d.buf.Write(buf[:n])
				emitLines(d)
			}
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			if err != nil || n == 0 {
				break
			}
		}
		if residual := d.buf.String(); residual != "" {
			d.onLine(residual)
			d.buf.Reset()
		}
	}
}
