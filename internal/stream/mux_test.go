package stream

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"
)

func newPipePair(t *testing.T) (outR, outW, errR, errW *os.File) {
	t.Helper()
	var err error
	outR, outW, err = os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	errR, errW, err = os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	return
}

func TestMuxerDeliversLinesFromBothStreams(t *testing.T) {
	outR, outW, errR, errW := newPipePair(t)

	var mu sync.Mutex
	var outLines, errLines []string
	m := &Muxer{
		OnStdout: func(line string) { mu.Lock(); outLines = append(outLines, line); mu.Unlock() },
		OnStderr: func(line string) { mu.Lock(); errLines = append(errLines, line); mu.Unlock() },
	}

	go func() {
		outW.WriteString("out one\nout two\n")
		outW.Close()
	}()
	go func() {
		errW.WriteString("err one\n")
		errW.Close()
	}()

	timedOut, err := m.Run(context.Background(), outR, errR, time.Time{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if timedOut {
		t.Error("did not expect a timeout")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(outLines) != 2 || outLines[0] != "out one" || outLines[1] != "out two" {
		t.Errorf("got stdout lines %+v", outLines)
	}
	if len(errLines) != 1 || errLines[0] != "err one" {
		t.Errorf("got stderr lines %+v", errLines)
	}
}

func TestMuxerFlushesResidualPartialLineOnEOF(t *testing.T) {
	outR, outW, errR, errW := newPipePair(t)
	errW.Close()

	var residual string
	m := &Muxer{
		OnStdout: func(line string) { residual = line },
		OnStderr: func(string) {},
	}

	go func() {
		outW.WriteString("no trailing newline")
		outW.Close()
	}()

	if _, err := m.Run(context.Background(), outR, errR, time.Time{}); err != nil {
		t.Fatal(err)
	}
	if residual != "no trailing newline" {
		t.Errorf("got %q", residual)
	}
}

func TestMuxerReportsDeadlineElapsed(t *testing.T) {
	outR, outW, errR, errW := newPipePair(t)
	defer outW.Close()
	defer errW.Close()

	m := &Muxer{OnStdout: func(string) {}, OnStderr: func(string) {}}
	timedOut, err := m.Run(context.Background(), outR, errR, time.Now().Add(-time.Second))
	if err != nil {
		t.Fatal(err)
	}
	if !timedOut {
		t.Error("expected timedOut=true for an already-elapsed deadline")
	}
}

func TestMuxerHonorsContextCancellation(t *testing.T) {
	outR, outW, errR, errW := newPipePair(t)
	defer outW.Close()
	defer errW.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := &Muxer{OnStdout: func(string) {}, OnStderr: func(string) {}}
	_, err := m.Run(ctx, outR, errR, time.Time{})
	if err == nil {
		t.Error("expected an error from an already-cancelled context")
	}
}
