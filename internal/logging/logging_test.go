package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestSetLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)
	defer SetLevel(zapcore.InfoLevel)

	SetLevel(zapcore.InfoLevel)
	S().Debugw("should not appear")
	if strings.Contains(buf.String(), "should not appear") {
		t.Error("debug line appeared below configured level")
	}

	SetLevel(zapcore.DebugLevel)
	S().Debugw("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Error("debug line missing after raising level")
	}
}

func TestNewLoggerWritesToGivenSyncer(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(zapcore.AddSync(&buf))
	l.Info("hello from scoped logger")
	if !strings.Contains(buf.String(), "hello from scoped logger") {
		t.Errorf("expected message in output, got %q", buf.String())
	}
}
