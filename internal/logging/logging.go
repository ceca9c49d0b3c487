// Package logging provides the process-wide zap logger, reconstructed from
// the call-site contract main.go and every pkg/* collaborator use against
// it (logging.S(), logging.SetLevel(), logging.NewLogger()) in the teacher
// repo, whose own pkg/logging package fell outside the retrieval pack.
package logging

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.Mutex
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger = buildLogger()
)

func buildLogger() *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(zapcore.AddSync(stderrWriter{})), level)
	return zap.New(core)
}

// stderrWriter defers to the actual os.Stderr at write time so tests can
// swap SetOutput without racing logger construction.
type stderrWriter struct{}

func (stderrWriter) Write(p []byte) (int, error) {
	mu.Lock()
	w := output
	mu.Unlock()
	return w.Write(p)
}

var output io.Writer = os.Stderr

// SetLevel adjusts the minimum level every logger returned by L/S emits,
// matching main.go's -v/LOG_LEVEL precedence chain.
func SetLevel(l zapcore.Level) {
	level.SetLevel(l)
}

// L returns the process-wide structured logger.
func L() *zap.Logger {
	mu.Lock()
	defer mu.Unlock()
	return logger
}

// S returns the process-wide sugared logger, used throughout the codebase
// for the Infow/Errorw/Debugw convenience API.
func S() *zap.SugaredLogger {
	return L().Sugar()
}

// NewLogger builds a standalone logger writing to w at the current level,
// for request-scoped loggers that need their own WriteSyncer (for example
// one tagged with a run ID) without disturbing the process-wide logger.
func NewLogger(w zapcore.WriteSyncer) *zap.Logger {
	encoderCfg := zap.NewDevelopmentEncoderConfig()
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), w, level)
	return zap.New(core)
}

// SetOutput redirects the process-wide logger's destination; tests use
// this to capture output instead of writing to the real stderr.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
}
