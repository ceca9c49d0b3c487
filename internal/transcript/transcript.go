// Package transcript implements the tps streaming writer/reader (spec
// §4.10): the line-oriented report a run emits to stdout as it progresses.
package transcript

import (
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/atf-go/atfrun/internal/header"
	"github.com/atf-go/atfrun/internal/tcresult"
)

const (
	MediaType = "application/X-atf-tps"
	Version   = 3
)

// Writer emits a well-formed tps document. It satisfies internal/suite's
// Sink interface, so a suite.Walker can write directly to it; header.Writer's
// WriteBodyLine flushes after every line, giving the "writer flushes after
// each logical event" guarantee spec §4.10 requires.
type Writer struct {
	hw *header.Writer

	headerFlushed bool
	runID         string
	currentCase   string
}

// NewWriter wraps w and stamps the run with a fresh UUID, surfaced as the
// leading "info: run-id, <uuid>" line (AMBIENT STACK: github.com/google/uuid,
// mirroring the teacher's own per-run RunID).
func NewWriter(w io.Writer) *Writer {
	tw := &Writer{hw: header.NewWriter(w), runID: uuid.NewString()}
	return tw
}

func (tw *Writer) ensureHeader() error {
	if tw.headerFlushed {
		return nil
	}
	tw.headerFlushed = true
	tw.hw.WriteHeader(header.ContentTypeEntry(MediaType, Version))
	if err := tw.hw.Flush(); err != nil {
		return err
	}
	return tw.hw.WriteBodyLine(fmt.Sprintf("info: run-id, %s", tw.runID))
}

// Info writes an "info: <key>, <value>" line. Callers may emit these before
// Count (the only position spec §4.10 requires before tps-count) or after
// the last tp-end (trailing info lines).
func (tw *Writer) Info(key, value string) {
	_ = tw.ensureHeader()
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("info: %s, %s", key, value))
}

// Count writes the mandatory "tps-count: <N>" line.
func (tw *Writer) Count(n int) {
	_ = tw.ensureHeader()
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tps-count: %d", n))
}

func (tw *Writer) StartProgram(path string, nCases int) {
	_ = tw.ensureHeader()
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tp-start: %s, %d", path, nCases))
}

func (tw *Writer) EndProgram(path string, reason string) {
	_ = tw.ensureHeader()
	if reason == "" {
		_ = tw.hw.WriteBodyLine(fmt.Sprintf("tp-end: %s", path))
		return
	}
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tp-end: %s, %s", path, reason))
}

func (tw *Writer) StartCase(ident string) {
	_ = tw.ensureHeader()
	tw.currentCase = ident
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-start: %s", ident))
}

func (tw *Writer) Stdout(line string) {
	_ = tw.ensureHeader()
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-so: %s", line))
}

func (tw *Writer) Stderr(line string) {
	_ = tw.ensureHeader()
	_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-se: %s", line))
}

// EndCase writes the final verdict line for the case most recently started
// by StartCase. tcr.Reason must not contain embedded newlines;
// internal/tcresult already collapses them on construction, so this is an
// invariant, not a check.
func (tw *Writer) EndCase(tcr tcresult.TCR) {
	_ = tw.ensureHeader()
	switch tcr.Status {
	case tcresult.Passed:
		_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-end: %s, passed", tw.currentCase))
	case tcresult.Failed:
		_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-end: %s, failed, %s", tw.currentCase, tcr.Reason))
	case tcresult.Skipped:
		_ = tw.hw.WriteBodyLine(fmt.Sprintf("tc-end: %s, skipped, %s", tw.currentCase, tcr.Reason))
	}
}
