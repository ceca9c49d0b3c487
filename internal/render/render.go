// Package render prints a colorized, human-oriented progress ticker to
// stderr as a suite runs, grounded on the teacher's PrettyPrinter pattern
// (pkg/runner/local_exec.go) of tallying job outcomes live while the
// authoritative record goes elsewhere — here, to internal/transcript.
package render

import (
	"fmt"
	"io"
	"sync"

	"github.com/logrusorgru/aurora"
	"github.com/mitchellh/go-wordwrap"

	"github.com/atf-go/atfrun/internal/tcresult"
)

const wrapWidth = 78

// Printer implements internal/suite.Sink, writing one line per test-case
// completion plus a final tally. It never affects the transcript; a
// Printer and a transcript.Writer can both watch the same walk.
type Printer struct {
	w  io.Writer
	mu sync.Mutex

	curProgram string
	curCase    string

	passed  int
	failed  int
	skipped int

	// programErrors counts programs that never produced a single test
	// case - e.g. a broken -l listing - which is a framework-level
	// failure distinct from (and not reflected by) any test case's own
	// tally (spec §6: exit 1 "if ... the framework itself encountered an
	// unrecoverable error").
	programErrors int
}

// NewPrinter returns a Printer that writes to w (typically os.Stderr).
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

func (p *Printer) Info(key, value string) {}

func (p *Printer) Count(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.w, "%s %d test program(s)\n", aurora.Faint("running"), n)
}

func (p *Printer) StartProgram(path string, nCases int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.curProgram = path
	fmt.Fprintf(p.w, "%s %s (%d test case(s))\n", aurora.Bold(aurora.Blue(path)).String(), "-", nCases)
}

func (p *Printer) EndProgram(path string, reason string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if reason != "" {
		p.programErrors++
		fmt.Fprintf(p.w, "  %s %s\n", aurora.Red("error:").String(), wordwrap.WrapString(reason, wrapWidth))
	}
}

func (p *Printer) StartCase(ident string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.curCase = ident
}

func (p *Printer) Stdout(line string) {}

func (p *Printer) Stderr(line string) {}

func (p *Printer) EndCase(tcr tcresult.TCR) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var tag aurora.Value
	switch tcr.Status {
	case tcresult.Passed:
		p.passed++
		tag = aurora.Green("passed")
	case tcresult.Failed:
		p.failed++
		tag = aurora.Red("failed")
	case tcresult.Skipped:
		p.skipped++
		tag = aurora.Yellow("skipped")
	}

	fmt.Fprintf(p.w, "  %s: %s\n", p.curCase, tag)
	if tcr.Reason != "" {
		fmt.Fprintf(p.w, "    %s\n", wordwrap.WrapString(tcr.Reason, wrapWidth))
	}
}

// Summary writes the final one-line tally. Callers invoke it once the walk
// completes; it is not part of the Sink interface because it has no
// corresponding transcript event.
func (p *Printer) Summary() {
	p.mu.Lock()
	defer p.mu.Unlock()

	total := p.passed + p.failed + p.skipped
	fmt.Fprintf(p.w, "%s %d/%d passed", aurora.Bold("summary:").String(), p.passed, total)
	if p.failed > 0 {
		fmt.Fprintf(p.w, ", %s", aurora.Red(fmt.Sprintf("%d failed", p.failed)).String())
	}
	if p.skipped > 0 {
		fmt.Fprintf(p.w, ", %s", aurora.Yellow(fmt.Sprintf("%d skipped", p.skipped)).String())
	}
	fmt.Fprintln(p.w)
}

// Failed reports whether any test case failed or any program could not be
// listed at all, the condition the CLI uses to decide its process exit
// code.
func (p *Printer) Failed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failed > 0 || p.programErrors > 0
}
