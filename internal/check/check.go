// Package check implements the atf-check utility's status/stream spec
// matching (spec §6), grounded on original_source/atf-c++/check.cpp's
// run_status_check/run_stdout_check/run_stderr_check, generalized per
// spec.md's richer grammar (adds "empty" and "match:<regex>").
package check

import (
	"bytes"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
)

// StatusKind is the action half of a status spec ("eq:N", "ne:N", "ignore").
type StatusKind int

const (
	StatusEQ StatusKind = iota
	StatusNE
	StatusIgnore
)

// StatusSpec is one parsed "-s" argument.
type StatusSpec struct {
	Kind  StatusKind
	Value int
}

// ParseStatusSpec parses one "-s" argument: "eq:N", "ne:N", or "ignore".
func ParseStatusSpec(s string) (StatusSpec, error) {
	if s == "ignore" {
		return StatusSpec{Kind: StatusIgnore}, nil
	}

	action, rest, found := strings.Cut(s, ":")
	if !found {
		return StatusSpec{}, fmt.Errorf("check: invalid status spec %q: expected eq:N, ne:N, or ignore", s)
	}

	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 || n > 255 {
		return StatusSpec{}, fmt.Errorf("check: invalid status spec %q: value must be an integer in range 0-255", s)
	}

	switch action {
	case "eq":
		return StatusSpec{Kind: StatusEQ, Value: n}, nil
	case "ne":
		return StatusSpec{Kind: StatusNE, Value: n}, nil
	default:
		return StatusSpec{}, fmt.Errorf("check: invalid status spec %q: action must be eq or ne", s)
	}
}

// Check reports whether actual satisfies the spec; a non-nil error is the
// user-facing diagnostic atf-check prints to stderr on failure.
func (s StatusSpec) Check(actual int) error {
	switch s.Kind {
	case StatusIgnore:
		return nil
	case StatusEQ:
		if actual != s.Value {
			return fmt.Errorf("expected exit status %d but got %d", s.Value, actual)
		}
		return nil
	case StatusNE:
		if actual == s.Value {
			return fmt.Errorf("expected exit status other than %d", s.Value)
		}
		return nil
	default:
		return fmt.Errorf("check: unknown status spec kind %d", s.Kind)
	}
}

// StreamKind is the action half of a stream spec ("-o"/"-e" argument).
type StreamKind int

const (
	StreamIgnore StreamKind = iota
	StreamEmpty
	StreamInline
	StreamFile
	StreamMatch
	StreamSave
)

// StreamSpec is one parsed "-o" or "-e" argument.
type StreamSpec struct {
	Kind StreamKind
	Arg  string
}

// ParseStreamSpec parses one "-o"/"-e" argument: "ignore", "empty",
// "inline:<bytes>", "file:<path>", "match:<regex>", or "save:<path>".
func ParseStreamSpec(s string) (StreamSpec, error) {
	if s == "ignore" {
		return StreamSpec{Kind: StreamIgnore}, nil
	}
	if s == "empty" {
		return StreamSpec{Kind: StreamEmpty}, nil
	}

	action, rest, found := strings.Cut(s, ":")
	if !found {
		return StreamSpec{}, fmt.Errorf("check: invalid stream spec %q", s)
	}

	switch action {
	case "inline":
		return StreamSpec{Kind: StreamInline, Arg: rest}, nil
	case "file":
		return StreamSpec{Kind: StreamFile, Arg: rest}, nil
	case "match":
		if _, err := regexp.Compile(rest); err != nil {
			return StreamSpec{}, fmt.Errorf("check: invalid regexp in %q: %w", s, err)
		}
		return StreamSpec{Kind: StreamMatch, Arg: rest}, nil
	case "save":
		return StreamSpec{Kind: StreamSave, Arg: rest}, nil
	default:
		return StreamSpec{}, fmt.Errorf("check: invalid stream spec %q", s)
	}
}

// Check reads the captured stream content from actualPath and evaluates the
// spec against it. label is "stdout" or "stderr", used only in diagnostics.
// A StreamSave spec always succeeds and instead copies actualPath's content
// to s.Arg as a side effect.
func (s StreamSpec) Check(label, actualPath string) error {
	switch s.Kind {
	case StreamIgnore:
		return nil

	case StreamEmpty:
		fi, err := os.Stat(actualPath)
		if err != nil {
			return err
		}
		if fi.Size() != 0 {
			return fmt.Errorf("command's %s was not empty", label)
		}
		return nil

	case StreamInline:
		got, err := os.ReadFile(actualPath)
		if err != nil {
			return err
		}
		if string(got) != s.Arg {
			return fmt.Errorf("command's %s and %q differ", label, s.Arg)
		}
		return nil

	case StreamFile:
		got, err := os.ReadFile(actualPath)
		if err != nil {
			return err
		}
		want, err := os.ReadFile(s.Arg)
		if err != nil {
			return err
		}
		if !bytes.Equal(got, want) {
			return fmt.Errorf("command's %s and file %q differ", label, s.Arg)
		}
		return nil

	case StreamMatch:
		got, err := os.ReadFile(actualPath)
		if err != nil {
			return err
		}
		re := regexp.MustCompile(s.Arg)
		if !re.Match(got) {
			return fmt.Errorf("command's %s does not match %q", label, s.Arg)
		}
		return nil

	case StreamSave:
		got, err := os.ReadFile(actualPath)
		if err != nil {
			return err
		}
		return os.WriteFile(s.Arg, got, 0644)

	default:
		return fmt.Errorf("check: unknown stream spec kind %d", s.Kind)
	}
}

// Verdict aggregates every status/stdout/stderr spec for one invocation.
// All specs must pass for the command to be considered a success, matching
// spec §6: "Multiple specs may be given; all must hold for success."
type Verdict struct {
	Status []StatusSpec
	Stdout []StreamSpec
	Stderr []StreamSpec
}

// WithDefaults fills in the implicit defaults atf-check applies when a
// stream or the status was never given an explicit spec: exit status must
// be 0, and stdout/stderr must be empty.
func (v Verdict) WithDefaults() Verdict {
	if len(v.Status) == 0 {
		v.Status = []StatusSpec{{Kind: StatusEQ, Value: 0}}
	}
	if len(v.Stdout) == 0 {
		v.Stdout = []StreamSpec{{Kind: StreamEmpty}}
	}
	if len(v.Stderr) == 0 {
		v.Stderr = []StreamSpec{{Kind: StreamEmpty}}
	}
	return v
}

// Evaluate runs every configured spec against the command's actual exit
// code and captured stdout/stderr files, returning every failure
// encountered (not just the first) so the caller can report them all.
func (v Verdict) Evaluate(exitCode int, stdoutPath, stderrPath string) []error {
	var errs []error
	for _, s := range v.Status {
		if err := s.Check(exitCode); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range v.Stdout {
		if err := s.Check("stdout", stdoutPath); err != nil {
			errs = append(errs, err)
		}
	}
	for _, s := range v.Stderr {
		if err := s.Check("stderr", stderrPath); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
