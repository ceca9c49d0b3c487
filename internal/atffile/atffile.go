// Package atffile parses the per-directory Atffile manifest (spec §4.3):
// test-program references, suite-scoped configuration variables, and the
// mandatory test-suite property.
package atffile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/atf-go/atfrun/internal/header"
)

const (
	MediaType = "application/X-atf-atffile"
	Version   = 1
)

// ErrMissingTestSuite is returned when EOF is reached without a
// "test-suite" property having been declared.
var ErrMissingTestSuite = errors.New("atffile: missing mandatory test-suite property")

// EventKind discriminates the streaming events the body parser emits, in
// place of the original's subclassed got_* callbacks (spec §9 Design
// Notes).
type EventKind int

const (
	EventComment EventKind = iota
	EventConf
	EventProp
	EventTp
	EventTpGlob
)

// Event is one parsed body line.
type Event struct {
	Kind    EventKind
	Comment string // EventComment
	Name    string // EventConf, EventProp
	Value   string // EventConf, EventProp
	TP      string // EventTp (literal name), EventTpGlob (pattern)
}

// Globber resolves a tp-glob pattern against the executable entries of the
// manifest's directory. This is the "file-globbing of manifest entries"
// external collaborator named as a non-goal in spec §1; the core treats
// whatever it returns the same as literal tp entries.
type Globber func(pattern string) ([]string, error)

// Manifest is the parsed representation of an Atffile.
type Manifest struct {
	TestSuite    string
	Conf         map[string]string
	Props        map[string]string
	TestPrograms []string // resolved: literal tp names plus every tp-glob match
	Events       []Event  // preserved in source order for round-trip writing
}

// Parse reads a complete Atffile from r. glob may be nil if the manifest
// is known to contain no tp-glob entries; a nil glob encountering a
// tp-glob line is a FormatError.
func Parse(r io.Reader, glob Globber) (*Manifest, error) {
	hr := header.NewReader(r, MediaType, Version)
	if _, err := hr.ReadHeaders(); err != nil {
		return nil, err
	}

	m := &Manifest{
		Conf:  map[string]string{},
		Props: map[string]string{},
	}

	var errs *multierror.Error
	scanner := bufio.NewScanner(hr.Body())
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "#"):
			m.Events = append(m.Events, Event{Kind: EventComment, Comment: trimmed})
		case strings.HasPrefix(trimmed, "conf:"):
			name, value, err := parseAssignment(trimmed[len("conf:"):])
			if err != nil {
				errs = multierror.Append(errs, lineErr(lineNo, err))
				continue
			}
			m.Conf[name] = value
			m.Events = append(m.Events, Event{Kind: EventConf, Name: name, Value: value})
		case strings.HasPrefix(trimmed, "prop:"):
			name, value, err := parseAssignment(trimmed[len("prop:"):])
			if err != nil {
				errs = multierror.Append(errs, lineErr(lineNo, err))
				continue
			}
			m.Props[name] = value
			if name == "test-suite" {
				m.TestSuite = value
			}
			m.Events = append(m.Events, Event{Kind: EventProp, Name: name, Value: value})
		case strings.HasPrefix(trimmed, "tp-glob:"):
			pattern := strings.TrimSpace(trimmed[len("tp-glob:"):])
			if pattern == "" {
				errs = multierror.Append(errs, lineErr(lineNo, errors.New("tp-glob requires a pattern")))
				continue
			}
			if glob == nil {
				errs = multierror.Append(errs, lineErr(lineNo, errors.New("tp-glob present but no glob resolver configured")))
				continue
			}
			names, err := glob(pattern)
			if err != nil {
				errs = multierror.Append(errs, lineErr(lineNo, err))
				continue
			}
			m.TestPrograms = append(m.TestPrograms, names...)
			m.Events = append(m.Events, Event{Kind: EventTpGlob, TP: pattern})
		case strings.HasPrefix(trimmed, "tp:"):
			name := strings.TrimSpace(trimmed[len("tp:"):])
			if name == "" {
				errs = multierror.Append(errs, lineErr(lineNo, errors.New("tp requires a name")))
				continue
			}
			m.TestPrograms = append(m.TestPrograms, name)
			m.Events = append(m.Events, Event{Kind: EventTp, TP: name})
		default:
			errs = multierror.Append(errs, lineErr(lineNo, fmt.Errorf("unrecognized manifest line %q", trimmed)))
		}
	}
	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := errs.ErrorOrNil(); err != nil {
		return m, err
	}

	if m.TestSuite == "" {
		return m, ErrMissingTestSuite
	}

	return m, nil
}

func parseAssignment(rest string) (name, value string, err error) {
	idx := strings.IndexByte(rest, '=')
	if idx < 0 {
		return "", "", fmt.Errorf("malformed assignment %q: expected name = value", strings.TrimSpace(rest))
	}
	name = strings.TrimSpace(rest[:idx])
	value = strings.TrimSpace(rest[idx+1:])
	if name == "" {
		return "", "", fmt.Errorf("malformed assignment: empty name")
	}
	return name, value, nil
}

func lineErr(lineNo int, err error) *header.FormatError {
	return &header.FormatError{Line: lineNo, Message: err.Error()}
}
