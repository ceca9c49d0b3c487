// Package tplist parses the tp-list document a test program emits when
// invoked with its listing flag (spec §4.3, §4.9): one metadata record per
// test case.
package tplist

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/atf-go/atfrun/internal/header"
)

const (
	MediaType = "application/X-atf-tp-list"
	Version   = 1

	DefaultTimeoutSeconds = 300
)

// RequireUser enumerates the valid values of the require.user key.
type RequireUser string

const (
	RequireUserNone         RequireUser = ""
	RequireUserRoot         RequireUser = "root"
	RequireUserUnprivileged RequireUser = "unprivileged"
)

// Meta is one test case's metadata (spec §3 TestCaseMeta).
type Meta struct {
	Ident string

	TimeoutSeconds int
	HasCleanup     bool
	Descr          string

	RequireArch    []string
	RequireMachine []string
	RequireConfig  []string
	RequireProgs   []string
	RequireUser    RequireUser

	// Extra holds arbitrary X-prefixed keys. The runner ignores them, and
	// they are not written to the transcript.
	Extra map[string]string
}

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Parse reads a complete tp-list document from r.
func Parse(r io.Reader) ([]Meta, error) {
	hr := header.NewReader(r, MediaType, Version)
	if _, err := hr.ReadHeaders(); err != nil {
		return nil, err
	}
	return parseRecords(hr.Body())
}

func parseRecords(r *bufio.Reader) ([]Meta, error) {
	var metas []Meta
	var errs *multierror.Error

	var cur *Meta
	lineNo := 0
	flush := func() {
		if cur != nil {
			metas = append(metas, *cur)
			cur = nil
		}
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			errs = multierror.Append(errs, &header.FormatError{Line: lineNo, Message: fmt.Sprintf("malformed property line %q", line)})
			continue
		}
		key := strings.TrimSpace(line[:colon])
		value := strings.TrimSpace(line[colon+1:])

		if key == "ident" {
			flush()
			if !identRe.MatchString(value) {
				errs = multierror.Append(errs, &header.FormatError{Line: lineNo, Message: fmt.Sprintf("invalid ident %q", value)})
				cur = &Meta{Ident: value, TimeoutSeconds: DefaultTimeoutSeconds, Extra: map[string]string{}}
				continue
			}
			cur = &Meta{Ident: value, TimeoutSeconds: DefaultTimeoutSeconds, Extra: map[string]string{}}
			continue
		}

		if cur == nil {
			errs = multierror.Append(errs, &header.FormatError{Line: lineNo, Message: "property before first ident"})
			continue
		}

		if err := applyProperty(cur, key, value); err != nil {
			errs = multierror.Append(errs, &header.FormatError{Line: lineNo, Message: err.Error()})
		}
	}
	flush()

	if err := scanner.Err(); err != nil {
		errs = multierror.Append(errs, err)
	}

	return metas, errs.ErrorOrNil()
}

func applyProperty(m *Meta, key, value string) error {
	switch key {
	case "timeout":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("timeout must be a non-negative integer, got %q", value)
		}
		m.TimeoutSeconds = n
	case "has.cleanup":
		m.HasCleanup = value == "true" || value == "yes"
	case "descr":
		m.Descr = value
	case "require.arch":
		m.RequireArch = strings.Fields(value)
	case "require.machine":
		m.RequireMachine = strings.Fields(value)
	case "require.config":
		m.RequireConfig = strings.Fields(value)
	case "require.progs":
		m.RequireProgs = strings.Fields(value)
	case "require.user":
		m.RequireUser = RequireUser(value)
	default:
		if strings.HasPrefix(key, "X-") {
			m.Extra[key] = value
			return nil
		}
		return fmt.Errorf("unknown property %q", key)
	}
	return nil
}
