package header

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	multierror "github.com/hashicorp/go-multierror"
)

// FormatError describes one malformed header line.
type FormatError struct {
	Line    int
	Message string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Message)
}

// VersionError is returned immediately (never aggregated) when the
// document's Content-Type entry does not match the media type or version
// the reader was constructed to expect.
type VersionError struct {
	WantMediaType string
	WantVersion   int
	GotMediaType  string
	GotVersion    string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("unexpected document type: want %q version %d, got %q version %q",
		e.WantMediaType, e.WantVersion, e.GotMediaType, e.GotVersion)
}

// Reader parses the header block of a framed document, resyncing on the
// next newline after a malformed line so that multiple errors can be
// aggregated into a single reported group (spec §9: "an explicit
// accumulating parser context").
type Reader struct {
	br            *bufio.Reader
	wantMediaType string
	wantVersion   int
	lineNo        int
}

// NewReader wraps r. wantMediaType/wantVersion are checked against the
// document's mandatory first Content-Type header.
func NewReader(r io.Reader, wantMediaType string, wantVersion int) *Reader {
	return &Reader{br: bufio.NewReader(r), wantMediaType: wantMediaType, wantVersion: wantVersion}
}

// ReadHeaders reads entries until a blank line. It returns the parsed
// entries and, as a single error, either a *VersionError (if the first
// entry fails the version check) or an aggregated *multierror.Error of
// *FormatError values for every malformed line encountered.
func (r *Reader) ReadHeaders() ([]Entry, error) {
	var entries []Entry
	var errs *multierror.Error

	first := true
	for {
		r.lineNo++
		line, err := r.br.ReadString('\n')
		if err != nil && line == "" {
			return entries, fmt.Errorf("line %d: unexpected EOF while reading headers", r.lineNo)
		}
		line = strings.TrimRight(line, "\n")
		line = strings.TrimRight(line, "\r")

		if line == "" {
			break
		}

		e, perr := parseHeaderLine(line)
		if perr != nil {
			errs = multierror.Append(errs, &FormatError{Line: r.lineNo, Message: perr.Error()})
			continue
		}

		if first {
			first = false
			if e.Name != "Content-Type" {
				errs = multierror.Append(errs, &FormatError{Line: r.lineNo, Message: "first header must be Content-Type"})
			} else {
				version, _ := e.Attr("version")
				if e.Value != r.wantMediaType || version != fmt.Sprintf("%d", r.wantVersion) {
					return entries, &VersionError{
						WantMediaType: r.wantMediaType,
						WantVersion:   r.wantVersion,
						GotMediaType:  e.Value,
						GotVersion:    version,
					}
				}
			}
		}

		entries = append(entries, e)
	}

	return entries, errs.ErrorOrNil()
}

// Body returns the bufio.Reader positioned right after the header block's
// blank line, for the body parser to consume line by line.
func (r *Reader) Body() *bufio.Reader {
	return r.br
}

func parseHeaderLine(line string) (Entry, error) {
	colon := strings.IndexByte(line, ':')
	if colon < 0 {
		return Entry{}, fmt.Errorf("missing ':' in header line %q", line)
	}
	name := line[:colon]
	if name == "" {
		return Entry{}, fmt.Errorf("empty header name")
	}
	rest := line[colon+1:]
	if !strings.HasPrefix(rest, " ") {
		return Entry{}, fmt.Errorf("expected space after ':' in header line %q", line)
	}
	rest = rest[1:]

	segments, err := splitSemicolons(rest)
	if err != nil {
		return Entry{}, err
	}

	e := Entry{Name: name, Value: segments[0]}
	seen := map[string]bool{}
	for _, seg := range segments[1:] {
		eq := strings.IndexByte(seg, '=')
		if eq < 0 {
			return Entry{}, fmt.Errorf("malformed attribute %q: missing '='", seg)
		}
		attrName := seg[:eq]
		attrVal := seg[eq+1:]
		if attrName == "" {
			return Entry{}, fmt.Errorf("empty attribute name")
		}
		if seen[attrName] {
			return Entry{}, fmt.Errorf("duplicate attribute %q", attrName)
		}
		seen[attrName] = true

		val, err := unquote(attrVal)
		if err != nil {
			return Entry{}, err
		}
		e.SetAttr(attrName, val)
	}

	return e, nil
}

// splitSemicolons splits rest on "; " boundaries, respecting quoted
// segments so a ';' inside a quoted attribute value isn't treated as a
// separator.
func splitSemicolons(rest string) ([]string, error) {
	var segments []string
	var cur strings.Builder
	inQuotes := false
	escaped := false

	for i := 0; i < len(rest); i++ {
		c := rest[i]
		switch {
		case escaped:
			cur.WriteByte(c)
			escaped = false
		case c == '\\' && inQuotes:
			cur.WriteByte(c)
			escaped = true
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ';' && !inQuotes:
			segments = append(segments, strings.TrimPrefix(cur.String(), " "))
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if inQuotes {
		return nil, fmt.Errorf("unterminated quoted value in %q", rest)
	}
	segments = append(segments, strings.TrimPrefix(cur.String(), " "))

	// Trim the leading space left after splitting on "; ".
	for i, s := range segments {
		segments[i] = strings.TrimPrefix(s, " ")
	}
	return segments, nil
}

func unquote(v string) (string, error) {
	if !strings.HasPrefix(v, `"`) {
		return v, nil
	}
	if len(v) < 2 || v[len(v)-1] != '"' {
		return "", fmt.Errorf("unterminated quoted attribute value %q", v)
	}
	inner := v[1 : len(v)-1]

	var b strings.Builder
	for i := 0; i < len(inner); i++ {
		c := inner[i]
		if c == '\\' && i+1 < len(inner) && (inner[i+1] == '"' || inner[i+1] == '\\') {
			b.WriteByte(inner[i+1])
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String(), nil
}
