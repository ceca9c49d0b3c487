package transcript

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/atf-go/atfrun/internal/header"
	"github.com/atf-go/atfrun/internal/tcresult"
)

// ProgramBlock is one tp-start/.../tp-end section of a parsed document.
type ProgramBlock struct {
	Path     string
	NumCases int
	Cases    []CaseBlock
	Reason   string // non-empty iff the program itself failed (e.g. listing)
}

// CaseBlock is one tc-start/.../tc-end section.
type CaseBlock struct {
	Ident  string
	Stdout []string
	Stderr []string
	TCR    tcresult.TCR
}

// Document is a fully parsed tps transcript, used by tests to check
// well-formedness (spec §8) rather than by the runner itself, which only
// ever writes transcripts.
type Document struct {
	RunID    string
	Info     []string // "key, value" entries, in document order
	Count    int
	Programs []ProgramBlock
}

// Read parses a complete tps document from r.
func Read(r io.Reader) (Document, error) {
	hr := header.NewReader(r, MediaType, Version)
	if _, err := hr.ReadHeaders(); err != nil {
		return Document{}, err
	}

	var doc Document
	scanner := bufio.NewScanner(hr.Body())

	var curProgram *ProgramBlock
	var curCase *CaseBlock
	countSeen := false

	flushCase := func() {
		if curCase != nil && curProgram != nil {
			curProgram.Cases = append(curProgram.Cases, *curCase)
			curCase = nil
		}
	}
	flushProgram := func() {
		flushCase()
		if curProgram != nil {
			doc.Programs = append(doc.Programs, *curProgram)
			curProgram = nil
		}
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		colon := strings.IndexByte(line, ':')
		if colon < 0 {
			return doc, fmt.Errorf("transcript: malformed line %q", line)
		}
		tag := line[:colon]
		rest := strings.TrimSpace(line[colon+1:])

		switch tag {
		case "info":
			if !countSeen && doc.RunID == "" && strings.HasPrefix(rest, "run-id, ") {
				doc.RunID = strings.TrimPrefix(rest, "run-id, ")
				continue
			}
			doc.Info = append(doc.Info, rest)
		case "tps-count":
			countSeen = true
			if _, err := fmt.Sscanf(rest, "%d", &doc.Count); err != nil {
				return doc, fmt.Errorf("transcript: malformed tps-count %q: %w", rest, err)
			}
		case "tp-start":
			flushProgram()
			parts := strings.SplitN(rest, ", ", 2)
			p := ProgramBlock{Path: parts[0]}
			if len(parts) == 2 {
				fmt.Sscanf(parts[1], "%d", &p.NumCases)
			}
			curProgram = &p
		case "tp-end":
			if curProgram != nil {
				parts := strings.SplitN(rest, ", ", 2)
				if len(parts) == 2 {
					curProgram.Reason = parts[1]
				}
			}
			flushProgram()
		case "tc-start":
			flushCase()
			curCase = &CaseBlock{Ident: rest}
		case "tc-so":
			if curCase != nil {
				curCase.Stdout = append(curCase.Stdout, rest)
			}
		case "tc-se":
			if curCase != nil {
				curCase.Stderr = append(curCase.Stderr, rest)
			}
		case "tc-end":
			if curCase != nil {
				curCase.TCR = parseVerdict(rest)
			}
			flushCase()
		default:
			return doc, fmt.Errorf("transcript: unrecognized tag %q", tag)
		}
	}
	flushProgram()

	if err := scanner.Err(); err != nil {
		return doc, err
	}
	return doc, nil
}

func parseVerdict(rest string) tcresult.TCR {
	parts := strings.SplitN(rest, ", ", 3)
	if len(parts) < 2 {
		return tcresult.NewFailed("malformed tc-end line")
	}
	switch parts[1] {
	case "passed":
		return tcresult.NewPassed()
	case "failed":
		reason := ""
		if len(parts) == 3 {
			reason = parts[2]
		}
		return tcresult.NewFailed(reason)
	case "skipped":
		reason := ""
		if len(parts) == 3 {
			reason = parts[2]
		}
		return tcresult.NewSkipped(reason)
	default:
		return tcresult.NewFailed("unrecognized verdict " + parts[1])
	}
}
