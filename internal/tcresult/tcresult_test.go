package tcresult

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteParseRoundTripPassed(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, NewPassed()); err != nil {
		t.Fatal(err)
	}
	tcr, err := Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tcr.Status != Passed || tcr.Reason != "" {
		t.Errorf("got %+v", tcr)
	}
}

func TestWriteParseRoundTripFailed(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(&buf, NewFailed("assertion did not hold")); err != nil {
		t.Fatal(err)
	}
	tcr, err := Parse(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if tcr.Status != Failed || tcr.Reason != "assertion did not hold" {
		t.Errorf("got %+v", tcr)
	}
}

func TestFailedReasonCollapsesNewlines(t *testing.T) {
	tcr := NewFailed("line one\nline two")
	if strings.Contains(tcr.Reason, "\n") {
		t.Errorf("expected embedded newline to be collapsed, got %q", tcr.Reason)
	}
	if !strings.Contains(tcr.Reason, NewlineMarker) {
		t.Errorf("expected newline marker in %q", tcr.Reason)
	}
}

func TestParseSkipped(t *testing.T) {
	body := "Content-Type: application/X-atf-tc; version=\"1\"\n\nskipped: requires root\n"
	tcr, err := Parse(strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if tcr.Status != Skipped || tcr.Reason != "requires root" {
		t.Errorf("got %+v", tcr)
	}
}

func TestParseRejectsEmptyBody(t *testing.T) {
	body := "Content-Type: application/X-atf-tc; version=\"1\"\n\n"
	_, err := Parse(strings.NewReader(body))
	if _, ok := err.(*MalformedResultError); !ok {
		t.Fatalf("expected *MalformedResultError, got %v (%T)", err, err)
	}
}

func TestParseRejectsMultiLineBody(t *testing.T) {
	body := "Content-Type: application/X-atf-tc; version=\"1\"\n\npassed\nextra garbage\n"
	_, err := Parse(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for multi-line body")
	}
}

func TestParseRejectsUnrecognizedLine(t *testing.T) {
	body := "Content-Type: application/X-atf-tc; version=\"1\"\n\nmaybe\n"
	_, err := Parse(strings.NewReader(body))
	if err == nil {
		t.Fatal("expected error for unrecognized result line")
	}
	if !strings.Contains(err.Error(), "unrecognized result line") {
		t.Errorf("unexpected message: %v", err)
	}
}
