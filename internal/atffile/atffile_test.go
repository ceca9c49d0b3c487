package atffile

import (
	"errors"
	"strings"
	"testing"
)

const sampleManifest = `Content-Type: application/X-atf-atffile; version="1"

prop: test-suite = demo
conf: variant = full
tp: t_one
tp: t_two
`

func TestParseBasic(t *testing.T) {
	m, err := Parse(strings.NewReader(sampleManifest), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.TestSuite != "demo" {
		t.Errorf("got test-suite %q", m.TestSuite)
	}
	if m.Conf["variant"] != "full" {
		t.Errorf("got conf %+v", m.Conf)
	}
	if len(m.TestPrograms) != 2 || m.TestPrograms[0] != "t_one" || m.TestPrograms[1] != "t_two" {
		t.Errorf("got test programs %+v", m.TestPrograms)
	}
}

func TestParseMissingTestSuite(t *testing.T) {
	body := "Content-Type: application/X-atf-atffile; version=\"1\"\n\ntp: t_one\n"
	_, err := Parse(strings.NewReader(body), nil)
	if !errors.Is(err, ErrMissingTestSuite) {
		t.Fatalf("expected ErrMissingTestSuite, got %v", err)
	}
}

func TestParseTpGlobRequiresResolver(t *testing.T) {
	body := "Content-Type: application/X-atf-atffile; version=\"1\"\n\nprop: test-suite = demo\ntp-glob: t_*\n"
	_, err := Parse(strings.NewReader(body), nil)
	if err == nil {
		t.Fatal("expected error when tp-glob used with nil resolver")
	}
}

func TestParseTpGlobExpandsMatches(t *testing.T) {
	body := "Content-Type: application/X-atf-atffile; version=\"1\"\n\nprop: test-suite = demo\ntp-glob: t_*\n"
	glob := func(pattern string) ([]string, error) {
		if pattern != "t_*" {
			t.Fatalf("unexpected pattern %q", pattern)
		}
		return []string{"t_one", "t_two"}, nil
	}
	m, err := Parse(strings.NewReader(body), glob)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.TestPrograms) != 2 {
		t.Errorf("got %+v", m.TestPrograms)
	}
}

func TestParseAggregatesMultipleErrors(t *testing.T) {
	body := "Content-Type: application/X-atf-atffile; version=\"1\"\n\nconf: bad-no-equals\nprop: test-suite = demo\ntp:\n"
	_, err := Parse(strings.NewReader(body), nil)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "malformed assignment") || !strings.Contains(msg, "requires a name") {
		t.Errorf("expected both errors aggregated, got: %s", msg)
	}
}

func TestParseIgnoresCommentsAndBlankLines(t *testing.T) {
	body := "Content-Type: application/X-atf-atffile; version=\"1\"\n\n# a comment\n\nprop: test-suite = demo\ntp: t_one\n"
	m, err := Parse(strings.NewReader(body), nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(m.TestPrograms) != 1 {
		t.Errorf("got %+v", m.TestPrograms)
	}
}
