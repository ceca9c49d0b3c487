package suite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/tcresult"
)

// fakeSink records every event the walker emits, in order, for assertions.
type fakeSink struct {
	count    int
	events   []string
	results  []tcresult.TCR
}

func (s *fakeSink) Info(key, value string)            { s.events = append(s.events, "info:"+key) }
func (s *fakeSink) Count(n int)                        { s.count = n }
func (s *fakeSink) StartProgram(path string, n int)    { s.events = append(s.events, "tp-start:"+path) }
func (s *fakeSink) EndProgram(path, reason string)     { s.events = append(s.events, "tp-end:"+path+":"+reason) }
func (s *fakeSink) StartCase(ident string)              { s.events = append(s.events, "tc-start:"+ident) }
func (s *fakeSink) Stdout(line string)                  { s.events = append(s.events, "tc-so:"+line) }
func (s *fakeSink) Stderr(line string)                  { s.events = append(s.events, "tc-se:"+line) }
func (s *fakeSink) EndCase(tcr tcresult.TCR) {
	s.events = append(s.events, "tc-end")
	s.results = append(s.results, tcr)
}

const fakeProgramBody = `#!/bin/sh
list=0
result=""
for arg in "$@"; do
  case "$arg" in
    -l) list=1 ;;
    -r*) result="${arg#-r}" ;;
  esac
done
if [ "$list" = "1" ]; then
  printf 'Content-Type: application/X-atf-tp-list; version="1"\n\nident: case1\n\n'
  exit 0
fi
printf 'Content-Type: application/X-atf-tc; version="1"\n\npassed\n' > "$result"
exit 0
`

func writeFile(t *testing.T, path, content string, mode os.FileMode) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), mode); err != nil {
		t.Fatal(err)
	}
}

func TestWalkerSingleProgram(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Atffile"),
		"Content-Type: application/X-atf-atffile; version=\"1\"\n\n"+
			"prop: test-suite = demo\n"+
			"tp: prog1\n",
		0644)
	writeFile(t, filepath.Join(root, "prog1"), fakeProgramBody, 0755)

	w := &Walker{
		HostConfigDir: t.TempDir(),
		CLIOverrides:  hostconfig.Config{},
		WorkdirRoot:   t.TempDir(),
		Env:           os.Environ(),
		PathEnv:       os.Getenv("PATH"),
	}

	rootPath, err := atfpath.New(root)
	if err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	if err := w.Run(context.Background(), sink, rootPath, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sink.count != 1 {
		t.Fatalf("expected count 1, got %d", sink.count)
	}
	if len(sink.results) != 1 || sink.results[0].Status != tcresult.Passed {
		t.Fatalf("expected one Passed result, got %#v", sink.results)
	}
}

func TestWalkerNestedDirectory(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0755); err != nil {
		t.Fatal(err)
	}

	writeFile(t, filepath.Join(root, "Atffile"),
		"Content-Type: application/X-atf-atffile; version=\"1\"\n\n"+
			"prop: test-suite = demo\n"+
			"tp: sub\n",
		0644)
	writeFile(t, filepath.Join(sub, "Atffile"),
		"Content-Type: application/X-atf-atffile; version=\"1\"\n\n"+
			"prop: test-suite = demo-sub\n"+
			"tp: prog2\n",
		0644)
	writeFile(t, filepath.Join(sub, "prog2"), fakeProgramBody, 0755)

	w := &Walker{
		HostConfigDir: t.TempDir(),
		WorkdirRoot:   t.TempDir(),
		Env:           os.Environ(),
		PathEnv:       os.Getenv("PATH"),
	}

	rootPath, err := atfpath.New(root)
	if err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	if err := w.Run(context.Background(), sink, rootPath, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if sink.count != 1 {
		t.Fatalf("expected count 1 (one leaf program), got %d", sink.count)
	}
	found := false
	for _, e := range sink.events {
		if e == "tp-start:"+filepath.Join(root, "sub", "prog2") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a tp-start event for the nested program, got %v", sink.events)
	}
}

func TestWalkerTpGlobDoesNotDoublePrefixDirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Atffile"),
		"Content-Type: application/X-atf-atffile; version=\"1\"\n\n"+
			"prop: test-suite = demo\n"+
			"tp-glob: prog*\n",
		0644)
	writeFile(t, filepath.Join(root, "prog1"), fakeProgramBody, 0755)

	w := &Walker{
		HostConfigDir: t.TempDir(),
		Glob:          filepath.Glob,
		WorkdirRoot:   t.TempDir(),
		Env:           os.Environ(),
		PathEnv:       os.Getenv("PATH"),
	}

	rootPath, err := atfpath.New(root)
	if err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	if err := w.Run(context.Background(), sink, rootPath, nil); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	want := "tp-start:" + filepath.Join(root, "prog1")
	found := false
	for _, e := range sink.events {
		if e == want {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected %q among events, got %v", want, sink.events)
	}
}

func TestWalkerCLIOverridesTestProgramList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "Atffile"),
		"Content-Type: application/X-atf-atffile; version=\"1\"\n\n"+
			"prop: test-suite = demo\n"+
			"tp: unused\n",
		0644)
	writeFile(t, filepath.Join(root, "prog1"), fakeProgramBody, 0755)

	w := &Walker{
		HostConfigDir: t.TempDir(),
		WorkdirRoot:   t.TempDir(),
		Env:           os.Environ(),
		PathEnv:       os.Getenv("PATH"),
	}

	rootPath, err := atfpath.New(root)
	if err != nil {
		t.Fatal(err)
	}

	sink := &fakeSink{}
	if err := w.Run(context.Background(), sink, rootPath, []string{"prog1"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if sink.count != 1 {
		t.Fatalf("expected count 1, got %d", sink.count)
	}
}
