package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/tcresult"
	"github.com/atf-go/atfrun/internal/tplist"
)

// writeFakeProgram installs a shell script at dir/name implementing a
// minimal atf-style test program: it looks for a "-r<path>" argument and
// runs body, which receives that path as $1.
func writeFakeProgram(t *testing.T, dir, name, body string) atfpath.Path {
	t.Helper()
	script := "#!/bin/sh\nresult=\"\"\nfor arg in \"$@\"; do\n  case \"$arg\" in\n    -r*) result=\"${arg#-r}\" ;;\n  esac\ndone\n" + body + "\n"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	p, err := atfpath.New(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func baseCase(t *testing.T, program atfpath.Path, ident string, timeout int) Case {
	t.Helper()
	dir := t.TempDir()
	srcdir, err := atfpath.New(dir)
	if err != nil {
		t.Fatal(err)
	}
	return Case{
		Program:     program,
		SrcDir:      srcdir,
		Meta:        tplist.Meta{Ident: ident, TimeoutSeconds: timeout},
		Config:      hostconfig.Config{},
		WorkdirRoot: t.TempDir(),
		Env:         os.Environ(),
		PathEnv:     os.Getenv("PATH"),
	}
}

func TestRunPlainPass(t *testing.T) {
	dir := t.TempDir()
	program := writeFakeProgram(t, dir, "prog", `printf 'Content-Type: application/X-atf-tc; version="1"\n\npassed\n' > "$result"
exit 0`)

	c := baseCase(t, program, "pass_test", 10)
	res, err := Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.State != Reported {
		t.Fatalf("expected Reported, got %v", res.State)
	}
	if res.TCR.Status != tcresult.Passed {
		t.Fatalf("expected Passed, got %v (%s)", res.TCR.Status, res.TCR.Reason)
	}
}

func TestRunMismatchedExitDemotesToFailed(t *testing.T) {
	dir := t.TempDir()
	program := writeFakeProgram(t, dir, "prog", `printf 'Content-Type: application/X-atf-tc; version="1"\n\npassed\n' > "$result"
exit 1`)

	c := baseCase(t, program, "mismatch_test", 10)
	res, err := Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.TCR.Status != tcresult.Failed {
		t.Fatalf("expected Failed due to exit/result mismatch, got %v", res.TCR.Status)
	}
}

func TestRunMissingResultsFile(t *testing.T) {
	dir := t.TempDir()
	program := writeFakeProgram(t, dir, "prog", `exit 0`)

	c := baseCase(t, program, "missing_test", 10)
	res, err := Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.TCR.Status != tcresult.Failed {
		t.Fatalf("expected Failed when no results file is written, got %v", res.TCR.Status)
	}
}

func TestRunTimeout(t *testing.T) {
	dir := t.TempDir()
	program := writeFakeProgram(t, dir, "prog", `sleep 5
exit 0`)

	c := baseCase(t, program, "timeout_test", 1)

	start := time.Now()
	res, err := Run(context.Background(), c)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.State != Reported {
		t.Fatalf("expected Reported, got %v", res.State)
	}
	if res.TCR.Status != tcresult.Failed {
		t.Fatalf("expected Failed on timeout, got %v", res.TCR.Status)
	}
	if elapsed > 4*time.Second {
		t.Fatalf("timeout enforcement took too long: %v", elapsed)
	}
}

func TestRunSkippedDueToMissingProgram(t *testing.T) {
	c := baseCase(t, atfpath.MustNew("/bin/sh"), "skip_test", 10)
	c.Meta.RequireProgs = []string{"/no/such/helper"}

	res, err := Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if res.State != PreChecked {
		t.Fatalf("expected PreChecked, got %v", res.State)
	}
	if res.TCR.Status != tcresult.Skipped {
		t.Fatalf("expected Skipped, got %v", res.TCR.Status)
	}
}

func TestRunCleanupFailureDemotesPass(t *testing.T) {
	dir := t.TempDir()
	program := writeFakeProgram(t, dir, "prog", `case "$*" in
  *:cleanup) exit 1 ;;
  *) printf 'Content-Type: application/X-atf-tc; version="1"\n\npassed\n' > "$result"; exit 0 ;;
esac`)

	c := baseCase(t, program, "cleanup_test", 10)
	c.Meta.HasCleanup = true

	res, err := Run(context.Background(), c)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if !res.CleanupRan || res.CleanupOK {
		t.Fatalf("expected cleanup to run and fail, got ran=%v ok=%v", res.CleanupRan, res.CleanupOK)
	}
	if res.TCR.Status != tcresult.Failed {
		t.Fatalf("expected Passed body to be demoted to Failed, got %v", res.TCR.Status)
	}
}
