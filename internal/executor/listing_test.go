package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
)

const listingProgramBody = `#!/bin/sh
printf 'Content-Type: application/X-atf-tp-list; version="1"\n\nident: case1\ndescr: first\n\nident: case2\n'
echo "diagnostic noise" 1>&2
exit 0
`

func writeListingProgram(t *testing.T, dir, body string) atfpath.Path {
	t.Helper()
	path := filepath.Join(dir, "listing_prog")
	if err := os.WriteFile(path, []byte(body), 0755); err != nil {
		t.Fatal(err)
	}
	p, err := atfpath.New(path)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestListCasesParsesOutputAndDoesNotHang(t *testing.T) {
	dir := t.TempDir()
	program := writeListingProgram(t, dir, listingProgramBody)
	srcDir, err := atfpath.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	type result struct {
		n   int
		err error
	}
	done := make(chan result, 1)
	go func() {
		ms, err := ListCases(context.Background(), program, srcDir, hostconfig.Config{}, os.Environ())
		done <- result{n: len(ms), err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatalf("unexpected error: %v", r.err)
		}
		if r.n != 2 {
			t.Fatalf("expected 2 metas, got %d", r.n)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("ListCases did not return - likely hung waiting on a stream that never reached EOF")
	}
}

func TestListCasesReportsNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	body := "#!/bin/sh\nexit 1\n"
	program := writeListingProgram(t, dir, body)
	srcDir, err := atfpath.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	_, err = ListCases(context.Background(), program, srcDir, hostconfig.Config{}, os.Environ())
	if err == nil {
		t.Fatal("expected an error for a non-zero listing exit code")
	}
}

func TestFlattenReasonJoinsMultierrorWithSemicolons(t *testing.T) {
	var errs *multierror.Error
	errs = multierror.Append(errs, errors.New("first problem"))
	errs = multierror.Append(errs, errors.New("second problem"))

	got := FlattenReason(errs.ErrorOrNil())
	want := "first problem; second problem"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFlattenReasonCollapsesEmbeddedNewlines(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", errors.New("line one\nline two"))
	got := FlattenReason(err)
	if got != "wrapped: line one line two" {
		t.Errorf("got %q", got)
	}
}
