package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	multierror "github.com/hashicorp/go-multierror"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/procexec"
	"github.com/atf-go/atfrun/internal/tplist"
)

// ListCases invokes program with the listing flag (spec §4.9: "<path> -l
// -s<test_program_dir> [-v<k>=<v>]*") and parses its tp-list output. The
// process is given no timeout of its own: listing is expected to be
// instantaneous since it does no test work, so the caller's ctx is the
// only cancellation path.
func ListCases(ctx context.Context, program, srcDir atfpath.Path, cfg hostconfig.Config, env []string) ([]tplist.Meta, error) {
	argv := []string{"-l", "-s" + srcDir.String()}
	for _, name := range sortedKeys(cfg) {
		argv = append(argv, fmt.Sprintf("-v%s=%s", name, cfg[name]))
	}

	var stdout bytes.Buffer
	child, err := procexec.Spawn(procexec.Options{
		Binary:  program.String(),
		Argv:    argv,
		WorkDir: srcDir.String(),
		Stdout:  procexec.CaptureSpec,
		// Inherited, not captured: a malformed listing most often fails
		// by crashing or printing a usage message, and that's only
		// diagnosable if it reaches the runner's own stderr directly.
		Stderr: procexec.InheritSpec,
		Env:    env,
	})
	if err != nil {
		return nil, fmt.Errorf("executor: spawn listing of %s: %w", program, err)
	}

	disposition, err := child.WaitWithTimeout(ctx, 0, func(line string) {
		stdout.WriteString(line)
		stdout.WriteByte('\n')
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("executor: listing of %s: %w", program, err)
	}
	if disposition.Kind != procexec.Exited || disposition.ExitCode != 0 {
		return nil, fmt.Errorf("executor: %s -l exited abnormally (kind=%v code=%d)", program, disposition.Kind, disposition.ExitCode)
	}

	metas, err := tplist.Parse(&stdout)
	if err != nil {
		return nil, fmt.Errorf("executor: parsing tp-list from %s: %w", program, err)
	}
	return metas, nil
}

// FlattenReason reduces err to a single line fit for a tp-end reason (spec
// §4.10: reason strings must not contain embedded newlines). A
// *multierror.Error - what tplist.Parse and atffile.Parse return when a
// manifest or listing has one or more defects - is rendered as its
// constituent messages joined by "; " (spec §4.9); anything else has its
// own embedded newlines, if any, collapsed to spaces.
func FlattenReason(err error) string {
	var merr *multierror.Error
	if errors.As(err, &merr) {
		parts := make([]string, len(merr.Errors))
		for i, e := range merr.Errors {
			parts[i] = oneLine(e.Error())
		}
		return strings.Join(parts, "; ")
	}
	return oneLine(err.Error())
}

func oneLine(s string) string {
	s = strings.ReplaceAll(s, "\r\n", " ")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
