// Package atfcheck wires the atf-check CLI command (spec §6): parses
// status/stream specs, runs the given command, and evaluates its verdict.
package atfcheck

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli"

	"github.com/atf-go/atfrun/internal/check"
	"github.com/atf-go/atfrun/internal/procexec"
)

// Command is the urfave/cli specification of the atf-check command.
var Command = cli.Command{
	Name:      "check",
	Usage:     "run a command and check its exit status and output streams",
	ArgsUsage: "[-s status-spec] [-o out-spec] [-e err-spec] cmd [args...]",
	Flags: []cli.Flag{
		cli.StringSliceFlag{Name: "s", Usage: "status spec: eq:N, ne:N, or ignore"},
		cli.StringSliceFlag{Name: "o", Usage: "stdout spec"},
		cli.StringSliceFlag{Name: "e", Usage: "stderr spec"},
	},
	Action: action,
}

func action(c *cli.Context) error {
	args := []string(c.Args())
	if len(args) == 0 {
		return cli.NewExitError("atf-check: missing command to run", 2)
	}

	verdict, err := parseVerdict(c.StringSlice("s"), c.StringSlice("o"), c.StringSlice("e"))
	if err != nil {
		return cli.NewExitError(err.Error(), 2)
	}

	errs, err := Run(context.Background(), args[0], args[1:], verdict)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("atf-check: %v", err), 1)
	}
	if len(errs) > 0 {
		var msgs []string
		for _, e := range errs {
			msgs = append(msgs, e.Error())
		}
		return cli.NewExitError(strings.Join(msgs, "\n"), 1)
	}
	return nil
}

func parseVerdict(statusSpecs, outSpecs, errSpecs []string) (check.Verdict, error) {
	var v check.Verdict
	for _, s := range statusSpecs {
		spec, err := check.ParseStatusSpec(s)
		if err != nil {
			return check.Verdict{}, err
		}
		v.Status = append(v.Status, spec)
	}
	for _, s := range outSpecs {
		spec, err := check.ParseStreamSpec(s)
		if err != nil {
			return check.Verdict{}, err
		}
		v.Stdout = append(v.Stdout, spec)
	}
	for _, s := range errSpecs {
		spec, err := check.ParseStreamSpec(s)
		if err != nil {
			return check.Verdict{}, err
		}
		v.Stderr = append(v.Stderr, spec)
	}
	return v.WithDefaults(), nil
}

// Run spawns binary with argv, captures its stdout/stderr to a scratch
// directory, and evaluates verdict against the resulting exit code and
// streams. It returns the list of spec mismatches (empty means success);
// the error return is reserved for infrastructure failures that prevented
// the command from running at all.
func Run(ctx context.Context, binary string, argv []string, verdict check.Verdict) ([]error, error) {
	scratch, err := os.MkdirTemp("", "atf-check.XXXXXX")
	if err != nil {
		return nil, fmt.Errorf("allocate scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	stdoutPath := scratch + "/stdout"
	stderrPath := scratch + "/stderr"

	stdoutFile, err := os.Create(stdoutPath)
	if err != nil {
		return nil, fmt.Errorf("create stdout capture file: %w", err)
	}
	defer stdoutFile.Close()
	stderrFile, err := os.Create(stderrPath)
	if err != nil {
		return nil, fmt.Errorf("create stderr capture file: %w", err)
	}
	defer stderrFile.Close()

	child, err := procexec.Spawn(procexec.Options{
		Binary:  binary,
		Argv:    argv,
		WorkDir: scratch,
		Stdout:  procexec.CaptureSpec,
		Stderr:  procexec.CaptureSpec,
		Env:     os.Environ(),
	})
	if err != nil {
		return nil, fmt.Errorf("spawn %s: %w", binary, err)
	}

	appendLine := func(f *os.File) func(string) {
		return func(line string) { fmt.Fprintln(f, line) }
	}

	disposition, err := child.WaitWithTimeout(ctx, 0, appendLine(stdoutFile), appendLine(stderrFile))
	if err != nil {
		return nil, fmt.Errorf("wait for %s: %w", binary, err)
	}

	exitCode := disposition.ExitCode
	if disposition.Kind == procexec.Signaled {
		exitCode = 128 + int(disposition.Signal)
	}

	return verdict.Evaluate(exitCode, stdoutPath, stderrPath), nil
}
