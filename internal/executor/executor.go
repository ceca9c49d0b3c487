package executor

import (
	"context"
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/procexec"
	"github.com/atf-go/atfrun/internal/tcresult"
	"github.com/atf-go/atfrun/internal/tplist"
)

// State names the executor's position in the per-case state machine (spec
// §4.6): Created -> PreChecked -> BodyRunning -> one of
// {BodyExited, BodyTimedOut, BodySignaled} -> optionally CleanupRunning ->
// CleanupDone -> Reported.
type State int

const (
	Created State = iota
	PreChecked
	BodyRunning
	BodyExited
	BodyTimedOut
	BodySignaled
	CleanupRunning
	CleanupDone
	Reported
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case PreChecked:
		return "pre-checked"
	case BodyRunning:
		return "body-running"
	case BodyExited:
		return "body-exited"
	case BodyTimedOut:
		return "body-timed-out"
	case BodySignaled:
		return "body-signaled"
	case CleanupRunning:
		return "cleanup-running"
	case CleanupDone:
		return "cleanup-done"
	case Reported:
		return "reported"
	default:
		return "unknown"
	}
}

// Case is everything the executor needs to run one test case to completion.
type Case struct {
	// Program is the absolute path of the test-program binary to invoke.
	Program atfpath.Path
	// SrcDir is the directory the test program was found in, passed to it
	// via -s so it can locate data files relative to itself.
	SrcDir atfpath.Path
	Meta   tplist.Meta
	Config hostconfig.Config

	// WorkdirRoot is the parent directory under which a fresh per-case
	// TempDir is allocated (atf_workdir config, or the system temp dir).
	WorkdirRoot string
	Env         []string
	// PathEnv is consulted for require.progs entries that are bare names.
	PathEnv string

	OnStdout func(string)
	OnStderr func(string)

	Logger *zap.Logger
}

// Result is the final, terminal report for one test case.
type Result struct {
	State      State
	TCR        tcresult.TCR
	CleanupRan bool
	CleanupOK  bool
}

// Run drives a test case through requirement checks, the body phase, an
// optional cleanup phase, and result reconciliation, returning the final
// verdict. Run never returns an error for ordinary test failures; the
// error return is reserved for infrastructure failures (failure to
// allocate a work directory, failure to spawn at all) that prevent the
// case from being judged.
func Run(ctx context.Context, c Case) (Result, error) {
	logger := c.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	outcome := CheckRequirements(c.Meta, c.Config, c.PathEnv)
	switch outcome.Kind {
	case Skip:
		return Result{State: PreChecked, TCR: tcresult.NewSkipped(outcome.Reason)}, nil
	case Fail:
		return Result{State: PreChecked, TCR: tcresult.NewFailed(outcome.Reason)}, nil
	}

	workdir, err := atfpath.NewTempDir(c.WorkdirRoot, "atf-run.XXXXXX", logger)
	if err != nil {
		return Result{State: PreChecked}, fmt.Errorf("executor: allocate workdir: %w", err)
	}
	defer func() {
		if err := workdir.Close(); err != nil {
			logger.Warn("failed to remove test case workdir", zap.String("ident", c.Meta.Ident), zap.Error(err))
		}
	}()

	resultsPath := workdir.Path().Join("tc-result").String()

	bodyDisposition, bodyErr := c.runPhase(ctx, workdir.Path().String(), resultsPath, "body")
	if bodyErr != nil {
		return Result{State: BodyExited}, fmt.Errorf("executor: spawn body: %w", bodyErr)
	}

	var state State
	var tcr tcresult.TCR
	switch bodyDisposition.Kind {
	case procexec.TimedOut:
		state = BodyTimedOut
		tcr = tcresult.NewFailed(fmt.Sprintf("Test case timed out after %d seconds", c.Meta.TimeoutSeconds))
	case procexec.Signaled:
		state = BodySignaled
		tcr = tcresult.NewFailed(signaledReason(bodyDisposition))
	default:
		state = BodyExited
		tcr = reconcileExit(bodyDisposition.ExitCode, resultsPath)
	}

	result := Result{State: state, TCR: tcr}

	if c.Meta.HasCleanup {
		result.State = CleanupRunning
		cleanupDisposition, cleanupErr := c.runPhase(ctx, workdir.Path().String(), resultsPath, "cleanup")
		result.CleanupRan = true
		result.CleanupOK = cleanupErr == nil && cleanupDisposition.Kind == procexec.Exited && cleanupDisposition.ExitCode == 0
		if !result.CleanupOK && result.TCR.Status == tcresult.Passed {
			// Open question resolution (DESIGN.md): a cleanup failure demotes
			// an otherwise-passing verdict to Failed, rather than being
			// reported only as a side diagnostic.
			result.TCR = tcresult.NewFailed("Cleanup failed")
		}
		result.State = CleanupDone
	}

	result.State = Reported
	return result, nil
}

func (c Case) runPhase(ctx context.Context, workdir, resultsPath, phase string) (procexec.Disposition, error) {
	argv := []string{"-r" + resultsPath, "-s" + c.SrcDir.String()}
	for _, name := range sortedKeys(c.Config) {
		argv = append(argv, fmt.Sprintf("-v%s=%s", name, c.Config[name]))
	}
	argv = append(argv, c.Meta.Ident+":"+phase)

	child, err := procexec.Spawn(procexec.Options{
		Binary:  c.Program.String(),
		Argv:    argv,
		WorkDir: workdir,
		Stdout:  procexec.CaptureSpec,
		Stderr:  procexec.CaptureSpec,
		Env:     c.Env,
	})
	if err != nil {
		return procexec.Disposition{}, err
	}
	return child.WaitWithTimeout(ctx, c.Meta.TimeoutSeconds, c.OnStdout, c.OnStderr)
}

func signaledReason(d procexec.Disposition) string {
	suffix := ""
	if d.CoreDumped {
		suffix = " (core dumped)"
	}
	return fmt.Sprintf("Test program received signal %d%s", d.Signal, suffix)
}

// reconcileExit interprets a clean process exit: it reads and parses the
// results file the test case was asked to write to resultsPath, per spec
// §4.6 step 5, and reports a mismatch between the file's verdict and the
// process's exit code as a failure rather than trusting either alone.
func reconcileExit(exitCode int, resultsPath string) tcresult.TCR {
	f, err := os.Open(resultsPath)
	if err != nil {
		return tcresult.NewFailed(fmt.Sprintf("Test case exited normally but failed to create the results file: %v", err))
	}
	defer f.Close()

	tcr, err := tcresult.Parse(f)
	if err != nil {
		return tcresult.NewFailed(fmt.Sprintf("Test case exited normally but failed to create the results file: %v", err))
	}

	switch {
	case tcr.Status == tcresult.Passed && exitCode != 0:
		return tcresult.NewFailed("Test case exited with error but reported success")
	case tcr.Status == tcresult.Failed && exitCode == 0:
		return tcresult.NewFailed("Test case exited successfully but reported failure")
	default:
		return tcr
	}
}

func sortedKeys(cfg hostconfig.Config) []string {
	keys := make([]string, 0, len(cfg))
	for k := range cfg {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
