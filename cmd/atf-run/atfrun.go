// Package atfrun wires the atf-run CLI command (spec §6): parses -v
// overrides and program-path arguments, drives internal/suite.Walker, and
// tees its events to the tps transcript on stdout and a human progress
// ticker on stderr.
package atfrun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli"

	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/hooks"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/kv"
	"github.com/atf-go/atfrun/internal/logging"
	"github.com/atf-go/atfrun/internal/render"
	"github.com/atf-go/atfrun/internal/suite"
	"github.com/atf-go/atfrun/internal/transcript"
)

// UsageError is returned for malformed command-line input; the caller
// translates it to exit status 2 (spec §6: "Usage errors yield 2").
type UsageError struct{ Err error }

func (e *UsageError) Error() string { return e.Err.Error() }
func (e *UsageError) Unwrap() error { return e.Err }

// Command is the urfave/cli specification of the atf-run command.
var Command = cli.Command{
	Name:  "run",
	Usage: "run the test programs declared by an Atffile",
	Flags: []cli.Flag{
		cli.StringSliceFlag{
			Name:  "v",
			Usage: "override a configuration variable: -v name=value",
		},
	},
	Action: action,
}

func action(c *cli.Context) error {
	overrides, err := kv.Parse([]string(c.StringSlice("v")))
	if err != nil {
		return cli.NewExitError((&UsageError{Err: err}).Error(), 2)
	}

	root, err := rootManifestDir()
	if err != nil {
		return err
	}

	code := Run(context.Background(), os.Stdout, os.Stderr, root, hostconfig.Config(overrides), []string(c.Args()))
	if code != 0 {
		return cli.NewExitError("", code)
	}
	return nil
}

// Run executes one full atf-run invocation and returns the process exit
// status: 0 when every case passed or was skipped, 1 when any failed or an
// unrecoverable framework error occurred. Usage errors never reach Run; the
// command action reports them with status 2. transcriptOut receives the tps
// document; diagnostics receives only human progress output.
func Run(ctx context.Context, transcriptOut, diagnostics *os.File, root atfpath.Path, overrides hostconfig.Config, cliPrograms []string) int {
	logger := logging.L()

	hostConfigDir := ""
	if home := os.Getenv("HOME"); home != "" {
		hostConfigDir = filepath.Join(home, ".atf")
	}

	workdirRoot := overrides["atf_workdir"]
	if workdirRoot == "" {
		if tmp := os.Getenv("TMPDIR"); tmp != "" {
			workdirRoot = tmp
		} else {
			workdirRoot = os.TempDir()
		}
	}

	hookDir := os.Getenv("ATF_RUN_HOOKS")
	if err := hooks.Run(hookDir, hooks.Pre, logger); err != nil {
		fmt.Fprintln(diagnostics, err)
		return 1
	}
	defer func() {
		if err := hooks.Run(hookDir, hooks.Post, logger); err != nil {
			fmt.Fprintln(diagnostics, err)
		}
	}()

	tw := transcript.NewWriter(transcriptOut)
	printer := render.NewPrinter(diagnostics)
	sink := suite.TeeSink(tw, printer)

	w := &suite.Walker{
		HostConfigDir: hostConfigDir,
		CLIOverrides:  overrides,
		Glob:          filepath.Glob,
		WorkdirRoot:   workdirRoot,
		Env:           os.Environ(),
		PathEnv:       os.Getenv("PATH"),
		Logger:        logger,
	}

	if err := w.Run(ctx, sink, root, cliPrograms); err != nil {
		fmt.Fprintln(diagnostics, err)
		return 1
	}

	printer.Summary()
	if printer.Failed() {
		return 1
	}
	return 0
}

// rootManifestDir resolves the root of the manifest tree: the current
// directory, whose Atffile is the implicit root (spec §6: "with no program
// paths, the current directory's Atffile is the root").
func rootManifestDir() (atfpath.Path, error) {
	wd, err := os.Getwd()
	if err != nil {
		return atfpath.Path{}, fmt.Errorf("atf-run: determine working directory: %w", err)
	}
	return atfpath.New(wd)
}
