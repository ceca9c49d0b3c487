package suite

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/atf-go/atfrun/internal/atffile"
	"github.com/atf-go/atfrun/internal/atfpath"
	"github.com/atf-go/atfrun/internal/executor"
	"github.com/atf-go/atfrun/internal/hostconfig"
	"github.com/atf-go/atfrun/internal/tcresult"
)

// Walker drives one full run: it descends a manifest tree, loads and
// restores configuration scopes lexically, and feeds a Sink.
type Walker struct {
	// HostConfigDir is the directory internal/hostconfig loads common.conf
	// and <suite>.conf from whenever a manifest declares test-suite.
	HostConfigDir string
	// CLIOverrides are -v flags given on the atf-run command line; they
	// win over every other config scope (spec §3 Config).
	CLIOverrides hostconfig.Config
	// Glob resolves tp-glob patterns; may be nil if no manifest in the
	// tree uses tp-glob.
	Glob atffile.Globber

	WorkdirRoot string
	Env         []string
	PathEnv     string

	Logger *zap.Logger
}

// Run walks the tree rooted at root, writing every event to sink. cliPrograms,
// if non-empty, overrides the root manifest's own tp list (spec §4.8: "a
// possibly empty command-line list of test-program paths overriding the
// manifest's tp list"); it has no effect below the root.
func (w *Walker) Run(ctx context.Context, sink Sink, root atfpath.Path, cliPrograms []string) error {
	logger := w.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	count, err := w.countPrograms(root, cliPrograms)
	if err != nil {
		return fmt.Errorf("suite: counting test programs: %w", err)
	}
	sink.Count(count)

	initial, err := hostconfig.Merge(hostconfig.Config{}, hostconfig.Config{}, w.CLIOverrides)
	if err != nil {
		return fmt.Errorf("suite: seeding initial config scope: %w", err)
	}

	return w.walk(ctx, sink, root, cliPrograms, initial, true)
}

func (w *Walker) walk(ctx context.Context, sink Sink, path atfpath.Path, override []string, scope hostconfig.Config, isRoot bool) error {
	kind, err := atfpath.FileKindOf(path)
	if err != nil {
		return err
	}

	if kind == atfpath.KindDirectory {
		return w.walkDir(ctx, sink, path, override, scope, isRoot)
	}
	return w.runProgram(ctx, sink, path, scope)
}

func (w *Walker) walkDir(ctx context.Context, sink Sink, dir atfpath.Path, override []string, scope hostconfig.Config, isRoot bool) error {
	manifestPath := dir.Join("Atffile")
	manifest, err := readManifest(manifestPath, w.Glob)
	if err != nil {
		return fmt.Errorf("suite: reading manifest %s: %w", manifestPath, err)
	}

	// A freshly declared test-suite replaces the inherited host+suite
	// config base entirely (spec §4.8: "reload host config for that
	// suite name"); otherwise the base carries forward from the parent
	// scope. Either way, manifest conf: variables win over the base, and
	// command-line overrides win over everything (spec §3 Config's fixed
	// merge order), applied fresh at every level so it survives reload.
	base := scope
	if manifest.TestSuite != "" {
		hostCfg, err := hostconfig.Load(w.HostConfigDir, manifest.TestSuite)
		if err != nil {
			return fmt.Errorf("suite: loading host config for suite %q: %w", manifest.TestSuite, err)
		}
		base = hostCfg
	}
	nextScope, err := hostconfig.Merge(base, hostconfig.Config(manifest.Conf), w.CLIOverrides)
	if err != nil {
		return err
	}

	programs := manifest.TestPrograms
	if isRoot && len(override) > 0 {
		programs = override
	}

	for _, prog := range programs {
		progPath, err := atfpath.New(prog)
		if err != nil {
			return err
		}
		if !progPath.IsAbsolute() {
			progPath = dir.Join(prog)
		}
		// The restored-scope guarantee (spec §4.8: "after returning from a
		// subdirectory, the parent's config scope is restored exactly")
		// falls out of nextScope being a fresh map per call: sibling
		// recursions never observe each other's mutations.
		if err := w.walk(ctx, sink, progPath, nil, nextScope, false); err != nil {
			return err
		}
	}
	return nil
}

func (w *Walker) runProgram(ctx context.Context, sink Sink, program atfpath.Path, scope hostconfig.Config) error {
	metas, err := executor.ListCases(ctx, program, program.Parent(), scope, w.Env)
	if err != nil {
		sink.StartProgram(program.String(), 0)
		sink.EndProgram(program.String(), fmt.Sprintf("Invalid format for test case list: %s", executor.FlattenReason(err)))
		return nil
	}

	sink.StartProgram(program.String(), len(metas))
	for _, meta := range metas {
		sink.StartCase(meta.Ident)

		c := executor.Case{
			Program:  program,
			SrcDir:   program.Parent(),
			Meta:     meta,
			Config:   scope,
			WorkdirRoot: w.WorkdirRoot,
			Env:      w.Env,
			PathEnv:  w.PathEnv,
			OnStdout: sink.Stdout,
			OnStderr: sink.Stderr,
			Logger:   w.Logger,
		}

		result, err := executor.Run(ctx, c)
		if err != nil {
			result.TCR = tcresult.NewFailed(err.Error())
		}
		sink.EndCase(result.TCR)
	}
	sink.EndProgram(program.String(), "")
	return nil
}

func readManifest(path atfpath.Path, glob atffile.Globber) (*atffile.Manifest, error) {
	f, err := os.Open(path.String())
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return atffile.Parse(f, resolvedGlob(path, glob))
}

// resolvedGlob adapts a package-level Globber (which resolves a pattern
// relative to "the executable entries of the manifest's directory", per
// internal/atffile's doc comment) to the manifest's own directory. The
// underlying glob (typically filepath.Glob) returns matches already
// prefixed with dir, so they're stripped back to dir-relative here: walkDir
// re-joins every manifest entry - literal tp or glob match alike - against
// dir itself, and joining an already dir-prefixed match a second time would
// double it. Matches that are not executable are dropped.
func resolvedGlob(manifestPath atfpath.Path, glob atffile.Globber) atffile.Globber {
	if glob == nil {
		return nil
	}
	dir := manifestPath.Parent()
	return func(pattern string) ([]string, error) {
		matches, err := glob(dir.Join(pattern).String())
		if err != nil {
			return nil, err
		}
		out := make([]string, 0, len(matches))
		for _, m := range matches {
			p, err := atfpath.New(m)
			if err != nil {
				return nil, err
			}
			if ok, err := atfpath.IsExecutable(p); err != nil || !ok {
				continue
			}
			out = append(out, stripDirPrefix(dir, m))
		}
		return out, nil
	}
}

func stripDirPrefix(dir atfpath.Path, match string) string {
	if dir.String() == "." {
		return match
	}
	prefix := dir.String() + "/"
	if dir.IsRoot() {
		prefix = "/"
	}
	return strings.TrimPrefix(match, prefix)
}
