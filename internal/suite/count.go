package suite

import "github.com/atf-go/atfrun/internal/atfpath"

// countPrograms performs the dry traversal spec §4.8 requires before a run
// starts: it walks the same tree runProgram/walkDir will walk, but only
// counts leaf test programs, never invoking them.
func (w *Walker) countPrograms(root atfpath.Path, cliPrograms []string) (int, error) {
	return w.countAt(root, cliPrograms, true)
}

func (w *Walker) countAt(path atfpath.Path, override []string, isRoot bool) (int, error) {
	kind, err := atfpath.FileKindOf(path)
	if err != nil {
		return 0, err
	}
	if kind != atfpath.KindDirectory {
		return 1, nil
	}

	manifest, err := readManifest(path.Join("Atffile"), w.Glob)
	if err != nil {
		return 0, err
	}

	programs := manifest.TestPrograms
	if isRoot && len(override) > 0 {
		programs = override
	}

	total := 0
	for _, prog := range programs {
		progPath, err := atfpath.New(prog)
		if err != nil {
			return 0, err
		}
		if !progPath.IsAbsolute() {
			progPath = path.Join(prog)
		}
		n, err := w.countAt(progPath, nil, false)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}
