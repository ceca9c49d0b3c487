package killtree

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// procfsEnumerator is pid_grabber strategy (b): a hand-rolled walk of
// /proc, parsing each process's parent-pid field. Grounded on
// original_source/atf/procs.cpp's PID_GRABBER_LINUX_PROCFS branch, which
// reads /proc/<pid>/stat and takes the fourth whitespace-separated field.
type procfsEnumerator struct{}

func (procfsEnumerator) CanEnumerate() bool {
	fi, err := os.Stat("/proc")
	return err == nil && fi.IsDir()
}

func (procfsEnumerator) ChildrenOf(pid int) ([]int, error) {
	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, err
	}

	var children []int
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := strconv.Atoi(e.Name()); err != nil {
			continue
		}
		ppid, err := parentPidOf(e.Name())
		if err != nil {
			continue
		}
		if ppid == pid {
			candidate, err := strconv.Atoi(e.Name())
			if err == nil {
				children = append(children, candidate)
			}
		}
	}
	return children, nil
}

// parentPidOf reads /proc/<pid>/stat and extracts the ppid field. The
// comm field (2nd field) is parenthesized and may itself contain spaces or
// closing parens, so we split on the last ')' rather than naively
// splitting on whitespace.
func parentPidOf(pidstr string) (int, error) {
	f, err := os.Open("/proc/" + pidstr + "/stat")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	r := bufio.NewReader(f)
	line, err := r.ReadString('\n')
	if err != nil && line == "" {
		return 0, err
	}

	closeParen := strings.LastIndexByte(line, ')')
	if closeParen < 0 {
		return 0, fmt.Errorf("malformed /proc/%s/stat", pidstr)
	}
	rest := strings.Fields(line[closeParen+1:])
	// rest[0] = state, rest[1] = ppid.
	if len(rest) < 2 {
		return 0, fmt.Errorf("malformed /proc/%s/stat", pidstr)
	}
	return strconv.Atoi(rest[1])
}
