package killtree

import (
	"github.com/shirou/gopsutil/v3/process"
)

// gopsutilEnumerator is pid_grabber strategy (a) from spec §4.7: "an
// in-kernel process-info API". Grounded on
// chromiumos/tast/internal/command/signal.go's use of the same library to
// find a process's children by walking Ppid() over process.Processes().
type gopsutilEnumerator struct{}

func (gopsutilEnumerator) CanEnumerate() bool {
	_, err := process.Processes()
	return err == nil
}

func (gopsutilEnumerator) ChildrenOf(pid int) ([]int, error) {
	procs, err := process.Processes()
	if err != nil {
		return nil, err
	}

	var children []int
	for _, p := range procs {
		ppid, err := p.Ppid()
		if err != nil {
			continue
		}
		if int(ppid) == pid {
			children = append(children, int(p.Pid))
		}
	}
	return children, nil
}
