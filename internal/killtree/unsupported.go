package killtree

// unsupportedEnumerator is pid_grabber strategy (c): the platform cannot
// tell us a process's children at all, so kill_tree degrades to killing
// only the root pid and recording a diagnostic (spec §4.7 step 2(c)).
type unsupportedEnumerator struct{}

func (unsupportedEnumerator) CanEnumerate() bool { return false }

func (unsupportedEnumerator) ChildrenOf(pid int) ([]int, error) { return nil, nil }
