package process

import (
	"context"
	"time"

	gprocess "github.com/shirou/gopsutil/v4/process"
)

// treeLookupTimeout bounds the process table walk done on cancellation.
const treeLookupTimeout = 2 * time.Second

// descendants returns every process below pid, children first.
// Lookup failures yield a partial (possibly empty) list.
func descendants(pid int) []*gprocess.Process {
	ctx, cancel := context.WithTimeout(context.Background(), treeLookupTimeout)
	defer cancel()

	root, err := gprocess.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return nil
	}
	return collectChildren(ctx, root)
}

func collectChildren(ctx context.Context, p *gprocess.Process) []*gprocess.Process {
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return nil
	}
	out := make([]*gprocess.Process, 0, len(children))
	for _, c := range children {
		out = append(out, c)
		out = append(out, collectChildren(ctx, c)...)
	}
	return out
}

// killStragglers kills descendants that outlived their process group, for
// example children that called setsid. IsRunning compares creation times,
// so a recycled pid is left alone.
func killStragglers(tree []*gprocess.Process) {
	ctx, cancel := context.WithTimeout(context.Background(), treeLookupTimeout)
	defer cancel()

	for _, p := range tree {
		if running, err := p.IsRunningWithContext(ctx); err == nil && running {
			_ = p.KillWithContext(ctx)
		}
	}
}

// Alive reports whether pid names a running process.
func Alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	ok, err := gprocess.PidExists(int32(pid))
	return err == nil && ok
}
