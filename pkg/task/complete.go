package task

import (
	"time"

	"github.com/ignatij/memoflow/pkg/target"
)

// Complete decides whether the node's execution may be skipped. It is pure
// except for one explicit side effect: a force-rerun node deletes its
// existing outputs exactly once per process lifetime and keeps reporting
// incomplete afterwards.
func (e *Engine) Complete(n Node) (bool, error) {
	cfg := n.Conf()
	if cfg.ForceRerun {
		if _, applied := e.forced.Load(n); !applied {
			outs, err := e.Outputs(n)
			if err != nil {
				return false, err
			}
			for _, t := range outs {
				if err := t.Remove(); err != nil {
					return false, err
				}
			}
			e.forced.Store(n, struct{}{})
			return false, nil
		}
	}

	outs, err := e.Outputs(n)
	if err != nil {
		return false, err
	}
	complete := true
	for _, t := range outs {
		exists, err := t.Exists()
		if err != nil {
			return false, err
		}
		complete = complete && exists
	}

	ins, err := e.Inputs(n)
	if err != nil {
		return false, err
	}

	if cfg.StrictCheck || cfg.ModificationTimeCheck {
		deps, err := e.DependencyNodes(n)
		if err != nil {
			return false, err
		}
		for _, dep := range deps {
			depComplete, err := e.Complete(dep)
			if err != nil {
				return false, err
			}
			complete = complete && depComplete
		}
		for _, t := range ins {
			exists, err := t.Exists()
			if err != nil {
				return false, err
			}
			complete = complete && exists
		}
	}

	if !cfg.ModificationTimeCheck || !complete || len(ins) == 0 {
		return complete, nil
	}
	return checkModificationTime(ins, outs)
}

// checkModificationTime requires the latest input modification to be no
// later than the earliest output modification. Paths appearing on both sides
// are excluded: a task may reuse an input path as an output path, and such a
// path cannot be older than itself. When either side has no remaining paths
// the check is vacuously satisfied.
func checkModificationTime(ins, outs []target.Target) (bool, error) {
	inPaths := make(map[string]struct{}, len(ins))
	for _, t := range ins {
		inPaths[t.Path()] = struct{}{}
	}
	common := make(map[string]struct{})
	for _, t := range outs {
		if _, ok := inPaths[t.Path()]; ok {
			common[t.Path()] = struct{}{}
		}
	}

	var latestIn, earliestOut *time.Time
	for _, t := range ins {
		if _, ok := common[t.Path()]; ok {
			continue
		}
		mtime, err := t.LastModificationTime()
		if err != nil {
			return false, err
		}
		if latestIn == nil || mtime.After(*latestIn) {
			latestIn = &mtime
		}
	}
	for _, t := range outs {
		if _, ok := common[t.Path()]; ok {
			continue
		}
		mtime, err := t.LastModificationTime()
		if err != nil {
			return false, err
		}
		if earliestOut == nil || mtime.Before(*earliestOut) {
			earliestOut = &mtime
		}
	}
	if latestIn == nil || earliestOut == nil {
		return true, nil
	}
	// Equality is permitted: an output legitimately reused from an
	// upstream task is not staleness.
	return !latestIn.After(*earliestOut), nil
}
