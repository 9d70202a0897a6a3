package task_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ignatij/memoflow/pkg/target"
	"github.com/ignatij/memoflow/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingTarget wraps a target and counts Remove calls.
type countingTarget struct {
	target.Target
	removes *int
}

func (c countingTarget) Remove() error {
	*c.removes++
	return c.Target.Remove()
}

// pathTask reads from fixed input paths and writes to fixed output paths,
// giving tests full control over filesystem metadata.
type pathTask struct {
	task.Base
	deps    interface{}
	outputs interface{}
}

func newPathTask(name string, deps, outputs interface{}, opts ...task.Option) *pathTask {
	t := &pathTask{deps: deps, outputs: outputs}
	t.Init(name, "testing/paths", opts...)
	return t
}

func (t *pathTask) Requires() interface{} {
	return t.deps
}

func (t *pathTask) Output(e *task.Engine) interface{} {
	return t.outputs
}

func (t *pathTask) Run(ctx context.Context, e *task.Engine) error {
	return nil
}

func writeFile(t *testing.T, path string, mtime time.Time) *target.FileTarget {
	t.Helper()
	tgt := target.NewFileTarget(path)
	require.NoError(t, tgt.Dump([]byte("data")))
	if !mtime.IsZero() {
		require.NoError(t, os.Chtimes(path, mtime, mtime))
	}
	return tgt
}

func TestComplete(t *testing.T) {
	ctx := context.Background()

	t.Run("BaseCompleteness", func(t *testing.T) {
		e := newEngine(t)
		n := newParamTask(1)

		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.False(t, complete)

		require.NoError(t, n.Run(ctx, e))

		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete)
	})

	t.Run("ForceRerunDeletesOnce", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()
		removes := 0
		out := countingTarget{Target: writeFile(t, filepath.Join(dir, "out.bin"), time.Time{}), removes: &removes}
		n := newPathTask("ForcedTask", nil, out, task.ForceRerun())

		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.False(t, complete)
		assert.Equal(t, 1, removes)
		exists, err := out.Exists()
		require.NoError(t, err)
		assert.False(t, exists, "first check removes existing outputs")

		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.False(t, complete)
		assert.Equal(t, 1, removes, "outputs are deleted at most once per process")
	})

	t.Run("WithoutForceRerunOutputSurvives", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()
		out := writeFile(t, filepath.Join(dir, "out.bin"), time.Time{})
		n := newPathTask("PlainTask", nil, out)

		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete)
		exists, err := out.Exists()
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("StrictCheckRequiresCompleteUpstream", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()

		depOut := target.NewFileTarget(filepath.Join(dir, "dep.bin"))
		dep := newPathTask("UpstreamTask", nil, depOut)
		out := writeFile(t, filepath.Join(dir, "out.bin"), time.Time{})

		relaxed := newPathTask("DownstreamTask", dep, out)
		complete, err := e.Complete(relaxed)
		require.NoError(t, err)
		assert.True(t, complete, "without strict-check only own outputs matter")

		strict := newPathTask("DownstreamTask", dep, out, task.StrictCheck())
		complete, err = e.Complete(strict)
		require.NoError(t, err)
		assert.False(t, complete, "dependency outputs are missing")

		require.NoError(t, depOut.Dump([]byte("data")))
		complete, err = e.Complete(strict)
		require.NoError(t, err)
		assert.True(t, complete)
	})

	t.Run("ModificationTimeMonotonicity", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()
		t1 := time.Now().Add(-time.Hour).Truncate(time.Second)

		depOut := writeFile(t, filepath.Join(dir, "in.bin"), t1)
		dep := newPathTask("InputTask", nil, depOut)

		fresh := writeFile(t, filepath.Join(dir, "out.bin"), t1.Add(time.Minute))
		n := newPathTask("MtimeTask", dep, fresh, task.ModificationTimeCheck())
		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete, "input older than output")

		stale := writeFile(t, filepath.Join(dir, "stale.bin"), t1.Add(-time.Minute))
		n = newPathTask("MtimeTask", dep, stale, task.ModificationTimeCheck())
		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.False(t, complete, "input newer than output")

		equal := writeFile(t, filepath.Join(dir, "equal.bin"), t1)
		n = newPathTask("MtimeTask", dep, equal, task.ModificationTimeCheck())
		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete, "equal timestamps are permitted")
	})

	t.Run("SharedPathExemption", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()
		now := time.Now().Truncate(time.Second)

		// The node reuses its input path as an output path; the shared
		// path is excluded and cannot by itself cause staleness.
		shared := writeFile(t, filepath.Join(dir, "shared.bin"), now)
		dep := newPathTask("SharedInputTask", nil, shared)
		n := newPathTask("ReuseTask", dep, shared, task.ModificationTimeCheck())

		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete, "no comparable paths remain, vacuously satisfied")

		// The shared path is newer than the real output, yet only the
		// remaining paths are compared: old input vs. output passes.
		oldIn := writeFile(t, filepath.Join(dir, "old.bin"), now.Add(-2*time.Hour))
		oldDep := newPathTask("OldInputTask", nil, oldIn)
		out := writeFile(t, filepath.Join(dir, "out.bin"), now.Add(-time.Hour))
		n = newPathTask("ReuseTask", []interface{}{dep, oldDep}, []interface{}{shared, out}, task.ModificationTimeCheck())
		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete)

		// A genuinely fresh non-shared input still fails against the
		// stale output.
		freshIn := writeFile(t, filepath.Join(dir, "fresh.bin"), now)
		freshDep := newPathTask("FreshInputTask", nil, freshIn)
		n = newPathTask("ReuseTask", []interface{}{dep, freshDep}, []interface{}{shared, out}, task.ModificationTimeCheck())
		complete, err = e.Complete(n)
		require.NoError(t, err)
		assert.False(t, complete)
	})

	t.Run("NoInputsSkipsModificationTimeCheck", func(t *testing.T) {
		e := newEngine(t)
		dir := t.TempDir()
		out := writeFile(t, filepath.Join(dir, "out.bin"), time.Time{})
		n := newPathTask("NoInputTask", nil, out, task.ModificationTimeCheck())

		complete, err := e.Complete(n)
		require.NoError(t, err)
		assert.True(t, complete)
	})
}
