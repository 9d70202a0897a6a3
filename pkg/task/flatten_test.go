package task_test

import (
	"context"
	"testing"

	"github.com/ignatij/memoflow/pkg/task"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type multiTask struct {
	task.Base
	Deps []*paramTask
}

func (t *multiTask) Run(ctx context.Context, e *task.Engine) error { return nil }

type mixedTask struct {
	task.Base
	Name  string
	Count int
	Dep   *paramTask
}

func (t *mixedTask) Run(ctx context.Context, e *task.Engine) error { return nil }

func TestFlatten(t *testing.T) {
	a := newParamTask(1)
	b := newParamTask(2)
	c := newParamTask(3)

	t.Run("Nil", func(t *testing.T) {
		items, err := task.Flatten(nil)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("BareNode", func(t *testing.T) {
		items, err := task.Flatten(a)
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Same(t, a, items[0])
	})

	t.Run("PreservesSliceOrder", func(t *testing.T) {
		items, err := task.Flatten([]interface{}{a, []interface{}{b, c}})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Same(t, a, items[0])
		assert.Same(t, b, items[1])
		assert.Same(t, c, items[2])
	})

	t.Run("TypedSlice", func(t *testing.T) {
		items, err := task.Flatten([]*paramTask{c, a})
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Same(t, c, items[0])
		assert.Same(t, a, items[1])
	})

	t.Run("MapVisitedInSortedKeyOrder", func(t *testing.T) {
		items, err := task.Flatten(map[string]interface{}{
			"zz": c,
			"aa": a,
			"mm": b,
		})
		require.NoError(t, err)
		require.Len(t, items, 3)
		assert.Same(t, a, items[0])
		assert.Same(t, b, items[1])
		assert.Same(t, c, items[2])
	})

	t.Run("ExternalItem", func(t *testing.T) {
		items, err := task.Flatten([]interface{}{a, externalItem{params: "p=1"}})
		require.NoError(t, err)
		require.Len(t, items, 2)
		_, ok := items[1].(task.External)
		assert.True(t, ok)
	})

	t.Run("ContractViolation", func(t *testing.T) {
		_, err := task.Flatten([]interface{}{a, 42})
		require.Error(t, err)
		var cv *task.ContractViolationError
		require.True(t, errors.As(err, &cv))
		assert.Contains(t, err.Error(), "int")
	})

	t.Run("NonStringMapKeys", func(t *testing.T) {
		_, err := task.Flatten(map[int]interface{}{1: a})
		require.Error(t, err)
		var cv *task.ContractViolationError
		assert.True(t, errors.As(err, &cv))
	})
}

func TestDiscover(t *testing.T) {
	t.Run("FindsNodeFields", func(t *testing.T) {
		dep := newParamTask(1)
		n := newDepTask(dep)
		found := task.Discover(n)
		require.Len(t, found, 1)
		assert.Same(t, dep, found["Dep"])
	})

	t.Run("FindsHomogeneousSlices", func(t *testing.T) {
		n := &multiTask{Deps: []*paramTask{newParamTask(1), newParamTask(2)}}
		n.Init("MultiTask", "testing/multi")
		found := task.Discover(n)
		require.Len(t, found, 1)
		nodes, ok := found["Deps"].([]interface{})
		require.True(t, ok)
		assert.Len(t, nodes, 2)
	})

	t.Run("EmptySliceIsNotACollection", func(t *testing.T) {
		n := &multiTask{}
		n.Init("MultiTask", "testing/multi")
		assert.Empty(t, task.Discover(n))
	})

	t.Run("IgnoresMixedAndNonNodeFields", func(t *testing.T) {
		dep := newParamTask(1)
		n := &mixedTask{Name: "x", Count: 3, Dep: dep}
		n.Init("MixedTask", "testing/mixed")
		found := task.Discover(n)
		require.Len(t, found, 1)
		assert.Same(t, dep, found["Dep"])
	})

	t.Run("IgnoresNilNodeFields", func(t *testing.T) {
		n := newDepTask(nil)
		assert.Empty(t, task.Discover(n))
	})
}
