package task_test

import (
	"context"
	"testing"

	"github.com/ignatij/memoflow/pkg/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneConfig(t *testing.T) {
	t.Run("ResetsCheckFlags", func(t *testing.T) {
		seed := int64(42)
		src := &task.Config{
			ForceRerun:            true,
			StrictCheck:           true,
			ModificationTimeCheck: true,
			CodeFingerprintCheck:  true,
			CacheIdentity:         true,
			Significant:           true,
			AuxiliaryWrites:       true,
			LockAtDump:            true,
			LockAtRun:             true,
			RejectEmptyDump:       true,
			FixedSeed:             &seed,
		}

		derived := task.CloneConfig(src)
		assert.False(t, derived.ForceRerun)
		assert.False(t, derived.StrictCheck)
		assert.False(t, derived.ModificationTimeCheck)

		// Everything else copies through.
		assert.True(t, derived.CodeFingerprintCheck)
		assert.True(t, derived.CacheIdentity)
		assert.True(t, derived.Significant)
		assert.True(t, derived.AuxiliaryWrites)
		assert.True(t, derived.LockAtDump)
		assert.True(t, derived.LockAtRun)
		assert.True(t, derived.RejectEmptyDump)
		require.NotNil(t, derived.FixedSeed)
		assert.Equal(t, int64(42), *derived.FixedSeed)
	})

	t.Run("SourceIsUntouched", func(t *testing.T) {
		src := &task.Config{ForceRerun: true, StrictCheck: true}
		derived := task.CloneConfig(src)
		derived.CacheIdentity = true

		assert.True(t, src.ForceRerun)
		assert.True(t, src.StrictCheck)
		assert.False(t, src.CacheIdentity)
	})

	t.Run("DerivedNodeDoesNotInheritForceRerun", func(t *testing.T) {
		e := newEngine(t)
		forced := newParamTask(1, task.ForceRerun())

		derived := newParamTask(1, task.WithConfig(task.CloneConfig(forced.Conf())))
		require.NoError(t, derived.Run(context.Background(), e))

		// The derived node keeps its output; only the original deletes.
		complete, err := e.Complete(derived)
		require.NoError(t, err)
		assert.True(t, complete)
	})
}

func TestNodeConfig(t *testing.T) {
	defaults := task.DefaultConfig()
	defaults.ModificationTimeCheck = true
	defaults.RejectEmptyDump = true
	e, err := task.NewEngine(task.Options{
		WorkspaceDir: t.TempDir(),
		Defaults:     defaults,
		Logger:       logger{},
	})
	require.NoError(t, err)

	// Nodes pick up the composition-root defaults through WithConfig.
	n := newParamTask(1, task.WithConfig(e.NodeConfig()))
	assert.True(t, n.Conf().ModificationTimeCheck)
	assert.True(t, n.Conf().RejectEmptyDump)
	assert.True(t, n.Conf().CacheIdentity)

	// Further options layer on top of the fetched defaults.
	strict := newParamTask(1, task.WithConfig(e.NodeConfig()), task.StrictCheck())
	assert.True(t, strict.Conf().StrictCheck)
	assert.True(t, strict.Conf().ModificationTimeCheck)

	// NodeConfig hands out copies; mutating one never leaks into the engine.
	e.NodeConfig().ForceRerun = true
	assert.False(t, e.NodeConfig().ForceRerun)
}
