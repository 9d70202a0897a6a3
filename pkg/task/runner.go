package task

import (
	"context"
	"time"

	"github.com/ignatij/memoflow/pkg/history"
	"github.com/ignatij/memoflow/pkg/models"
	"github.com/pkg/errors"
)

// Runner is the execution driver for a dependency subtree: it runs a node's
// incomplete requirements depth-first and then the node itself, gating every
// execution on the completion check. Graph-wide scheduling and parallelism
// belong to an external orchestrator; the runner only honors the declared
// dependency order of one subtree.
type Runner struct {
	engine    *Engine
	store     history.Store // optional
	callbacks Callbacks
	logger    Logger
}

func NewRunner(engine *Engine, store history.Store, callbacks Callbacks, logger Logger) *Runner {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Runner{
		engine:    engine,
		store:     store,
		callbacks: callbacks,
		logger:    logger,
	}
}

// Run executes the node after its requirements.
func (r *Runner) Run(ctx context.Context, n Node) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	deps, err := r.engine.DependencyNodes(n)
	if err != nil {
		return err
	}
	for _, dep := range deps {
		if err := r.Run(ctx, dep); err != nil {
			return err
		}
	}
	return r.runOne(ctx, n)
}

func (r *Runner) runOne(ctx context.Context, n Node) error {
	snap, err := r.engine.Snapshot(n)
	if err != nil {
		return err
	}
	complete, err := r.engine.Complete(n)
	if err != nil {
		return err
	}
	if complete {
		r.logger.Infof("Task %s[%s] is already complete, skipping run", snap.Name, snap.Identity)
		r.record(snap, models.SkippedRunStatus, nil, nil, 0)
		return nil
	}

	cfg := n.Conf()
	if cfg.LockAtRun && !r.engine.Locks().Enabled() {
		return errors.Wrapf(ErrLockNotConfigured, "task %s", snap.Name)
	}

	runID := r.recordStart(snap)
	for _, cb := range r.callbacks.BeforeRun {
		cb(snap)
	}
	if hookErr := r.engine.fireStart(n); hookErr != nil {
		r.logger.Errorf("Start hook for task %s[%s] failed: %v", snap.Name, snap.Identity, hookErr)
	}

	started := time.Now()
	body := func(ctx context.Context) error {
		return n.Run(ctx, r.engine)
	}
	var runErr error
	if cfg.LockAtRun {
		// One lease around the whole execution; a collision means another
		// process is running this identity and must fail rather than
		// silently skip.
		runErr = r.engine.Locks().WithLock(ctx, runLockKey(snap), body)
	} else {
		runErr = body(ctx)
	}
	elapsed := time.Since(started)

	if runErr != nil {
		for _, cb := range r.callbacks.AfterFailure {
			cb(snap, runErr)
		}
		if hookErr := r.engine.fireFailure(n, runErr); hookErr != nil {
			r.logger.Errorf("Failure hook for task %s[%s] failed: %v", snap.Name, snap.Identity, hookErr)
		}
		r.finish(runID, snap, models.FailedRunStatus, runErr, elapsed)
		return errors.Wrapf(runErr, "task %s[%s]", snap.Name, snap.Identity)
	}

	for _, cb := range r.callbacks.AfterSuccess {
		cb(snap)
	}
	if hookErr := r.engine.fireSuccess(n); hookErr != nil {
		r.logger.Errorf("Success hook for task %s[%s] failed: %v", snap.Name, snap.Identity, hookErr)
	}
	for _, cb := range r.callbacks.AfterTiming {
		cb(snap, elapsed)
	}
	if hookErr := r.engine.fireTiming(n, elapsed); hookErr != nil {
		r.logger.Errorf("Timing hook for task %s[%s] failed: %v", snap.Name, snap.Identity, hookErr)
	}
	r.finish(runID, snap, models.CompletedRunStatus, nil, elapsed)
	r.logger.Infof("Task %s[%s] completed in %s", snap.Name, snap.Identity, elapsed)
	return nil
}

// recordStart persists a RUNNING run record; history failures are logged and
// swallowed so bookkeeping never masks the task outcome.
func (r *Runner) recordStart(snap Snapshot) int64 {
	if r.store == nil {
		return 0
	}
	now := time.Now()
	id, err := r.store.SaveRun(models.Run{
		TaskName:  snap.Name,
		Identity:  snap.Identity,
		Status:    models.RunningRunStatus,
		StartedAt: &now,
		CreatedAt: now,
	})
	if err != nil {
		r.logger.Errorf("Failed to record start of task %s[%s]: %v", snap.Name, snap.Identity, err)
		return 0
	}
	return id
}

func (r *Runner) finish(runID int64, snap Snapshot, status models.RunStatus, runErr error, elapsed time.Duration) {
	if r.store == nil || runID == 0 {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	if err := r.store.FinishRun(runID, status, errMsg, elapsed); err != nil {
		r.logger.Errorf("Failed to record finish of task %s[%s]: %v", snap.Name, snap.Identity, err)
	}
}

func (r *Runner) record(snap Snapshot, status models.RunStatus, runErr error, startedAt *time.Time, elapsed time.Duration) {
	if r.store == nil {
		return
	}
	errMsg := ""
	if runErr != nil {
		errMsg = runErr.Error()
	}
	_, err := r.store.SaveRun(models.Run{
		TaskName:  snap.Name,
		Identity:  snap.Identity,
		Status:    status,
		ErrorMsg:  errMsg,
		StartedAt: startedAt,
		ElapsedMS: elapsed.Milliseconds(),
		CreatedAt: time.Now(),
	})
	if err != nil {
		r.logger.Errorf("Failed to record task %s[%s]: %v", snap.Name, snap.Identity, err)
	}
}
