package task

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ignatij/memoflow/pkg/target"
	"github.com/pkg/errors"
)

// Auxiliary record kinds persisted under <workspace>/log/<kind>/.
const (
	RecordTaskParams     = "task_params"
	RecordRandomSeed     = "random_seed"
	RecordProcessingTime = "processing_time"
	RecordExecutionLog   = "execution_log"
	RecordCodeVersions   = "code_versions"
)

// Snapshot is the immutable view of a node handed to lifecycle callbacks.
type Snapshot struct {
	Name     string
	Module   string
	Identity string
	Params   map[string]string
}

// Callbacks is the explicit, ordered list of lifecycle callbacks the
// execution driver invokes at defined points. None of them affect the node's
// identity or completion status.
type Callbacks struct {
	BeforeRun    []func(Snapshot)
	AfterSuccess []func(Snapshot)
	AfterFailure []func(Snapshot, error)
	AfterTiming  []func(Snapshot, time.Duration)
}

// Snapshot captures the node's identity and public significant parameters.
func (e *Engine) Snapshot(n Node) (Snapshot, error) {
	id, err := e.Identity(n)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Name:     n.TaskName(),
		Module:   n.TaskModule(),
		Identity: id,
		Params:   n.Params().PublicMap(),
	}, nil
}

// Seed derives the node's random seed deterministically from its identity,
// unless a fixed override is configured.
func (e *Engine) Seed(n Node) (int64, error) {
	if n.Conf().FixedSeed != nil {
		return *n.Conf().FixedSeed, nil
	}
	id, err := e.Identity(n)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(id, 16, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "parse identity %s", id)
	}
	return int64(v % (1<<32 - 1)), nil
}

func (e *Engine) auxTarget(n Node, kind string) (target.Target, error) {
	id, err := e.Identity(n)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(e.workspaceDir, "log", kind, fmt.Sprintf("%s_%s.json", n.TaskName(), id))
	return target.NewFileTarget(path), nil
}

func (e *Engine) writeAux(n Node, kind string, payload interface{}) error {
	t, err := e.auxTarget(n, kind)
	if err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "marshal %s record for %s", kind, n.TaskName())
	}
	if err := t.Dump(data); err != nil {
		return errors.Wrapf(err, "dump %s record for %s", kind, n.TaskName())
	}
	return nil
}

// fireStart writes the start-event records: the assigned random seed and the
// resolved parameters, plus the declared code fingerprint when the
// fingerprint check is on.
func (e *Engine) fireStart(n Node) error {
	if !n.Conf().AuxiliaryWrites {
		return nil
	}
	seed, err := e.Seed(n)
	if err != nil {
		return err
	}
	if err := e.writeAux(n, RecordRandomSeed, map[string]int64{"seed": seed}); err != nil {
		return err
	}
	if err := e.writeAux(n, RecordTaskParams, n.Params().PublicMap()); err != nil {
		return err
	}
	if n.Conf().CodeFingerprintCheck {
		if f, ok := n.(Fingerprinted); ok {
			if err := e.writeAux(n, RecordCodeVersions, map[string]string{"fingerprint": f.CodeFingerprint()}); err != nil {
				return err
			}
		}
	}
	return nil
}

// fireSuccess records the written output paths.
func (e *Engine) fireSuccess(n Node) error {
	if !n.Conf().AuxiliaryWrites {
		return nil
	}
	outs, err := e.Outputs(n)
	if err != nil {
		return err
	}
	paths := make([]string, 0, len(outs))
	for _, t := range outs {
		paths = append(paths, t.Path())
	}
	return e.writeAux(n, RecordExecutionLog, map[string]interface{}{
		"status":    "success",
		"file_path": paths,
	})
}

// fireFailure records a diagnostic naming the node's class and identity so a
// failed run can be correlated with its cached re-execution.
func (e *Engine) fireFailure(n Node, runErr error) error {
	id, idErr := e.Identity(n)
	if idErr != nil {
		id = "unresolved"
	}
	e.logger.Errorf("FAILURE: task name=%s unique id=%s: %v", n.TaskName(), id, runErr)
	if !n.Conf().AuxiliaryWrites {
		return nil
	}
	return e.writeAux(n, RecordExecutionLog, map[string]string{
		"status": "failure",
		"task":   n.TaskName(),
		"id":     id,
		"error":  runErr.Error(),
	})
}

// fireTiming records the elapsed wall-clock duration.
func (e *Engine) fireTiming(n Node, elapsed time.Duration) error {
	if !n.Conf().AuxiliaryWrites {
		return nil
	}
	return e.writeAux(n, RecordProcessingTime, map[string]int64{
		"processing_time_ms": elapsed.Milliseconds(),
	})
}

// AuxRecord loads an auxiliary record of the given kind for the node.
func (e *Engine) AuxRecord(n Node, kind string) ([]byte, error) {
	t, err := e.auxTarget(n, kind)
	if err != nil {
		return nil, err
	}
	return t.Load()
}
