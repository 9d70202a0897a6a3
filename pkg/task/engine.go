package task

import (
	"context"
	"fmt"
	"path/filepath"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/ignatij/memoflow/pkg/lock"
	"github.com/ignatij/memoflow/pkg/target"
	"github.com/pkg/errors"
)

// ErrLockNotConfigured is returned when execution-time locking is requested
// without a configured lock backend.
var ErrLockNotConfigured = errors.New("run locking requested without a configured lock backend")

// Options configures an Engine at the composition root.
type Options struct {
	// WorkspaceDir is the root under which output references and auxiliary
	// records live.
	WorkspaceDir string
	// Locks coordinates cross-process writes and runs. Nil disables
	// coordination entirely (degraded mode, no cross-process safety).
	Locks *lock.Coordinator
	// Defaults are the node configuration defaults handed out by
	// NodeConfig. Nil means DefaultConfig.
	Defaults *Config
	Logger   Logger
}

// Engine computes identities, resolves output references, decides
// completeness and performs coordinated writes, operating purely on the Node
// interface. It is safe for concurrent use.
type Engine struct {
	workspaceDir string
	locks        *lock.Coordinator
	defaults     *Config
	logger       Logger

	ids    sync.Map // Node -> identity string
	forced sync.Map // Node -> struct{}, force-rerun applied this process
}

type noopLogger struct{}

func (noopLogger) Infof(format string, args ...interface{})  {}
func (noopLogger) Errorf(format string, args ...interface{}) {}

func NewEngine(opts Options) (*Engine, error) {
	if opts.WorkspaceDir == "" {
		return nil, errors.New("workspace directory is required")
	}
	defaults := opts.Defaults
	if defaults == nil {
		defaults = DefaultConfig()
	}
	if defaults.LockAtRun && !opts.Locks.Enabled() {
		return nil, errors.Wrap(ErrLockNotConfigured, "engine defaults")
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	return &Engine{
		workspaceDir: opts.WorkspaceDir,
		locks:        opts.Locks,
		defaults:     defaults.clone(),
		logger:       logger,
	}, nil
}

// NodeConfig returns a copy of the engine-level configuration defaults, for
// use with WithConfig at node construction.
func (e *Engine) NodeConfig() *Config {
	return e.defaults.clone()
}

// Locks exposes the lock coordinator; callers must tolerate a disabled one.
func (e *Engine) Locks() *lock.Coordinator {
	return e.locks
}

// WorkspaceDir returns the workspace root.
func (e *Engine) WorkspaceDir() string {
	return e.workspaceDir
}

// Target builds an output reference under the workspace root. An empty
// relPath resolves to "<module>/<Name>.bin". When useIdentity is set the
// node's identity is inserted before the extension, making the path
// content-addressed.
func (e *Engine) Target(n Node, relPath string, useIdentity bool) (target.Target, error) {
	if relPath == "" {
		relPath = filepath.Join(filepath.FromSlash(n.TaskModule()), n.TaskName()+".bin")
	}
	if useIdentity {
		id, err := e.Identity(n)
		if err != nil {
			return nil, err
		}
		ext := filepath.Ext(relPath)
		relPath = fmt.Sprintf("%s_%s%s", strings.TrimSuffix(relPath, ext), id, ext)
	}
	return target.NewFileTarget(filepath.Join(e.workspaceDir, relPath)), nil
}

// requirements resolves the node's dependency declaration, expanding Auto
// into the discovered attribute mapping.
func (e *Engine) requirements(n Node) interface{} {
	decl := n.Requires()
	if _, ok := decl.(autoDiscover); ok {
		return Discover(n)
	}
	return decl
}

// requirementItems flattens the resolved declaration into ordered leaves.
func (e *Engine) requirementItems(n Node) ([]interface{}, error) {
	items, err := Flatten(e.requirements(n))
	if err != nil {
		return nil, errors.Wrapf(err, "task %s", n.TaskName())
	}
	return items, nil
}

// DependencyNodes returns the task nodes among the node's flattened
// dependencies, in declaration order.
func (e *Engine) DependencyNodes(n Node) ([]Node, error) {
	items, err := e.requirementItems(n)
	if err != nil {
		return nil, err
	}
	var nodes []Node
	for _, item := range items {
		if dep, ok := item.(Node); ok {
			nodes = append(nodes, dep)
		}
	}
	return nodes, nil
}

// Outputs resolves the node's declared output references. A nil declaration
// resolves to the single default identity-tagged reference.
func (e *Engine) Outputs(n Node) ([]target.Target, error) {
	decl := n.Output(e)
	if decl == nil {
		t, err := e.Target(n, "", true)
		if err != nil {
			return nil, err
		}
		return []target.Target{t}, nil
	}
	outs, err := flattenTargets(decl)
	if err != nil {
		return nil, errors.Wrapf(err, "task %s output", n.TaskName())
	}
	return outs, nil
}

// Output resolves a named output reference; the node must declare a
// string-keyed output mapping.
func (e *Engine) Output(n Node, name string) (target.Target, error) {
	decl := n.Output(e)
	m, ok := decl.(map[string]target.Target)
	if !ok {
		return nil, errors.Wrapf(&ContractViolationError{Value: decl},
			"task %s: named output %q requested", n.TaskName(), name)
	}
	t, ok := m[name]
	if !ok {
		return nil, errors.Errorf("task %s declares no output named %q", n.TaskName(), name)
	}
	return t, nil
}

// Inputs resolves the node's input references: the outputs of its dependency
// nodes, in declaration order. External work items contribute none.
func (e *Engine) Inputs(n Node) ([]target.Target, error) {
	deps, err := e.DependencyNodes(n)
	if err != nil {
		return nil, err
	}
	var ins []target.Target
	for _, dep := range deps {
		outs, err := e.Outputs(dep)
		if err != nil {
			return nil, err
		}
		ins = append(ins, outs...)
	}
	return ins, nil
}

// Input resolves the outputs of the dependency discovered or declared under
// the given name.
func (e *Engine) Input(n Node, name string) ([]target.Target, error) {
	decl := e.requirements(n)
	rv := reflect.ValueOf(decl)
	if !rv.IsValid() || rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, errors.Wrapf(&ContractViolationError{Value: decl},
			"task %s: named input %q requested", n.TaskName(), name)
	}
	mv := rv.MapIndex(reflect.ValueOf(name))
	if !mv.IsValid() {
		return nil, errors.Errorf("task %s declares no dependency named %q", n.TaskName(), name)
	}
	items, err := Flatten(mv.Interface())
	if err != nil {
		return nil, errors.Wrapf(err, "task %s", n.TaskName())
	}
	var ins []target.Target
	for _, item := range items {
		dep, ok := item.(Node)
		if !ok {
			continue
		}
		outs, err := e.Outputs(dep)
		if err != nil {
			return nil, err
		}
		ins = append(ins, outs...)
	}
	return ins, nil
}

// Dump writes data to the node's single output reference, guarded by the
// lock coordinator when lock-at-dump is enabled.
func (e *Engine) Dump(ctx context.Context, n Node, data []byte) error {
	outs, err := e.Outputs(n)
	if err != nil {
		return err
	}
	if len(outs) != 1 {
		return errors.Errorf("task %s declares %d output references; Dump requires exactly one", n.TaskName(), len(outs))
	}
	return e.DumpTo(ctx, n, outs[0], data)
}

// DumpNamed writes data to the named output reference.
func (e *Engine) DumpNamed(ctx context.Context, n Node, name string, data []byte) error {
	t, err := e.Output(n, name)
	if err != nil {
		return err
	}
	return e.DumpTo(ctx, n, t, data)
}

// DumpTo writes data to an explicit target on behalf of the node. An empty
// payload is rejected when the node's configuration demands it. While
// lock-at-run holds the lease around the whole execution, dump-time locking
// is skipped.
func (e *Engine) DumpTo(ctx context.Context, n Node, t target.Target, data []byte) error {
	cfg := n.Conf()
	if cfg.RejectEmptyDump && len(data) == 0 {
		return errors.Wrapf(target.ErrEmptyDump, "task %s", n.TaskName())
	}
	if cfg.LockAtDump && !cfg.LockAtRun && e.locks.Enabled() {
		return e.locks.WithLock(ctx, dumpLockKey(t), func(ctx context.Context) error {
			return t.Dump(data)
		})
	}
	return t.Dump(data)
}

func dumpLockKey(t target.Target) string {
	return "memoflow:lock:" + t.Path()
}

func runLockKey(snap Snapshot) string {
	return "memoflow:lock:run:" + snap.Name + ":" + snap.Identity
}

// String renders a node as Name[identity](significant public params) for
// logs and failure messages.
func (e *Engine) String(n Node) string {
	id, err := e.Identity(n)
	if err != nil {
		id = "unresolved"
	}
	params := n.Params().PublicMap()
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	return fmt.Sprintf("%s[%s](%s)", n.TaskName(), id, strings.Join(parts, ", "))
}

func flattenTargets(decl interface{}) ([]target.Target, error) {
	if decl == nil {
		return nil, nil
	}
	if t, ok := decl.(target.Target); ok {
		return []target.Target{t}, nil
	}
	rv := reflect.ValueOf(decl)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		var out []target.Target
		for i := 0; i < rv.Len(); i++ {
			ts, err := flattenTargets(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
		}
		return out, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, &ContractViolationError{Value: decl}
		}
		keys := make([]string, 0, rv.Len())
		for _, k := range rv.MapKeys() {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		var out []target.Target
		for _, k := range keys {
			ts, err := flattenTargets(rv.MapIndex(reflect.ValueOf(k)).Interface())
			if err != nil {
				return nil, err
			}
			out = append(out, ts...)
		}
		return out, nil
	}
	return nil, &ContractViolationError{Value: decl}
}
