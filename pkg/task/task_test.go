package task_test

import (
	"context"

	"github.com/ignatij/memoflow/pkg/task"
)

type logger struct{}

func (l logger) Infof(format string, args ...interface{})  {}
func (l logger) Errorf(format string, args ...interface{}) {}

// paramTask is a leaf task with a single significant parameter.
type paramTask struct {
	task.Base
	payload []byte
}

func newParamTask(x int, opts ...task.Option) *paramTask {
	t := &paramTask{payload: []byte("payload")}
	t.Init("ParamTask", "testing/params", opts...)
	t.DeclareParam("x", x)
	return t
}

func (t *paramTask) Run(ctx context.Context, e *task.Engine) error {
	return e.Dump(ctx, t, t.payload)
}

// depTask depends on a single discovered task node.
type depTask struct {
	task.Base
	Dep *paramTask
}

func newDepTask(dep *paramTask, opts ...task.Option) *depTask {
	t := &depTask{Dep: dep}
	t.Init("DepTask", "testing/deps", opts...)
	return t
}

func (t *depTask) Run(ctx context.Context, e *task.Engine) error {
	ins, err := e.Inputs(t)
	if err != nil {
		return err
	}
	var combined []byte
	for _, in := range ins {
		data, err := in.Load()
		if err != nil {
			return err
		}
		combined = append(combined, data...)
	}
	return e.Dump(ctx, t, combined)
}

// declTask declares its dependencies explicitly.
type declTask struct {
	task.Base
	deps interface{}
}

func newDeclTask(name string, deps interface{}, opts ...task.Option) *declTask {
	t := &declTask{deps: deps}
	t.Init(name, "testing/decl", opts...)
	return t
}

func (t *declTask) Requires() interface{} {
	return t.deps
}

func (t *declTask) Run(ctx context.Context, e *task.Engine) error {
	return e.Dump(ctx, t, []byte("done"))
}

// fingerprintTask declares an explicit code fingerprint.
type fingerprintTask struct {
	task.Base
	fingerprint string
}

func newFingerprintTask(fingerprint string, opts ...task.Option) *fingerprintTask {
	t := &fingerprintTask{fingerprint: fingerprint}
	t.Init("FingerprintTask", "testing/fingerprint", opts...)
	t.DeclareParam("x", 1)
	return t
}

func (t *fingerprintTask) CodeFingerprint() string {
	return t.fingerprint
}

func (t *fingerprintTask) Run(ctx context.Context, e *task.Engine) error {
	return e.Dump(ctx, t, []byte("done"))
}

// externalItem is a non-task work item with only a parameter serialization.
type externalItem struct {
	params string
}

func (x externalItem) SignificantParams() string {
	return x.params
}
