package task

import (
	"context"
	"fmt"
)

// Logger defines the logging interface for the task engine.
type Logger interface {
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Node is the capability contract every unit of work implements. The engine
// operates purely on this interface; concrete tasks embed Base for the
// schema and configuration plumbing and implement Run.
//
// Nodes must be pointer-shaped: the engine memoizes identities per instance.
type Node interface {
	// TaskName is the class identity, e.g. "MakeFeatures". Two task types
	// with identical parameters must never share a name.
	TaskName() string
	// TaskModule qualifies the name, slash-separated, e.g. "pipeline/features".
	TaskModule() string
	Params() *Params
	Conf() *Config
	// Requires declares the dependencies: a Node, an External, an ordered
	// slice, a string-keyed map, nested combinations of those, nil, or Auto
	// for attribute scanning.
	Requires() interface{}
	// Output declares the output references: nil for the default
	// identity-tagged reference, a single target, a slice, or a
	// string-keyed map of named targets.
	Output(e *Engine) interface{}
	Run(ctx context.Context, e *Engine) error
}

// External is a non-task work item appearing in a dependency declaration.
// Its only contract is a serialization of its significant parameters; it has
// no recursive identity of its own.
type External interface {
	SignificantParams() string
}

// Fingerprinted is implemented by nodes that declare a fingerprint of their
// own behavior-defining code. The engine treats the string as opaque and
// appends it to the identity tuple only when the code-fingerprint-check flag
// is set.
type Fingerprinted interface {
	CodeFingerprint() string
}

type autoDiscover struct{}

// Auto marks a node for dependency auto-discovery: the engine scans the
// node's exported struct fields for values that are task nodes or
// homogeneous non-empty slices of task nodes, keyed by field name. Base
// returns Auto by default.
var Auto interface{} = autoDiscover{}

// ContractViolationError reports a dependency declaration that is neither a
// task node nor a recognized external work item, or an output declaration of
// the wrong shape.
type ContractViolationError struct {
	Value interface{}
}

func (e *ContractViolationError) Error() string {
	return fmt.Sprintf("declaration of type %T is neither a task node nor an external work item", e.Value)
}

// Base carries the declared schema and configuration of a task type.
// Concrete tasks embed it and call Init in their constructors.
type Base struct {
	name   string
	module string
	cfg    *Config
	params *Params
}

// Init sets the class identity and applies configuration options on top of
// the package defaults.
func (b *Base) Init(name, module string, opts ...Option) {
	b.name = name
	b.module = module
	b.cfg = DefaultConfig()
	for _, opt := range opts {
		opt(b.cfg)
	}
	b.params = NewParams()
}

// DeclareParam registers a parameter on the node's schema.
func (b *Base) DeclareParam(name string, value interface{}, opts ...ParamOption) {
	b.params.Declare(name, value, opts...)
}

func (b *Base) TaskName() string {
	return b.name
}

func (b *Base) TaskModule() string {
	return b.module
}

func (b *Base) Params() *Params {
	return b.params
}

func (b *Base) Conf() *Config {
	return b.cfg
}

func (b *Base) Requires() interface{} {
	return Auto
}

// Output defaults to the single identity-tagged reference derived from the
// class identity; the engine resolves nil accordingly.
func (b *Base) Output(e *Engine) interface{} {
	return nil
}
