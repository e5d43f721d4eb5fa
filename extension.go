package batch

import "context"

// Extension provides hooks into the resolution lifecycle
type Extension interface {
	// Name returns the extension's name
	Name() string

	// Order determines extension execution order (lower = earlier)
	Order() int

	// Init is called when the extension is registered to a context
	Init(rc *Context) error

	// Wrap intercepts operations (pass, batch)
	Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error)

	// OnError handles errors during resolution
	OnError(err error, op *Operation, rc *Context)

	// OnClear is called when the context's unit of work ends
	OnClear(rc *Context)

	// Dispose is called when the context is disposed
	Dispose(rc *Context) error
}

// BaseExtension provides default implementations for Extension methods
type BaseExtension struct {
	name string
}

// NewBaseExtension creates a new base extension with the given name
func NewBaseExtension(name string) BaseExtension {
	return BaseExtension{name: name}
}

func (e *BaseExtension) Name() string {
	return e.name
}

func (e *BaseExtension) Order() int {
	return 100
}

func (e *BaseExtension) Init(rc *Context) error {
	return nil
}

func (e *BaseExtension) Wrap(ctx context.Context, next func() (any, error), op *Operation) (any, error) {
	return next()
}

func (e *BaseExtension) OnError(err error, op *Operation, rc *Context) {
}

func (e *BaseExtension) OnClear(rc *Context) {
}

func (e *BaseExtension) Dispose(rc *Context) error {
	return nil
}

// Operation describes what operation is happening
type Operation struct {
	Kind     OperationKind
	SpecID   string
	SpecName string
	Keys     []any
	Context  *Context
}

// OperationKind represents the type of operation
type OperationKind string

const (
	// OpPass indicates one resolution pass over the pending set
	OpPass OperationKind = "pass"
	// OpBatch indicates one batch-function execution
	OpBatch OperationKind = "batch"
)
