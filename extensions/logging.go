package extensions

import (
	"context"
	"fmt"
	"time"

	batch "github.com/batch-fn/batch-go"
)

// LoggingExtension logs all operations
type LoggingExtension struct {
	batch.BaseExtension
}

// NewLoggingExtension creates a new logging extension
func NewLoggingExtension() *LoggingExtension {
	return &LoggingExtension{
		BaseExtension: batch.NewBaseExtension("logging"),
	}
}

func (e *LoggingExtension) Wrap(ctx context.Context, next func() (any, error), op *batch.Operation) (any, error) {
	start := time.Now()
	if op.Kind == batch.OpBatch {
		fmt.Printf("[%s] %s %s starting with %d keys\n", e.Name(), op.Kind, op.SpecName, len(op.Keys))
	} else {
		fmt.Printf("[%s] %s starting\n", e.Name(), op.Kind)
	}

	result, err := next()

	duration := time.Since(start)
	if err != nil {
		fmt.Printf("[%s] %s failed after %v: %v\n", e.Name(), op.Kind, duration, err)
	} else {
		fmt.Printf("[%s] %s completed in %v\n", e.Name(), op.Kind, duration)
	}

	return result, err
}
