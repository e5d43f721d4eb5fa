package extensions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/m1gwings/treedrawer/tree"

	batch "github.com/batch-fn/batch-go"
)

// TraceDebugExtension logs a rendering of the context's pass trace when a
// batch function fails.
//
// Usage:
//
//	// Structured JSON logging
//	ext := extensions.NewTraceDebugExtension(slog.NewJSONHandler(os.Stdout, nil))
//
//	// Silent (for testing)
//	ext := extensions.NewTraceDebugExtension(extensions.NewSilentHandler())
//
// The extension logs at ERROR level.
type TraceDebugExtension struct {
	batch.BaseExtension
	logger *slog.Logger
}

// NewTraceDebugExtension creates a new trace debug extension.
// logHandler: slog.Handler for logging (slog.NewTextHandler, slog.NewJSONHandler, or SilentHandler)
func NewTraceDebugExtension(logHandler slog.Handler) *TraceDebugExtension {
	return &TraceDebugExtension{
		BaseExtension: batch.NewBaseExtension("trace-debug"),
		logger:        slog.New(logHandler),
	}
}

// OnError logs the pass trace when a batch function or pass fails
func (e *TraceDebugExtension) OnError(err error, op *batch.Operation, rc *batch.Context) {
	if op.Kind != batch.OpBatch {
		return
	}

	e.logger.Error("Batch Resolution Error",
		"spec", op.SpecName,
		"keys", len(op.Keys),
		"error", err.Error(),
		"pass_trace", e.renderTrace(rc),
	)
}

func (e *TraceDebugExtension) renderTrace(rc *batch.Context) string {
	trace := rc.Trace()
	roots := trace.Roots()
	if len(roots) == 0 {
		return "(no passes recorded)"
	}

	t := tree.NewTree(tree.NodeString("passes"))
	for i, pass := range roots {
		t.AddChild(tree.NodeString(fmt.Sprintf("%s %s groups=%d", pass.ID, pass.Status, pass.Groups)))
		passNode, err := t.Child(i)
		if err != nil {
			continue
		}
		for _, b := range trace.GetChildren(pass.ID) {
			passNode.AddChild(tree.NodeString(fmt.Sprintf("%s keys=%d posted=%d %s", b.Spec, b.Keys, b.Posted, b.Status)))
		}
	}

	return "\n" + t.String()
}

// SilentHandler is a slog.Handler that discards all log output
// Useful for testing when you don't want log output
type SilentHandler struct{}

// NewSilentHandler creates a new silent log handler
func NewSilentHandler() *SilentHandler {
	return &SilentHandler{}
}

func (h *SilentHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return false
}

func (h *SilentHandler) Handle(ctx context.Context, record slog.Record) error {
	return nil
}

func (h *SilentHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h
}

func (h *SilentHandler) WithGroup(name string) slog.Handler {
	return h
}
