// executor.go dispatches approved tool calls to their registered handlers.
// Execution failures never abort the turn loop: every outcome comes back as
// a structured result with a status discriminator the model can parse.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// DefaultToolTimeout is the maximum time a single tool execution can take.
// Chain and venue operations carry their own internal deadlines below this.
const DefaultToolTimeout = 2 * time.Minute

// ctxKeyProgressSink carries the fan-out progress sink to tool handlers.
type ctxKeyProgressSink struct{}

// ContextWithProgressSink returns a context carrying a progress sink for
// tools that fan out across identities.
func ContextWithProgressSink(ctx context.Context, sink ProgressSink) context.Context {
	return context.WithValue(ctx, ctxKeyProgressSink{}, sink)
}

// ProgressSinkFromContext extracts the progress sink, or nil.
func ProgressSinkFromContext(ctx context.Context) ProgressSink {
	if s, ok := ctx.Value(ctxKeyProgressSink{}).(ProgressSink); ok {
		return s
	}
	return nil
}

// Handler executes one tool call with parsed arguments.
type Handler func(ctx context.Context, args map[string]any) (string, error)

// ToolResult is the final outcome of one proposed call, correlated to the
// proposal by CallID and never reordered relative to its siblings.
type ToolResult struct {
	CallID  string
	Name    string
	Status  string
	Content string
}

// ToolExecutor binds catalogue descriptors to handlers and runs approved
// calls in proposal order.
type ToolExecutor struct {
	catalogue *Catalogue
	handlers  map[string]Handler
	timeout   time.Duration
	audit     *AuditLog
	logger    *slog.Logger
}

// NewToolExecutor creates an executor over the catalogue. The audit log is
// optional; when set, every executed mutating call is recorded.
func NewToolExecutor(cat *Catalogue, audit *AuditLog, logger *slog.Logger) *ToolExecutor {
	return &ToolExecutor{
		catalogue: cat,
		handlers:  make(map[string]Handler),
		timeout:   DefaultToolTimeout,
		audit:     audit,
		logger:    logger.With("component", "tool_executor"),
	}
}

// SetTimeout overrides the per-tool execution timeout.
func (e *ToolExecutor) SetTimeout(d time.Duration) {
	if d > 0 {
		e.timeout = d
	}
}

// RegisterHandler binds a handler to a registered descriptor name.
func (e *ToolExecutor) RegisterHandler(name string, h Handler) error {
	if _, err := e.catalogue.Resolve(name); err != nil {
		return fmt.Errorf("executor: handler for unregistered tool: %w", err)
	}
	e.handlers[name] = h
	return nil
}

// Execute runs the approved calls sequentially in proposal order and
// returns one result per call. Tools that operate on many identities do
// their own fan-out internally; the turn itself stays single-threaded.
func (e *ToolExecutor) Execute(ctx context.Context, calls []ToolCall) []ToolResult {
	results := make([]ToolResult, len(calls))
	for i, call := range calls {
		results[i] = e.executeSingle(ctx, call)
	}
	return results
}

// executeSingle validates and runs one call. Unknown tools and malformed
// input become error results, never panics or aborts.
func (e *ToolExecutor) executeSingle(ctx context.Context, call ToolCall) ToolResult {
	res := ToolResult{CallID: call.ID, Name: call.Name}

	d, err := e.catalogue.Resolve(call.Name)
	if err != nil {
		res.Status = StatusError
		res.Content = StatusContent(StatusError, call.Name, err.Error())
		e.logger.Warn("unknown tool called", "name", call.Name)
		return res
	}

	args, err := parseToolArgs(call.Input)
	if err != nil {
		res.Status = StatusError
		res.Content = StatusContent(StatusError, call.Name, err.Error())
		e.logger.Warn("tool argument parse error", "name", call.Name, "error", err)
		return res
	}

	h, ok := e.handlers[call.Name]
	if !ok {
		res.Status = StatusError
		res.Content = StatusContent(StatusError, call.Name, "no handler registered")
		return res
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	output, err := h(execCtx, args)
	duration := time.Since(start)

	if err != nil {
		res.Status = StatusError
		res.Content = StatusContent(StatusError, call.Name, err.Error())
		e.logger.Warn("tool execution failed",
			"name", call.Name,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
	} else {
		res.Status = StatusOK
		res.Content = resultContent(call.Name, output)
		e.logger.Info("tool executed",
			"name", call.Name,
			"duration_ms", duration.Milliseconds(),
			"output_len", len(output),
		)
	}

	if d.Mutates && e.audit != nil {
		if aerr := e.audit.Record(call.Name, call.Input, res.Status); aerr != nil {
			e.logger.Warn("audit record failed", "name", call.Name, "error", aerr)
		}
	}
	return res
}

// StatusContent builds the structured JSON body for a non-ok outcome:
// {"status":..., "tool":..., "detail":...}.
func StatusContent(status, tool, detail string) string {
	if len(detail) > 2000 {
		detail = detail[:2000] + "... (truncated)"
	}
	b, _ := json.Marshal(map[string]string{
		"status": status,
		"tool":   tool,
		"detail": detail,
	})
	return string(b)
}

// resultContent wraps a successful tool output. Output that is already a
// JSON object is embedded raw so the model sees its structure.
func resultContent(tool, output string) string {
	body := map[string]any{"status": StatusOK, "tool": tool}
	var parsed any
	if json.Unmarshal([]byte(output), &parsed) == nil && parsed != nil {
		body["result"] = parsed
	} else {
		body["result"] = output
	}
	b, _ := json.Marshal(body)
	return string(b)
}
