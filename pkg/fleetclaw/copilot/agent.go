// agent.go implements the turn loop that orchestrates backend calls with
// tool execution: call the backend → resolve and partition the proposed
// calls → gate them past the human → execute → fold results back → repeat,
// until the backend produces a final text answer or the unconfirmed-turn
// ceiling is hit.
package copilot

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// DefaultTurnCeiling bounds consecutive backend round-trips without a
// human-approved mutation. Read-only spam still counts toward the ceiling;
// only an explicit approval resets it. Deliberate anti-runaway behavior,
// do not relax it to reset on any successful call.
const DefaultTurnCeiling = 10

// Turn outcomes.
type Outcome int

const (
	// OutcomeFinal means the backend produced a final text answer.
	OutcomeFinal Outcome = iota

	// OutcomeExhausted means the unconfirmed-turn ceiling was reached.
	// The conversation is left intact for explicit resumption.
	OutcomeExhausted
)

// Backend is the language-model interface the controller drives. Backend
// I/O failures propagate to the caller; retry policy is the caller's
// concern.
type Backend interface {
	// Chat runs a plain completion without tools.
	Chat(ctx context.Context, conversation []Message, system string) (string, error)

	// ChatWithTools runs a completion that may propose tool calls. The
	// response may be empty, text-only, or a mix of text and tool use.
	ChatWithTools(ctx context.Context, conversation []Message, system string, tools []Descriptor) (Message, error)
}

// TurnResult is the terminal outcome of one Run.
type TurnResult struct {
	Outcome Outcome
	Text    string

	// Iterations counts backend round-trips in this run.
	Iterations int
}

// TurnController drives the loop. It is single-threaded: exactly one
// in-flight backend call and one tool-execution phase per session.
type TurnController struct {
	backend   Backend
	catalogue *Catalogue
	executor  *ToolExecutor
	gate      *Gatekeeper
	ceiling   int
	logger    *slog.Logger
}

// NewTurnController wires the loop's collaborators. A ceiling of 0 means
// DefaultTurnCeiling.
func NewTurnController(backend Backend, cat *Catalogue, executor *ToolExecutor, gate *Gatekeeper, ceiling int, logger *slog.Logger) *TurnController {
	if ceiling <= 0 {
		ceiling = DefaultTurnCeiling
	}
	return &TurnController{
		backend:   backend,
		catalogue: cat,
		executor:  executor,
		gate:      gate,
		ceiling:   ceiling,
		logger:    logger.With("component", "turn_controller"),
	}
}

// ExhaustedWarning is the user-visible text returned on ceiling exhaustion.
const ExhaustedWarning = "Stopping here: too many consecutive turns without an approved action. " +
	"The conversation is preserved; send another message to continue."

// Run appends the user message and iterates the turn loop until a final
// answer or exhaustion. On backend failure the messages appended during
// this run are retracted so the caller can resend the user message.
func (c *TurnController) Run(ctx context.Context, sess *Session, userMessage string) (*TurnResult, error) {
	mark := sess.Len()
	sess.Append(TextMessage(RoleUser, userMessage))

	res, err := c.runLoop(ctx, sess)
	if err != nil {
		sess.Truncate(mark)
		return nil, err
	}
	return res, nil
}

func (c *TurnController) runLoop(ctx context.Context, sess *Session) (*TurnResult, error) {
	tools := c.catalogue.Descriptors()
	unconfirmed := 0
	iterations := 0
	runStart := time.Now()

	for {
		iterations++

		resp, err := c.backend.ChatWithTools(ctx, Segment(sess.Messages()), sess.SystemPrompt(), tools)
		if err != nil {
			return nil, fmt.Errorf("backend call failed (iteration %d): %w", iterations, err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			sess.Append(resp)
			c.logger.Info("turn complete",
				"iterations", iterations,
				"elapsed_ms", time.Since(runStart).Milliseconds(),
			)
			return &TurnResult{Outcome: OutcomeFinal, Text: resp.Text(), Iterations: iterations}, nil
		}

		// Append the raw proposal before touching it, so the model sees
		// exactly what it asked for next to the results.
		sess.Append(resp)

		results, humanApprovedMutation := c.resolveAndExecute(ctx, calls)
		sess.Append(toolResultsMessage(calls, results))

		if humanApprovedMutation {
			unconfirmed = 0
		} else {
			unconfirmed++
		}

		c.logger.Debug("iteration complete",
			"iteration", iterations,
			"calls", len(calls),
			"unconfirmed", unconfirmed,
		)

		if unconfirmed >= c.ceiling {
			c.logger.Warn("turn ceiling reached",
				"ceiling", c.ceiling,
				"iterations", iterations,
			)
			return &TurnResult{Outcome: OutcomeExhausted, Text: ExhaustedWarning, Iterations: iterations}, nil
		}
	}
}

// resolveAndExecute takes one proposal through descriptor resolution, the
// write-conflict resolver, the confirmation gatekeeper and execution.
// Every proposed call gets exactly one result keyed by its call ID.
// The second return reports whether a human approved a mutating call.
func (c *TurnController) resolveAndExecute(ctx context.Context, calls []ToolCall) (map[string]ToolResult, bool) {
	results := make(map[string]ToolResult, len(calls))

	// Descriptor resolution fails closed: unknown names become error
	// results and never reach partitioning or execution.
	var valid []ToolCall
	for _, call := range calls {
		if _, err := c.catalogue.Resolve(call.Name); err != nil {
			results[call.ID] = ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Status:  StatusError,
				Content: StatusContent(StatusError, call.Name, err.Error()),
			}
			continue
		}
		valid = append(valid, call)
	}

	part := PartitionWrites(valid, c.catalogue)
	for _, call := range part.Deferred {
		results[call.ID] = ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Status:  StatusDeferred,
			Content: StatusContent(StatusDeferred, call.Name, DeferReason),
		}
	}

	gated := c.gate.Gate(ctx, part.Admitted)
	for _, call := range gated.Declined {
		results[call.ID] = ToolResult{
			CallID:  call.ID,
			Name:    call.Name,
			Status:  StatusDeclined,
			Content: StatusContent(StatusDeclined, call.Name, "declined by user"),
		}
	}

	for _, r := range c.executor.Execute(ctx, gated.Approved) {
		results[r.CallID] = r
	}

	humanApprovedMutation := false
	if gated.HumanApproved {
		for _, call := range gated.Approved {
			if d, err := c.catalogue.Resolve(call.Name); err == nil && d.Mutates && d.NeedsConfirmation {
				humanApprovedMutation = true
				break
			}
		}
	}
	return results, humanApprovedMutation
}

// toolResultsMessage folds all results of one proposal into a single user
// message, in proposal order.
func toolResultsMessage(calls []ToolCall, results map[string]ToolResult) Message {
	msg := Message{Role: RoleUser}
	for _, call := range calls {
		r, ok := results[call.ID]
		if !ok {
			// Every call must have a slot; a missing one is a bug, but
			// the loop must not abort over it.
			r = ToolResult{
				CallID:  call.ID,
				Name:    call.Name,
				Status:  StatusSkipped,
				Content: StatusContent(StatusSkipped, call.Name, "no result produced"),
			}
		}
		msg.Blocks = append(msg.Blocks, Block{
			Type: BlockToolResult,
			ToolResult: &ToolResultBlock{
				CallID:  r.CallID,
				Content: r.Content,
				IsError: r.Status == StatusError,
			},
		})
	}
	return msg
}
