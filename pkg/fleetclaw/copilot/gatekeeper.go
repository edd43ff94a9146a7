// gatekeeper.go decides which admitted calls need human sign-off and runs
// the single-vs-batch confirmation protocol. Multi-call turns are usually
// homogeneous (fund three bots at once), so a batch is confirmed with one
// prompt that itemizes every call; heterogeneous batches read the same way.
package copilot

import (
	"context"
	"log/slog"
)

// Confirmer is the minimal confirm-prompt contract exposed to the human.
// Both methods treat interruption or ambiguous input as false.
type Confirmer interface {
	Confirm(ctx context.Context, description string) bool
	ConfirmBatch(ctx context.Context, descriptions []string) bool
}

// GateResult is the outcome of gating one turn's admitted calls.
type GateResult struct {
	// Approved preserves the admitted order and contains auto-approved
	// calls plus, on a positive answer, the whole confirmation batch.
	Approved []ToolCall

	// Declined contains the confirmation batch when the human said no.
	Declined []ToolCall

	// HumanApproved is true when the human explicitly approved at least
	// one call. Auto-approval does not count.
	HumanApproved bool
}

// Gatekeeper applies the confirmation rules against a Confirmer.
type Gatekeeper struct {
	catalogue *Catalogue
	confirmer Confirmer
	logger    *slog.Logger
}

// NewGatekeeper creates a gatekeeper over the given catalogue and confirmer.
func NewGatekeeper(cat *Catalogue, confirmer Confirmer, logger *slog.Logger) *Gatekeeper {
	return &Gatekeeper{
		catalogue: cat,
		confirmer: confirmer,
		logger:    logger.With("component", "gatekeeper"),
	}
}

// Gate partitions the admitted calls into auto-approved and
// needs-confirmation sets, prompts the human once (single prompt for one
// call, one batch prompt for several), and returns the outcome. A nil
// confirmer declines everything that needs confirmation.
func (g *Gatekeeper) Gate(ctx context.Context, admitted []ToolCall) GateResult {
	var needsHuman []ToolCall
	autoByID := make(map[string]bool, len(admitted))
	for _, call := range admitted {
		d, err := g.catalogue.Resolve(call.Name)
		if err == nil && d.NeedsConfirmation {
			needsHuman = append(needsHuman, call)
			continue
		}
		autoByID[call.ID] = true
	}

	if len(needsHuman) == 0 {
		return GateResult{Approved: admitted}
	}

	approved := g.ask(ctx, needsHuman)

	var res GateResult
	if approved {
		res.Approved = admitted
		res.HumanApproved = true
		g.logger.Info("confirmation granted", "calls", len(needsHuman))
		return res
	}

	for _, call := range admitted {
		if autoByID[call.ID] {
			res.Approved = append(res.Approved, call)
		} else {
			res.Declined = append(res.Declined, call)
		}
	}
	g.logger.Info("confirmation declined", "calls", len(needsHuman))
	return res
}

// ask runs the actual prompt. One call gets a single yes/no; several get
// one batch prompt answered once for all of them.
func (g *Gatekeeper) ask(ctx context.Context, calls []ToolCall) bool {
	if g.confirmer == nil {
		return false
	}
	if len(calls) == 1 {
		return g.confirmer.Confirm(ctx, g.catalogue.DescribeCall(calls[0]))
	}
	descs := make([]string, len(calls))
	for i, call := range calls {
		descs[i] = g.catalogue.DescribeCall(call)
	}
	return g.confirmer.ConfirmBatch(ctx, descs)
}
