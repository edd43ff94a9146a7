// conflict.go admits at most one kind of state-changing operation per model
// turn. When the backend proposes writes under several distinct tool names,
// only the first-proposed name survives; the rest are deferred and re-offered
// to the model next turn instead of silently dropped. This bounds the blast
// radius of a hallucinated multi-action plan to a single action type.
package copilot

// DeferReason is the reason attached to every deferred call.
const DeferReason = "one state-changing operation per turn; deferred, propose again next turn"

// WritePartition is the outcome of conflict resolution over one proposal.
type WritePartition struct {
	// Admitted keeps the original proposal order: all non-mutating calls
	// plus every call of the single admitted mutating tool name.
	Admitted []ToolCall

	// Deferred holds the calls of every other mutating tool name.
	Deferred []ToolCall
}

// PartitionWrites splits the proposed calls into admitted and deferred
// sets. Calls must already resolve in the catalogue; unresolvable calls
// are the caller's problem and must be filtered out beforehand.
func PartitionWrites(calls []ToolCall, cat *Catalogue) WritePartition {
	admittedWrite := ""
	var p WritePartition
	for _, call := range calls {
		d, err := cat.Resolve(call.Name)
		if err != nil || !d.Mutates {
			p.Admitted = append(p.Admitted, call)
			continue
		}
		if admittedWrite == "" {
			admittedWrite = call.Name
		}
		if call.Name == admittedWrite {
			p.Admitted = append(p.Admitted, call)
		} else {
			p.Deferred = append(p.Deferred, call)
		}
	}
	return p
}
