package copilot

import (
	"strings"
	"testing"
)

func conflictCatalogue(t *testing.T) *Catalogue {
	t.Helper()
	cat := NewCatalogue()
	descriptors := []Descriptor{
		{Name: "list_bots", InputSchema: ObjectSchema(map[string]any{})},
		{Name: "get_balance", InputSchema: ObjectSchema(map[string]any{})},
		{Name: "fund_bots", InputSchema: ObjectSchema(map[string]any{}), Mutates: true, NeedsConfirmation: true},
		{Name: "trade_buy", InputSchema: ObjectSchema(map[string]any{}), Mutates: true, NeedsConfirmation: true},
		{Name: "withdraw", InputSchema: ObjectSchema(map[string]any{}), Mutates: true, NeedsConfirmation: true},
	}
	for _, d := range descriptors {
		if err := cat.Register(d); err != nil {
			t.Fatalf("register %s: %v", d.Name, err)
		}
	}
	return cat
}

func call(id, name string) ToolCall {
	return ToolCall{ID: id, Name: name, Input: []byte(`{}`)}
}

func names(calls []ToolCall) []string {
	out := make([]string, len(calls))
	for i, c := range calls {
		out[i] = c.Name
	}
	return out
}

func TestPartitionWrites_SingleWriteNameAdmitted(t *testing.T) {
	cat := conflictCatalogue(t)

	part := PartitionWrites([]ToolCall{
		call("1", "fund_bots"),
		call("2", "fund_bots"),
		call("3", "list_bots"),
	}, cat)

	if len(part.Admitted) != 3 {
		t.Fatalf("expected 3 admitted, got %d: %v", len(part.Admitted), names(part.Admitted))
	}
	if len(part.Deferred) != 0 {
		t.Fatalf("expected nothing deferred, got %v", names(part.Deferred))
	}
}

func TestPartitionWrites_SecondWriteNameDeferred(t *testing.T) {
	cat := conflictCatalogue(t)

	part := PartitionWrites([]ToolCall{
		call("1", "fund_bots"),
		call("2", "trade_buy"),
		call("3", "get_balance"),
		call("4", "fund_bots"),
	}, cat)

	got := names(part.Admitted)
	want := []string{"fund_bots", "get_balance", "fund_bots"}
	if len(got) != len(want) {
		t.Fatalf("admitted = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("admitted[%d] = %s, want %s", i, got[i], want[i])
		}
	}
	if len(part.Deferred) != 1 || part.Deferred[0].Name != "trade_buy" {
		t.Fatalf("deferred = %v, want [trade_buy]", names(part.Deferred))
	}
}

func TestPartitionWrites_FirstProposedWriteWins(t *testing.T) {
	cat := conflictCatalogue(t)

	part := PartitionWrites([]ToolCall{
		call("1", "trade_buy"),
		call("2", "fund_bots"),
		call("3", "withdraw"),
		call("4", "trade_buy"),
	}, cat)

	for _, c := range part.Admitted {
		if c.Name != "trade_buy" {
			t.Fatalf("unexpected admitted write %s", c.Name)
		}
	}
	if len(part.Admitted) != 2 {
		t.Fatalf("expected both trade_buy calls admitted, got %v", names(part.Admitted))
	}
	if len(part.Deferred) != 2 {
		t.Fatalf("expected fund_bots and withdraw deferred, got %v", names(part.Deferred))
	}
}

func TestPartitionWrites_ReadsNeverDeferred(t *testing.T) {
	cat := conflictCatalogue(t)

	part := PartitionWrites([]ToolCall{
		call("1", "list_bots"),
		call("2", "get_balance"),
		call("3", "list_bots"),
	}, cat)

	if len(part.Deferred) != 0 {
		t.Fatalf("read-only calls were deferred: %v", names(part.Deferred))
	}
	if len(part.Admitted) != 3 {
		t.Fatalf("expected 3 admitted, got %d", len(part.Admitted))
	}
}

func TestDeferReason_NamesTheConstraint(t *testing.T) {
	if !strings.Contains(DeferReason, "one state-changing operation") {
		t.Fatalf("defer reason %q does not name the one-write constraint", DeferReason)
	}
}
