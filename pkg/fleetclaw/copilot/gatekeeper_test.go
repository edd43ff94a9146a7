package copilot

import (
	"context"
	"io"
	"log/slog"
	"testing"
)

// fakeConfirmer records how it was asked and answers from a script.
type fakeConfirmer struct {
	answer      bool
	singleCalls int
	batchCalls  int
	lastSingle  string
	lastBatch   []string
	interrupted bool
}

func (f *fakeConfirmer) Confirm(ctx context.Context, description string) bool {
	f.singleCalls++
	f.lastSingle = description
	if f.interrupted {
		return false
	}
	return f.answer
}

func (f *fakeConfirmer) ConfirmBatch(ctx context.Context, descriptions []string) bool {
	f.batchCalls++
	f.lastBatch = descriptions
	if f.interrupted {
		return false
	}
	return f.answer
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestGatekeeper_SingleCallUsesSinglePrompt(t *testing.T) {
	cat := conflictCatalogue(t)
	conf := &fakeConfirmer{answer: true}
	gate := NewGatekeeper(cat, conf, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{call("1", "fund_bots")})

	if conf.singleCalls != 1 || conf.batchCalls != 0 {
		t.Fatalf("expected one single prompt, got single=%d batch=%d", conf.singleCalls, conf.batchCalls)
	}
	if len(res.Approved) != 1 || !res.HumanApproved {
		t.Fatalf("expected approved call with HumanApproved, got %+v", res)
	}
}

func TestGatekeeper_MultipleCallsUseOneBatchPrompt(t *testing.T) {
	cat := conflictCatalogue(t)
	conf := &fakeConfirmer{answer: true}
	gate := NewGatekeeper(cat, conf, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{
		call("1", "fund_bots"),
		call("2", "fund_bots"),
		call("3", "fund_bots"),
	})

	if conf.batchCalls != 1 || conf.singleCalls != 0 {
		t.Fatalf("expected one batch prompt, got single=%d batch=%d", conf.singleCalls, conf.batchCalls)
	}
	if len(conf.lastBatch) != 3 {
		t.Fatalf("batch prompt itemized %d calls, want 3", len(conf.lastBatch))
	}
	if len(res.Approved) != 3 || len(res.Declined) != 0 {
		t.Fatalf("expected all approved, got %+v", res)
	}
}

func TestGatekeeper_DeclineSparesAutoApproved(t *testing.T) {
	cat := conflictCatalogue(t)
	conf := &fakeConfirmer{answer: false}
	gate := NewGatekeeper(cat, conf, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{
		call("1", "list_bots"),
		call("2", "fund_bots"),
		call("3", "get_balance"),
	})

	if res.HumanApproved {
		t.Fatal("declined gate must not report human approval")
	}
	if len(res.Approved) != 2 {
		t.Fatalf("auto-approved reads must survive a decline, got %v", names(res.Approved))
	}
	if len(res.Declined) != 1 || res.Declined[0].Name != "fund_bots" {
		t.Fatalf("declined = %v, want [fund_bots]", names(res.Declined))
	}
}

func TestGatekeeper_InterruptionIsDecline(t *testing.T) {
	cat := conflictCatalogue(t)
	conf := &fakeConfirmer{answer: true, interrupted: true}
	gate := NewGatekeeper(cat, conf, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{call("1", "withdraw")})

	if len(res.Declined) != 1 || res.HumanApproved {
		t.Fatalf("interrupted prompt must decline, got %+v", res)
	}
}

func TestGatekeeper_NilConfirmerFailsClosed(t *testing.T) {
	cat := conflictCatalogue(t)
	gate := NewGatekeeper(cat, nil, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{
		call("1", "list_bots"),
		call("2", "fund_bots"),
	})

	if len(res.Declined) != 1 || res.Declined[0].Name != "fund_bots" {
		t.Fatalf("nil confirmer must decline mutating calls, got %+v", res)
	}
	if len(res.Approved) != 1 || res.Approved[0].Name != "list_bots" {
		t.Fatalf("reads must still pass, got %v", names(res.Approved))
	}
}

func TestGatekeeper_AutoOnlyNeedsNoPrompt(t *testing.T) {
	cat := conflictCatalogue(t)
	conf := &fakeConfirmer{answer: false}
	gate := NewGatekeeper(cat, conf, testLogger())

	res := gate.Gate(context.Background(), []ToolCall{call("1", "list_bots")})

	if conf.singleCalls+conf.batchCalls != 0 {
		t.Fatal("read-only batch must not prompt")
	}
	if len(res.Approved) != 1 || res.HumanApproved {
		t.Fatalf("expected silent auto-approval, got %+v", res)
	}
}
