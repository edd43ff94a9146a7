package copilot

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/fleetclaw/fleetclaw/pkg/fleetclaw/fleet"
)

func testFleet(t *testing.T) *fleet.Fleet {
	t.Helper()
	reg, err := fleet.New([]fleet.Bot{
		{Name: "alpha", Address: "0x00000000000000000000000000000000000000a1"},
		{Name: "beta", Address: "0x00000000000000000000000000000000000000b2"},
		{Name: "gamma", Address: "0x00000000000000000000000000000000000000c3"},
	})
	if err != nil {
		t.Fatalf("fleet: %v", err)
	}
	return reg
}

func TestFanOutBots_AggregatesPerBotOutcomes(t *testing.T) {
	ts := &Toolset{Fleet: testFleet(t), Session: NewSession("s", ""), Workers: 3}

	out, err := ts.fanOutBots(context.Background(), ts.Fleet.All(), 3,
		func(ctx context.Context, b fleet.Bot) (string, error) {
			if b.Name == "beta" {
				return "", errors.New("nonce too low")
			}
			return "tx 0xabc", nil
		})
	if err != nil {
		t.Fatalf("fanOutBots: %v", err)
	}

	var slots []identityResult
	if err := json.Unmarshal([]byte(out), &slots); err != nil {
		t.Fatalf("output not JSON: %s", out)
	}
	if len(slots) != 3 {
		t.Fatalf("expected 3 slots, got %d", len(slots))
	}
	if slots[0].Bot != "alpha" || slots[0].Status != StatusOK {
		t.Fatalf("slot 0 = %+v", slots[0])
	}
	if slots[1].Bot != "beta" || slots[1].Status != StatusError || slots[1].Error == "" {
		t.Fatalf("slot 1 = %+v", slots[1])
	}
	if slots[2].Bot != "gamma" || slots[2].Status != StatusOK {
		t.Fatalf("slot 2 = %+v", slots[2])
	}
}

func TestRegisterAll_WiresEveryTool(t *testing.T) {
	ts := &Toolset{Fleet: testFleet(t), Session: NewSession("s", ""), Workers: 3}
	cat := NewCatalogue()
	exec := NewToolExecutor(cat, nil, testLogger())

	if err := ts.RegisterAll(cat, exec); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	expected := map[string]struct{ mutates, confirms bool }{
		"list_bots":        {false, false},
		"get_balance":      {false, false},
		"refresh_balances": {false, false},
		"fund_bots":        {true, true},
		"withdraw":         {true, true},
		"transfer":         {true, true},
		"trade_buy":        {true, true},
		"trade_sell":       {true, true},
	}
	if cat.Len() != len(expected) {
		t.Fatalf("catalogue has %d tools, want %d", cat.Len(), len(expected))
	}
	for name, flags := range expected {
		d, err := cat.Resolve(name)
		if err != nil {
			t.Fatalf("tool %s not registered: %v", name, err)
		}
		if d.Mutates != flags.mutates || d.NeedsConfirmation != flags.confirms {
			t.Errorf("%s: mutates=%v confirms=%v, want %v/%v",
				name, d.Mutates, d.NeedsConfirmation, flags.mutates, flags.confirms)
		}
	}
}

func TestListBots_IncludesCachedBalances(t *testing.T) {
	sess := NewSession("s", "")
	sess.SetBalance("beta", "0.75")
	ts := &Toolset{Fleet: testFleet(t), Session: sess, Workers: 3}

	out, err := ts.listBots(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("listBots: %v", err)
	}

	var entries []struct {
		Name    string `json:"name"`
		Address string `json:"address"`
		Balance string `json:"balance"`
	}
	if err := json.Unmarshal([]byte(out), &entries); err != nil {
		t.Fatalf("output not JSON: %s", out)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[1].Name != "beta" || entries[1].Balance != "0.75" {
		t.Fatalf("entry = %+v", entries[1])
	}
	if entries[0].Balance != "" {
		t.Fatalf("alpha has no cached balance, got %q", entries[0].Balance)
	}
}

func TestConfirmationDescriptions(t *testing.T) {
	ts := &Toolset{Fleet: testFleet(t), Session: NewSession("s", ""), Workers: 3}
	cat := NewCatalogue()
	exec := NewToolExecutor(cat, nil, testLogger())
	if err := ts.RegisterAll(cat, exec); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}

	t.Run("fund whole fleet", func(t *testing.T) {
		desc := cat.DescribeCall(ToolCall{
			ID: "c1", Name: "fund_bots",
			Input: []byte(`{"amount":"0.5"}`),
		})
		if desc != "Fund the whole fleet with 0.5 ETH each from the treasury" {
			t.Fatalf("desc = %q", desc)
		}
	})

	t.Run("buy for selected bots", func(t *testing.T) {
		desc := cat.DescribeCall(ToolCall{
			ID: "c2", Name: "trade_buy",
			Input: []byte(`{"bots":["alpha","beta"],"symbol":"ETH-USDC","amount":2}`),
		})
		if desc != "Buy 2 ETH-USDC for alpha, beta" {
			t.Fatalf("desc = %q", desc)
		}
	})

	t.Run("transfer", func(t *testing.T) {
		desc := cat.DescribeCall(ToolCall{
			ID: "c3", Name: "transfer",
			Input: []byte(`{"from_bot":"alpha","to_address":"0xdead","amount":"1"}`),
		})
		if desc != "Transfer 1 ETH from alpha to 0xdead" {
			t.Fatalf("desc = %q", desc)
		}
	})
}

func TestStringListArg(t *testing.T) {
	args := map[string]any{"bots": []any{"alpha", 42, "beta"}}
	got := stringListArg(args, "bots")
	if len(got) != 2 || got[0] != "alpha" || got[1] != "beta" {
		t.Fatalf("got %v", got)
	}
	if out := stringListArg(map[string]any{}, "bots"); len(out) != 0 {
		t.Fatalf("missing key should yield empty, got %v", out)
	}
}
