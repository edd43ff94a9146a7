package copilot

import (
	"testing"
)

func TestCatalogue_RegisterAndResolve(t *testing.T) {
	cat := NewCatalogue()
	if err := cat.Register(Descriptor{Name: "list_bots", InputSchema: ObjectSchema(map[string]any{})}); err != nil {
		t.Fatalf("register: %v", err)
	}

	d, err := cat.Resolve("list_bots")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if d.Name != "list_bots" {
		t.Fatalf("resolved %q", d.Name)
	}
}

func TestCatalogue_UnknownNameFailsClosed(t *testing.T) {
	cat := NewCatalogue()
	if _, err := cat.Resolve("anything"); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestCatalogue_DuplicateRejected(t *testing.T) {
	cat := NewCatalogue()
	d := Descriptor{Name: "fund_bots", InputSchema: ObjectSchema(map[string]any{})}
	if err := cat.Register(d); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := cat.Register(d); err == nil {
		t.Fatal("expected duplicate rejection")
	}
}

func TestCatalogue_NameSanitization(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"fund bots", "fund_bots"},
		{"trade.buy!", "trade_buy"},
		{"  spaced  ", "spaced"},
		{"already_fine-1", "already_fine-1"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			if got := sanitizeToolName(c.in); got != c.want {
				t.Fatalf("sanitize(%q) = %q, want %q", c.in, got, c.want)
			}
		})
	}
}

func TestCatalogue_DescriptorsKeepRegistrationOrder(t *testing.T) {
	cat := NewCatalogue()
	for _, name := range []string{"zeta", "alpha", "mid"} {
		if err := cat.Register(Descriptor{Name: name, InputSchema: ObjectSchema(map[string]any{})}); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	ds := cat.Descriptors()
	want := []string{"zeta", "alpha", "mid"}
	for i, d := range ds {
		if d.Name != want[i] {
			t.Fatalf("order = %v at %d, want %v", d.Name, i, want)
		}
	}
}

func TestDescribeCall_FallsBackToName(t *testing.T) {
	cat := NewCatalogue()
	if err := cat.Register(Descriptor{Name: "withdraw", InputSchema: ObjectSchema(map[string]any{})}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if got := cat.DescribeCall(call("c1", "withdraw")); got != "withdraw" {
		t.Fatalf("describe = %q", got)
	}
	if got := cat.DescribeCall(call("c1", "nonexistent")); got != "nonexistent" {
		t.Fatalf("describe unknown = %q", got)
	}
}

func TestDescribeCall_UsesDescribeFunc(t *testing.T) {
	cat := NewCatalogue()
	err := cat.Register(Descriptor{
		Name:        "fund_bots",
		InputSchema: ObjectSchema(map[string]any{}),
		Describe: func(args map[string]any) string {
			return "Fund " + args["bot"].(string)
		},
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got := cat.DescribeCall(ToolCall{ID: "c1", Name: "fund_bots", Input: []byte(`{"bot":"alpha"}`)})
	if got != "Fund alpha" {
		t.Fatalf("describe = %q", got)
	}
}
