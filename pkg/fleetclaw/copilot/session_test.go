package copilot

import (
	"testing"
)

func TestSession_AppendAndTruncate(t *testing.T) {
	sess := NewSession("s1", "prompt")
	sess.Append(TextMessage(RoleUser, "one"))
	sess.Append(TextMessage(RoleAssistant, "two"))
	mark := sess.Len()
	sess.Append(TextMessage(RoleUser, "three"))
	sess.Append(TextMessage(RoleAssistant, "four"))

	sess.Truncate(mark)

	if sess.Len() != 2 {
		t.Fatalf("len = %d, want 2", sess.Len())
	}
	msgs := sess.Messages()
	if msgs[1].Text() != "two" {
		t.Fatalf("last message = %q", msgs[1].Text())
	}
}

func TestSession_TruncateBeyondLenIsNoop(t *testing.T) {
	sess := NewSession("s1", "prompt")
	sess.Append(TextMessage(RoleUser, "one"))
	sess.Truncate(5)
	if sess.Len() != 1 {
		t.Fatalf("len = %d, want 1", sess.Len())
	}
}

func TestSession_MessagesReturnsACopy(t *testing.T) {
	sess := NewSession("s1", "prompt")
	sess.Append(TextMessage(RoleUser, "one"))

	msgs := sess.Messages()
	msgs[0] = TextMessage(RoleUser, "tampered")

	if sess.Messages()[0].Text() != "one" {
		t.Fatal("caller mutated the session through the returned slice")
	}
}

func TestSession_BalanceCache(t *testing.T) {
	sess := NewSession("s1", "prompt")
	sess.SetBalance("alpha", "1.5")
	sess.SetBalance("beta", "0.25")
	sess.SetBalance("alpha", "2.0")

	balances := sess.Balances()
	if balances["alpha"] != "2.0" || balances["beta"] != "0.25" {
		t.Fatalf("balances = %v", balances)
	}

	balances["alpha"] = "tampered"
	if sess.Balances()["alpha"] != "2.0" {
		t.Fatal("caller mutated the cache through the returned map")
	}
}
