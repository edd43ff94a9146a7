package chain

import (
	"math/big"
	"testing"
)

func TestWeiToEther(t *testing.T) {
	cases := []struct {
		name string
		wei  *big.Int
		want string
	}{
		{"nil", nil, "0"},
		{"zero", big.NewInt(0), "0"},
		{"one ether", mustBig("1000000000000000000"), "1"},
		{"fraction", mustBig("1500000000000000000"), "1.5"},
		{"small", big.NewInt(1000000000), "0.000000001"},
		{"large", mustBig("123450000000000000000"), "123.45"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := WeiToEther(c.wei); got != c.want {
				t.Fatalf("WeiToEther(%v) = %q, want %q", c.wei, got, c.want)
			}
		})
	}
}

func TestEtherToWei(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"1", "1000000000000000000"},
		{"0.5", "500000000000000000"},
		{" 2.25 ", "2250000000000000000"},
		{"0", "0"},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := EtherToWei(c.in)
			if err != nil {
				t.Fatalf("EtherToWei(%q) failed: %v", c.in, err)
			}
			if got.String() != c.want {
				t.Fatalf("EtherToWei(%q) = %s, want %s", c.in, got, c.want)
			}
		})
	}
}

func TestEtherToWei_RejectsBadInput(t *testing.T) {
	for _, in := range []string{"", "abc", "-1"} {
		t.Run(in, func(t *testing.T) {
			if _, err := EtherToWei(in); err == nil {
				t.Fatalf("EtherToWei(%q) accepted bad input", in)
			}
		})
	}
}

func TestRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "0.125", "42.5"} {
		wei, err := EtherToWei(s)
		if err != nil {
			t.Fatalf("EtherToWei(%q): %v", s, err)
		}
		if got := WeiToEther(wei); got != s {
			t.Fatalf("round trip %q -> %q", s, got)
		}
	}
}

func mustBig(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad big int literal " + s)
	}
	return n
}
