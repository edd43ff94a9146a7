// Package fleet holds the registry of managed bot identities. The set is
// ordered and duplicate-free; fan-out operations rely on that ordering for
// deterministic result aggregation.
package fleet

import (
	"fmt"
	"strings"
)

// Bot is one managed trading-bot identity.
type Bot struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

// Fleet is the ordered, duplicate-free registry of bots.
type Fleet struct {
	bots   []Bot
	byName map[string]Bot
}

// New builds a fleet from the configured bots. Duplicate names or
// addresses are rejected.
func New(bots []Bot) (*Fleet, error) {
	f := &Fleet{byName: make(map[string]Bot, len(bots))}
	addrs := make(map[string]string, len(bots))
	for _, b := range bots {
		name := strings.TrimSpace(b.Name)
		if name == "" {
			return nil, fmt.Errorf("fleet: bot with empty name")
		}
		if _, dup := f.byName[name]; dup {
			return nil, fmt.Errorf("fleet: duplicate bot name %q", name)
		}
		addr := strings.ToLower(strings.TrimSpace(b.Address))
		if addr == "" {
			return nil, fmt.Errorf("fleet: bot %q has no address", name)
		}
		if prev, dup := addrs[addr]; dup {
			return nil, fmt.Errorf("fleet: bots %q and %q share address %s", prev, name, b.Address)
		}
		addrs[addr] = name
		b.Name = name
		f.byName[name] = b
		f.bots = append(f.bots, b)
	}
	return f, nil
}

// All returns every bot in registration order.
func (f *Fleet) All() []Bot {
	out := make([]Bot, len(f.bots))
	copy(out, f.bots)
	return out
}

// Names returns the bot names in registration order.
func (f *Fleet) Names() []string {
	out := make([]string, len(f.bots))
	for i, b := range f.bots {
		out[i] = b.Name
	}
	return out
}

// Get resolves one bot by name.
func (f *Fleet) Get(name string) (Bot, error) {
	b, ok := f.byName[strings.TrimSpace(name)]
	if !ok {
		return Bot{}, fmt.Errorf("fleet: unknown bot %q", name)
	}
	return b, nil
}

// Select resolves a subset of bots by name, preserving the requested
// order. An empty selection means the whole fleet.
func (f *Fleet) Select(names []string) ([]Bot, error) {
	if len(names) == 0 {
		return f.All(), nil
	}
	out := make([]Bot, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		b, err := f.Get(name)
		if err != nil {
			return nil, err
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("fleet: bot %q selected twice", b.Name)
		}
		seen[b.Name] = true
		out = append(out, b)
	}
	return out, nil
}

// Len returns the fleet size.
func (f *Fleet) Len() int {
	return len(f.bots)
}
