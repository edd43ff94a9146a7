// catalogue.go holds the static tool catalogue: every tool the backend may
// propose, with its input schema, mutates-state flag and confirmation flag.
// Proposed calls that do not resolve to exactly one descriptor fail closed.
package copilot

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

// toolNameSanitizer replaces any character not in [a-zA-Z0-9_-] with "_".
var toolNameSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// Descriptor describes one tool. Immutable after registration.
type Descriptor struct {
	Name        string
	Description string

	// InputSchema is the JSON Schema for the tool input.
	InputSchema json.RawMessage

	// Mutates marks tools expected to change external state, as opposed
	// to read-only queries. At most one distinct mutating tool name is
	// admitted per turn.
	Mutates bool

	// NeedsConfirmation marks tools that require human sign-off before
	// execution.
	NeedsConfirmation bool

	// Describe renders a human-readable summary of a call for the
	// confirmation prompt. Optional; the tool name is used when nil.
	Describe func(args map[string]any) string
}

// Catalogue is the registry of tool descriptors, loaded once at startup.
type Catalogue struct {
	byName map[string]*Descriptor
	order  []string
}

// NewCatalogue creates an empty catalogue.
func NewCatalogue() *Catalogue {
	return &Catalogue{byName: make(map[string]*Descriptor)}
}

// Register adds a descriptor. Names are sanitized to the provider pattern
// ^[a-zA-Z0-9_-]+$. Registering a duplicate name is a programming error.
func (c *Catalogue) Register(d Descriptor) error {
	d.Name = sanitizeToolName(d.Name)
	if d.Name == "" {
		return fmt.Errorf("catalogue: empty tool name")
	}
	if _, exists := c.byName[d.Name]; exists {
		return fmt.Errorf("catalogue: duplicate tool %q", d.Name)
	}
	desc := d
	c.byName[d.Name] = &desc
	c.order = append(c.order, d.Name)
	return nil
}

// Resolve returns the unique descriptor for a tool name, or an error when
// the name is unknown (the call then fails closed as an error result).
func (c *Catalogue) Resolve(name string) (*Descriptor, error) {
	d, ok := c.byName[name]
	if !ok {
		return nil, fmt.Errorf("unknown tool %q", name)
	}
	return d, nil
}

// Descriptors returns all descriptors in registration order.
func (c *Catalogue) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, *c.byName[name])
	}
	return out
}

// Len returns the number of registered tools.
func (c *Catalogue) Len() int {
	return len(c.order)
}

// DescribeCall renders the confirmation summary for one call.
func (c *Catalogue) DescribeCall(call ToolCall) string {
	d, err := c.Resolve(call.Name)
	if err != nil {
		return call.Name
	}
	if d.Describe == nil {
		return d.Name
	}
	args, err := parseToolArgs(call.Input)
	if err != nil {
		return d.Name
	}
	return d.Describe(args)
}

// ObjectSchema builds a JSON Schema for an object with the given
// properties and required field names.
func ObjectSchema(props map[string]any, required ...string) json.RawMessage {
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	b, _ := json.Marshal(schema)
	return b
}

// parseToolArgs parses JSON-encoded tool arguments into a map.
func parseToolArgs(raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 || string(raw) == "{}" || string(raw) == "null" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("invalid JSON arguments: %w", err)
	}
	return args, nil
}

// sanitizeToolName ensures a tool name matches the provider pattern
// ^[a-zA-Z0-9_-]+$ by replacing invalid characters with underscores.
func sanitizeToolName(name string) string {
	name = toolNameSanitizer.ReplaceAllString(name, "_")
	for strings.Contains(name, "__") {
		name = strings.ReplaceAll(name, "__", "_")
	}
	return strings.Trim(name, "_")
}
