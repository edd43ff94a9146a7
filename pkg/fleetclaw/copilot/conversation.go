// Package copilot implements the fleetclaw control loop: the conversation
// model, the tool catalogue, the write-conflict resolver, the confirmation
// gatekeeper, the fan-out executor and the turn controller that ties them
// together against an LLM backend.
package copilot

import (
	"encoding/json"
)

// Message roles. Tool results travel in user messages, matching the
// Messages API convention.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Block types within a message.
const (
	BlockText       = "text"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Result status discriminators. Every tool result carries exactly one.
const (
	StatusOK       = "ok"
	StatusError    = "error"
	StatusSkipped  = "skipped"
	StatusDeclined = "declined"
	StatusDeferred = "deferred"
)

// ToolCall is a single tool invocation proposed by the backend.
// The ID is backend-assigned and unique within a turn.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// ToolResultBlock correlates a result back to its proposing call.
type ToolResultBlock struct {
	CallID  string
	Content string
	IsError bool
}

// Block is one content block of a conversation message: plain text, a
// proposed tool call, or a tool result. CacheBoundary marks the end of a
// stable conversation prefix for caching-aware backends; it is only ever
// set on copies produced by Segment, never on the session's own messages.
type Block struct {
	Type          string
	Text          string
	ToolUse       *ToolCall
	ToolResult    *ToolResultBlock
	CacheBoundary bool
}

// Message is one entry of the append-only conversation.
type Message struct {
	Role   string
	Blocks []Block
}

// TextMessage builds a single-block text message.
func TextMessage(role, text string) Message {
	return Message{
		Role:   role,
		Blocks: []Block{{Type: BlockText, Text: text}},
	}
}

// Clone returns a deep copy of the message. Segment relies on this to
// guarantee callers never observe aliased blocks.
func (m Message) Clone() Message {
	out := Message{Role: m.Role, Blocks: make([]Block, len(m.Blocks))}
	for i, b := range m.Blocks {
		nb := Block{Type: b.Type, Text: b.Text, CacheBoundary: b.CacheBoundary}
		if b.ToolUse != nil {
			tu := *b.ToolUse
			if b.ToolUse.Input != nil {
				tu.Input = append(json.RawMessage(nil), b.ToolUse.Input...)
			}
			nb.ToolUse = &tu
		}
		if b.ToolResult != nil {
			tr := *b.ToolResult
			nb.ToolResult = &tr
		}
		out.Blocks[i] = nb
	}
	return out
}

// Text concatenates the text blocks of the message.
func (m Message) Text() string {
	var s string
	for _, b := range m.Blocks {
		if b.Type == BlockText {
			s += b.Text
		}
	}
	return s
}

// ToolCalls returns the tool_use blocks of the message in order.
func (m Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, b := range m.Blocks {
		if b.Type == BlockToolUse && b.ToolUse != nil {
			calls = append(calls, *b.ToolUse)
		}
	}
	return calls
}
