// anthropic.go implements the Backend interface over the Anthropic
// Messages API. Conversation blocks map one-to-one onto content-block
// params; cache-boundary markers become cache_control breakpoints, and the
// system prompt plus the catalogue's last entry are always marked
// cacheable since they are stable across a session.
package copilot

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicBackend talks to the Messages API through the official SDK.
type AnthropicBackend struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	logger    *slog.Logger
}

// NewAnthropicBackend creates a backend for the given model.
func NewAnthropicBackend(apiKey, model string, maxTokens int, logger *slog.Logger) *AnthropicBackend {
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &AnthropicBackend{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: int64(maxTokens),
		logger:    logger.With("component", "backend"),
	}
}

// Chat runs a plain completion without tools.
func (b *AnthropicBackend) Chat(ctx context.Context, conversation []Message, system string) (string, error) {
	msg, err := b.send(ctx, conversation, system, nil)
	if err != nil {
		return "", err
	}
	return msg.Text(), nil
}

// ChatWithTools runs a completion that may propose tool calls.
func (b *AnthropicBackend) ChatWithTools(ctx context.Context, conversation []Message, system string, tools []Descriptor) (Message, error) {
	return b.send(ctx, conversation, system, tools)
}

func (b *AnthropicBackend) send(ctx context.Context, conversation []Message, system string, tools []Descriptor) (Message, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(b.model),
		MaxTokens: b.maxTokens,
		Messages:  buildMessageParams(conversation),
	}

	if system != "" {
		params.System = []anthropic.TextBlockParam{{
			Text:         system,
			CacheControl: anthropic.NewCacheControlEphemeralParam(),
		}}
	}

	if len(tools) > 0 {
		params.Tools = buildToolParams(tools, b.logger)
	}

	resp, err := b.client.Messages.New(ctx, params)
	if err != nil {
		return Message{}, fmt.Errorf("messages api: %w", err)
	}

	out := Message{Role: RoleAssistant}
	for _, block := range resp.Content {
		switch v := block.AsAny().(type) {
		case anthropic.TextBlock:
			out.Blocks = append(out.Blocks, Block{Type: BlockText, Text: v.Text})
		case anthropic.ToolUseBlock:
			out.Blocks = append(out.Blocks, Block{
				Type: BlockToolUse,
				ToolUse: &ToolCall{
					ID:    v.ID,
					Name:  v.Name,
					Input: json.RawMessage(v.Input),
				},
			})
		}
	}

	b.logger.Debug("backend response",
		"stop_reason", string(resp.StopReason),
		"blocks", len(out.Blocks),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
	)
	return out, nil
}

// buildMessageParams converts conversation messages to API params,
// carrying cache-boundary markers through as cache_control breakpoints.
func buildMessageParams(conversation []Message) []anthropic.MessageParam {
	out := make([]anthropic.MessageParam, 0, len(conversation))
	for _, msg := range conversation {
		var blocks []anthropic.ContentBlockParamUnion
		for _, blk := range msg.Blocks {
			switch blk.Type {
			case BlockText:
				if blk.Text == "" {
					continue
				}
				tb := &anthropic.TextBlockParam{Text: blk.Text}
				if blk.CacheBoundary {
					tb.CacheControl = anthropic.NewCacheControlEphemeralParam()
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfText: tb})

			case BlockToolUse:
				if blk.ToolUse == nil {
					continue
				}
				var input map[string]any
				if err := json.Unmarshal(blk.ToolUse.Input, &input); err != nil {
					input = map[string]any{}
				}
				tu := &anthropic.ToolUseBlockParam{
					ID:    blk.ToolUse.ID,
					Name:  blk.ToolUse.Name,
					Input: input,
				}
				if blk.CacheBoundary {
					tu.CacheControl = anthropic.NewCacheControlEphemeralParam()
				}
				blocks = append(blocks, anthropic.ContentBlockParamUnion{OfToolUse: tu})

			case BlockToolResult:
				if blk.ToolResult == nil {
					continue
				}
				u := anthropic.NewToolResultBlock(blk.ToolResult.CallID, blk.ToolResult.Content, blk.ToolResult.IsError)
				if blk.CacheBoundary && u.OfToolResult != nil {
					u.OfToolResult.CacheControl = anthropic.NewCacheControlEphemeralParam()
				}
				blocks = append(blocks, u)
			}
		}
		if len(blocks) == 0 {
			continue
		}
		role := anthropic.MessageParamRoleUser
		if msg.Role == RoleAssistant {
			role = anthropic.MessageParamRoleAssistant
		}
		out = append(out, anthropic.MessageParam{Role: role, Content: blocks})
	}
	return out
}

// buildToolParams converts catalogue descriptors to API tool params. The
// last tool gets a cache_control marker: the catalogue is immutable, so
// the whole tool prefix is reusable across every request of the session.
func buildToolParams(tools []Descriptor, logger *slog.Logger) []anthropic.ToolUnionParam {
	out := make([]anthropic.ToolUnionParam, 0, len(tools))
	for _, d := range tools {
		var schema map[string]any
		if err := json.Unmarshal(d.InputSchema, &schema); err != nil {
			logger.Warn("invalid tool schema, skipping", "tool", d.Name, "error", err)
			continue
		}
		tp := anthropic.ToolParam{
			Name:        d.Name,
			Description: anthropic.String(d.Description),
			InputSchema: anthropic.ToolInputSchemaParam{
				Properties: schema["properties"],
			},
		}
		if required, ok := schema["required"].([]any); ok {
			reqStrings := make([]string, 0, len(required))
			for _, r := range required {
				if s, ok := r.(string); ok {
					reqStrings = append(reqStrings, s)
				}
			}
			tp.InputSchema.Required = reqStrings
		}
		out = append(out, anthropic.ToolUnionParam{OfTool: &tp})
	}
	if n := len(out); n > 0 && out[n-1].OfTool != nil {
		out[n-1].OfTool.CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
	return out
}
