package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/pkg/models"
)

// ChatProvider is the synchronous chat contract exposed to callers that do
// not need to observe streaming deltas: the resilient wrapper, the router,
// and tools like delegate that just want a final answer. It is satisfied by
// streamingAdapter, which drives any agent.LLMProvider's streaming Complete
// to completion and assembles the result.
type ChatProvider interface {
	// ChatWithSystem sends a single-turn prompt with an optional system
	// message and returns the assembled text response.
	ChatWithSystem(ctx context.Context, system, prompt, model string, temperature float64) (string, error)

	// Chat sends a single-turn prompt with no system message.
	Chat(ctx context.Context, prompt, model string, temperature float64) (string, error)

	// ChatWithTools sends a multi-turn conversation with tool definitions
	// attached, returning the assembled message (which may carry tool calls).
	ChatWithTools(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionMessage, error)

	// SupportsNativeTools reports whether the underlying provider can accept
	// tool definitions and emit structured tool calls itself, as opposed to
	// needing the caller to parse tool calls out of free text.
	SupportsNativeTools() bool

	// Warmup performs any one-time setup a provider needs before serving
	// real traffic (token refresh, connection priming). Failures are
	// logged by the caller and are never fatal.
	Warmup(ctx context.Context) error

	// Name returns the provider's canonical identifier.
	Name() string
}

// streamingAdapter adapts an agent.LLMProvider (which exposes only a
// streaming Complete) to the synchronous ChatProvider contract. This keeps
// the provider SDK clients as-is (the HOW: streaming completion channels)
// while giving callers the WHAT the rest of this module needs: a plain
// request/response chat call.
type streamingAdapter struct {
	provider agent.LLMProvider
	warmup   func(ctx context.Context) error
}

// NewChatProvider wraps an agent.LLMProvider as a ChatProvider. warmup may be
// nil, in which case Warmup is a no-op.
func NewChatProvider(provider agent.LLMProvider, warmup func(ctx context.Context) error) ChatProvider {
	return &streamingAdapter{provider: provider, warmup: warmup}
}

func (a *streamingAdapter) Name() string {
	return a.provider.Name()
}

func (a *streamingAdapter) SupportsNativeTools() bool {
	return a.provider.SupportsTools()
}

func (a *streamingAdapter) Warmup(ctx context.Context) error {
	if a.warmup == nil {
		return nil
	}
	return a.warmup(ctx)
}

func (a *streamingAdapter) ChatWithSystem(ctx context.Context, system, prompt, model string, temperature float64) (string, error) {
	req := &agent.CompletionRequest{
		Model:  model,
		System: system,
		Messages: []agent.CompletionMessage{
			{Role: "user", Content: prompt},
		},
	}
	msg, err := a.ChatWithTools(ctx, req)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (a *streamingAdapter) Chat(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	return a.ChatWithSystem(ctx, "", prompt, model, temperature)
}

func (a *streamingAdapter) ChatWithTools(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionMessage, error) {
	chunks, err := a.provider.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%s: complete: %w", a.provider.Name(), sanitizeError(err))
	}

	var text strings.Builder
	var thinking strings.Builder
	var toolCalls []models.ToolCall
	var usage *agent.Usage

	for chunk := range chunks {
		if chunk == nil {
			continue
		}
		if chunk.Error != nil {
			return nil, fmt.Errorf("%s: stream: %w", a.provider.Name(), sanitizeError(chunk.Error))
		}
		if chunk.Text != "" {
			text.WriteString(chunk.Text)
		}
		if chunk.Thinking != "" {
			thinking.WriteString(chunk.Thinking)
		}
		if chunk.ToolCall != nil {
			tc := *chunk.ToolCall
			if tc.ID == "" {
				tc.ID = uuid.NewString()
			}
			toolCalls = append(toolCalls, tc)
		}
		if chunk.Done && (chunk.InputTokens != 0 || chunk.OutputTokens != 0) {
			usage = &agent.Usage{InputTokens: chunk.InputTokens, OutputTokens: chunk.OutputTokens}
		}
	}

	msg := &agent.CompletionMessage{
		Role:      "assistant",
		Content:   text.String(),
		ToolCalls: toolCalls,
		Reasoning: thinking.String(),
		Usage:     usage,
	}
	return msg, nil
}
