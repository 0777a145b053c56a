package main

import (
	"context"
	"fmt"
	"os"

	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/internal/agent/providers"
	"github.com/nexuscore/agent-runtime/internal/agent/providers/quota"
	"github.com/nexuscore/agent-runtime/internal/agent/routing"
	"github.com/nexuscore/agent-runtime/internal/tools/files"
	"github.com/nexuscore/agent-runtime/internal/tools/security"
	"github.com/nexuscore/agent-runtime/internal/tools/subagent"
)

// runtime bundles everything a subcommand needs: the resilient, quota- and
// circuit-breaker-aware chat entry point (D/E/F), a router over the same
// base providers for model-hint dispatch (G), and a tool registry exercising
// the sandboxed file reader and delegate tools (B/C).
type runtime struct {
	resilient *providers.ResilientProvider
	router    *routing.Router
	registry  *agent.ToolRegistry
	usage     map[string]*quota.UsageMetrics
}

// buildRuntime wires the 8 core components from environment credentials and
// CLI flags. Providers with no credential configured are skipped rather than
// erroring, so the CLI degrades to whatever is actually available.
func buildRuntime(workspace string, modelFallbacks providers.ModelFallbacks) (*runtime, error) {
	base, order, err := configuredLLMProviders()
	if err != nil {
		return nil, err
	}

	entries := make([]providers.ProviderEntry, 0, len(order))
	chatByName := map[string]providers.ChatProvider{}
	for _, name := range order {
		p := base[name]
		cp := providers.NewChatProvider(p, warmupFor(name, p))
		chatByName[name] = cp
		entries = append(entries, providers.ProviderEntry{Name: name, Provider: cp})
	}

	usage := make(map[string]*quota.UsageMetrics, len(order))
	for _, name := range order {
		usage[name] = quota.NewUsageMetrics(name)
	}

	resilient := providers.NewResilientProvider(entries, providers.ResilientConfig{
		ModelFallbacks: modelFallbacks,
		OnUsage: func(provider string, inputTokens, outputTokens int) {
			if m, ok := usage[provider]; ok {
				m.RecordCall(inputTokens, outputTokens, 0)
			}
		},
	})

	router := routing.NewRouter(routing.Config{
		DefaultProvider: order[0],
	}, base)

	registry := agent.NewToolRegistry()
	policy := security.NewSecurityPolicy(workspace)
	if err := registry.Register(files.NewReadTool(policy)); err != nil {
		return nil, fmt.Errorf("register file_read: %w", err)
	}
	if err := registry.Register(quota.NewCheckQuotaTool(resilient.Health(), resilient.ProviderNames())); err != nil {
		return nil, fmt.Errorf("register check_provider_quota: %w", err)
	}
	lookup := func(name string) (providers.ChatProvider, bool) {
		cp, ok := chatByName[name]
		return cp, ok
	}
	if err := registry.Register(subagent.NewDelegateTool(map[string]subagent.AgentConfig{}, lookup)); err != nil {
		return nil, fmt.Errorf("register delegate: %w", err)
	}

	return &runtime{resilient: resilient, router: router, registry: registry, usage: usage}, nil
}

// configuredLLMProviders builds the set of base LLMProviders this process
// has credentials for, in a stable priority order (Anthropic first, then
// OpenAI), and the provider name lookup Router and ResilientProvider share.
func configuredLLMProviders() (map[string]agent.LLMProvider, []string, error) {
	out := map[string]agent.LLMProvider{}
	var order []string

	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		p, err := providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: key})
		if err != nil {
			return nil, nil, fmt.Errorf("anthropic provider: %w", err)
		}
		out["anthropic"] = p
		order = append(order, "anthropic")
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		out["openai"] = providers.NewOpenAIProvider(key)
		order = append(order, "openai")
	}
	if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		p, err := providers.NewGoogleProvider(providers.GoogleConfig{APIKey: key})
		if err != nil {
			return nil, nil, fmt.Errorf("google provider: %w", err)
		}
		out["google"] = p
		order = append(order, "google")
	}
	if region := os.Getenv("AWS_REGION"); region != "" {
		p, err := providers.NewBedrockProvider(providers.BedrockConfig{
			Region:          region,
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			SessionToken:    os.Getenv("AWS_SESSION_TOKEN"),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("bedrock provider: %w", err)
		}
		out["bedrock"] = p
		order = append(order, "bedrock")
	}
	if len(out) == 0 {
		return nil, nil, fmt.Errorf("no provider credentials configured: set ANTHROPIC_API_KEY, OPENAI_API_KEY, GOOGLE_API_KEY, and/or AWS_REGION")
	}
	return out, order, nil
}

// warmupFor returns the warmup hook ChatProvider.Warmup runs on startup. All
// four providers here authenticate with a static key or credential chain
// resolved at construction time, so there is nothing to refresh; a future
// delegated-auth provider (e.g. Bedrock via assumed-role OIDC) would hook in
// here instead of at construction.
func warmupFor(name string, provider agent.LLMProvider) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return nil
	}
}
