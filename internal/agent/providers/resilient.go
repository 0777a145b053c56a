package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nexuscore/agent-runtime/internal/agent"
	"github.com/nexuscore/agent-runtime/internal/retry"
)

// ProviderEntry pairs a ChatProvider with the name it is tracked under and
// the credential it was constructed with. The credential is carried here
// (rather than only inside the provider) so a fallback entry can be
// re-created with its own key if a future refresh needs it.
type ProviderEntry struct {
	Name     string
	Provider ChatProvider
	APIKey   string
}

// ModelFallbacks maps an original model name to an ordered list of alternate
// model names to try on the same provider before moving to the next
// provider in the list.
type ModelFallbacks map[string][]string

// ResilientConfig configures a ResilientProvider.
type ResilientConfig struct {
	// Retries is the number of retry attempts per provider/model pair,
	// not counting the first attempt.
	Retries int
	// BackoffMs is the base backoff between retries in milliseconds;
	// it doubles on every retry, with no jitter.
	BackoffMs int
	// ModelFallbacks carries alternate models to try on a model-not-found
	// class error before moving on to the next provider.
	ModelFallbacks ModelFallbacks
	// Health configures the shared circuit breaker. Zero value uses
	// DefaultHealthConfig.
	Health HealthConfig
	// OnUsage, if set, is called after every successful completion with the
	// serving provider's name and the token counts it reported. Callers fold
	// this into their own per-provider usage accounting (e.g.
	// quota.UsageMetrics) — kept as a callback rather than a direct
	// dependency so this package never has to import the quota package that
	// already imports this one for HealthView.
	OnUsage func(provider string, inputTokens, outputTokens int)
}

// ResilientProvider is an ordered chain of providers (primary first,
// fallbacks after) with per-provider circuit breaking, retry/backoff, and
// model-name fallback. It implements ChatProvider so it can be nested
// (e.g. behind a Router) or used directly.
type ResilientProvider struct {
	entries []ProviderEntry
	health  *HealthTracker
	cfg     ResilientConfig
}

// NewResilientProvider builds a ResilientProvider from an ordered provider
// list. The first entry is the primary; the rest are tried in order on
// failure.
func NewResilientProvider(entries []ProviderEntry, cfg ResilientConfig) *ResilientProvider {
	if cfg.Retries <= 0 {
		cfg.Retries = 2
	}
	if cfg.BackoffMs <= 0 {
		cfg.BackoffMs = 100
	}
	if cfg.ModelFallbacks == nil {
		cfg.ModelFallbacks = ModelFallbacks{}
	}
	return &ResilientProvider{
		entries: entries,
		health:  NewHealthTracker(cfg.Health),
		cfg:     cfg,
	}
}

func (r *ResilientProvider) Name() string {
	if len(r.entries) == 0 {
		return "resilient"
	}
	return "resilient:" + r.entries[0].Name
}

// Health returns the circuit-breaker tracker backing this provider, so
// callers can build a quota.Summary over the same state the wrapper itself
// consults before each attempt.
func (r *ResilientProvider) Health() *HealthTracker {
	return r.health
}

// ProviderNames returns the configured entry names in priority order, for
// callers building a quota summary over all of them.
func (r *ResilientProvider) ProviderNames() []string {
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.Name
	}
	return names
}

func (r *ResilientProvider) SupportsNativeTools() bool {
	for _, e := range r.entries {
		if e.Provider.SupportsNativeTools() {
			return true
		}
	}
	return false
}

// Warmup fans out to every held provider. Failures are logged and never
// fatal — the wrapper is usable as long as at least one member warms up.
func (r *ResilientProvider) Warmup(ctx context.Context) error {
	okCount := 0
	for _, e := range r.entries {
		if err := e.Provider.Warmup(ctx); err != nil {
			slog.Warn("provider warmup failed", "provider", e.Name, "error", err)
			continue
		}
		okCount++
	}
	if okCount == 0 && len(r.entries) > 0 {
		return fmt.Errorf("resilient provider: all %d providers failed warmup", len(r.entries))
	}
	return nil
}

func (r *ResilientProvider) ChatWithSystem(ctx context.Context, system, prompt, model string, temperature float64) (string, error) {
	req := &agent.CompletionRequest{
		Model:  model,
		System: system,
		Messages: []agent.CompletionMessage{
			{Role: "user", Content: prompt},
		},
	}
	msg, err := r.ChatWithTools(ctx, req)
	if err != nil {
		return "", err
	}
	return msg.Content, nil
}

func (r *ResilientProvider) Chat(ctx context.Context, prompt, model string, temperature float64) (string, error) {
	return r.ChatWithSystem(ctx, "", prompt, model, temperature)
}

// ChatWithTools implements the spec's resilient-call algorithm: iterate the
// provider list in order, skipping any whose circuit is open; for each
// retained provider attempt the request (with model-name fallback) using
// retries with doubling backoff; record success/failure against the health
// tracker; on exhaustion return a composite error naming every provider
// tried and its sanitized last error.
func (r *ResilientProvider) ChatWithTools(ctx context.Context, req *agent.CompletionRequest) (*agent.CompletionMessage, error) {
	var tried []string

	for _, entry := range r.entries {
		if err := r.health.ShouldTry(entry.Name); err != nil {
			tried = append(tried, fmt.Sprintf("%s: %s", entry.Name, err))
			continue
		}

		msg, err := r.attemptWithModelFallback(ctx, entry, req)
		if err == nil {
			r.health.RecordSuccess(entry.Name)
			if r.cfg.OnUsage != nil && msg.Usage != nil {
				r.cfg.OnUsage(entry.Name, msg.Usage.InputTokens, msg.Usage.OutputTokens)
			}
			return msg, nil
		}

		r.health.RecordFailure(entry.Name, err)
		tried = append(tried, fmt.Sprintf("%s: %s", entry.Name, sanitizeError(err)))
	}

	return nil, fmt.Errorf("resilient provider: all providers exhausted: %s", strings.Join(tried, "; "))
}

// attemptWithModelFallback tries req.Model on entry with retries, then each
// configured alternate model in order, stopping at the first success or the
// first non-model-unavailable failure.
func (r *ResilientProvider) attemptWithModelFallback(ctx context.Context, entry ProviderEntry, req *agent.CompletionRequest) (*agent.CompletionMessage, error) {
	models := append([]string{req.Model}, r.cfg.ModelFallbacks[req.Model]...)

	var lastErr error
	for _, model := range models {
		attemptReq := *req
		attemptReq.Model = model

		msg, err := r.attemptWithRetry(ctx, entry, &attemptReq)
		if err == nil {
			return msg, nil
		}
		lastErr = err

		if ClassifyError(err) != FailoverModelUnavailable {
			return nil, err
		}
		// Model-not-found class error: fall through to the next alternate.
	}
	return nil, lastErr
}

// attemptWithRetry retries a single provider/model pair up to cfg.Retries
// times with backoff doubling from cfg.BackoffMs, no jitter.
func (r *ResilientProvider) attemptWithRetry(ctx context.Context, entry ProviderEntry, req *agent.CompletionRequest) (*agent.CompletionMessage, error) {
	var result *agent.CompletionMessage

	res := retry.Do(ctx, retry.Config{
		MaxAttempts:  r.cfg.Retries + 1,
		InitialDelay: time.Duration(r.cfg.BackoffMs) * time.Millisecond,
		MaxDelay:     time.Hour, // spec requires unbounded doubling, not a capped backoff
		Factor:       2.0,
		Jitter:       false,
	}, func() error {
		msg, err := entry.Provider.ChatWithTools(ctx, req)
		if err != nil {
			if !ClassifyError(err).IsRetryable() {
				return retry.Permanent(err)
			}
			return err
		}
		result = msg
		return nil
	})

	if res.Err != nil {
		return nil, res.Err
	}
	return result, nil
}
