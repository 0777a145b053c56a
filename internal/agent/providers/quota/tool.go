package quota

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nexuscore/agent-runtime/internal/agent"
)

// CheckQuotaTool exposes a Summary conversationally, letting a model check
// quota/circuit status before committing to an expensive parallel operation
// or a retry against a struggling provider.
type CheckQuotaTool struct {
	tracker       HealthView
	providerNames []string
}

// NewCheckQuotaTool creates a check_provider_quota tool over the given
// tracker and the set of provider names it should report on.
func NewCheckQuotaTool(tracker HealthView, providerNames []string) *CheckQuotaTool {
	return &CheckQuotaTool{tracker: tracker, providerNames: providerNames}
}

func (t *CheckQuotaTool) Name() string { return "check_provider_quota" }

func (t *CheckQuotaTool) Description() string {
	return "Check rate limit and circuit-breaker status for one or all configured providers. " +
		"Use before a large parallel operation or after a provider call fails, to decide " +
		"whether to retry, switch providers, or wait."
}

func (t *CheckQuotaTool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"provider": {
				"type": "string",
				"description": "Optional provider name to filter to; omit to report on all configured providers"
			}
		}
	}`)
}

func (t *CheckQuotaTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args struct {
		Provider string `json:"provider"`
	}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return &agent.ToolResult{Content: fmt.Sprintf("invalid input: %s", err), IsError: true}, nil
		}
	}

	names := t.providerNames
	if args.Provider != "" {
		names = []string{args.Provider}
	}

	summary := BuildSummary(t.tracker, names)

	var b strings.Builder
	b.WriteString("Quota Status\n\n")

	if available := summary.Available(); len(available) > 0 {
		fmt.Fprintf(&b, "Available providers: %s\n", strings.Join(available, ", "))
	}
	if rateLimited := summary.RateLimited(); len(rateLimited) > 0 {
		fmt.Fprintf(&b, "Rate-limited providers: %s\n", strings.Join(rateLimited, ", "))
	}
	if circuitOpen := summary.CircuitOpen(); len(circuitOpen) > 0 {
		fmt.Fprintf(&b, "Circuit-open providers: %s\n", strings.Join(circuitOpen, ", "))
	}
	if len(summary.Providers) == 0 {
		b.WriteString("No providers configured.\n")
	}

	return &agent.ToolResult{Content: b.String()}, nil
}
