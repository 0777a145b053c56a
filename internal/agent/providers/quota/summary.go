package quota

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nexuscore/agent-runtime/internal/agent/providers"
)

// HealthView is the narrow slice of providers.HealthTracker this package
// needs. The full tracker already satisfies it.
type HealthView interface {
	Status(name string) providers.Status
}

// BuildSummary builds a Summary for the given provider names by reading
// their circuit-breaker state from tracker. Profiles are left empty;
// callers with an OAuth-profile store can populate Profiles afterward.
func BuildSummary(tracker HealthView, providerNames []string) Summary {
	summary := Summary{Timestamp: time.Now()}
	for _, name := range providerNames {
		st := tracker.Status(name)

		info := ProviderQuotaInfo{
			Provider:     name,
			FailureCount: st.FailureCount,
			Status:       StatusOK,
		}
		if st.LastError != nil {
			info.LastError = st.LastError.Error()
		}
		if st.Open {
			info.Status = StatusCircuitOpen
			resetsAt := st.OpenSince // caller computes the true reset time from cooldown; OpenSince is the open timestamp
			info.CircuitResetsAt = &resetsAt
		} else if st.FailureCount > 0 {
			info.Status = StatusRateLimited
		}

		summary.Providers = append(summary.Providers, info)
	}
	return summary
}

// CheckQuotaWarning reports a warning string when an operation involving
// parallelCount calls against providerName risks failing due to quota or
// circuit state. Only operations with 5 or more parallel calls are checked,
// matching the original loop's threshold for when a warning is worth the
// user's attention.
func CheckQuotaWarning(summary Summary, providerName string, parallelCount int) (string, bool) {
	if parallelCount < 5 {
		return "", false
	}

	for _, info := range summary.Providers {
		if info.Provider != providerName {
			continue
		}

		switch info.Status {
		case StatusCircuitOpen:
			reset := ""
			if info.CircuitResetsAt != nil {
				reset = fmt.Sprintf(" (resets %s)", formatRelativeTime(*info.CircuitResetsAt))
			}
			return fmt.Sprintf(
				"provider unavailable: %s is circuit-open%s; consider switching to an alternative provider via check_provider_quota",
				providerName, reset,
			), true

		case StatusRateLimited, StatusQuotaExhausted:
			return fmt.Sprintf(
				"rate limit warning: %s is rate-limited; your parallel operation (%d calls) may fail; consider switching providers",
				providerName, parallelCount,
			), true
		}
	}

	return "", false
}

// formatRelativeTime renders dt relative to now, e.g. "in 2h 30m" or
// "5m ago".
func formatRelativeTime(dt time.Time) string {
	diff := time.Until(dt)
	if diff < 0 {
		abs := -diff
		switch {
		case abs.Hours() >= 1:
			return fmt.Sprintf("%dh ago", int(abs.Hours()))
		case abs.Minutes() >= 1:
			return fmt.Sprintf("%dm ago", int(abs.Minutes()))
		default:
			return fmt.Sprintf("%ds ago", int(abs.Seconds()))
		}
	}
	switch {
	case diff.Hours() >= 1:
		return fmt.Sprintf("in %dh %dm", int(diff.Hours()), int(diff.Minutes())%60)
	case diff.Minutes() >= 1:
		return fmt.Sprintf("in %dm", int(diff.Minutes()))
	default:
		return fmt.Sprintf("in %ds", int(diff.Seconds()))
	}
}

// FindAvailableProvider returns the first provider in candidates (in order),
// other than current, that is not circuit-open, or "" and false if every
// other candidate is unavailable.
func FindAvailableProvider(tracker HealthView, candidates []string, current string) (string, bool) {
	for _, name := range candidates {
		if name == current {
			continue
		}
		if !tracker.Status(name).Open {
			return name, true
		}
	}
	return "", false
}

// ParseSwitchProviderMetadata extracts a switch_provider request embedded by
// a tool's output as a trailing `<!-- metadata: {...} -->` sidecar comment.
// It returns the requested provider and, if present, model.
func ParseSwitchProviderMetadata(toolOutput string) (provider, model string, ok bool) {
	const marker = "<!-- metadata:"
	start := strings.Index(toolOutput, marker)
	if start < 0 {
		return "", "", false
	}
	rest := toolOutput[start:]
	end := strings.Index(rest, "-->")
	if end < 0 {
		return "", "", false
	}
	jsonStr := strings.TrimSpace(rest[len(marker):end])

	var meta struct {
		Action   string `json:"action"`
		Provider string `json:"provider"`
		Model    string `json:"model"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &meta); err != nil {
		return "", "", false
	}
	if meta.Action != "switch_provider" || meta.Provider == "" {
		return "", "", false
	}
	return meta.Provider, meta.Model, true
}
