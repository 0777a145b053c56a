// Package quota tracks per-provider rate-limit and circuit-breaker state
// and exposes it as a conversational summary, mirroring the quota-awareness
// machinery a multi-provider agent loop needs to decide when to warn a user
// or switch providers mid-conversation.
package quota

import "time"

// Metadata is quota information opportunistically extracted from a
// provider's response headers or error body.
type Metadata struct {
	RateLimitRemaining *uint64
	RateLimitResetAt   *time.Time
	RetryAfterSeconds  *uint64
	RateLimitTotal     *uint64
}

// Status categorizes a provider's current quota/circuit-breaker state.
type Status string

const (
	// StatusOK means the provider is healthy and available.
	StatusOK Status = "ok"
	// StatusRateLimited means the provider is rate-limited but the circuit
	// is still closed.
	StatusRateLimited Status = "rate_limited"
	// StatusCircuitOpen means the circuit breaker has tripped.
	StatusCircuitOpen Status = "circuit_open"
	// StatusQuotaExhausted means an OAuth profile's quota is exhausted.
	StatusQuotaExhausted Status = "quota_exhausted"
)

// ProfileQuotaInfo is per-OAuth-profile quota information. Profiles are
// populated by callers that have an auth-profile store; this package does
// not depend on one.
type ProfileQuotaInfo struct {
	ProfileName        string
	Status             Status
	RateLimitRemaining *uint64
	RateLimitResetAt   *time.Time
	RateLimitTotal     *uint64
	AccountID          string
	TokenExpiresAt     *time.Time
	PlanType           string
}

// ProviderQuotaInfo combines health-tracker state with OAuth profile
// metadata for a single provider.
type ProviderQuotaInfo struct {
	Provider         string
	Status           Status
	FailureCount     int
	LastError        string
	RetryAfterSeconds *uint64
	CircuitResetsAt  *time.Time
	Profiles         []ProfileQuotaInfo
}

// Summary is a snapshot of every tracked provider's quota status.
type Summary struct {
	Timestamp time.Time
	Providers []ProviderQuotaInfo
}

// Available returns the names of providers that are healthy.
func (s Summary) Available() []string {
	var names []string
	for _, p := range s.Providers {
		if p.Status == StatusOK {
			names = append(names, p.Provider)
		}
	}
	return names
}

// RateLimited returns the names of providers that are rate-limited or
// quota-exhausted.
func (s Summary) RateLimited() []string {
	var names []string
	for _, p := range s.Providers {
		if p.Status == StatusRateLimited || p.Status == StatusQuotaExhausted {
			names = append(names, p.Provider)
		}
	}
	return names
}

// CircuitOpen returns the names of providers whose circuit is open.
func (s Summary) CircuitOpen() []string {
	var names []string
	for _, p := range s.Providers {
		if p.Status == StatusCircuitOpen {
			names = append(names, p.Provider)
		}
	}
	return names
}

// UsageMetrics tracks cumulative request/token/cost counters for a single
// provider, updated through the resilient wrapper's OnUsage callback after
// each successful call that reports token usage.
type UsageMetrics struct {
	Provider            string
	RequestsToday       uint64
	RequestsSession     uint64
	TokensInputToday    uint64
	TokensOutputToday   uint64
	TokensInputSession  uint64
	TokensOutputSession uint64
	CostUSDToday        float64
	CostUSDSession      float64
	DailyRequestLimit   uint64
	DailyTokenLimit     uint64
	LastResetAt         time.Time
}

// NewUsageMetrics creates a zeroed UsageMetrics for the named provider.
func NewUsageMetrics(provider string) *UsageMetrics {
	return &UsageMetrics{Provider: provider, LastResetAt: time.Now()}
}

// RecordCall folds a completed call's token counts and cost into both the
// daily and session counters.
func (m *UsageMetrics) RecordCall(inputTokens, outputTokens int, costUSD float64) {
	m.RequestsToday++
	m.RequestsSession++
	m.TokensInputToday += uint64(inputTokens)
	m.TokensOutputToday += uint64(outputTokens)
	m.TokensInputSession += uint64(inputTokens)
	m.TokensOutputSession += uint64(outputTokens)
	m.CostUSDToday += costUSD
	m.CostUSDSession += costUSD
}
