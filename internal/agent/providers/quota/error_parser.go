package quota

import (
	"encoding/json"
	"strings"
	"time"
)

// ErrorQuotaInfo is quota-reset information extracted from a provider's
// error response body.
type ErrorQuotaInfo struct {
	Provider  string
	ErrorType string
	PlanType  string
	ResetsAt  *time.Time
	Message   string
}

// openAICodexError mirrors the usage-limit error envelope OpenAI's Codex
// endpoint returns: {"error": {"type": "usage_limit_reached", ...}}.
type openAICodexError struct {
	Error struct {
		Type     string `json:"type"`
		Message  string `json:"message"`
		PlanType string `json:"plan_type,omitempty"`
		ResetsAt *int64 `json:"resets_at,omitempty"`
	} `json:"error"`
}

// ParseOpenAICodexError attempts to parse body as an OpenAI Codex
// usage-limit error envelope.
func ParseOpenAICodexError(body string) (*ErrorQuotaInfo, bool) {
	var env openAICodexError
	if err := json.Unmarshal([]byte(body), &env); err != nil {
		return nil, false
	}
	if env.Error.Type == "" {
		return nil, false
	}

	info := &ErrorQuotaInfo{
		Provider:  "openai-codex",
		ErrorType: env.Error.Type,
		PlanType:  env.Error.PlanType,
		Message:   env.Error.Message,
	}
	if env.Error.ResetsAt != nil {
		t := time.Unix(*env.Error.ResetsAt, 0).UTC()
		info.ResetsAt = &t
	}
	return info, true
}

// ParseProviderError tries every known provider-specific error envelope
// format for the named provider. The dispatch is intentionally an
// extension point: only the OpenAI-Codex usage-limit envelope is
// documented well enough to parse today; Anthropic/Gemini quota-error
// schemas are not fabricated here (see the Open Question this resolves).
func ParseProviderError(provider, body string) (*ErrorQuotaInfo, bool) {
	lower := strings.ToLower(provider)
	if strings.Contains(lower, "codex") || strings.Contains(lower, "openai") {
		if info, ok := ParseOpenAICodexError(body); ok {
			return info, true
		}
	}
	return nil, false
}
