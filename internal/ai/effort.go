package ai

import (
	"log/slog"
	"strings"
)

// Effort is the normalised reasoning hint shared by all backends.
type Effort string

const (
	EffortXHigh   Effort = "xhigh"
	EffortHigh    Effort = "high"
	EffortMedium  Effort = "medium"
	EffortLow     Effort = "low"
	EffortMinimal Effort = "minimal"
	EffortNone    Effort = "none"
)

// Reasoning is the optional reasoning configuration of a provider.
// A nil Enabled with an empty Effort means the request carries no hint.
type Reasoning struct {
	Enabled *bool
	Effort  Effort
}

// IsSet reports whether any reasoning field should be considered.
func (r Reasoning) IsSet() bool {
	return r.Enabled != nil || r.Effort != ""
}

// disabled reports an explicit opt-out.
func (r Reasoning) disabled() bool {
	return r.Enabled != nil && !*r.Enabled
}

// ParseReasoning normalises the raw enabled/effort settings. Unknown values
// are logged and ignored. When only the effort is given, enabled follows it:
// "none" disables reasoning, anything else enables it.
func ParseReasoning(enabledRaw, effortRaw string, logger *slog.Logger) Reasoning {
	var r Reasoning

	if v, ok := parseOptionalBool(enabledRaw); ok {
		r.Enabled = &v
	} else if !isUnset(enabledRaw) && logger != nil {
		logger.Warn("invalid reasoning enabled value, ignoring", "value", enabledRaw)
	}

	if e, ok := parseEffort(effortRaw); ok {
		r.Effort = e
	} else if !isUnset(effortRaw) && logger != nil {
		logger.Warn("invalid reasoning effort value, ignoring", "value", effortRaw)
	}

	if r.Enabled == nil && r.Effort != "" {
		enabled := r.Effort != EffortNone
		r.Enabled = &enabled
	}
	return r
}

func isUnset(raw string) bool {
	v := strings.TrimSpace(raw)
	return v == "" || v == "-"
}

func parseOptionalBool(raw string) (bool, bool) {
	if isUnset(raw) {
		return false, false
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "y", "on":
		return true, true
	case "0", "false", "no", "n", "off":
		return false, true
	}
	return false, false
}

func parseEffort(raw string) (Effort, bool) {
	if isUnset(raw) {
		return "", false
	}
	switch e := Effort(strings.ToLower(strings.TrimSpace(raw))); e {
	case EffortXHigh, EffortHigh, EffortMedium, EffortLow, EffortMinimal, EffortNone:
		return e, true
	}
	return "", false
}

// openRouterReasoning is passed through unchanged.
type openRouterReasoning struct {
	Enabled *bool  `json:"enabled,omitempty"`
	Effort  string `json:"effort,omitempty"`
}

func (r Reasoning) openRouter() *openRouterReasoning {
	if !r.IsSet() {
		return nil
	}
	return &openRouterReasoning{Enabled: r.Enabled, Effort: string(r.Effort)}
}

// perplexityEffort maps onto low|medium|high.
func (r Reasoning) perplexityEffort(logger *slog.Logger) string {
	if r.disabled() || r.Effort == "" {
		return ""
	}
	switch r.Effort {
	case EffortXHigh, EffortHigh:
		return "high"
	case EffortMedium:
		return "medium"
	case EffortLow, EffortMinimal:
		return "low"
	case EffortNone:
		return ""
	}
	warnUnsupported(logger, "perplexity", r.Effort)
	return ""
}

// geminiEffort maps onto minimal|low|medium|high.
func (r Reasoning) geminiEffort(logger *slog.Logger) string {
	if r.disabled() || r.Effort == "" {
		return ""
	}
	switch r.Effort {
	case EffortXHigh, EffortHigh:
		return "high"
	case EffortMedium:
		return "medium"
	case EffortLow:
		return "low"
	case EffortMinimal:
		return "minimal"
	case EffortNone:
		return ""
	}
	warnUnsupported(logger, "gemini", r.Effort)
	return ""
}

func warnUnsupported(logger *slog.Logger, provider string, e Effort) {
	if logger != nil {
		logger.Warn("reasoning effort not supported, omitting", "provider", provider, "effort", string(e))
	}
}
