// Package ai implements the provider gateway: one Generator per backend,
// selected once at startup and classifying every call into a domain.Outcome.
package ai

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"

	"NewsRelay/internal/config"
	"NewsRelay/internal/ports"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderPerplexity = "perplexity"
	ProviderGemini     = "gemini"
)

// Factory builds a generator from its configuration.
type Factory func(cfg config.ProviderConfig, logger *slog.Logger) (ports.Generator, error)

type registration struct {
	factory Factory
	kinds   []ports.RequestKind
}

// Registry keeps a mapping from provider names to their factories.
type Registry struct {
	providers map[string]registration
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: map[string]registration{}}
}

// DefaultRegistry knows every built-in backend.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ProviderOpenRouter, func(cfg config.ProviderConfig, logger *slog.Logger) (ports.Generator, error) {
		return NewOpenRouter(cfg, logger)
	}, ports.KindText, ports.KindImage)
	r.Register(ProviderPerplexity, func(cfg config.ProviderConfig, logger *slog.Logger) (ports.Generator, error) {
		return NewPerplexity(cfg, logger)
	}, ports.KindText)
	r.Register(ProviderGemini, func(cfg config.ProviderConfig, logger *slog.Logger) (ports.Generator, error) {
		return NewGemini(cfg, logger)
	}, ports.KindText, ports.KindImage)
	return r
}

// Register adds or replaces a provider factory serving the given kinds.
func (r *Registry) Register(name string, factory Factory, kinds ...ports.RequestKind) {
	if r.providers == nil {
		r.providers = map[string]registration{}
	}
	r.providers[strings.ToLower(name)] = registration{factory: factory, kinds: kinds}
}

// Build resolves cfg.Type and constructs a generator able to serve kind.
func (r *Registry) Build(cfg config.ProviderConfig, kind ports.RequestKind, logger *slog.Logger) (ports.Generator, error) {
	name := strings.ToLower(strings.TrimSpace(cfg.Type))
	reg, ok := r.providers[name]
	if !ok {
		return nil, errors.WithHintf(errors.Newf("provider %q is not registered", cfg.Type),
			"supported providers: %s", strings.Join(r.names(), ", "))
	}
	if !supports(reg.kinds, kind) {
		return nil, errors.Wrapf(ErrUnsupportedKind, "provider %s", name)
	}
	return reg.factory(cfg, logger)
}

func (r *Registry) names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func supports(kinds []ports.RequestKind, kind ports.RequestKind) bool {
	for _, k := range kinds {
		if k == kind {
			return true
		}
	}
	return false
}

func requireCredentials(cfg config.ProviderConfig) error {
	if strings.TrimSpace(cfg.Model) == "" || strings.TrimSpace(cfg.APIKey) == "" {
		return errors.Newf("provider %s misconfigured: model and api key are required", cfg.Type)
	}
	return nil
}

func baseURL(configured, fallback string) string {
	if configured = strings.TrimSpace(configured); configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return fallback
}
