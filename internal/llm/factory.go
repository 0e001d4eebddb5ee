package llm

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"mailparser/internal/config"
	"mailparser/internal/port"
)

// ProviderFactory creates a Completer from a provider config.
type ProviderFactory func(cfg *config.LLMProviderConfig) (port.Completer, error)

var (
	providersMu sync.RWMutex
	providers   = map[string]ProviderFactory{}
)

// RegisterProvider registers a completion provider factory by name.
func RegisterProvider(name string, factory ProviderFactory) {
	providersMu.Lock()
	defer providersMu.Unlock()
	providers[name] = factory
}

// Providers returns the registered provider names in sorted order.
func Providers() []string {
	providersMu.RLock()
	defer providersMu.RUnlock()
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewCompleter creates a Completer from a provider config using the registered factory.
func NewCompleter(cfg *config.LLMProviderConfig) (port.Completer, error) {
	providersMu.RLock()
	factory, ok := providers[cfg.Provider]
	providersMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
	return factory(cfg)
}

// Build assembles the configured completion chain: each provider wrapped in
// retry, and a FallbackCompleter when a secondary provider is configured.
func Build(cfg *config.LLMConfig, logger zerolog.Logger) (port.Completer, error) {
	primaryCfg := cfg.PrimaryConfig()
	primary, err := NewCompleter(primaryCfg)
	if err != nil {
		return nil, fmt.Errorf("llm.Build: primary: %w", err)
	}
	primary = WithRetry(primary, primaryCfg.MaxRetries, logger)

	secondaryCfg := cfg.SecondaryConfig()
	if secondaryCfg == nil {
		return primary, nil
	}
	secondary, err := NewCompleter(secondaryCfg)
	if err != nil {
		return nil, fmt.Errorf("llm.Build: secondary: %w", err)
	}
	secondary = WithRetry(secondary, secondaryCfg.MaxRetries, logger)

	logger.Info().
		Str("primary", primaryCfg.Provider).
		Str("secondary", secondaryCfg.Provider).
		Msg("llm.Build: fallback chain configured")

	return NewFallbackCompleter(
		[]port.Completer{primary, secondary},
		[]string{primaryCfg.Provider, secondaryCfg.Provider},
		WithFallbackLogger(logger),
	), nil
}
