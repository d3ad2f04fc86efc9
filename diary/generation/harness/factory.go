package harness

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/ZanzyTHEbar/intern-diary/diary/config"
	"github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/adapters"
	ports "github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/ports"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rs/zerolog"
)

// Factory creates and wires harness components from configuration.
type Factory struct {
	cfg    *config.Config
	logger zerolog.Logger
}

// NewFactory creates a new harness factory.
func NewFactory(cfg *config.Config, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateOrchestrator creates a fully wired DiaryOrchestrator from config.
func (f *Factory) CreateOrchestrator() (*DiaryOrchestrator, error) {
	provider, err := f.createProvider()
	if err != nil {
		return nil, err
	}
	return f.CreateOrchestratorWithProvider(provider), nil
}

// CreateOrchestratorWithProvider wires everything from config except the
// provider, which the caller supplies.
func (f *Factory) CreateOrchestratorWithProvider(provider ports.Provider) *DiaryOrchestrator {
	return NewDiaryOrchestrator(
		provider,
		NewPromptBuilder(),
		NewResponseParser(),
		NewGuardrails(),
		f.createCache(),
		f.createRateLimiter(),
		f.createTracer(),
		f.CreatePolicy(),
	)
}

// createProvider builds the text-generation backend named by llm.provider.
func (f *Factory) createProvider() (ports.Provider, error) {
	switch strings.ToLower(f.cfg.LLM.Provider) {
	case "openai", "":
		// The per-call deadline comes from the policy context; the client
		// timeout is only a backstop.
		client := &http.Client{Timeout: f.cfg.LLM.Timeout + f.cfg.LLM.Timeout/2}
		return adapters.NewOpenAIProvider(f.cfg.LLM.BaseURL, client), nil
	default:
		return nil, fmt.Errorf("unsupported llm.provider %q", f.cfg.LLM.Provider)
	}
}

func (f *Factory) createCache() ports.ResultCache {
	if !f.cfg.Cache.Enabled {
		return &noOpCache{}
	}
	return adapters.NewTTLCache(f.cfg.Cache.Expiry, adapters.WithKeyPrefixLen(f.cfg.Cache.KeyPrefixLen))
}

func (f *Factory) createRateLimiter() ports.RateLimiter {
	if !f.cfg.RateLimit.Enabled {
		return &noOpRateLimiter{}
	}
	return adapters.NewTokenBucket(f.cfg.RateLimit.Capacity, f.cfg.RateLimit.RefillRate)
}

func (f *Factory) createTracer() ports.Tracer {
	return adapters.NewZerologTracer(f.logger)
}

// CreatePolicy creates a policy from config.
func (f *Factory) CreatePolicy() *Policy {
	policy := DefaultPolicy()
	policy.Model = f.cfg.LLM.Model
	policy.Temperature = f.cfg.LLM.Temperature
	policy.MaxNewTokens = f.cfg.LLM.MaxTokens
	policy.Timeout = f.cfg.LLM.Timeout
	policy.DefaultCredentials = f.cfg.LLM.APIKey

	if policy.Temperature < 0 || policy.Temperature > 2 {
		f.logger.Warn().Float32("temperature", policy.Temperature).Msg("Temperature clamped to [0, 2]")
		policy.Temperature = min(max(policy.Temperature, 0), 2)
	}

	return policy
}

// noOpCache implements ResultCache for a disabled cache: nothing is ever found.
type noOpCache struct{}

func (c *noOpCache) Lookup(summary string) fn.Option[string] { return fn.None[string]() }
func (c *noOpCache) Store(summary, reply string)             {}
func (c *noOpCache) Cleanup() int                            { return 0 }
func (c *noOpCache) Clear() int                              { return 0 }
func (c *noOpCache) Size() int                               { return 0 }
func (c *noOpCache) Stats() ports.CacheStats                 { return ports.CacheStats{} }

// noOpRateLimiter implements RateLimiter interface with no-op behavior.
type noOpRateLimiter struct{}

func (r *noOpRateLimiter) Acquire(ctx context.Context, key string) (release func(), err error) {
	return func() {}, nil
}

// noOpTracer implements Tracer interface with no-op behavior.
type noOpTracer struct{}

func (t *noOpTracer) StartSpan(ctx context.Context, name string, attrs map[string]any) (context.Context, func(err error)) {
	return ctx, func(err error) {}
}

func (t *noOpTracer) Event(ctx context.Context, name string, attrs map[string]any) {}

// Ensure all no-op types implement their interfaces.
var (
	_ ports.ResultCache = (*noOpCache)(nil)
	_ ports.RateLimiter = (*noOpRateLimiter)(nil)
	_ ports.Tracer      = (*noOpTracer)(nil)
)
