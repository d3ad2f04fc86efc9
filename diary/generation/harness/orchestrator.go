package harness

import (
	"context"
	"fmt"
	"strings"
	"time"

	ports "github.com/ZanzyTHEbar/intern-diary/diary/generation/harness/ports"
)

// Messages returned for rejected requests.
const (
	MsgCredentialsRequired = "OpenAI API key is required"
	MsgSummaryRequired     = "Work summary is required"
)

// Policy controls a single generation call.
type Policy struct {
	ProviderName string        // shown in upstream errors, e.g. "OpenAI"
	Model        string        // chat model name
	Temperature  float32       // sampling temperature
	MaxNewTokens int           // response token cap
	Timeout      time.Duration // upstream deadline, single attempt
	// DefaultCredentials apply when a request carries none.
	DefaultCredentials string
}

// DefaultPolicy returns the production defaults.
func DefaultPolicy() *Policy {
	return &Policy{
		ProviderName: "OpenAI",
		Model:        "gpt-4.1-mini",
		Temperature:  0.7,
		MaxNewTokens: 1500,
		Timeout:      30 * time.Second,
	}
}

// Request is one generation request.
type Request struct {
	Summary     string
	Credentials string
}

// Result is the outcome of a successful generation.
type Result struct {
	FullResponse string      // raw provider reply
	Fields       ParsedEntry // structured fields recovered from it
	Cached       bool        // true when served from the result cache
	Usage        *ports.Usage
}

// DiaryOrchestrator turns a work summary into a diary entry: validate,
// consult the cache, call the provider once, cache the raw reply, parse.
type DiaryOrchestrator struct {
	provider   ports.Provider
	builder    *PromptBuilder
	parser     *ResponseParser
	guardrails *Guardrails
	cache      ports.ResultCache
	limiter    ports.RateLimiter
	tracer     ports.Tracer
	policy     Policy
	now        func() time.Time
}

// NewDiaryOrchestrator creates a new orchestrator with dependencies.
// A nil cache, limiter or tracer is replaced by a no-op. A nil policy means
// DefaultPolicy, and unset policy fields take its values.
func NewDiaryOrchestrator(
	provider ports.Provider,
	builder *PromptBuilder,
	parser *ResponseParser,
	guardrails *Guardrails,
	cache ports.ResultCache,
	limiter ports.RateLimiter,
	tracer ports.Tracer,
	policy *Policy,
) *DiaryOrchestrator {
	if cache == nil {
		cache = &noOpCache{}
	}
	if limiter == nil {
		limiter = &noOpRateLimiter{}
	}
	if tracer == nil {
		tracer = &noOpTracer{}
	}
	if guardrails == nil {
		guardrails = NewGuardrails()
	}
	return &DiaryOrchestrator{
		provider:   provider,
		builder:    builder,
		parser:     parser,
		guardrails: guardrails,
		cache:      cache,
		limiter:    limiter,
		tracer:     tracer,
		policy:     withDefaults(policy),
		now:        time.Now,
	}
}

// withDefaults copies policy, filling unset fields from DefaultPolicy.
// Credentials and temperature are taken as given.
func withDefaults(policy *Policy) Policy {
	def := DefaultPolicy()
	if policy == nil {
		return *def
	}
	p := *policy
	if p.ProviderName == "" {
		p.ProviderName = def.ProviderName
	}
	if p.Model == "" {
		p.Model = def.Model
	}
	if p.MaxNewTokens <= 0 {
		p.MaxNewTokens = def.MaxNewTokens
	}
	if p.Timeout <= 0 {
		p.Timeout = def.Timeout
	}
	return p
}

// Policy returns a copy of the active policy.
func (o *DiaryOrchestrator) Policy() Policy {
	return o.policy
}

// Generate produces the diary entry for req. Credentials are checked before
// the summary. Cache hits skip the limiter and the provider.
func (o *DiaryOrchestrator) Generate(ctx context.Context, req Request) (*Result, error) {
	credentials := strings.TrimSpace(req.Credentials)
	if credentials == "" {
		credentials = o.policy.DefaultCredentials
	}
	if credentials == "" {
		return nil, &ValidationError{Message: MsgCredentialsRequired}
	}
	if strings.TrimSpace(req.Summary) == "" {
		return nil, &ValidationError{Message: MsgSummaryRequired}
	}

	ctx, finish := o.tracer.StartSpan(ctx, "generate", map[string]any{
		"summary_chars": len(req.Summary),
	})
	result, err := o.generate(ctx, req.Summary, credentials)
	finish(err)
	return result, err
}

func (o *DiaryOrchestrator) generate(ctx context.Context, summary, credentials string) (*Result, error) {
	if cached := o.cache.Lookup(summary); cached.IsSome() {
		o.tracer.Event(ctx, "cache_hit", nil)
		reply := cached.UnwrapOr("")
		return &Result{
			FullResponse: reply,
			Fields:       o.parser.Parse(reply),
			Cached:       true,
		}, nil
	}
	o.tracer.Event(ctx, "cache_miss", nil)

	release, err := o.limiter.Acquire(ctx, "generate")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRateLimited, err)
	}
	defer release()

	completion, err := o.complete(ctx, summary, credentials)
	if err != nil {
		return nil, err
	}

	// Empty replies are not worth serving again.
	if completion.Text != "" {
		o.cache.Store(summary, completion.Text)
		o.tracer.Event(ctx, "cache_store", map[string]any{"reply_chars": len(completion.Text)})
	}

	fields := o.parser.Parse(completion.Text)
	if !fields.Complete() {
		o.tracer.Event(ctx, "incomplete_entry", map[string]any{"reply_chars": len(completion.Text)})
	}

	return &Result{
		FullResponse: completion.Text,
		Fields:       fields,
		Usage:        completion.Usage,
	}, nil
}

// complete makes the single upstream attempt under the policy timeout.
func (o *DiaryOrchestrator) complete(ctx context.Context, summary, credentials string) (ports.Completion, error) {
	callCtx, cancel := context.WithTimeout(ctx, o.policy.Timeout)
	defer cancel()

	callCtx, spanFinish := o.tracer.StartSpan(callCtx, "provider_call", map[string]any{
		"model":      o.policy.Model,
		"max_tokens": o.policy.MaxNewTokens,
	})

	input := o.builder.BuildInput(summary, map[string]string{"model": o.policy.Model})
	start := o.now()
	completion, err := o.provider.Complete(callCtx, input, ports.Options{
		Model:        o.policy.Model,
		MaxNewTokens: o.policy.MaxNewTokens,
		Temperature:  o.policy.Temperature,
		Credentials:  credentials,
	})
	elapsed := o.now().Sub(start)

	if err != nil {
		upstream := &UpstreamError{
			Provider: o.policy.ProviderName,
			Elapsed:  elapsed,
			Cause:    err,
			detail:   o.guardrails.Redact(err.Error()),
		}
		spanFinish(upstream)
		return ports.Completion{}, upstream
	}

	if u := completion.Usage; u != nil {
		o.tracer.Event(callCtx, "usage", map[string]any{
			"prompt_tokens":     u.PromptTokens,
			"completion_tokens": u.CompletionTokens,
			"total_tokens":      u.TotalTokens,
		})
	}
	spanFinish(nil)
	return completion, nil
}

// Healthcheck reports cache statistics. It never calls the provider.
func (o *DiaryOrchestrator) Healthcheck() ports.CacheStats {
	return o.cache.Stats()
}

// ClearCache drops every cached reply and reports how many were removed.
func (o *DiaryOrchestrator) ClearCache(ctx context.Context) int {
	n := o.cache.Clear()
	o.tracer.Event(ctx, "cache_clear", map[string]any{"removed": n})
	return n
}

// CleanupCache drops expired replies and reports how many were removed.
func (o *DiaryOrchestrator) CleanupCache(ctx context.Context) int {
	n := o.cache.Cleanup()
	if n > 0 {
		o.tracer.Event(ctx, "cache_cleanup", map[string]any{"removed": n})
	}
	return n
}

// RunJanitor calls CleanupCache every interval until ctx is done.
// A non-positive interval disables it.
func (o *DiaryOrchestrator) RunJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			o.CleanupCache(ctx)
		}
	}
}
