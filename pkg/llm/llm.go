// Package llm defines the contract between the conversation layer and
// pluggable language-model backends. Concrete clients live in the host
// application; this package only fixes the shapes they must satisfy.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Provider identifies an LLM vendor.
type Provider string

const (
	ProviderAzure     Provider = "azure"
	ProviderVertex    Provider = "vertex"
	ProviderBedrock   Provider = "bedrock"
	ProviderAnthropic Provider = "anthropic"
)

// Role tags a message in a conversation.
type Role string

const (
	RoleSystem Role = "system"
	RoleHuman  Role = "human"
	RoleAI     Role = "ai"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Usage reports token consumption for one completion call. Cost is a
// best-effort estimate; zero means the backend did not report it.
type Usage struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	CostUSD      float64 `json:"cost_usd,omitempty"`
}

// Response is the result of one completion call. Raw carries the
// provider's structured response body so observers can inspect
// provider-specific fields without this package knowing their shapes.
type Response struct {
	Content string          `json:"content"`
	Usage   *Usage          `json:"usage,omitempty"`
	Raw     json.RawMessage `json:"raw,omitempty"`
}

// Backend is an opaque completion capability, already bound to a
// specific model variant.
type Backend interface {
	// Invoke sends the full message sequence and returns the completion.
	Invoke(ctx context.Context, messages []Message) (*Response, error)

	// Provider returns the vendor this backend talks to.
	Provider() Provider
}

// Resolver resolves a (provider, variant) pair to a callable backend.
// Resolution is a pure function of its inputs.
type Resolver interface {
	Resolve(provider Provider, variant string) (Backend, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(provider Provider, variant string) (Backend, error)

func (f ResolverFunc) Resolve(provider Provider, variant string) (Backend, error) {
	return f(provider, variant)
}

// Factory constructs a backend for one model variant.
type Factory func(variant string) (Backend, error)

// Registry maps providers to backend factories. Hosts register a
// factory per vendor they support; adding a provider is a registration,
// not a code change here.
type Registry struct {
	mu        sync.RWMutex
	factories map[Provider]Factory
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[Provider]Factory)}
}

// Register installs a factory for the given provider, replacing any
// previous registration.
func (r *Registry) Register(provider Provider, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[provider] = factory
}

// Resolve returns a backend for the provider and variant.
func (r *Registry) Resolve(provider Provider, variant string) (Backend, error) {
	r.mu.RLock()
	factory, ok := r.factories[provider]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, provider)
	}
	return factory(variant)
}
