package conversation

import (
	"context"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/parley-ai/parley/internal/tracing"
	"github.com/parley-ai/parley/pkg/history"
	"github.com/parley-ai/parley/pkg/llm"
	"github.com/parley-ai/parley/pkg/prompt"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Scope identifies the session a pipeline invocation addresses. It is
// an immutable value: concurrent invocations referencing the same
// conversation share it safely, and distinct conversations never
// interfere. Zero values are the explicit defaults.
type Scope struct {
	ConversationID string
	UserID         string
	Meta           llm.Metadata
}

// PipelineConfig bundles the scope and the ordered observers attached
// to a pipeline's calls. It is constructed fresh per conversation
// operation and never mutated afterwards.
type PipelineConfig struct {
	Scope     Scope
	Observers []Observer
}

// Builder assembles pipelines over a shared history store.
type Builder struct {
	store history.Store
}

// NewBuilder creates a pipeline builder.
func NewBuilder(store history.Store) *Builder {
	return &Builder{store: store}
}

// Build composes a callable pipeline: template rendering, backend
// invocation, output parsing, and history append on success. The
// system message is prepended when non-empty; the template decides
// whether prior history is replayed.
func (b *Builder) Build(backend llm.Backend, template prompt.Template, systemMessage string, cfg PipelineConfig) *Pipeline {
	return &Pipeline{
		backend:  backend,
		template: template,
		system:   systemMessage,
		store:    b.store,
		cfg:      cfg,
	}
}

// Pipeline is a callable completion pipeline bound to one conversation.
// It holds no mutable per-call state; everything that changes between
// calls lives in the history store.
type Pipeline struct {
	backend  llm.Backend
	template prompt.Template
	system   string
	store    history.Store
	cfg      PipelineConfig
}

// Config returns the pipeline's configuration.
func (p *Pipeline) Config() PipelineConfig {
	return p.cfg
}

// Invoke runs one exchange: render the message sequence, call the
// backend, parse the text, and append the user and generated turns to
// the conversation's history. A failed call leaves history unmodified
// and the backend error propagates unwrapped.
func (p *Pipeline) Invoke(ctx context.Context, input string) (string, error) {
	callID, err := gonanoid.New()
	if err != nil {
		return "", fmt.Errorf("generate call id: %w", err)
	}

	scope := p.cfg.Scope
	if tracing.GetTraceID(ctx) == "" {
		ctx = tracing.WithTraceID(ctx, tracing.NewTraceID())
	}
	ctx = tracing.WithConversationID(ctx, scope.ConversationID)
	ctx = tracing.WithUserID(ctx, scope.UserID)
	ctx = tracing.WithCallID(ctx, callID)
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	meta := scope.Meta
	handle, err := p.store.Resolve(ctx, scope.UserID, scope.ConversationID, &meta)
	if err != nil {
		return "", fmt.Errorf("resolve history: %w", err)
	}

	messages, err := p.render(ctx, handle, input)
	if err != nil {
		return "", err
	}

	start := time.Now()
	resp, callErr := p.backend.Invoke(ctx, messages)
	latency := time.Since(start)

	p.notify(ctx, logger, &CallRecord{
		CallID:         callID,
		ConversationID: scope.ConversationID,
		UserID:         scope.UserID,
		Meta:           scope.Meta,
		Request:        messages,
		Response:       resp,
		Err:            callErr,
		Latency:        latency,
	})

	if callErr != nil {
		logger.Debug().
			Str("provider", string(p.backend.Provider())).
			Dur("latency", latency).
			Msg("Backend invocation failed")
		return "", callErr
	}

	// Validate the completion before touching history: an empty reply
	// must not leave a dangling user turn behind.
	if resp == nil || resp.Content == "" {
		logger.Warn().
			Str("provider", string(p.backend.Provider())).
			Dur("latency", latency).
			Msg("Backend returned empty completion")
		return "", ErrEmptyCompletion
	}
	content := resp.Content

	if err := handle.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: input}); err != nil {
		return "", fmt.Errorf("append user turn: %w", err)
	}
	if err := handle.Append(ctx, llm.Message{Role: llm.RoleAI, Content: content}); err != nil {
		return "", fmt.Errorf("append generated turn: %w", err)
	}

	logger.Debug().
		Str("provider", string(p.backend.Provider())).
		Dur("latency", latency).
		Int("messages", len(messages)).
		Msg("Exchange completed")

	return content, nil
}

// render assembles the message sequence for one call: optional system
// message, optional history replay, then the rendered input.
func (p *Pipeline) render(ctx context.Context, handle history.Handle, input string) ([]llm.Message, error) {
	var messages []llm.Message

	if p.system != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: p.system})
	}

	if p.template.IncludeHistory {
		prior, err := handle.Messages(ctx)
		if err != nil {
			return nil, fmt.Errorf("load history: %w", err)
		}
		messages = append(messages, prior...)
	}

	messages = append(messages, llm.Message{Role: llm.RoleHuman, Content: p.template.Render(input)})
	return messages, nil
}

// notify fires every attached observer. Observer failures are logged
// and never abort the primary call.
func (p *Pipeline) notify(ctx context.Context, logger zerolog.Logger, rec *CallRecord) {
	for _, o := range p.cfg.Observers {
		if err := o.Observe(ctx, rec); err != nil {
			logger.Warn().Err(err).Str("call_id", rec.CallID).Msg("Observer failed")
		}
	}
}
