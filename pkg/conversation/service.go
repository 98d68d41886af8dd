package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/parley-ai/parley/internal/observability"
	"github.com/parley-ai/parley/internal/tracing"
	"github.com/parley-ai/parley/pkg/history"
	"github.com/parley-ai/parley/pkg/llm"
	"github.com/parley-ai/parley/pkg/prompt"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/attribute"
)

// defaultSystemMessage opens every new conversation unless the service
// is configured otherwise.
const defaultSystemMessage = "You are a helpful AI bot, gifted at answering questions."

// Config configures the orchestrator. It is read once at construction;
// the trace observer is attached per call only when TraceEndpoint is
// non-empty.
type Config struct {
	TraceEndpoint string
	ServiceName   string
	SystemMessage string
}

// Service orchestrates conversation sessions: creation, resumption,
// history access and teardown, over an externally supplied history
// store and backend resolver.
type Service struct {
	store    history.Store
	resolver llm.Resolver
	prompts  prompt.Store
	metrics  Metrics
	builder  *Builder
	cfg      Config
}

// NewService creates a conversation service.
func NewService(store history.Store, resolver llm.Resolver, prompts prompt.Store, metrics Metrics, cfg Config) *Service {
	if cfg.SystemMessage == "" {
		cfg.SystemMessage = defaultSystemMessage
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "parley"
	}

	if cfg.TraceEndpoint != "" {
		if err := tracing.InitOpenTelemetry(cfg.ServiceName); err != nil {
			log.Warn().Err(err).Msg("Tracer initialization failed, trace observer degraded")
		}
	}

	return &Service{
		store:    store,
		resolver: resolver,
		prompts:  prompts,
		metrics:  metrics,
		builder:  NewBuilder(store),
		cfg:      cfg,
	}
}

// Conversation couples a session's pipeline with its identity and
// per-call configuration.
type Conversation struct {
	ID       string
	Config   PipelineConfig
	Pipeline *Pipeline
}

// Turn is one role/content pair of a conversation's history.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Start sets up a new conversation: mints a fresh id, stores the
// metadata, assembles the opening prompt and builds the pipeline. It
// has no session preconditions and never fails with NotFoundError.
func (s *Service) Start(ctx context.Context, meta llm.Metadata, promptID string) (*Conversation, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}

	conversationID := uuid.NewString()
	ctx = tracing.WithConversationID(ctx, conversationID)
	ctx, span := tracing.StartSpan(
		ctx,
		"parley.conversation",
		"conversation.start",
		attribute.String("conversation_id", conversationID),
		attribute.String("provider", string(meta.Provider)),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	backend, err := s.resolver.Resolve(meta.Provider, meta.Variant)
	if err != nil {
		return nil, fmt.Errorf("resolve backend: %w", err)
	}

	template := prompt.Passthrough()
	if promptID != prompt.DefaultPromptID {
		template, err = s.prompts.Lookup(promptID)
		if err != nil {
			return nil, err
		}
	}

	// Resolving with metadata persists the backend configuration, so
	// the conversation is resumable before its first exchange.
	if _, err := s.store.Resolve(ctx, meta.BusinessUser, conversationID, &meta); err != nil {
		return nil, fmt.Errorf("store metadata: %w", err)
	}

	cfg := s.pipelineConfig(meta, conversationID, meta.BusinessUser)
	pipeline := s.builder.Build(backend, template, s.cfg.SystemMessage, cfg)

	s.metrics.IncChatRequests(string(meta.Provider), meta.Variant, meta.BusinessUser)

	logger.Info().
		Str("provider", string(meta.Provider)).
		Str("variant", meta.Variant).
		Str("prompt_id", promptID).
		Msg("Conversation started")

	return &Conversation{ID: conversationID, Config: cfg, Pipeline: pipeline}, nil
}

// Get resumes an existing conversation. The backend and instrumentation
// are re-derived from the stored metadata, never from caller input, so
// a client cannot switch a conversation's backend mid-flight. Unknown
// or ended conversations fail with NotFoundError.
func (s *Service) Get(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	ctx = tracing.WithConversationID(ctx, conversationID)
	ctx = tracing.WithUserID(ctx, userID)
	ctx, span := tracing.StartSpan(
		ctx,
		"parley.conversation",
		"conversation.get",
		attribute.String("conversation_id", conversationID),
	)
	defer span.End()
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	handle, err := s.store.Resolve(ctx, userID, conversationID, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve history: %w", err)
	}

	meta := handle.Metadata()
	if meta == nil {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	backend, err := s.resolver.Resolve(meta.Provider, meta.Variant)
	if err != nil {
		return nil, fmt.Errorf("resolve backend: %w", err)
	}

	cfg := s.pipelineConfig(*meta, conversationID, userID)
	pipeline := s.builder.Build(backend, prompt.HistoryReplay(), "", cfg)

	s.metrics.IncChatRequests(string(meta.Provider), meta.Variant, meta.BusinessUser)

	logger.Debug().
		Str("provider", string(meta.Provider)).
		Str("variant", meta.Variant).
		Msg("Conversation resumed")

	return &Conversation{ID: conversationID, Config: cfg, Pipeline: pipeline}, nil
}

// History returns the conversation's ordered turns. A conversation with
// no turns is indistinguishable from one that never existed and fails
// with NotFoundError.
func (s *Service) History(ctx context.Context, conversationID, userID string) ([]Turn, error) {
	handle, err := s.store.Resolve(ctx, userID, conversationID, nil)
	if err != nil {
		return nil, fmt.Errorf("resolve history: %w", err)
	}

	messages, err := handle.Messages(ctx)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if len(messages) == 0 {
		return nil, &NotFoundError{ConversationID: conversationID}
	}

	turns := make([]Turn, len(messages))
	for i, msg := range messages {
		turns[i] = Turn{Role: string(msg.Role), Content: msg.Content}
	}
	return turns, nil
}

// End clears the conversation's history. Ending an already-ended or
// unknown conversation fails with NotFoundError.
func (s *Service) End(ctx context.Context, conversationID, userID string) error {
	ctx = tracing.WithConversationID(ctx, conversationID)
	logger := tracing.LoggerFromContext(ctx, log.Logger)

	handle, err := s.store.Resolve(ctx, userID, conversationID, nil)
	if err != nil {
		return fmt.Errorf("resolve history: %w", err)
	}

	messages, err := handle.Messages(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(messages) == 0 {
		return &NotFoundError{ConversationID: conversationID}
	}

	if err := handle.Clear(ctx); err != nil {
		observability.RecordHistoryAudit(ctx, "conversation_ended", userID, "failure", map[string]interface{}{
			"conversation_id": conversationID,
		})
		return fmt.Errorf("clear history: %w", err)
	}

	observability.RecordHistoryAudit(ctx, "conversation_ended", userID, "success", map[string]interface{}{
		"conversation_id": conversationID,
		"turns_cleared":   len(messages),
	})

	logger.Info().Msg("Conversation ended")
	return nil
}

// DeleteHistory removes exactly one turn by zero-based position. An
// empty conversation fails with NotFoundError; an out-of-range index
// propagates history.ErrIndexOutOfRange unchanged.
func (s *Service) DeleteHistory(ctx context.Context, conversationID, userID string, index int) error {
	handle, err := s.store.Resolve(ctx, userID, conversationID, nil)
	if err != nil {
		return fmt.Errorf("resolve history: %w", err)
	}

	messages, err := handle.Messages(ctx)
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	if len(messages) == 0 {
		return &NotFoundError{ConversationID: conversationID}
	}

	if err := handle.Delete(ctx, index); err != nil {
		return err
	}

	observability.RecordHistoryAudit(ctx, "turn_deleted", userID, "success", map[string]interface{}{
		"conversation_id": conversationID,
		"index":           index,
	})

	return nil
}

// pipelineConfig assembles the per-operation observer set and scope:
// the usage counter, exactly one provider-selected safety tracker, and
// the trace observer when a trace endpoint is configured.
func (s *Service) pipelineConfig(meta llm.Metadata, conversationID, userID string) PipelineConfig {
	observers := []Observer{
		NewUsageCounter(s.metrics),
		NewSafetyTracker(meta.Provider, s.metrics),
	}

	if s.cfg.TraceEndpoint != "" {
		observers = append(observers, NewTraceObserver(conversationID, meta.BusinessUser))
	}

	return PipelineConfig{
		Scope: Scope{
			ConversationID: conversationID,
			UserID:         userID,
			Meta:           meta,
		},
		Observers: observers,
	}
}
