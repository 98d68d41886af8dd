package conversation

import (
	"context"
	"time"

	"github.com/parley-ai/parley/pkg/llm"
)

// CallRecord describes one completed (or failed) completion call. It is
// handed to every attached observer after the backend returns.
type CallRecord struct {
	CallID         string
	ConversationID string
	UserID         string
	Meta           llm.Metadata

	// Request is the message sequence sent to the backend.
	Request []llm.Message

	// Response is nil when the call failed.
	Response *llm.Response

	// Err is the backend error, nil on success.
	Err error

	Latency time.Duration
}

// Observer is a side-effect-only component attached to a call. It never
// alters the call's result; a returned error is logged and otherwise
// ignored by the pipeline.
type Observer interface {
	Observe(ctx context.Context, rec *CallRecord) error
}

// Metrics is the sink observers record into. internal/metrics satisfies
// it; tests substitute their own.
type Metrics interface {
	IncChatRequests(provider, variant, businessUser string)
	ObserveUsage(provider, variant string, inputTokens, outputTokens int, costUSD float64, latency time.Duration)
	IncBlockedContent(provider, reason, category string)
}
