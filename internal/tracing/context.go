package tracing

import (
	"context"

	"github.com/google/uuid"
)

// ContextKey is the type for context keys.
type ContextKey string

const (
	// TraceIDKey is the context key for the trace id.
	TraceIDKey ContextKey = "trace_id"
	// ConversationIDKey is the context key for the conversation id.
	ConversationIDKey ContextKey = "conversation_id"
	// UserIDKey is the context key for the user id.
	UserIDKey ContextKey = "user_id"
	// CallIDKey is the context key for a single completion call's id.
	CallIDKey ContextKey = "call_id"
)

// TraceContext holds the identifiers propagated through a conversation
// operation.
type TraceContext struct {
	TraceID        string
	ConversationID string
	UserID         string
	CallID         string
}

// NewTraceID generates a new trace id.
func NewTraceID() string {
	return uuid.New().String()
}

// WithTraceID adds a trace id to the context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, TraceIDKey, traceID)
}

// WithConversationID adds a conversation id to the context.
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, ConversationIDKey, conversationID)
}

// WithUserID adds a user id to the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

// WithCallID adds a call id to the context.
func WithCallID(ctx context.Context, callID string) context.Context {
	return context.WithValue(ctx, CallIDKey, callID)
}

// GetTraceID retrieves the trace id from the context.
func GetTraceID(ctx context.Context) string {
	return stringValue(ctx, TraceIDKey)
}

// GetConversationID retrieves the conversation id from the context.
func GetConversationID(ctx context.Context) string {
	return stringValue(ctx, ConversationIDKey)
}

// GetUserID retrieves the user id from the context.
func GetUserID(ctx context.Context) string {
	return stringValue(ctx, UserIDKey)
}

// GetCallID retrieves the call id from the context.
func GetCallID(ctx context.Context) string {
	return stringValue(ctx, CallIDKey)
}

func stringValue(ctx context.Context, key ContextKey) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(key).(string); ok {
		return v
	}
	return ""
}

// FromContext extracts all tracing identifiers from the context.
func FromContext(ctx context.Context) TraceContext {
	return TraceContext{
		TraceID:        GetTraceID(ctx),
		ConversationID: GetConversationID(ctx),
		UserID:         GetUserID(ctx),
		CallID:         GetCallID(ctx),
	}
}
