package tracing

import (
	"context"

	"github.com/rs/zerolog"
)

// PropagateToLogger adds tracing context to a zerolog logger.
func PropagateToLogger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	tc := FromContext(ctx)

	if tc.TraceID != "" {
		logger = logger.With().Str("trace_id", tc.TraceID).Logger()
	}
	if tc.ConversationID != "" {
		logger = logger.With().Str("conversation_id", tc.ConversationID).Logger()
	}
	if tc.UserID != "" {
		logger = logger.With().Str("user_id", tc.UserID).Logger()
	}
	if tc.CallID != "" {
		logger = logger.With().Str("call_id", tc.CallID).Logger()
	}

	return logger
}

// LoggerFromContext creates a logger carrying the tracing identifiers
// present in the context.
func LoggerFromContext(ctx context.Context, baseLogger zerolog.Logger) zerolog.Logger {
	return PropagateToLogger(ctx, baseLogger)
}
