package conversation

import (
	"context"

	"github.com/parley-ai/parley/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// TraceObserver emits one span per completion call, stamped with the
// conversation and business-user identity. It is attached only when a
// trace endpoint is configured on the service.
type TraceObserver struct {
	sessionID    string
	businessUser string
}

// NewTraceObserver creates a trace observer bound to one conversation.
func NewTraceObserver(sessionID, businessUser string) *TraceObserver {
	return &TraceObserver{
		sessionID:    sessionID,
		businessUser: businessUser,
	}
}

// Observe records the completed call as a span.
func (o *TraceObserver) Observe(ctx context.Context, rec *CallRecord) error {
	attrs := []attribute.KeyValue{
		attribute.String("session_id", o.sessionID),
		attribute.String("user_id", o.businessUser),
		attribute.String("call_id", rec.CallID),
		attribute.Float64("latency_seconds", rec.Latency.Seconds()),
	}
	for k, v := range rec.Meta.Dimensions() {
		attrs = append(attrs, attribute.String(k, v))
	}

	_, span := tracing.StartSpan(ctx, "parley.conversation", "conversation.call", attrs...)
	defer span.End()

	if rec.Err != nil {
		span.RecordError(rec.Err)
		span.SetStatus(codes.Error, rec.Err.Error())
	}

	return nil
}
