package conversation

import (
	"context"

	"github.com/parley-ai/parley/pkg/llm"
)

// UsageCounter records token, cost and latency figures for every
// completion call through a backend. One implementation serves all
// providers: it reads whatever usage fields the response exposes and
// treats missing fields as absent, not as errors.
type UsageCounter struct {
	metrics Metrics
}

// NewUsageCounter creates a usage observer recording into the given sink.
func NewUsageCounter(metrics Metrics) *UsageCounter {
	return &UsageCounter{metrics: metrics}
}

// Observe records the call's usage. Failed calls still contribute a
// latency sample; token figures only exist on success.
func (c *UsageCounter) Observe(ctx context.Context, rec *CallRecord) error {
	var usage llm.Usage
	if rec.Response != nil && rec.Response.Usage != nil {
		usage = *rec.Response.Usage
	}

	c.metrics.ObserveUsage(
		string(rec.Meta.Provider),
		rec.Meta.Variant,
		usage.InputTokens,
		usage.OutputTokens,
		usage.CostUSD,
		rec.Latency,
	)

	return nil
}
