package conversation

import (
	"context"

	"github.com/parley-ai/parley/pkg/llm"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// SafetyOutcome is the structured result of inspecting one completion
// call for provider safety signals.
type SafetyOutcome struct {
	Blocked  bool
	Reason   string
	Category string
}

// SafetyTracker observes completion calls and records whether the
// provider blocked content, and why. Each provider has its own signal
// shape; the zero-signal tracker never reports a block.
type SafetyTracker struct {
	signal  string
	inspect func(resp *llm.Response) SafetyOutcome
	metrics Metrics
}

// Signal names the provider integration this tracker inspects with.
func (t *SafetyTracker) Signal() string {
	return t.signal
}

// safetyTrackers maps each supported provider to its tracker
// constructor. Adding a provider integration is adding an entry here.
var safetyTrackers = map[llm.Provider]func(Metrics) *SafetyTracker{
	llm.ProviderAzure:     newAzureSafetyTracker,
	llm.ProviderVertex:    newVertexSafetyTracker,
	llm.ProviderBedrock:   newBedrockSafetyTracker,
	llm.ProviderAnthropic: newAnthropicSafetyTracker,
}

// NewSafetyTracker returns the tracker for the given provider. Unknown
// providers get the zero-signal tracker; new providers work before
// their safety integration exists.
func NewSafetyTracker(provider llm.Provider, metrics Metrics) *SafetyTracker {
	if construct, ok := safetyTrackers[provider]; ok {
		return construct(metrics)
	}
	return &SafetyTracker{
		signal:  "none",
		inspect: inspectNone,
		metrics: metrics,
	}
}

// Observe inspects the call's raw response and records a block when the
// provider signalled one.
func (t *SafetyTracker) Observe(ctx context.Context, rec *CallRecord) error {
	if rec.Response == nil {
		return nil
	}

	outcome := t.inspect(rec.Response)
	if !outcome.Blocked {
		return nil
	}

	t.metrics.IncBlockedContent(string(rec.Meta.Provider), outcome.Reason, outcome.Category)

	log.Warn().
		Str("conversation_id", rec.ConversationID).
		Str("provider", string(rec.Meta.Provider)).
		Str("reason", outcome.Reason).
		Str("category", outcome.Category).
		Msg("Content blocked by provider")

	return nil
}

func newAzureSafetyTracker(metrics Metrics) *SafetyTracker {
	return &SafetyTracker{signal: "azure_content_filter", inspect: inspectAzure, metrics: metrics}
}

func newVertexSafetyTracker(metrics Metrics) *SafetyTracker {
	return &SafetyTracker{signal: "vertex_safety_ratings", inspect: inspectVertex, metrics: metrics}
}

func newBedrockSafetyTracker(metrics Metrics) *SafetyTracker {
	return &SafetyTracker{signal: "bedrock_guardrail", inspect: inspectBedrock, metrics: metrics}
}

func newAnthropicSafetyTracker(metrics Metrics) *SafetyTracker {
	return &SafetyTracker{signal: "anthropic_refusal", inspect: inspectAnthropic, metrics: metrics}
}

func inspectNone(resp *llm.Response) SafetyOutcome {
	return SafetyOutcome{}
}

// inspectAzure reads the content-filter annotations Azure OpenAI puts
// on each choice, plus the prompt-side filter results.
func inspectAzure(resp *llm.Response) SafetyOutcome {
	if resp.Raw == nil {
		return SafetyOutcome{}
	}

	outcome := SafetyOutcome{}
	if gjson.GetBytes(resp.Raw, "choices.0.finish_reason").String() == "content_filter" {
		outcome.Blocked = true
		outcome.Reason = "content_filter"
	}
	if gjson.GetBytes(resp.Raw, "prompt_filter_results.0.content_filter_results").Exists() {
		results := gjson.GetBytes(resp.Raw, "prompt_filter_results.0.content_filter_results")
		results.ForEach(func(category, value gjson.Result) bool {
			if value.Get("filtered").Bool() {
				outcome.Blocked = true
				outcome.Reason = "content_filter"
				outcome.Category = category.String()
				return false
			}
			return true
		})
	}
	if outcome.Blocked && outcome.Category == "" {
		filters := gjson.GetBytes(resp.Raw, "choices.0.content_filter_results")
		filters.ForEach(func(category, value gjson.Result) bool {
			if value.Get("filtered").Bool() {
				outcome.Category = category.String()
				return false
			}
			return true
		})
	}
	return outcome
}

// inspectVertex reads Gemini's finish reason and per-category safety
// ratings, plus prompt feedback for fully blocked prompts.
func inspectVertex(resp *llm.Response) SafetyOutcome {
	if resp.Raw == nil {
		return SafetyOutcome{}
	}

	outcome := SafetyOutcome{}
	if reason := gjson.GetBytes(resp.Raw, "promptFeedback.blockReason").String(); reason != "" {
		outcome.Blocked = true
		outcome.Reason = reason
	}
	if gjson.GetBytes(resp.Raw, "candidates.0.finishReason").String() == "SAFETY" {
		outcome.Blocked = true
		if outcome.Reason == "" {
			outcome.Reason = "SAFETY"
		}
	}
	if outcome.Blocked {
		ratings := gjson.GetBytes(resp.Raw, "candidates.0.safetyRatings")
		ratings.ForEach(func(_, value gjson.Result) bool {
			if value.Get("blocked").Bool() {
				outcome.Category = value.Get("category").String()
				return false
			}
			return true
		})
	}
	return outcome
}

// inspectBedrock reads the guardrail action Bedrock attaches when a
// configured guardrail intervened.
func inspectBedrock(resp *llm.Response) SafetyOutcome {
	if resp.Raw == nil {
		return SafetyOutcome{}
	}

	if gjson.GetBytes(resp.Raw, "amazon-bedrock-guardrailAction").String() != "INTERVENED" {
		return SafetyOutcome{}
	}

	outcome := SafetyOutcome{Blocked: true, Reason: "guardrail_intervened"}
	topics := gjson.GetBytes(resp.Raw, "amazon-bedrock-trace.guardrail.output.0.topicPolicy.topics")
	topics.ForEach(func(_, value gjson.Result) bool {
		if value.Get("action").String() == "BLOCKED" {
			outcome.Category = value.Get("name").String()
			return false
		}
		return true
	})
	return outcome
}

// inspectAnthropic reads the refusal stop reason the Messages API
// returns when the model declines to answer.
func inspectAnthropic(resp *llm.Response) SafetyOutcome {
	if resp.Raw == nil {
		return SafetyOutcome{}
	}

	if gjson.GetBytes(resp.Raw, "stop_reason").String() != "refusal" {
		return SafetyOutcome{}
	}
	return SafetyOutcome{Blocked: true, Reason: "refusal"}
}
