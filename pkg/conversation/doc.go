// Package conversation orchestrates sessions against pluggable LLM backends.
//
// Invariants:
// - A conversation's backend configuration is fixed at start and re-derived
//   from stored metadata on every resumption, never from caller input.
// - History reflects every completed exchange: a pipeline invocation appends
//   the user turn and the generated turn only after a successful response.
// - Observers are side channels; their failures never abort the primary call.
//
// Usage:
//
//	svc := conversation.NewService(store, resolver, prompts, m, conversation.Config{})
//	conv, _ := svc.Start(ctx, llm.Metadata{Provider: llm.ProviderAzure, Variant: "gpt-4o"}, prompt.DefaultPromptID)
//	reply, _ := conv.Pipeline.Invoke(ctx, "hello")
//	_ = reply
package conversation
