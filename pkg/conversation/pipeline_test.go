package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/parley-ai/parley/pkg/history"
	"github.com/parley-ai/parley/pkg/llm"
	"github.com/parley-ai/parley/pkg/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingObserver struct {
	calls int
}

func (o *failingObserver) Observe(ctx context.Context, rec *CallRecord) error {
	o.calls++
	return errors.New("sink unreachable")
}

func buildTestPipeline(t *testing.T, backend llm.Backend, template prompt.Template, observers ...Observer) (*Pipeline, *history.MemoryStore) {
	t.Helper()

	store := history.NewMemoryStore()
	builder := NewBuilder(store)
	cfg := PipelineConfig{
		Scope: Scope{
			ConversationID: "c1",
			UserID:         "u1",
			Meta:           testMetadata(),
		},
		Observers: observers,
	}
	return builder.Build(backend, template, "system prompt", cfg), store
}

func TestPipelineAppendsBothTurnsInOrder(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure, response: &llm.Response{Content: "reply"}}
	p, store := buildTestPipeline(t, backend, prompt.Passthrough())

	reply, err := p.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply", reply)

	handle, err := store.Resolve(context.Background(), "u1", "c1", nil)
	require.NoError(t, err)
	messages, err := handle.Messages(context.Background())
	require.NoError(t, err)

	require.Len(t, messages, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleHuman, Content: "hello"}, messages[0])
	assert.Equal(t, llm.Message{Role: llm.RoleAI, Content: "reply"}, messages[1])
}

func TestPipelinePersistsMetadataOnInvoke(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure, response: &llm.Response{Content: "reply"}}
	p, store := buildTestPipeline(t, backend, prompt.Passthrough())

	_, err := p.Invoke(context.Background(), "hello")
	require.NoError(t, err)

	handle, err := store.Resolve(context.Background(), "u1", "c1", nil)
	require.NoError(t, err)
	meta := handle.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, testMetadata(), *meta)
}

func TestPipelineEmptyCompletionLeavesHistoryUnmodified(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure, response: &llm.Response{Content: ""}}
	observer := &failingObserver{}
	p, store := buildTestPipeline(t, backend, prompt.Passthrough(), observer)

	_, err := p.Invoke(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyCompletion)
	assert.Equal(t, 1, observer.calls, "observers see empty completions too")

	handle, err := store.Resolve(context.Background(), "u1", "c1", nil)
	require.NoError(t, err)
	messages, err := handle.Messages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages, "no dangling user turn after an empty completion")
}

func TestPipelineNilResponseLeavesHistoryUnmodified(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure}
	p, store := buildTestPipeline(t, backend, prompt.Passthrough())

	_, err := p.Invoke(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrEmptyCompletion)

	handle, err := store.Resolve(context.Background(), "u1", "c1", nil)
	require.NoError(t, err)
	messages, err := handle.Messages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
}

func TestPipelineObserversFireOnFailure(t *testing.T) {
	backendErr := errors.New("network down")
	backend := &fakeBackend{provider: llm.ProviderAzure, err: backendErr}
	observer := &failingObserver{}
	p, _ := buildTestPipeline(t, backend, prompt.Passthrough(), observer)

	_, err := p.Invoke(context.Background(), "hello")
	assert.ErrorIs(t, err, backendErr)
	assert.Equal(t, 1, observer.calls, "observers see failed calls too")
}

func TestPipelineObserverFailureDoesNotAbortCall(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure, response: &llm.Response{Content: "reply"}}
	p, _ := buildTestPipeline(t, backend, prompt.Passthrough(), &failingObserver{}, &failingObserver{})

	reply, err := p.Invoke(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "reply", reply)
}

func TestPipelineConcurrentSessionsDoNotInterfere(t *testing.T) {
	backend := &fakeBackend{provider: llm.ProviderAzure, response: &llm.Response{Content: "reply"}}
	store := history.NewMemoryStore()
	builder := NewBuilder(store)

	newPipeline := func(conversationID string) *Pipeline {
		return builder.Build(backend, prompt.Passthrough(), "", PipelineConfig{
			Scope: Scope{ConversationID: conversationID, UserID: "u1", Meta: testMetadata()},
		})
	}

	const sessions = 8
	const exchanges = 5

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			p := newPipeline(conversationIDFor(n))
			for j := 0; j < exchanges; j++ {
				_, err := p.Invoke(context.Background(), "ping")
				assert.NoError(t, err)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		handle, err := store.Resolve(context.Background(), "u1", conversationIDFor(i), nil)
		require.NoError(t, err)
		messages, err := handle.Messages(context.Background())
		require.NoError(t, err)
		assert.Len(t, messages, 2*exchanges)
	}
}

func conversationIDFor(n int) string {
	return "conversation-" + string(rune('a'+n))
}
