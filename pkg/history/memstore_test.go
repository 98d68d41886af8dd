package history

import (
	"context"
	"sync"
	"testing"

	"github.com/parley-ai/parley/pkg/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeta() *llm.Metadata {
	return &llm.Metadata{Provider: llm.ProviderAzure, Variant: "gpt-4o", BusinessUser: "u1"}
}

func TestMemoryStoreResolveUnknownConversation(t *testing.T) {
	store := NewMemoryStore()

	handle, err := store.Resolve(context.Background(), "u1", "c1", nil)
	require.NoError(t, err)

	messages, err := handle.Messages(context.Background())
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Nil(t, handle.Metadata())
}

func TestMemoryStoreValidatesKeys(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	tests := []struct {
		name           string
		userID         string
		conversationID string
		shouldErr      bool
	}{
		{"valid", "u1", "c1", false},
		{"empty user", "", "c1", true},
		{"empty conversation", "u1", "", true},
		{"path separator", "u1", "a/b", true},
		{"null byte", "u1", "c\x001", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := store.Resolve(ctx, tt.userID, tt.conversationID, nil)
			if tt.shouldErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMemoryStoreAppendAndLoadOrder(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)

	messages := []llm.Message{
		{Role: llm.RoleHuman, Content: "one"},
		{Role: llm.RoleAI, Content: "two"},
		{Role: llm.RoleHuman, Content: "three"},
	}
	for _, msg := range messages {
		require.NoError(t, handle.Append(ctx, msg))
	}

	loaded, err := handle.Messages(ctx)
	require.NoError(t, err)
	assert.Equal(t, messages, loaded)
}

func TestMemoryStoreAppendValidation(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)

	assert.Error(t, handle.Append(ctx, llm.Message{Content: "no role"}))
	assert.Error(t, handle.Append(ctx, llm.Message{Role: llm.RoleHuman}))
}

func TestMemoryStoreMetadataPersistence(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Resolve(ctx, "u1", "c1", testMeta())
	require.NoError(t, err)

	// A later resolve without metadata still sees the stored record.
	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)
	meta := handle.Metadata()
	require.NotNil(t, meta)
	assert.Equal(t, *testMeta(), *meta)

	// Metadata is written once; a conflicting resolve does not replace it.
	other := &llm.Metadata{Provider: llm.ProviderBedrock, Variant: "claude", BusinessUser: "u1"}
	_, err = store.Resolve(ctx, "u1", "c1", other)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderAzure, handle.Metadata().Provider)
}

func TestMemoryStoreRejectsInvalidMetadata(t *testing.T) {
	store := NewMemoryStore()

	_, err := store.Resolve(context.Background(), "u1", "c1", &llm.Metadata{Variant: "gpt-4o"})
	assert.Error(t, err)
}

func TestMemoryStoreClearRemovesRecord(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	handle, err := store.Resolve(ctx, "u1", "c1", testMeta())
	require.NoError(t, err)
	require.NoError(t, handle.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: "hello"}))

	require.NoError(t, handle.Clear(ctx))

	messages, err := handle.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
	assert.Nil(t, handle.Metadata(), "clear removes metadata along with turns")
}

func TestMemoryStoreDeleteByIndex(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)
	require.NoError(t, handle.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: "first"}))
	require.NoError(t, handle.Append(ctx, llm.Message{Role: llm.RoleAI, Content: "second"}))

	require.NoError(t, handle.Delete(ctx, 0))

	messages, err := handle.Messages(ctx)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "second", messages[0].Content)
}

func TestMemoryStoreDeleteOutOfRange(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, handle.Delete(ctx, 0), ErrIndexOutOfRange)

	require.NoError(t, handle.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: "only"}))
	assert.ErrorIs(t, handle.Delete(ctx, 1), ErrIndexOutOfRange)
	assert.ErrorIs(t, handle.Delete(ctx, -1), ErrIndexOutOfRange)

	messages, err := handle.Messages(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, 1)
}

func TestMemoryStoreConcurrentAppends(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	const writers = 10
	const perWriter = 20

	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handle, err := store.Resolve(ctx, "u1", "c1", nil)
			assert.NoError(t, err)
			for j := 0; j < perWriter; j++ {
				assert.NoError(t, handle.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: "m"}))
			}
		}()
	}
	wg.Wait()

	handle, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)
	messages, err := handle.Messages(ctx)
	require.NoError(t, err)
	assert.Len(t, messages, writers*perWriter)
}

func TestMemoryStoreIsolatesUsers(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	h1, err := store.Resolve(ctx, "u1", "c1", nil)
	require.NoError(t, err)
	require.NoError(t, h1.Append(ctx, llm.Message{Role: llm.RoleHuman, Content: "mine"}))

	// Same conversation id under another user is a different log.
	h2, err := store.Resolve(ctx, "u2", "c1", nil)
	require.NoError(t, err)
	messages, err := h2.Messages(ctx)
	require.NoError(t, err)
	assert.Empty(t, messages)
}
