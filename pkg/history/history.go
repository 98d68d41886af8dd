// Package history defines the persistent turn-history contract consumed
// by the conversation layer, plus an in-process reference store.
//
// A store is keyed by (user, conversation). Resolution never fails for
// an unknown conversation; it yields a handle over an empty history, and
// callers decide what emptiness means.
package history

import (
	"context"
	"errors"

	"github.com/parley-ai/parley/pkg/llm"
)

// ErrIndexOutOfRange is returned by Handle.Delete when the index does
// not address an existing turn.
var ErrIndexOutOfRange = errors.New("history: index out of range")

// Store resolves a (user, conversation) pair to its turn history.
type Store interface {
	// Resolve returns a handle over the conversation's history. When
	// meta is non-nil it is attached to the stored record, making the
	// conversation's backend configuration available on later resolves.
	Resolve(ctx context.Context, userID, conversationID string, meta *llm.Metadata) (Handle, error)
}

// Handle is a resolved view over one conversation's ordered turn log.
type Handle interface {
	// Messages returns all turns in insertion order, empty if none.
	Messages(ctx context.Context) ([]llm.Message, error)

	// Append persists one new turn at the end of the log.
	Append(ctx context.Context, msg llm.Message) error

	// Clear removes the conversation record entirely, turns and
	// metadata both.
	Clear(ctx context.Context) error

	// Delete removes exactly one turn at a zero-based position. It
	// returns ErrIndexOutOfRange when no such position exists.
	Delete(ctx context.Context, index int) error

	// Metadata returns the conversation's stored backend configuration,
	// or nil when the conversation has never been configured.
	Metadata() *llm.Metadata
}
