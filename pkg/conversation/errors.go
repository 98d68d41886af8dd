package conversation

import (
	"errors"
	"fmt"
)

// ErrNoConversation is the sentinel matched by errors.Is for any
// conversation-not-found condition.
var ErrNoConversation = errors.New("no conversation found")

// ErrEmptyCompletion reports a backend call that returned no content,
// for example a completion swallowed by a provider-side content filter.
// The exchange is not written to history.
var ErrEmptyCompletion = errors.New("backend returned empty completion")

// NotFoundError reports an operation addressing a conversation that has
// no stored metadata or no history. A conversation whose history was
// cleared is indistinguishable from one that never existed.
type NotFoundError struct {
	ConversationID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no conversation found with id %s", e.ConversationID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNoConversation
}
