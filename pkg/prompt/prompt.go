// Package prompt provides template lookup for conversation starts.
package prompt

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// DefaultPromptID is the sentinel meaning "no template": user input is
// passed through to the backend untouched.
const DefaultPromptID = "default"

// ErrNotFound is returned when a prompt id has no registered template.
var ErrNotFound = errors.New("prompt: template not found")

// inputPlaceholder marks where the current turn's input is spliced into
// a template.
const inputPlaceholder = "{input}"

// Template is a named prompt text with an optional input placeholder.
// IncludeHistory marks the designated position for prior turns: when
// set, the pipeline replays the stored history immediately before the
// rendered input.
type Template struct {
	ID             string
	Text           string
	IncludeHistory bool
}

// Passthrough returns the sentinel template that forwards user input
// untouched.
func Passthrough() Template {
	return Template{ID: DefaultPromptID, Text: inputPlaceholder}
}

// HistoryReplay returns the resumption template: full prior history
// followed by the new input.
func HistoryReplay() Template {
	return Template{ID: "history", Text: inputPlaceholder, IncludeHistory: true}
}

// Render substitutes the current turn's input into the template. A
// template without a placeholder renders to its own text unchanged.
func (t Template) Render(input string) string {
	if !strings.Contains(t.Text, inputPlaceholder) {
		return t.Text
	}
	return strings.ReplaceAll(t.Text, inputPlaceholder, input)
}

// Store looks templates up by id.
type Store interface {
	Lookup(id string) (Template, error)
}

// Registry is a map-backed Store.
type Registry struct {
	mu        sync.RWMutex
	templates map[string]Template
}

// NewRegistry creates a registry preloaded with the given templates,
// keyed by id.
func NewRegistry(templates map[string]string) *Registry {
	r := &Registry{templates: make(map[string]Template, len(templates))}
	for id, text := range templates {
		r.templates[id] = Template{ID: id, Text: text}
	}
	return r
}

// Register installs a template, replacing any previous one with the
// same id.
func (r *Registry) Register(t Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[t.ID] = t
}

// Lookup returns the template for the given id.
func (r *Registry) Lookup(id string) (Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return t, nil
}
