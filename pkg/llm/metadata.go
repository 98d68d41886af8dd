package llm

import (
	"errors"
	"fmt"
)

// ErrUnsupportedProvider is returned when no backend factory exists for
// a provider.
var ErrUnsupportedProvider = errors.New("unsupported provider")

// Metadata describes how a conversation's backend was configured. It is
// written once when the conversation starts and read back on every
// resumption; it never changes for the lifetime of a conversation.
type Metadata struct {
	Provider     Provider `json:"provider"`
	Variant      string   `json:"variant"`
	BusinessUser string   `json:"business_user"`
}

// Validate checks that the metadata is complete enough to reconstruct a
// backend from.
func (m Metadata) Validate() error {
	if m.Provider == "" {
		return errors.New("metadata: provider is required")
	}
	if m.Variant == "" {
		return errors.New("metadata: variant is required")
	}
	return nil
}

// Dimensions renders the metadata as metric labels.
func (m Metadata) Dimensions() map[string]string {
	return map[string]string{
		"provider":      string(m.Provider),
		"variant":       m.Variant,
		"business_user": m.BusinessUser,
	}
}

// ParseMetadata reconstructs metadata from a stored key/value record,
// validating it in the process.
func ParseMetadata(record map[string]string) (Metadata, error) {
	meta := Metadata{
		Provider:     Provider(record["provider"]),
		Variant:      record["variant"],
		BusinessUser: record["business_user"],
	}
	if err := meta.Validate(); err != nil {
		return Metadata{}, fmt.Errorf("parse stored metadata: %w", err)
	}
	return meta, nil
}
