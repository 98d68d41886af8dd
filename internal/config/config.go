package config

import "fmt"

// Config represents the library's host-level configuration.
type Config struct {
	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Tracing
	Tracing TracingConfig `json:"tracing" mapstructure:"tracing"`

	// Conversation
	Conversation ConversationConfig `json:"conversation" mapstructure:"conversation"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level   string `json:"level" mapstructure:"level"`
	File    string `json:"file" mapstructure:"file"`
	Console bool   `json:"console" mapstructure:"console"`
	Pretty  bool   `json:"pretty" mapstructure:"pretty"`
}

// TracingConfig holds trace sink configuration. An empty endpoint
// disables the per-call trace observer; it is read once at construction
// time, never per call.
type TracingConfig struct {
	Endpoint    string `json:"endpoint" mapstructure:"endpoint"`
	ServiceName string `json:"service_name" mapstructure:"service_name"`
}

// ConversationConfig holds orchestrator configuration.
type ConversationConfig struct {
	// SystemMessage opens every new conversation.
	SystemMessage string `json:"system_message" mapstructure:"system_message"`

	// Prompts maps prompt ids to template texts preloaded into the
	// prompt registry. The "default" id is reserved for passthrough.
	Prompts map[string]string `json:"prompts" mapstructure:"prompts"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:   "info",
			Console: true,
			Pretty:  true,
		},
		Tracing: TracingConfig{
			ServiceName: "parley",
		},
		Conversation: ConversationConfig{
			SystemMessage: "You are a helpful AI bot, gifted at answering questions.",
		},
	}
}

// Validate checks the configuration for inconsistencies.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging level: %s", c.Logging.Level)
	}
	if c.Conversation.SystemMessage == "" {
		return fmt.Errorf("conversation system message cannot be empty")
	}
	return nil
}
