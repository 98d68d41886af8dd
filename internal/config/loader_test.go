package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoaderDefaults(t *testing.T) {
	loader := NewLoader("")
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NotEmpty(t, cfg.Conversation.SystemMessage)
	assert.Empty(t, cfg.Tracing.Endpoint)
}

func TestLoaderMissingFileFallsBackToDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "nope.json"))
	cfg, err := loader.Load()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Conversation.SystemMessage, cfg.Conversation.SystemMessage)
}

func TestLoaderReadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "parley.json")
	content := `{
		"logging": {"level": "debug"},
		"tracing": {"endpoint": "http://localhost:4318"},
		"conversation": {
			"system_message": "You answer tersely.",
			"prompts": {"summarise": "Summarise: {input}"}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := NewLoader(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "http://localhost:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "You answer tersely.", cfg.Conversation.SystemMessage)
	assert.Equal(t, "Summarise: {input}", cfg.Conversation.Prompts["summarise"])
}

func TestLoaderEnvOverride(t *testing.T) {
	t.Setenv("PARLEY_TRACE_ENDPOINT", "http://collector:4318")
	t.Setenv("PARLEY_LOG_LEVEL", "warn")

	cfg, err := NewLoader("").Load()
	require.NoError(t, err)

	assert.Equal(t, "http://collector:4318", cfg.Tracing.Endpoint)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	cfg.Logging.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.Conversation.SystemMessage = ""
	assert.Error(t, cfg.Validate())
}
