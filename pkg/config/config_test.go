package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireLLMKey_ErrorsWhenMissing(t *testing.T) {
	os.Unsetenv("LLM_API_KEY")
	cfg, err := Load("")
	require.NoError(t, err)
	require.Error(t, cfg.RequireLLMKey())
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("LLM_API_KEY", "secret")
	t.Setenv("CAG_LISTEN_ADDR", ":9090")
	t.Setenv("CAG_DEFAULT_MAX_ITERATIONS", "3")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.LLMAPIKey)
	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, 3, cfg.DefaultMaxIterations)
	assert.Equal(t, "openai:gpt-4o-mini", cfg.LLMModel)
}

func TestLoad_YAMLFileThenEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("llm_api_key: from-file\nlog_level: debug\n"), 0o600))

	t.Setenv("LLM_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.LLMAPIKey)
	assert.Equal(t, "debug", cfg.LogLevel)
}
