package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks the override variables so ambient values cannot leak into
// assertions.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_VERIFIER_MODEL", "REASONING_EFFORT",
		"DEFAULT_AGENT", "DATABASE_URL", "NOTIFY_CHANNEL", "LISTEN_ADDR",
		"TELEGRAM_BOT_TOKEN", "LOG_LEVEL", "PORT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "gpt-4.1-mini", cfg.Model)
	assert.Equal(t, cfg.Model, cfg.VerifierModel)
	assert.Equal(t, "dermatologist", cfg.DefaultAgent)
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "consults", cfg.NotifyChannel)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(
		"openai_api_key: file-key\nopenai_model: gpt-4.1\ndefault_agent: therapist\nlisten_addr: \":9000\"\n",
	), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.OpenAIAPIKey)
	assert.Equal(t, "gpt-4.1", cfg.Model)
	assert.Equal(t, "gpt-4.1", cfg.VerifierModel)
	assert.Equal(t, "therapist", cfg.DefaultAgent)
	assert.Equal(t, ":9000", cfg.ListenAddr)
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai_model: from-file\n"), 0o600))
	t.Setenv("OPENAI_MODEL", "from-env")
	t.Setenv("OPENAI_API_KEY", "env-key")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Model)
	assert.Equal(t, "env-key", cfg.OpenAIAPIKey)
}

func TestPortEnvFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "8123")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8123", cfg.ListenAddr)
}

func TestMissingFileIsSkipped(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestInvalidYAMLFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("openai_model: [unclosed\n"), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidateRequiresAPIKey(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.OpenAIAPIKey = ""
	assert.Error(t, cfg.Validate())
	cfg.OpenAIAPIKey = "sk-test"
	assert.NoError(t, cfg.Validate())
}
