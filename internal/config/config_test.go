package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8005", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Retrieval.TopK)
	assert.Equal(t, 1500, cfg.Memory.TokenBudget)
	assert.Equal(t, 5, cfg.Pricing.SummaryDepth)
	assert.Equal(t, 10.0, cfg.Pricing.LowTotalThreshold)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
retrieval:
  top_k: 3
pricing:
  low_total_threshold: 25
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3, cfg.Retrieval.TopK)
	assert.Equal(t, 25.0, cfg.Pricing.LowTotalThreshold)
	// Untouched keys keep their defaults.
	assert.Equal(t, 512, cfg.Retrieval.ChunkSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "sk-test")
	t.Setenv("SUPPORTBOT_ADDR", ":7000")
	t.Setenv("SUPPORTBOT_DEBUG", "true")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.True(t, cfg.Logging.Debug)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "missing API key must fail")

	cfg.LLM.APIKey = "sk-test"
	assert.NoError(t, cfg.Validate())

	cfg.Embedding.Model = ""
	assert.Error(t, cfg.Validate())
}
