package common

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ternarybob/scribe/internal/interfaces"
)

func TestNewDefaultConfigIsValid(t *testing.T) {
	config := NewDefaultConfig()

	require.NoError(t, config.Validate())
	assert.Equal(t, 800, config.Retrieval.ChunkSize)
	assert.InDelta(t, 0.4, config.Retrieval.RelevanceFloor, 1e-9)
	assert.Equal(t, "both", config.Pipeline.Mode)
	assert.Equal(t, 20, config.Pipeline.TopicHistory)
	assert.False(t, config.LLM.SmartFallback)
	assert.Equal(t, 3, config.LLM.MaxAttempts)
}

func TestLoadFromFilesMergesInOrder(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")

	require.NoError(t, os.WriteFile(base, []byte(`
[pipeline]
mode = "kb_only"
source_delay = "5s"

[retrieval]
relevance_floor = 0.5
`), 0644))
	require.NoError(t, os.WriteFile(override, []byte(`
[pipeline]
source_delay = "1s"
`), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)

	assert.Equal(t, "kb_only", config.Pipeline.Mode)
	assert.Equal(t, "1s", config.Pipeline.SourceDelay)
	assert.InDelta(t, 0.5, config.Retrieval.RelevanceFloor, 1e-9)
	assert.Equal(t, 800, config.Retrieval.ChunkSize)
}

func TestLoadFromFilesRejectsInvalidMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nmode = \"everything\"\n"), 0644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, interfaces.ErrConfiguration))
}

func TestLoadFromFilesRejectsInvalidDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pipeline]\nwrite_delay = \"soon\"\n"), 0644))

	_, err := LoadFromFiles(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pipeline.write_delay")
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("SCRIBE_PIPELINE_MODE", "triggers_only")
	t.Setenv("SCRIBE_LLM_SMART_FALLBACK", "true")
	t.Setenv("GROQ_API_KEY", "groq-key")
	t.Setenv("SCRIBE_GROQ_API_KEY", "")

	config, err := LoadFromFiles()
	require.NoError(t, err)

	assert.Equal(t, "triggers_only", config.Pipeline.Mode)
	assert.True(t, config.LLM.SmartFallback)
	assert.Equal(t, "groq-key", config.Groq.APIKey)
}

type mapKV map[string]string

func (m mapKV) Get(_ context.Context, key string) (string, error) {
	if v, ok := m[key]; ok {
		return v, nil
	}
	return "", interfaces.ErrKeyNotFound
}
func (m mapKV) Set(_ context.Context, key, value, _ string) error { m[key] = value; return nil }
func (m mapKV) Delete(_ context.Context, key string) error       { delete(m, key); return nil }
func (m mapKV) List(context.Context) ([]interfaces.StoredOption, error) {
	return nil, nil
}

func TestResolveAPIKeyPriority(t *testing.T) {
	for _, name := range []string{"OPENAI_API_KEY", "SCRIBE_OPENAI_API_KEY", "GROQ_API_KEY", "SCRIBE_GROQ_API_KEY", "PEXELS_API_KEY"} {
		t.Setenv(name, "")
	}
	ctx := context.Background()
	kv := mapKV{"openai_api_key": "from-kv"}

	key, err := ResolveAPIKey(ctx, kv, "openai_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-kv", key)

	t.Setenv("OPENAI_API_KEY", "from-env")
	key, err = ResolveAPIKey(ctx, kv, "openai_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)

	key, err = ResolveAPIKey(ctx, nil, "groq_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	_, err = ResolveAPIKey(ctx, nil, "pexels_api_key", "")
	assert.True(t, errors.Is(err, interfaces.ErrConfiguration))
}

func TestParseDurationOr(t *testing.T) {
	assert.Equal(t, 2*time.Second, ParseDurationOr("2s", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("", time.Minute))
	assert.Equal(t, time.Minute, ParseDurationOr("bogus", time.Minute))
}
