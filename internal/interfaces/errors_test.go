package interfaces

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProviderErrorMatching(t *testing.T) {
	cause := errors.New("connection reset")
	err := fmt.Errorf("angle generation: %w", NewProviderError("groq", "llama-3.3-70b", cause))

	assert.True(t, errors.Is(err, ErrProvider))
	assert.True(t, errors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrConfiguration))

	var pe *ProviderError
	assert.True(t, errors.As(err, &pe))
	assert.Equal(t, "groq", pe.Provider)
	assert.Contains(t, err.Error(), "model llama-3.3-70b")
}

func TestConfigurationErrorMatching(t *testing.T) {
	err := NewConfigurationError("openai_api_key")

	assert.True(t, errors.Is(err, ErrConfiguration))
	assert.False(t, errors.Is(err, ErrProvider))
	assert.Equal(t, "configuration error: openai_api_key is not configured", err.Error())
}

func TestIsSoftFailure(t *testing.T) {
	assert.True(t, IsSoftFailure(NewProviderError("openai", "", nil)))
	assert.True(t, IsSoftFailure(fmt.Errorf("feed: %w", ErrParse)))
	assert.False(t, IsSoftFailure(NewConfigurationError("x")))
	assert.False(t, IsSoftFailure(ErrPersistence))
}
