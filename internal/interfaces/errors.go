package interfaces

import (
	"errors"
	"fmt"
)

// Error kinds shared by every pipeline component. Callers match with errors.Is.
var (
	// ErrConfiguration indicates a missing credential or invalid setting. Never retried.
	ErrConfiguration = errors.New("configuration error")

	// ErrProvider indicates a vendor call failed. Eligible for fallback routing.
	ErrProvider = errors.New("provider error")

	// ErrEmptyInput indicates the input was empty after sanitization.
	ErrEmptyInput = errors.New("empty input")

	// ErrParse indicates malformed JSON, HTML or document content.
	ErrParse = errors.New("parse error")

	// ErrNotFound indicates no KB data, no search results or no stored record.
	ErrNotFound = errors.New("not found")

	// ErrPersistence indicates a store write failed.
	ErrPersistence = errors.New("persistence error")

	// ErrProtectedPersona is returned when deleting one of the built-in personas.
	ErrProtectedPersona = errors.New("persona is protected")

	// ErrRunInProgress is returned when a pipeline run is already executing.
	ErrRunInProgress = errors.New("pipeline run already in progress")
)

// ConfigurationError reports a missing or invalid setting by key.
type ConfigurationError struct {
	Key     string
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("configuration error: %s is not configured", e.Key)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Key, e.Message)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// NewConfigurationError creates a ConfigurationError for a missing key
func NewConfigurationError(key string) error {
	return &ConfigurationError{Key: key}
}

// ProviderError wraps a failed vendor call with the provider and model that produced it.
type ProviderError struct {
	Provider   string
	Model      string
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	msg := fmt.Sprintf("%s provider error", e.Provider)
	if e.Model != "" {
		msg += fmt.Sprintf(" (model %s)", e.Model)
	}
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProvider
}

// NewProviderError creates a ProviderError
func NewProviderError(provider, model string, err error) error {
	return &ProviderError{Provider: provider, Model: model, Err: err}
}

// IsSoftFailure reports whether err may be skipped or rerouted rather than
// ending the current operation outright.
func IsSoftFailure(err error) bool {
	return errors.Is(err, ErrProvider) || errors.Is(err, ErrEmptyInput) ||
		errors.Is(err, ErrParse) || errors.Is(err, ErrNotFound)
}
