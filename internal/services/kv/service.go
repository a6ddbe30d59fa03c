// Package kv manages the credentials held in the options store. Values
// stored here override the config file and are overridden by environment
// variables.
package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Credential sources reported by Status
const (
	SourceEnv     = "env"
	SourceStore   = "store"
	SourceMissing = "missing"
)

// KeyStatus describes where a credential currently resolves from
type KeyStatus struct {
	Name      string
	Source    string
	EnvVar    string // set when Source is SourceEnv
	Masked    string
	UpdatedAt time.Time // set when a stored value exists
}

// Service provides business logic for credential operations
type Service struct {
	storage interfaces.KeyValueStorage
	logger  arbor.ILogger
}

// NewService creates a new credential service
func NewService(storage interfaces.KeyValueStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// Set stores a credential. Unknown names are rejected.
func (s *Service) Set(ctx context.Context, name, value string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if err := validateName(name); err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return &interfaces.ConfigurationError{Key: name, Message: "value cannot be empty"}
	}

	if err := s.storage.Set(ctx, name, strings.TrimSpace(value), "API credential"); err != nil {
		s.logger.Error().Err(err).Str("key", name).Msg("Failed to store credential")
		return err
	}

	s.logger.Info().Str("key", name).Msg("Stored credential")
	return nil
}

// Delete removes a stored credential
func (s *Service) Delete(ctx context.Context, name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if err := validateName(name); err != nil {
		return err
	}

	if err := s.storage.Delete(ctx, name); err != nil {
		if errors.Is(err, interfaces.ErrKeyNotFound) {
			return interfaces.ErrNotFound
		}
		s.logger.Error().Err(err).Str("key", name).Msg("Failed to delete credential")
		return err
	}

	s.logger.Info().Str("key", name).Msg("Deleted credential")
	return nil
}

// Status reports, for every known credential, whether it resolves from the
// environment or the store. Values are masked.
func (s *Service) Status(ctx context.Context) ([]KeyStatus, error) {
	options, err := s.storage.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to read stored credentials")
		return nil, err
	}
	stored := make(map[string]interfaces.StoredOption, len(options))
	for _, option := range options {
		stored[option.Name] = option
	}

	names := common.APIKeyNames()
	statuses := make([]KeyStatus, 0, len(names))
	for _, name := range names {
		status := KeyStatus{Name: name, Source: SourceMissing}
		option, hasStored := stored[name]
		if hasStored {
			status.UpdatedAt = option.UpdatedAt
		}

		envs := common.APIKeyEnvVars(name)
		for i := len(envs) - 1; i >= 0; i-- {
			if value := os.Getenv(envs[i]); value != "" {
				status.Source = SourceEnv
				status.EnvVar = envs[i]
				status.Masked = Mask(value)
				break
			}
		}
		if status.Source == SourceMissing && hasStored && option.Value != "" {
			status.Source = SourceStore
			status.Masked = Mask(option.Value)
		}

		statuses = append(statuses, status)
	}

	s.logger.Debug().Int("count", len(statuses)).Msg("Listed credentials")
	return statuses, nil
}

// ImportEnv stores the credentials found in a .env formatted reader. Keys
// match either a credential name or one of its environment variables;
// anything else is skipped. Returns the number of credentials stored.
func (s *Service) ImportEnv(ctx context.Context, r io.Reader) (int, error) {
	vars, err := godotenv.Parse(r)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", interfaces.ErrParse, err)
	}

	imported, skipped := 0, 0
	for key, value := range vars {
		name := credentialFor(key)
		if name == "" || strings.TrimSpace(value) == "" {
			skipped++
			continue
		}
		if err := s.Set(ctx, name, value); err != nil {
			return imported, err
		}
		imported++
	}

	s.logger.Info().
		Int("imported", imported).
		Int("skipped", skipped).
		Msg("Imported credentials from env file")
	return imported, nil
}

// credentialFor maps an env file key to a credential name, or "" if unknown
func credentialFor(key string) string {
	lower := strings.ToLower(strings.TrimSpace(key))
	if len(common.APIKeyEnvVars(lower)) > 0 {
		return lower
	}
	for _, name := range common.APIKeyNames() {
		for _, env := range common.APIKeyEnvVars(name) {
			if env == key {
				return name
			}
		}
	}
	return ""
}

// Mask hides all but the first and last four characters of a secret
func Mask(value string) string {
	if len(value) <= 8 {
		return strings.Repeat("*", len(value))
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

func validateName(name string) error {
	if len(common.APIKeyEnvVars(name)) == 0 {
		return &interfaces.ConfigurationError{
			Key:     name,
			Message: "unknown credential, expected one of " + strings.Join(common.APIKeyNames(), ", "),
		}
	}
	return nil
}
