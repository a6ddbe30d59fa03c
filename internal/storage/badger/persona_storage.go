package badger

import (
	"context"
	"errors"
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// PersonaStorage persists writing personas keyed by name
type PersonaStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPersonaStorage creates a new PersonaStorage instance
func NewPersonaStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PersonaStorage {
	return &PersonaStorage{db: db, logger: logger}
}

func (s *PersonaStorage) SavePersona(ctx context.Context, persona *models.Persona) error {
	if persona.Name == "" {
		return fmt.Errorf("persona name is required")
	}
	if err := s.db.Store().Upsert(persona.Name, persona); err != nil {
		return fmt.Errorf("%w: failed to save persona: %v", interfaces.ErrPersistence, err)
	}
	return nil
}

func (s *PersonaStorage) GetPersona(ctx context.Context, name string) (*models.Persona, error) {
	var persona models.Persona
	err := s.db.Store().Get(name, &persona)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return nil, fmt.Errorf("%w: persona %s", interfaces.ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona: %w", err)
	}
	return &persona, nil
}

func (s *PersonaStorage) ListPersonas(ctx context.Context) ([]*models.Persona, error) {
	var personas []models.Persona
	if err := s.db.Store().Find(&personas, badgerhold.Where("Name").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}

	result := make([]*models.Persona, len(personas))
	for i := range personas {
		result[i] = &personas[i]
	}
	return result, nil
}

func (s *PersonaStorage) DeletePersona(ctx context.Context, name string) error {
	err := s.db.Store().Delete(name, &models.Persona{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return fmt.Errorf("%w: persona %s", interfaces.ErrNotFound, name)
	}
	if err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}
	return nil
}
