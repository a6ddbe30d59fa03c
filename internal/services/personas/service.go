// Package personas manages the writing voices used by the article writer.
package personas

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/interfaces"
	"github.com/ternarybob/scribe/internal/models"
)

// Defaults are the built-in voices seeded on first use. The first is active.
var Defaults = []models.Persona{
	{
		Name: "Si Kritis",
		Desc: "A sharp, analytical critic. Questions claims, weighs evidence, points out weaknesses and " +
			"trade-offs, and ends with a clear verdict. Confident but fair, never sensational.",
	},
	{
		Name: "Si Storyteller",
		Desc: "A narrative writer. Opens with a scene or a person, builds tension around the topic and " +
			"explains the facts through story. Warm, vivid and easy to follow.",
	},
	{
		Name: "Si Realistis",
		Desc: "A pragmatic realist. Focuses on what actually changes for the reader, uses numbers and " +
			"concrete examples, avoids hype and gives practical next steps.",
	},
	{
		Name: "Si Santuy",
		Desc: "A relaxed, conversational voice. Friendly, light humour, short sentences and everyday " +
			"analogies, while keeping the facts accurate.",
	},
}

// Service manages personas
type Service struct {
	storage interfaces.PersonaStorage
	logger  arbor.ILogger
}

// NewService creates a new persona service
func NewService(storage interfaces.PersonaStorage, logger arbor.ILogger) *Service {
	return &Service{
		storage: storage,
		logger:  logger,
	}
}

// EnsureDefaults seeds the built-in personas when none exist. Missing
// built-ins are restored without changing which persona is active.
func (s *Service) EnsureDefaults(ctx context.Context) error {
	existing, err := s.storage.ListPersonas(ctx)
	if err != nil {
		return fmt.Errorf("failed to list personas: %w", err)
	}

	byName := make(map[string]bool, len(existing))
	for _, p := range existing {
		byName[strings.ToLower(p.Name)] = true
	}

	seeded := 0
	for i, def := range Defaults {
		if byName[strings.ToLower(def.Name)] {
			continue
		}
		persona := def
		persona.IsDefault = true
		persona.Active = len(existing) == 0 && i == 0
		if err := s.storage.SavePersona(ctx, &persona); err != nil {
			return fmt.Errorf("failed to seed persona %s: %w", def.Name, err)
		}
		seeded++
	}

	if seeded > 0 {
		s.logger.Info().Int("seeded", seeded).Msg("Default personas seeded")
	}
	return nil
}

// List returns all personas, seeding the defaults first
func (s *Service) List(ctx context.Context) ([]*models.Persona, error) {
	if err := s.EnsureDefaults(ctx); err != nil {
		return nil, err
	}
	personas, err := s.storage.ListPersonas(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return personas, nil
}

// Add stores a custom persona. Names are unique, case-insensitively.
func (s *Service) Add(ctx context.Context, name, desc string, samples []string) (*models.Persona, error) {
	name = strings.TrimSpace(name)
	desc = strings.TrimSpace(desc)
	if name == "" {
		return nil, fmt.Errorf("%w: persona name is required", interfaces.ErrEmptyInput)
	}
	if desc == "" {
		return nil, fmt.Errorf("%w: persona description is required", interfaces.ErrEmptyInput)
	}

	personas, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range personas {
		if strings.EqualFold(p.Name, name) {
			return nil, fmt.Errorf("persona %q already exists", p.Name)
		}
	}

	persona := &models.Persona{Name: name, Desc: desc, Samples: samples}
	if err := s.storage.SavePersona(ctx, persona); err != nil {
		return nil, fmt.Errorf("failed to save persona: %w", err)
	}

	s.logger.Info().Str("name", name).Msg("Persona added")
	return persona, nil
}

// Activate makes name the only active persona
func (s *Service) Activate(ctx context.Context, name string) error {
	personas, err := s.List(ctx)
	if err != nil {
		return err
	}

	target := find(personas, name)
	if target == nil {
		return fmt.Errorf("%w: persona %s", interfaces.ErrNotFound, name)
	}

	for _, p := range personas {
		want := p == target
		if p.Active == want {
			continue
		}
		p.Active = want
		if err := s.storage.SavePersona(ctx, p); err != nil {
			return fmt.Errorf("failed to update persona %s: %w", p.Name, err)
		}
	}

	s.logger.Info().Str("name", target.Name).Msg("Persona activated")
	return nil
}

// Delete removes a custom persona. Built-in personas are protected. When the
// active persona is deleted the first built-in becomes active.
func (s *Service) Delete(ctx context.Context, name string) error {
	if (models.Persona{Name: name}).IsProtected() {
		return fmt.Errorf("%w: %s", interfaces.ErrProtectedPersona, name)
	}

	personas, err := s.List(ctx)
	if err != nil {
		return err
	}

	target := find(personas, name)
	if target == nil {
		return fmt.Errorf("%w: persona %s", interfaces.ErrNotFound, name)
	}
	if target.IsProtected() {
		return fmt.Errorf("%w: %s", interfaces.ErrProtectedPersona, target.Name)
	}

	if err := s.storage.DeletePersona(ctx, target.Name); err != nil {
		return fmt.Errorf("failed to delete persona: %w", err)
	}

	if target.Active {
		if err := s.Activate(ctx, Defaults[0].Name); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to reactivate default persona")
		}
	}

	s.logger.Info().Str("name", target.Name).Msg("Persona deleted")
	return nil
}

// Active returns the active persona, falling back to the first built-in
func (s *Service) Active(ctx context.Context) (*models.Persona, error) {
	personas, err := s.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, p := range personas {
		if p.Active {
			return p, nil
		}
	}

	if p := find(personas, Defaults[0].Name); p != nil {
		return p, nil
	}
	return nil, errors.New("no personas available")
}

func find(personas []*models.Persona, name string) *models.Persona {
	name = strings.TrimSpace(name)
	for _, p := range personas {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}
