package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/ternarybob/scribe/internal/interfaces"
)

// OptionStorage persists the options store
type OptionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKVStorage creates the options store on db
func NewKVStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KeyValueStorage {
	return &OptionStorage{db: db, logger: logger}
}

func optionName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (s *OptionStorage) Get(ctx context.Context, name string) (string, error) {
	var option interfaces.StoredOption
	err := s.db.Store().Get(optionName(name), &option)
	if errors.Is(err, badgerhold.ErrNotFound) {
		return "", interfaces.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("%w: failed to read option %s: %v", interfaces.ErrPersistence, optionName(name), err)
	}
	return option.Value, nil
}

func (s *OptionStorage) Set(ctx context.Context, name, value, note string) error {
	option := interfaces.StoredOption{
		Name:      optionName(name),
		Value:     value,
		Note:      note,
		UpdatedAt: time.Now(),
	}
	if option.Name == "" {
		return fmt.Errorf("%w: option name is empty", interfaces.ErrEmptyInput)
	}
	if err := s.db.Store().Upsert(option.Name, &option); err != nil {
		return fmt.Errorf("%w: failed to store option %s: %v", interfaces.ErrPersistence, option.Name, err)
	}
	s.logger.Debug().Str("name", option.Name).Msg("Option stored")
	return nil
}

func (s *OptionStorage) Delete(ctx context.Context, name string) error {
	err := s.db.Store().Delete(optionName(name), &interfaces.StoredOption{})
	if errors.Is(err, badgerhold.ErrNotFound) {
		return interfaces.ErrKeyNotFound
	}
	if err != nil {
		return fmt.Errorf("%w: failed to delete option %s: %v", interfaces.ErrPersistence, optionName(name), err)
	}
	return nil
}

func (s *OptionStorage) List(ctx context.Context) ([]interfaces.StoredOption, error) {
	var options []interfaces.StoredOption
	if err := s.db.Store().Find(&options, badgerhold.Where("Name").Ne("").SortBy("Name")); err != nil {
		return nil, fmt.Errorf("%w: failed to list options: %v", interfaces.ErrPersistence, err)
	}
	return options, nil
}
