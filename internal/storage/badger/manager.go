package badger

import (
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/interfaces"
)

// Manager implements the StorageManager interface for Badger
type Manager struct {
	db      *BadgerDB
	kv      interfaces.KeyValueStorage
	chunk   interfaces.ChunkStorage
	kb      interfaces.KnowledgeBaseStorage
	source  interfaces.SourceStorage
	persona interfaces.PersonaStorage
	topic   interfaces.TopicStorage
	post    interfaces.PostStorage
	logger  arbor.ILogger
}

// NewManager opens the database and creates every storage backend
func NewManager(logger arbor.ILogger, config *common.BadgerConfig, topicCapacity int) (interfaces.StorageManager, error) {
	db, err := NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}

	manager := newManager(db, topicCapacity, logger)
	logger.Info().Str("path", config.Path).Msg("Badger storage manager initialized")
	return manager, nil
}

func newManager(db *BadgerDB, topicCapacity int, logger arbor.ILogger) *Manager {
	return &Manager{
		db:      db,
		kv:      NewKVStorage(db, logger),
		chunk:   NewChunkStorage(db, logger),
		kb:      NewKnowledgeBaseStorage(db, logger),
		source:  NewSourceStorage(db, logger),
		persona: NewPersonaStorage(db, logger),
		topic:   NewTopicStorage(db, topicCapacity, logger),
		post:    NewPostStorage(db, logger),
		logger:  logger,
	}
}

// KeyValueStorage returns the KeyValue storage interface
func (m *Manager) KeyValueStorage() interfaces.KeyValueStorage {
	return m.kv
}

// ChunkStorage returns the vector store persistence
func (m *Manager) ChunkStorage() interfaces.ChunkStorage {
	return m.chunk
}

// KnowledgeBaseStorage returns the KB storage interface
func (m *Manager) KnowledgeBaseStorage() interfaces.KnowledgeBaseStorage {
	return m.kb
}

// SourceStorage returns the Source storage interface
func (m *Manager) SourceStorage() interfaces.SourceStorage {
	return m.source
}

// PersonaStorage returns the Persona storage interface
func (m *Manager) PersonaStorage() interfaces.PersonaStorage {
	return m.persona
}

// TopicStorage returns the used-topics storage interface
func (m *Manager) TopicStorage() interfaces.TopicStorage {
	return m.topic
}

// PostStorage returns the Post storage interface
func (m *Manager) PostStorage() interfaces.PostStorage {
	return m.post
}

// Close runs value log GC and closes the database connection
func (m *Manager) Close() error {
	m.db.RunGC()
	return m.db.Close()
}
