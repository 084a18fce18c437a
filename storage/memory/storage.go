// Package memstorage keeps client storage in process memory. It is lost on restart.
package memstorage

import (
	"context"
	"sync"

	"github.com/edutracks/console/core/session"
)

type (
	// DB holds the storage of every client.
	DB struct {
		sync.RWMutex
		table map[string]map[string]string // client id -> key -> value
	}

	clientStorage struct {
		db       *DB
		clientID string
	}
)

var _ session.Storage = (*clientStorage)(nil)

func Open() *DB {
	return &DB{table: make(map[string]map[string]string)}
}

// Opener returns the storage of each client.
func (db *DB) Opener() session.Opener {
	return func(clientID string) session.Storage {
		return &clientStorage{db: db, clientID: clientID}
	}
}

// Clear removes everything stored for a client.
func (db *DB) Clear(_ context.Context, clientID string) error {
	db.Lock()
	delete(db.table, clientID)
	db.Unlock()
	return nil
}

func (s *clientStorage) GetItem(_ context.Context, key string) (string, error) {
	s.db.RLock()
	defer s.db.RUnlock()

	val, ok := s.db.table[s.clientID][key]
	if !ok {
		return "", session.ErrNoItem
	}
	return val, nil
}

func (s *clientStorage) SetItem(_ context.Context, key, value string) error {
	s.db.Lock()
	defer s.db.Unlock()

	items, ok := s.db.table[s.clientID]
	if !ok {
		items = make(map[string]string)
		s.db.table[s.clientID] = items
	}
	items[key] = value
	return nil
}

func (s *clientStorage) RemoveItem(_ context.Context, key string) error {
	s.db.Lock()
	defer s.db.Unlock()

	items := s.db.table[s.clientID]
	delete(items, key)
	if len(items) == 0 {
		delete(s.db.table, s.clientID)
	}
	return nil
}
