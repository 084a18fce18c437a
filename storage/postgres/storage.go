// Package pgstorage keeps client storage in the client_storage table.
package pgstorage

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/edutracks/console/core/session"
)

const (
	getItemQuery    = `SELECT value FROM client_storage WHERE client_id = $1 AND key = $2`
	removeItemQuery = `DELETE FROM client_storage WHERE client_id = $1 AND key = $2`
	clearQuery      = `DELETE FROM client_storage WHERE client_id = $1`
	itemsQuery      = `SELECT key, value, updated_at FROM client_storage WHERE client_id = $1 ORDER BY key`
	setItemQuery    = `
INSERT INTO client_storage (client_id, key, value, updated_at)
VALUES (:client_id, :key, :value, :updated_at)
ON CONFLICT (client_id, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// Item is one stored key of a client.
type Item struct {
	ClientID  string    `db:"client_id"`
	Key       string    `db:"key"`
	Value     string    `db:"value"`
	UpdatedAt time.Time `db:"updated_at"`
}

type DB struct {
	db *sqlx.DB
}

type clientStorage struct {
	db       *sqlx.DB
	clientID string
}

var _ session.Storage = (*clientStorage)(nil)

func New(db *sql.DB) *DB {
	return &DB{db: sqlx.NewDb(db, "postgres")}
}

func (d *DB) Opener() session.Opener {
	return func(clientID string) session.Storage {
		return &clientStorage{db: d.db, clientID: clientID}
	}
}

// Items returns everything stored for a client, ordered by key.
func (d *DB) Items(ctx context.Context, clientID string) ([]Item, error) {
	var items []Item
	if err := d.db.SelectContext(ctx, &items, itemsQuery, clientID); err != nil {
		return nil, errors.Wrap(err, "selecting client storage")
	}
	for i := range items {
		items[i].ClientID = clientID
	}
	return items, nil
}

func (d *DB) Clear(ctx context.Context, clientID string) error {
	if _, err := d.db.ExecContext(ctx, clearQuery, clientID); err != nil {
		return errors.Wrap(err, "clearing client storage")
	}
	return nil
}

func (s *clientStorage) GetItem(ctx context.Context, key string) (string, error) {
	var val string
	if err := s.db.GetContext(ctx, &val, getItemQuery, s.clientID, key); err != nil {
		if err == sql.ErrNoRows {
			return "", session.ErrNoItem
		}
		return "", errors.Wrap(err, "getting storage item")
	}
	return val, nil
}

func (s *clientStorage) SetItem(ctx context.Context, key, value string) error {
	item := Item{ClientID: s.clientID, Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	if _, err := s.db.NamedExecContext(ctx, setItemQuery, item); err != nil {
		return errors.Wrap(err, "setting storage item")
	}
	return nil
}

func (s *clientStorage) RemoveItem(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, removeItemQuery, s.clientID, key); err != nil {
		return errors.Wrap(err, "removing storage item")
	}
	return nil
}
