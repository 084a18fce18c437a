// Package storage opens the configured client storage engine.
package storage

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/session"
	"github.com/edutracks/console/storage/database"
	"github.com/edutracks/console/storage/memory"
	"github.com/edutracks/console/storage/postgres"
	"github.com/edutracks/console/storage/redis"
)

// Engines
const (
	Memory   = "memory"
	Postgres = "postgres"
	Redis    = "redis"
)

// Backend is what every engine provides on top of per-client session storage.
type Backend interface {
	Opener() session.Opener
	Clear(ctx context.Context, clientID string) error
}

type Engine struct {
	Backend
	Name string

	// DB is the postgres connection; nil for other engines.
	DB *sql.DB

	close func() error
}

func (e *Engine) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

func Open(ctx context.Context, conf *core.Config) (*Engine, error) {
	switch conf.Storage.Engine {
	case Memory, "":
		return &Engine{Backend: memstorage.Open(), Name: Memory}, nil
	case Postgres:
		db, err := database.Connect(conf)
		if err != nil {
			return nil, err
		}
		return &Engine{Backend: pgstorage.New(db), Name: Postgres, DB: db, close: db.Close}, nil
	case Redis:
		rdb, err := redisstorage.Connect(ctx, conf)
		if err != nil {
			return nil, err
		}
		return &Engine{Backend: rdb, Name: Redis, close: rdb.Close}, nil
	}
	return nil, errors.Errorf("unknown storage engine %q", conf.Storage.Engine)
}
