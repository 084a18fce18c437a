// Package redisstorage keeps the storage of each client in one redis hash.
package redisstorage

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/session"
)

type DB struct {
	rc     *redis.Client
	prefix string
	ttl    time.Duration // refreshed on every write; 0 keeps hashes forever
}

type clientStorage struct {
	db  *DB
	key string
}

var _ session.Storage = (*clientStorage)(nil)

// Connect parses the configured URL and pings the server.
func Connect(ctx context.Context, conf *core.Config) (*DB, error) {
	opts, err := redis.ParseURL(conf.Redis.URL)
	if err != nil {
		return nil, errors.Wrap(err, "parsing redis url")
	}
	rc := redis.NewClient(opts)
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return New(rc, conf.Redis.KeyPrefix, conf.Redis.TTL), nil
}

func New(rc *redis.Client, prefix string, ttl time.Duration) *DB {
	return &DB{rc: rc, prefix: prefix, ttl: ttl}
}

func (d *DB) Close() error {
	return d.rc.Close()
}

func (d *DB) key(clientID string) string {
	return d.prefix + clientID
}

func (d *DB) Opener() session.Opener {
	return func(clientID string) session.Storage {
		return &clientStorage{db: d, key: d.key(clientID)}
	}
}

// Items returns everything stored for a client.
func (d *DB) Items(ctx context.Context, clientID string) (map[string]string, error) {
	items, err := d.rc.HGetAll(ctx, d.key(clientID)).Result()
	if err != nil {
		return nil, errors.Wrap(err, "reading client storage")
	}
	return items, nil
}

func (d *DB) Clear(ctx context.Context, clientID string) error {
	if err := d.rc.Del(ctx, d.key(clientID)).Err(); err != nil {
		return errors.Wrap(err, "clearing client storage")
	}
	return nil
}

func (s *clientStorage) GetItem(ctx context.Context, key string) (string, error) {
	val, err := s.db.rc.HGet(ctx, s.key, key).Result()
	if err != nil {
		if err == redis.Nil {
			return "", session.ErrNoItem
		}
		return "", errors.Wrap(err, "getting storage item")
	}
	return val, nil
}

func (s *clientStorage) SetItem(ctx context.Context, key, value string) error {
	_, err := s.db.rc.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, key, value)
		if s.db.ttl > 0 {
			pipe.Expire(ctx, s.key, s.db.ttl)
		}
		return nil
	})
	if err != nil {
		return errors.Wrap(err, "setting storage item")
	}
	return nil
}

func (s *clientStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.db.rc.HDel(ctx, s.key, key).Err(); err != nil {
		return errors.Wrap(err, "removing storage item")
	}
	return nil
}
