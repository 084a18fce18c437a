// Package database opens the Postgres database backing durable client storage
// and applies the embedded `client_storage` migrations.
package database

import (
	"context"
	"database/sql"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/trezcool/goose"

	"github.com/edutracks/console/core"
	appfs "github.com/edutracks/console/fs"
)

const (
	maintenanceDB = "postgres"
	storageTable  = "client_storage"
)

var (
	pingInterval = 200 * time.Millisecond
	pingTries    = uint(30)

	gooseRunFunc = goose.RunFS // mockable
)

// DSN returns the connection URL for the console database. With admin set, it targets
// the maintenance database as the admin user (falling back to the app user).
func DSN(conf *core.Config, admin bool) string {
	db := conf.Database
	name := db.Name
	user := url.UserPassword(db.User, db.Password)
	if admin {
		name = maintenanceDB
		if db.AdminUser != "" {
			user = url.UserPassword(db.AdminUser, db.AdminPassword)
		}
	}

	q := url.Values{"sslmode": {"require"}, "timezone": {"utc"}}
	if db.DisableTLS {
		q.Set("sslmode", "disable")
	}
	u := url.URL{Scheme: db.Engine, User: user, Host: db.Address(), Path: name, RawQuery: q.Encode()}
	return u.String()
}

// Connect opens the console database and waits until it answers.
func Connect(conf *core.Config) (*sql.DB, error) {
	return connect(context.Background(), conf, false)
}

func connect(ctx context.Context, conf *core.Config, admin bool) (*sql.DB, error) {
	db, err := sql.Open(conf.Database.Engine, DSN(conf, admin))
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, db.PingContext(ctx)
	},
		backoff.WithBackOff(backoff.NewConstantBackOff(pingInterval)),
		backoff.WithMaxTries(pingTries),
	)
	if err != nil {
		_ = db.Close()
		return nil, errors.Wrap(err, "DB ping timeout")
	}
	return db, nil
}

// CreateIfNotExist creates the app role and the console database, as the admin user.
// Tables are left to Migrate.
func CreateIfNotExist(conf *core.Config) error {
	ctx := context.Background()
	db, err := connect(ctx, conf, true)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	app := conf.Database
	if app.User != "" {
		ok, err := exists(ctx, db, "SELECT 1 FROM pg_roles WHERE rolname = $1", app.User)
		if err != nil {
			return errors.Wrap(err, "checking app user")
		}
		if !ok {
			q := "CREATE ROLE " + pq.QuoteIdentifier(app.User) + " LOGIN ENCRYPTED PASSWORD " + pq.QuoteLiteral(app.Password)
			if _, err = db.ExecContext(ctx, q); err != nil {
				return errors.Wrap(err, "creating app user")
			}
		}
	}

	ok, err := exists(ctx, db, "SELECT 1 FROM pg_database WHERE datname = $1", app.Name)
	if err != nil {
		return errors.Wrap(err, "checking database")
	}
	if ok {
		return nil
	}
	q := "CREATE DATABASE " + pq.QuoteIdentifier(app.Name)
	if app.User != "" {
		q += " OWNER " + pq.QuoteIdentifier(app.User)
	}
	if _, err = db.ExecContext(ctx, q); err != nil {
		return errors.Wrap(err, "creating database")
	}
	return nil
}

func exists(ctx context.Context, db *sql.DB, query string, arg string) (bool, error) {
	var one int
	err := db.QueryRowContext(ctx, query, arg).Scan(&one)
	switch {
	case err == sql.ErrNoRows:
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

// Run runs a goose command (up, down, status, ...) against the embedded migrations.
func Run(db *sql.DB, command string, args ...string) error {
	if err := gooseRunFunc(command, db, appfs.FS, "migrations", args...); err != nil {
		return errors.Wrapf(err, "goose %s", command)
	}
	return nil
}

// Migrate applies pending migrations and checks the client storage table is in place.
func Migrate(db *sql.DB) error {
	if err := Run(db, "up"); err != nil {
		return errors.Wrap(err, "migrating database")
	}
	var ok bool
	if err := db.QueryRow("SELECT to_regclass($1) IS NOT NULL", storageTable).Scan(&ok); err != nil {
		return errors.Wrap(err, "checking "+storageTable)
	}
	if !ok {
		return errors.Errorf("%s missing after migration", storageTable)
	}
	return nil
}
