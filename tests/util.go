package testutil

import (
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/dgrijalva/jwt-go"
	_ "github.com/lib/pq"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/storage/database"
)

var _ core.Logger = (*Logger)(nil)

// Logger records what it is given.
type Logger struct {
	mu    sync.Mutex
	lines []string
	warns []string
}

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := level + ": " + msg
	for _, arg := range args {
		line += fmt.Sprintf(" %v", arg)
	}
	l.lines = append(l.lines, line)
	if level == "warn" {
		l.warns = append(l.warns, msg)
	}
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }

func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}

// Warns returns the messages logged at warn level.
func (l *Logger) Warns() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.warns...)
}

// MakeToken signs a token carrying exp and, when set, a role claim.
func MakeToken(t *testing.T, exp time.Time, r role.Role) string {
	t.Helper()
	claims := jwt.MapClaims{"exp": exp.Unix(), "sub": "42"}
	if r != "" {
		claims["role"] = string(r)
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("MakeToken() failed: %v", err)
	}
	return tok
}

// LiveToken is valid for an hour.
func LiveToken(t *testing.T, r role.Role) string {
	return MakeToken(t, time.Now().Add(time.Hour), r)
}

// ExpiredToken expired an hour ago.
func ExpiredToken(t *testing.T, r role.Role) string {
	return MakeToken(t, time.Now().Add(-time.Hour), r)
}

// PrepareDB connects to TEST_DATABASE_URL, migrates it and empties the client storage.
// The test is skipped when the variable is not set.
func PrepareDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	if _, err = db.Exec("TRUNCATE client_storage"); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// RedisURL returns TEST_REDIS_URL, skipping the test when it is not set.
func RedisURL(t *testing.T) string {
	t.Helper()
	u := os.Getenv("TEST_REDIS_URL")
	if u == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	return u
}
