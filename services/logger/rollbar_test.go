package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/edutracks/console/core"
	"github.com/edutracks/console/core/role"
	"github.com/edutracks/console/core/session"
)

func TestRollbarLogger_print(t *testing.T) {
	var buf bytes.Buffer
	logger := NewRollbarLogger(log.New(&buf, "", 0), &core.Config{Env: "TEST", Build: "test"})
	logger.Enable(false)

	sess := session.Session{Token: "secret.token.value", Role: role.Teacher, Username: "t@edutracks.test"}
	logger.Warn("reading session storage", errors.New("boom"), sess)

	out := buf.String()
	assert.Contains(t, out, "reading session storage")
	assert.Contains(t, out, "boom")
	assert.Contains(t, out, `username="t@edutracks.test" role="Teacher"`)
	assert.NotContains(t, out, "secret.token.value")
}

func TestRollbarLogger_prepare(t *testing.T) {
	logger := RollbarLogger{}
	sess := session.Session{Username: "a@edutracks.test"}
	err := errors.New("boom")

	got := logger.prepare("msg", []interface{}{err, sess, session.Session{Username: "other"}})
	assert.Equal(t, []interface{}{"msg", err}, got)
}
