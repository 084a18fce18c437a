package devapi

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base32"
	"encoding/base64"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

var (
	resetSalt = []byte("edutracks.devapi.password_reset")

	errInvalidResetToken = errors.New("invalid token")
	errResetTokenExpired = errors.New("token expired")

	b32 = base32.StdEncoding.WithPadding(base32.NoPadding)
)

// resetTokens makes single-use password reset tokens. A token is bound to the user's current
// password hash, so it stops working once the password changes.
type resetTokens struct {
	key     []byte
	timeout time.Duration
	now     func() time.Time
}

// EncodeUID base64 encodes the given user ID.
func EncodeUID(usr User) string {
	return base64.RawURLEncoding.EncodeToString([]byte(usr.ID))
}

func decodeUID(uid string) (string, error) {
	idBytes, err := base64.RawURLEncoding.DecodeString(uid)
	if err != nil {
		return "", err
	}
	return string(idBytes), nil
}

func (rt resetTokens) Make(usr User) (string, error) {
	return rt.makeWithTimestamp(usr, numDaysSince2001(rt.now()))
}

func (rt resetTokens) Verify(usr User, token string) error {
	parts := strings.SplitN(token, "-", 2)
	if len(parts) < 2 {
		return errInvalidResetToken
	}
	data, err := b32.DecodeString(parts[0])
	if err != nil {
		return errInvalidResetToken
	}
	ts, err := strconv.Atoi(string(data))
	if err != nil {
		return errInvalidResetToken
	}

	// check that token has not been tampered with
	want, err := rt.makeWithTimestamp(usr, ts)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(want), []byte(token)) == 0 {
		return errInvalidResetToken
	}

	if numDaysSince2001(rt.now())-ts > int(rt.timeout/(24*time.Hour)) {
		return errResetTokenExpired
	}
	return nil
}

func (rt resetTokens) makeWithTimestamp(usr User, ts int) (string, error) {
	sig, err := rt.sign(hashValue(usr, ts))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s", b32.EncodeToString([]byte(strconv.Itoa(ts))), sig), nil
}

func (rt resetTokens) sign(val []byte) (string, error) {
	key := sha256.Sum256(append(append([]byte(nil), resetSalt...), rt.key...))
	h := hmac.New(sha256.New, key[:])
	if _, err := h.Write(val); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil)), nil
}

func hashValue(usr User, ts int) []byte {
	var val bytes.Buffer
	val.WriteString(usr.ID)
	val.Write(usr.passwordHash)
	val.WriteString(strconv.Itoa(ts))
	return val.Bytes()
}

func numDaysSince2001(t time.Time) int {
	ref := time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC)
	return int(math.Ceil(t.Sub(ref).Hours() / 24))
}
