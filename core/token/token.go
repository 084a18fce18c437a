// Package token reads the self-declared claims of a bearer token.
//
// Nothing here verifies a signature. The answers are advisory and only drive UI routing
// (where to send a browser); every request to the backend is still authorised server-side.
package token

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

var (
	NowFunc = time.Now // mockable

	ErrMalformed = errors.New("malformed token")
)

// Payload is the decoded, unverified claim set of a token. It is recomputed on every
// call and never cached.
type Payload struct {
	Exp    *int64 // unix seconds; nil when the token declares no expiry
	Claims map[string]interface{}
}

// String returns the named claim when it is a string.
func (p Payload) String(claim string) string {
	s, _ := p.Claims[claim].(string)
	return s
}

// ExpiresAt returns the declared expiry, or the zero time for tokens that never expire.
func (p Payload) ExpiresAt() time.Time {
	if p.Exp == nil {
		return time.Time{}
	}
	return time.Unix(*p.Exp, 0)
}

// Decode reads the payload (middle) segment of a compact three-segment token without
// verifying it. The header is not inspected, so any signing algorithm is accepted.
// Any structural problem, including a non-numeric `exp`, is reported as ErrMalformed.
func Decode(tokenStr string) (Payload, error) {
	parts := strings.Split(tokenStr, ".")
	if len(parts) != 3 {
		return Payload{}, errors.Wrapf(ErrMalformed, "%d segments", len(parts))
	}
	raw, err := jwt.DecodeSegment(parts[1])
	if err != nil {
		return Payload{}, errors.Wrap(ErrMalformed, err.Error())
	}

	claims := jwt.MapClaims{}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err = dec.Decode(&claims); err != nil {
		return Payload{}, errors.Wrap(ErrMalformed, err.Error())
	}
	if claims == nil {
		return Payload{}, errors.Wrap(ErrMalformed, "payload is null")
	}

	p := Payload{Claims: claims}
	if raw, ok := claims["exp"]; ok {
		exp, err := numericDate(raw)
		if err != nil {
			return Payload{}, errors.Wrap(ErrMalformed, "exp: "+err.Error())
		}
		p.Exp = &exp
	}
	return p, nil
}

// IsExpired reports whether the token should no longer be used for routing.
// Undecodable tokens are expired (fail-closed); tokens without `exp` never expire;
// otherwise the token is expired from the instant `exp` (in milliseconds) is reached.
func IsExpired(tokenStr string) bool {
	p, err := Decode(tokenStr)
	if err != nil {
		return true
	}
	if p.Exp == nil {
		return false
	}
	exp := *p.Exp
	switch {
	case exp > math.MaxInt64/1000:
		return false
	case exp < math.MinInt64/1000:
		return true
	}
	return NowFunc().UnixNano()/int64(time.Millisecond) >= exp*1000
}

func numericDate(raw interface{}) (int64, error) {
	switch v := raw.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}
		f, err := v.Float64()
		if err != nil {
			return 0, err
		}
		return floatSeconds(f)
	case float64:
		return floatSeconds(v)
	}
	return 0, errors.Errorf("unexpected type %T", raw)
}

func floatSeconds(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, errors.New("not a finite number")
	}
	switch {
	case f >= math.MaxInt64:
		return math.MaxInt64, nil
	case f <= math.MinInt64:
		return math.MinInt64, nil
	}
	// fractional seconds round down, ie. towards the earlier expiry
	return int64(math.Floor(f)), nil
}
