package devapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/pkg/errors"
)

// Claims is what the development backend signs into every token.
// The console reads `exp` and `role` from it without verifying the signature.
type Claims struct {
	jwt.StandardClaims
	Role     string `json:"role"`
	Username string `json:"username,omitempty"`
	Email    string `json:"email,omitempty"`
}

type tokenIssuer struct {
	key    []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
}

func (ti tokenIssuer) claims(usr User) *Claims {
	now := ti.now()
	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    ti.issuer,
			Subject:   usr.ID,
			ExpiresAt: now.Add(ti.ttl).Unix(),
			IssuedAt:  now.Unix(),
		},
		Role:     usr.Role.String(),
		Username: usr.Name,
		Email:    usr.Email,
	}
}

// GenerateToken signs a HS256 token for usr.
func (ti tokenIssuer) GenerateToken(usr User) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, ti.claims(usr))
	ss, err := token.SignedString(ti.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func authenticate(email, password string, users *Users) (User, error) {
	usr, err := users.GetByEmail(email)
	if err != nil {
		return User{}, errAuthenticationFailed
	}
	if err = usr.CheckPassword(password); err != nil {
		return User{}, errAuthenticationFailed
	}
	return usr, nil
}
