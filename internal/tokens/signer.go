package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrEmptySecret = errors.New("tokens: signing secret is empty")

// TokenSigner signs claim sets and verifies compact tokens into claims.
type TokenSigner interface {
	Sign(claims jwt.Claims) (string, error)
	Verify(token string, claims jwt.Claims) error
}

// HMACSigner is an HS256 TokenSigner. Leeway widens the exp/nbf/iat checks and
// Now, when set, replaces the wall clock.
type HMACSigner struct {
	Secret []byte
	Leeway time.Duration
	Now    func() time.Time
}

func NewHMACSigner(secret []byte) *HMACSigner {
	return &HMACSigner{Secret: secret}
}

func (s *HMACSigner) Sign(claims jwt.Claims) (string, error) {
	if len(s.Secret) == 0 {
		return "", ErrEmptySecret
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

func (s *HMACSigner) Verify(token string, claims jwt.Claims) error {
	if len(s.Secret) == 0 {
		return ErrEmptySecret
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.Leeway),
	}
	if s.Now != nil {
		opts = append(opts, jwt.WithTimeFunc(s.Now))
	}

	tkn, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return s.Secret, nil
	})
	if err != nil {
		return err
	}
	if !tkn.Valid {
		return fmt.Errorf("tokens: token is invalid")
	}
	return nil
}
