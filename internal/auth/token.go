package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Issuer signs HS256 access tokens accepted by JWTMiddleware.
type Issuer struct {
	Secret   string
	Audience string
	TTL      time.Duration
	now      func() time.Time
}

// NewIssuer constructs an Issuer.
func NewIssuer(secret, audience string, ttl time.Duration) *Issuer {
	return &Issuer{
		Secret:   strings.TrimSpace(secret),
		Audience: strings.TrimSpace(audience),
		TTL:      ttl,
		now:      time.Now,
	}
}

// Issue returns a signed token for subject.
func (i *Issuer) Issue(subject string) (string, error) {
	if i.Secret == "" {
		return "", errors.New("missing JWT secret")
	}
	if subject == "" {
		return "", errors.New("missing subject")
	}

	now := i.now().UTC()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.TTL)),
	}
	if i.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(i.Secret))
}
