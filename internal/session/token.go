// Package session gives every storefront client an anonymous cart owner.
// A session is a random id carried in an HS256-signed token; it identifies
// a cart, not a person.
package session

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "marketid-storefront"

var ErrInvalidToken = errors.New("invalid session token")

type Claims struct {
	jwt.RegisteredClaims
}

type Manager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewManager(secret string, ttl time.Duration) *Manager {
	return &Manager{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Issue starts a new session.
func (m *Manager) Issue() (id, token string, err error) {
	id = uuid.NewString()
	token, err = m.sign(id)
	if err != nil {
		return "", "", err
	}
	return id, token, nil
}

// Parse validates token and returns its session id and claims.
func (m *Manager) Parse(token string) (string, Claims, error) {
	var c Claims

	parsed, err := jwt.ParseWithClaims(token, &c, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil || parsed == nil || !parsed.Valid {
		return "", Claims{}, errors.Wrap(ErrInvalidToken, "parse")
	}
	if _, err := uuid.Parse(c.Subject); err != nil {
		return "", Claims{}, errors.Wrap(ErrInvalidToken, "subject")
	}
	return c.Subject, c, nil
}

// Refresh re-signs the session once less than half of its lifetime is
// left, so active shoppers keep their cart.
func (m *Manager) Refresh(id string, c Claims) (string, bool, error) {
	if m.ttl <= 0 || c.ExpiresAt == nil {
		return "", false, nil
	}
	if c.ExpiresAt.Sub(m.now()) > m.ttl/2 {
		return "", false, nil
	}
	tok, err := m.sign(id)
	if err != nil {
		return "", false, err
	}
	return tok, true, nil
}

func (m *Manager) TTL() time.Duration { return m.ttl }

func (m *Manager) sign(id string) (string, error) {
	now := m.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id,
			Issuer:   issuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if m.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(m.ttl))
	}

	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign session")
	}
	return tok, nil
}
