package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const minSecretLength = 32

// Config holds token signing parameters.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	// TTL bounds the token lifetime. The server-side session record has its
	// own expiry; the token TTL should match it.
	TTL time.Duration
	// Secret is the HS256 signing key, at least 32 bytes, externally
	// supplied.
	Secret []byte
	Issuer string
	// Leeway tolerates small clock skew during validation.
	Leeway time.Duration
}

// SessionClaims is the claim set carried by session tokens.
type SessionClaims struct {
	SID  string `json:"sid"`
	Name string `json:"name,omitempty"`
	jwt.RegisteredClaims
}

// Manager mints and parses session tokens.
type Manager struct {
	config Config
}

// NewManager validates cfg and returns a ready Manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if len(cfg.Secret) < minSecretLength {
		return nil, errors.New("signing secret must be at least 32 bytes")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	return &Manager{config: cfg}, nil
}

// Mint creates a signed token referencing the given session and principal.
// displayName may be empty; it is the only profile attribute a token ever
// carries.
func (m *Manager) Mint(sessionID, principalID, displayName string) (string, error) {
	if sessionID == "" || principalID == "" {
		return "", errors.New("session id and principal id required")
	}

	now := time.Now()
	claims := SessionClaims{
		SID:  sessionID,
		Name: displayName,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   principalID,
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.config.Secret)
}

// Parse verifies the signature and registered claims and returns the claim
// set. Any defect (wrong algorithm, bad signature, expiry, malformed
// structure) is an error; callers map all of them to "not authenticated".
func (m *Manager) Parse(tokenStr string) (*SessionClaims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &SessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.SID == "" || claims.Subject == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}

	return claims, nil
}
