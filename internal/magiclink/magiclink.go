// Package magiclink issues and validates scoped read-only access tokens.
//
// Tokens are HS256 JWTs carrying the context they grant access to, the kind
// of that context and the granted capabilities. They are valid for TTL from
// issue time. Issuing a new token never invalidates earlier ones; a
// Revoked hook may be configured to deny individual token IDs.
package magiclink

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TTL is the validity window of an access token.
const TTL = 30 * 24 * time.Hour

// CapabilityRead is the only capability a token may carry.
const CapabilityRead = "read"

type Kind string

const (
	KindJob      Kind = "job"
	KindProperty Kind = "property"
)

func (k Kind) Valid() bool {
	switch k {
	case KindJob, KindProperty:
		return true
	}
	return false
}

var (
	ErrUnsupportedCapability = errors.New("unsupported capability")
	ErrInvalidKind           = errors.New("invalid token kind")
)

// Token is an issued access token.
type Token struct {
	ID           string    `json:"id"`
	Value        string    `json:"token"`
	ContextID    string    `json:"context_id"`
	Kind         Kind      `json:"kind"`
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	Capabilities []string  `json:"capabilities"`
	URL          string    `json:"url"`
}

// Result is the outcome of Validate. ContextID and Kind are empty unless Valid.
type Result struct {
	Valid     bool      `json:"valid"`
	ContextID string    `json:"context_id,omitempty"`
	Kind      Kind      `json:"kind,omitempty"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
}

type claims struct {
	jwt.RegisteredClaims
	Kind  Kind     `json:"kind"`
	Scope []string `json:"scope"`
}

type Issuer struct {
	secret []byte
	host   string
	// Revoked reports whether a token ID has been revoked. Nil means no
	// token is ever revoked.
	Revoked func(tokenID string) bool
}

// New returns an Issuer signing with secret and building links on host.
func New(secret, host string) (*Issuer, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, errors.New("magic link secret not configured")
	}
	if strings.TrimSpace(host) == "" {
		return nil, errors.New("magic link host not configured")
	}
	return &Issuer{secret: []byte(secret), host: host}, nil
}

// Issue creates a token for contextID valid from now until now+TTL. With
// no capabilities the token grants read.
func (i *Issuer) Issue(kind Kind, contextID string, now time.Time, capabilities ...string) (Token, error) {
	if !kind.Valid() {
		return Token{}, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if strings.TrimSpace(contextID) == "" {
		return Token{}, errors.New("context id required")
	}
	if len(capabilities) == 0 {
		capabilities = []string{CapabilityRead}
	}
	for _, c := range capabilities {
		if c != CapabilityRead {
			return Token{}, fmt.Errorf("%w: %q", ErrUnsupportedCapability, c)
		}
	}
	id := uuid.NewString()
	iat := jwt.NewNumericDate(now)
	exp := jwt.NewNumericDate(now.Add(TTL))
	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Subject:   contextID,
			IssuedAt:  iat,
			ExpiresAt: exp,
		},
		Kind:  kind,
		Scope: []string{CapabilityRead},
	}
	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(i.secret)
	if err != nil {
		return Token{}, fmt.Errorf("sign access token: %w", err)
	}
	return Token{
		ID:           id,
		Value:        value,
		ContextID:    contextID,
		Kind:         kind,
		IssuedAt:     iat.Time,
		ExpiresAt:    exp.Time,
		Capabilities: []string{CapabilityRead},
		URL:          i.URL(value),
	}, nil
}

// URL returns the public link for a token value.
func (i *Issuer) URL(value string) string {
	return fmt.Sprintf("https://%s/access/%s", i.host, value)
}

// Validate checks value at now. Any malformed, expired, wrongly signed or
// over-scoped token yields Result{Valid: false}.
func (i *Issuer) Validate(value string, now time.Time) Result {
	if i == nil || len(i.secret) == 0 || strings.TrimSpace(value) == "" {
		return Result{}
	}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	c := &claims{}
	parsed, err := parser.ParseWithClaims(value, c, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !parsed.Valid {
		return Result{}
	}
	if c.Subject == "" || c.ID == "" || !c.Kind.Valid() || !readOnly(c.Scope) {
		return Result{}
	}
	if i.Revoked != nil && i.Revoked(c.ID) {
		return Result{}
	}
	return Result{Valid: true, ContextID: c.Subject, Kind: c.Kind, TokenID: c.ID, ExpiresAt: c.ExpiresAt.Time}
}

func readOnly(scope []string) bool {
	if len(scope) == 0 {
		return false
	}
	for _, s := range scope {
		if s != CapabilityRead {
			return false
		}
	}
	return true
}
