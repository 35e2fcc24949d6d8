package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/byuri-coder/pecu-backend/internal/domain"
)

// DefaultTTL is the validity window of a confirmation token
const DefaultTTL = 24 * time.Hour

var (
	// ErrTokenInvalid marks a token whose signature, shape, or claims are bad
	ErrTokenInvalid = errors.New("confirmation token invalid")

	// ErrTokenExpired marks a token past its validity window.
	// Callers treat it the same as ErrTokenInvalid at the verification
	// boundary but the two stay distinguishable for logging and tests.
	ErrTokenExpired = errors.New("confirmation token expired")
)

// Claims is the canonical confirmation claim: which contract, which side.
// Issued/expiry timestamps ride in the registered claims.
type Claims struct {
	ContractID string `json:"cid"`
	Role       string `json:"role"`
	jwt.RegisteredClaims
}

// Codec signs and verifies confirmation tokens. It holds no mutable state;
// Sign and Verify are a pure function pair parameterized by the secret.
type Codec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a codec with the given HMAC secret and validity window.
// A non-positive ttl falls back to DefaultTTL.
func NewCodec(secret string, ttl time.Duration) (*Codec, error) {
	if secret == "" {
		return nil, errors.New("token secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Codec{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Sign issues a signed confirmation token for one contract and role
func (c *Codec) Sign(contractID uuid.UUID, role domain.PartyRole) (string, error) {
	now := c.now()
	claims := Claims{
		ContractID: contractID.String(),
		Role:       string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign confirmation token: %w", err)
	}
	return signed, nil
}

// Verify recomputes the signature and expiry of a token and returns the
// decoded claim. Returns ErrTokenExpired for a stale token and
// ErrTokenInvalid for everything else that fails.
func (c *Codec) Verify(raw string) (uuid.UUID, domain.PartyRole, error) {
	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return uuid.Nil, "", ErrTokenExpired
		}
		return uuid.Nil, "", ErrTokenInvalid
	}

	contractID, err := uuid.Parse(claims.ContractID)
	if err != nil || contractID == uuid.Nil {
		return uuid.Nil, "", ErrTokenInvalid
	}
	role, err := domain.ParseRole(claims.Role)
	if err != nil {
		return uuid.Nil, "", ErrTokenInvalid
	}
	return contractID, role, nil
}
