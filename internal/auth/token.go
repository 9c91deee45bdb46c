package auth

import (
	"time"

	"github.com/boutiqueapp/boutique/pkg/common"
	"github.com/golang-jwt/jwt/v4"
	"github.com/pkg/errors"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token revoked")
)

// Claims carried by an access token.
type Claims struct {
	UID      int64    `json:"uid,string"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether role was granted when the token was issued.
func (c *Claims) HasRole(role string) bool {
	for _, r := range c.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// TokenManager issues and verifies HS256 access tokens.
type TokenManager struct {
	secret  []byte
	ttl     time.Duration
	revoked RevocationStore
}

func NewTokenManager(secret string, ttl time.Duration, revoked RevocationStore) *TokenManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, revoked: revoked}
}

func (m *TokenManager) Issue(uid int64, username string, roles []string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(m.ttl)
	claims := Claims{
		UID:      uid,
		Username: username,
		Roles:    roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        common.UUID(),
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, errors.Wrap(err, "sign token")
	}
	return signed, exp, nil
}

// Parse validates signature, expiry and revocation of raw.
func (m *TokenManager) Parse(raw string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, errors.Wrap(ErrInvalidToken, errString(err))
	}
	if m.revoked != nil {
		revoked, err := m.revoked.IsRevoked(claims.ID)
		if err != nil {
			return nil, errors.Wrap(err, "check revocation")
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}
	return claims, nil
}

// Revoke blacklists the token until its own expiry.
func (m *TokenManager) Revoke(claims *Claims) error {
	if m.revoked == nil || claims == nil {
		return nil
	}
	exp := time.Now().Add(m.ttl)
	if claims.ExpiresAt != nil {
		exp = claims.ExpiresAt.Time
	}
	return m.revoked.Revoke(claims.ID, exp)
}

func (m *TokenManager) Store() RevocationStore {
	return m.revoked
}

func errString(err error) string {
	if err == nil {
		return "token not valid"
	}
	return err.Error()
}
