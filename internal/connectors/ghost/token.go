package ghost

import (
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// TokenLifetime is how long a minted Admin API token is valid.
	// Ghost rejects tokens with a lifetime over 5 minutes.
	TokenLifetime = 5 * time.Minute

	// tokenAudience is the fixed audience claim for the Admin API.
	tokenAudience = "/admin/"
)

// tokenMinter produces short-lived HS256 JWTs from a Ghost Admin API
// key. Tokens are cached and re-minted shortly before expiry.
type tokenMinter struct {
	keyID  string
	secret []byte

	mu      sync.Mutex
	token   string
	expires time.Time
}

// newTokenMinter parses an "id:hexsecret" Admin API key.
func newTokenMinter(adminKey string) (*tokenMinter, error) {
	id, hexSecret, ok := strings.Cut(strings.TrimSpace(adminKey), ":")
	if !ok || id == "" || hexSecret == "" {
		return nil, ErrInvalidAdminKey
	}

	secret, err := hex.DecodeString(hexSecret)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAdminKey, err)
	}

	return &tokenMinter{keyID: id, secret: secret}, nil
}

// Token returns a valid Admin API token, minting a fresh one when the
// cached token is within a minute of expiry.
func (m *tokenMinter) Token() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.token != "" && time.Until(m.expires) > time.Minute {
		return m.token, nil
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"iat": now.Unix(),
		"exp": now.Add(TokenLifetime).Unix(),
		"aud": tokenAudience,
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tok.Header["kid"] = m.keyID

	signed, err := tok.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign admin token: %w", err)
	}

	m.token = signed
	m.expires = now.Add(TokenLifetime)
	return signed, nil
}
