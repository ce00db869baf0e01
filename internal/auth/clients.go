package auth

import (
	"fmt"
	"time"

	"github.com/spec-kit/case-service/internal/config"
	apperrors "github.com/spec-kit/case-service/pkg/util/errorutil"
)

// Authenticator exchanges API client keys for bearer tokens.
type Authenticator struct {
	clients map[string]config.ClientCredential
	tokens  *TokenManager
}

// NewAuthenticator validates the configured clients.
func NewAuthenticator(clients []config.ClientCredential, tokens *TokenManager) (*Authenticator, error) {
	byID := make(map[string]config.ClientCredential, len(clients))
	for _, c := range clients {
		if !Role(c.Role).Valid() {
			return nil, fmt.Errorf("client %q: unknown role %q", c.ID, c.Role)
		}
		if _, dup := byID[c.ID]; dup {
			return nil, fmt.Errorf("client %q configured twice", c.ID)
		}
		byID[c.ID] = c
	}
	return &Authenticator{clients: byID, tokens: tokens}, nil
}

// IssuedToken is the result of a successful key exchange.
type IssuedToken struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	Role        Role      `json:"role"`
}

// Issue verifies key for clientID and signs a token carrying the client's role.
func (a *Authenticator) Issue(clientID, key string) (IssuedToken, error) {
	client, ok := a.clients[clientID]
	if !ok || CompareKey(client.KeyHash, key) != nil {
		return IssuedToken{}, apperrors.NewUnauthorized("invalid client credentials")
	}
	role := Role(client.Role)
	token, expiresAt, err := a.tokens.GenerateToken(client.ID, role)
	if err != nil {
		return IssuedToken{}, apperrors.NewInternalError(err)
	}
	return IssuedToken{AccessToken: token, TokenType: "Bearer", ExpiresAt: expiresAt, Role: role}, nil
}
