// internal/auth/provider.go
package auth

import (
	"context"
	"fmt"

	"wallet-ledger/internal/domain"
	"wallet-ledger/internal/util"

	"github.com/google/uuid"
)

// Identity is the authenticated caller.
type Identity struct {
	AccountID uuid.UUID
	IsActive  bool
	Role      string
}

// Provider turns a bearer token into an identity.
type Provider interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// AccountEnsurer opens the wallet account on first sight of an identity.
type AccountEnsurer interface {
	EnsureAccount(ctx context.Context, accountID uuid.UUID) (*domain.Account, error)
}

// JWTProvider validates HS256 tokens issued with GenerateToken.
type JWTProvider struct {
	secret   string
	accounts AccountEnsurer
}

// NewJWTProvider creates a provider.
func NewJWTProvider(secret string, accounts AccountEnsurer) *JWTProvider {
	return &JWTProvider{secret: secret, accounts: accounts}
}

func (p *JWTProvider) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, util.Unauthorized("missing bearer token")
	}
	claims, err := ParseToken(p.secret, token)
	if err != nil {
		return nil, util.Unauthorized("invalid or expired token")
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, util.Unauthorized("invalid token subject")
	}

	account, err := p.accounts.EnsureAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	return &Identity{AccountID: account.ID, IsActive: account.IsActive, Role: claims.Role}, nil
}
