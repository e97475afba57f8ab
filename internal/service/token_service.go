package service

import (
	"context"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
)

// Identity is the caller proven by a session token.
type Identity struct {
	UserID domain.UserID
	Email  string
}

// TokenService signs and validates self-contained session tokens. Sessions
// are not stored server-side and cannot be revoked before they expire.
type TokenService interface {
	Issue(ctx context.Context, user *domain.User) (*dto.TokenResponse, error)
	Validate(ctx context.Context, token string) (*Identity, error)
}
