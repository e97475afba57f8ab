package service

import (
	"context"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
)

type AuthService interface {
	Register(ctx context.Context, r dto.RegisterRequest) (*domain.User, error)
	Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.TokenResponse, error)
	Profile(ctx context.Context, userID domain.UserID) (*domain.User, error)
	UpdateProfile(ctx context.Context, userID domain.UserID, r dto.UpdateProfileRequest) (*domain.User, error)
	ChangePassword(ctx context.Context, userID domain.UserID, r dto.ChangePasswordRequest) error
}
