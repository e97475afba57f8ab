package impl

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/observability/middleware"
	"secureguard/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var _ service.TokenService = (*TokenServiceImpl)(nil)

type TokenConfig struct {
	Issuer     string        // e.g. "secureguard.app"
	Audience   string        // e.g. "secureguard.app"
	TTL        time.Duration // e.g. 7 * 24h
	SigningKey []byte        // HS256 secret
}

// SessionClaims binds a token to one user and the email they logged in with.
type SessionClaims struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

type TokenServiceImpl struct {
	cfg TokenConfig
	now func() time.Time
}

func NewTokenServiceHS256(cfg TokenConfig) *TokenServiceImpl {
	return &TokenServiceImpl{
		cfg: cfg,
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (t *TokenServiceImpl) Issue(ctx context.Context, user *domain.User) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.SessionsIssuedTotal.WithLabelValues(result).Inc()
	}()
	if user == nil || user.ID == uuid.Nil || user.Email == "" {
		result = "failure"
		return nil, errors.New("issue session: incomplete user")
	}

	now := t.now()
	exp := now.Add(t.cfg.TTL)
	claims := SessionClaims{
		UserID: user.ID.String(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    t.cfg.Issuer,
			Subject:   user.ID.String(),
			Audience:  jwt.ClaimStrings{t.cfg.Audience},
			ExpiresAt: jwt.NewNumericDate(exp),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.NewString(),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.cfg.SigningKey)
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("issued session", append(middleware.LogAttrs(ctx), "user_id", user.ID, "expires_at", exp)...)

	return &dto.TokenResponse{Token: signed, ExpiresAt: exp}, nil
}

// Validate fails closed: any parse, signature, expiry, issuer, audience or
// claim problem yields domain.ErrUnauthorized and no identity.
func (t *TokenServiceImpl) Validate(ctx context.Context, tokenStr string) (*service.Identity, error) {
	tokenStr = strings.TrimSpace(tokenStr)
	if tokenStr == "" {
		return nil, domain.ErrUnauthorized
	}

	claims := &SessionClaims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(t.cfg.Issuer),
		jwt.WithAudience(t.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(t.now),
	)
	tok, err := parser.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		return t.cfg.SigningKey, nil
	})
	if err != nil || !tok.Valid {
		slog.Debug("session rejected", append(middleware.LogAttrs(ctx), "error", err)...)
		return nil, fmt.Errorf("%w: invalid session", domain.ErrUnauthorized)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil || userID == uuid.Nil || claims.Subject != claims.UserID || claims.Email == "" {
		return nil, fmt.Errorf("%w: malformed session claims", domain.ErrUnauthorized)
	}
	return &service.Identity{UserID: userID, Email: claims.Email}, nil
}
