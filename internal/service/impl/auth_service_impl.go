package impl

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/netutil"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/observability/middleware"
	"secureguard/internal/service"
	"secureguard/internal/store"

	"github.com/google/uuid"
)

var _ service.AuthService = (*AuthServiceImpl)(nil)

type AuthServiceImpl struct {
	Store           dataStore
	PasswordService service.PasswordService
	TService        service.TokenService

	decoyOnce sync.Once
	decoy     *domain.PasswordCredential
}

func NewAuthServiceImpl(st *store.Store, passwordService service.PasswordService, tokenService service.TokenService) *AuthServiceImpl {
	return &AuthServiceImpl{
		Store:           gormStoreAdapter{store: st},
		PasswordService: passwordService,
		TService:        tokenService,
	}
}

type dataStore interface {
	WithTx(ctx context.Context, fn func(tx storeTx) error) error
}

type storeTx interface {
	Users() userStore
	Credentials() credentialStore
}

type userStore interface {
	Create(ctx context.Context, usr *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateName(ctx context.Context, id uuid.UUID, name string, at time.Time) error
}

type credentialStore interface {
	UpsertPassword(ctx context.Context, c *domain.PasswordCredential) error
	GetPasswordByUserID(ctx context.Context, userID uuid.UUID) (*domain.PasswordCredential, error)
}

type gormStoreAdapter struct {
	store *store.Store
}

func (g gormStoreAdapter) WithTx(ctx context.Context, fn func(tx storeTx) error) error {
	if g.store == nil {
		return errors.New("nil store")
	}
	return g.store.WithTx(ctx, func(tx *store.Store) error {
		return fn(gormTxAdapter{tx: tx})
	})
}

type gormTxAdapter struct {
	tx *store.Store
}

func (g gormTxAdapter) Users() userStore { return g.tx.Users() }

func (g gormTxAdapter) Credentials() credentialStore { return g.tx.Credentials() }

// normalizeEmail lower-cases and validates an address; emails are the login key.
func normalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", ErrEmptyCredential
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (a *AuthServiceImpl) Register(ctx context.Context, r dto.RegisterRequest) (*domain.User, error) {
	result := "success"
	defer func() {
		metrics.AuthRegistrationsTotal.WithLabelValues(result).Inc()
	}()

	name := strings.TrimSpace(r.Name)
	email, err := normalizeEmail(r.Email)
	switch {
	case err != nil:
		result = "invalid"
		return nil, err
	case name == "":
		result = "invalid"
		return nil, ErrEmptyName
	case len(r.Password) < MinPasswordLength:
		result = "invalid"
		return nil, ErrPasswordLength
	}

	var out *domain.User
	err = a.Store.WithTx(ctx, func(tx storeTx) error {
		if _, err := tx.Users().GetByEmail(ctx, email); err == nil {
			return domain.ErrEmailTaken
		} else if !errors.Is(err, store.ErrRecordNotFound) {
			return err
		}

		now := time.Now().UTC()
		u := &domain.User{
			ID:        uuid.New(),
			Name:      name,
			Email:     email,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Users().Create(ctx, u); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return domain.ErrEmailTaken
			}
			return err
		}

		hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(r.Password)
		if err != nil {
			return err
		}
		cred := &domain.PasswordCredential{
			ID:          uuid.New(),
			UserID:      u.ID,
			Algo:        algo,
			Hash:        hash,
			Salt:        salt,
			ParamsJSON:  paramsJSON,
			PasswordVer: ver,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := tx.Credentials().UpsertPassword(ctx, cred); err != nil {
			return err
		}
		out = u
		return nil
	})
	if err != nil {
		result = "failure"
		return nil, err
	}

	slog.Info("user registered", append(middleware.LogAttrs(ctx), "user_id", out.ID)...)
	return out, nil
}

func (a *AuthServiceImpl) Login(ctx context.Context, r dto.LoginRequest, ip, ua string) (*dto.TokenResponse, error) {
	result := "success"
	defer func() {
		metrics.AuthLoginsTotal.WithLabelValues(result).Inc()
	}()
	if strings.TrimSpace(r.Email) == "" || r.Password == "" {
		result = "invalid"
		return nil, ErrEmptyCredential
	}
	email := strings.ToLower(strings.TrimSpace(r.Email))

	var tokens *dto.TokenResponse
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		user, err := tx.Users().GetByEmail(ctx, email)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				a.verifyDecoy(r.Password)
				return domain.ErrInvalidCredentials // don't leak which field failed
			}
			return err
		}

		cred, err := tx.Credentials().GetPasswordByUserID(ctx, user.ID)
		if err != nil {
			if errors.Is(err, store.ErrRecordNotFound) {
				a.verifyDecoy(r.Password)
				return domain.ErrInvalidCredentials
			}
			return err
		}

		rehashNeeded, ok := a.PasswordService.Verify(r.Password, cred)
		if !ok {
			return domain.ErrInvalidCredentials
		}

		if rehashNeeded {
			if err := a.rehash(ctx, tx, cred, r.Password); err != nil {
				return err
			}
		}

		tr, err := a.TService.Issue(ctx, user)
		if err != nil {
			return err
		}
		tokens = tr
		return nil
	})
	if err != nil {
		result = "failure"
		slog.Info("login rejected", append(middleware.LogAttrs(ctx),
			"ip", normalizeIP(ip), "user_agent", netutil.TruncateUserAgent(ua), "error", err)...)
		return nil, err
	}
	return tokens, nil
}

// verifyDecoy spends one password verification against a throwaway
// credential so a login for an unknown account costs as much as a wrong
// password.
func (a *AuthServiceImpl) verifyDecoy(password string) {
	a.decoyOnce.Do(func() {
		hash, salt, paramsJSON, algo, ver, err := a.PasswordService.Hash(uuid.NewString())
		if err != nil {
			slog.Warn("decoy credential unavailable", "error", err)
			return
		}
		a.decoy = &domain.PasswordCredential{Algo: algo, Hash: hash, Salt: salt, ParamsJSON: paramsJSON, PasswordVer: ver}
	})
	if a.decoy != nil {
		_, _ = a.PasswordService.Verify(password, a.decoy)
	}
}

func (a *AuthServiceImpl) rehash(ctx context.Context, tx storeTx, cred *domain.PasswordCredential, password string) error {
	newHash, newSalt, newParamsJSON, algo, ver, err := a.PasswordService.Hash(password)
	if err != nil {
		return err
	}
	cred.Algo = algo
	cred.Hash = newHash
	cred.Salt = newSalt
	cred.ParamsJSON = newParamsJSON
	cred.PasswordVer = ver
	cred.UpdatedAt = time.Now().UTC()
	return tx.Credentials().UpsertPassword(ctx, cred)
}

func (a *AuthServiceImpl) Profile(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	var out *domain.User
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}
		out = u
		return nil
	})
	return out, err
}

// UpdateProfile changes the display name only; email is immutable.
func (a *AuthServiceImpl) UpdateProfile(ctx context.Context, userID domain.UserID, r dto.UpdateProfileRequest) (*domain.User, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return nil, ErrEmptyName
	}
	var out *domain.User
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		if err := tx.Users().UpdateName(ctx, userID, name, time.Now().UTC()); err != nil {
			return translateUserErr(err)
		}
		u, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}
		out = u
		return nil
	})
	return out, err
}

func (a *AuthServiceImpl) ChangePassword(ctx context.Context, userID domain.UserID, r dto.ChangePasswordRequest) error {
	if r.CurrentPassword == "" {
		return ErrEmptyCredential
	}
	if len(r.NewPassword) < MinPasswordLength {
		return ErrPasswordLength
	}
	err := a.Store.WithTx(ctx, func(tx storeTx) error {
		cred, err := tx.Credentials().GetPasswordByUserID(ctx, userID)
		if err != nil {
			return translateUserErr(err)
		}
		if _, ok := a.PasswordService.Verify(r.CurrentPassword, cred); !ok {
			return ErrWrongPassword
		}
		return a.rehash(ctx, tx, cred, r.NewPassword)
	})
	if err != nil {
		return err
	}
	slog.Info("password changed", append(middleware.LogAttrs(ctx), "user_id", userID)...)
	return nil
}

func translateUserErr(err error) error {
	if errors.Is(err, store.ErrRecordNotFound) {
		return domain.ErrUserNotFound
	}
	return err
}

func normalizeIP(ip string) string {
	if normalized, ok := netutil.NormalizeIP(ip); ok {
		return normalized
	}
	return strings.TrimSpace(ip)
}
