package impl

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/observability/middleware"
	"secureguard/internal/service"
	"secureguard/internal/store"

	"github.com/google/uuid"
)

var _ service.DeviceService = (*DeviceServiceImpl)(nil)

type DeviceServiceImpl struct {
	store *store.Store
	now   func() time.Time
}

func NewDeviceServiceImpl(st *store.Store) *DeviceServiceImpl {
	return &DeviceServiceImpl{
		store: st,
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Enroll registers a handset or refreshes an existing registration. An
// existing device keeps its id, owner, name and settings unless the request
// supplies new ones; the owner is never changed by re-enrollment.
func (d *DeviceServiceImpl) Enroll(ctx context.Context, sessionUser domain.UserID, r dto.EnrollDeviceRequest) (*domain.Device, bool, error) {
	if err := d.ensureStore(); err != nil {
		return nil, false, err
	}
	clientID := strings.TrimSpace(r.DeviceID)
	token := strings.TrimSpace(r.Token())
	if clientID == "" {
		return nil, false, ErrEmptyDeviceID
	}
	if token == "" {
		return nil, false, ErrEmptyPushToken
	}

	var (
		out     *domain.Device
		created bool
	)
	enroll := func() error {
		return d.store.WithTx(ctx, func(tx *store.Store) error {
			existing, err := tx.Devices().GetByClientID(ctx, clientID)
			switch {
			case err == nil:
				created = false
				out, err = d.refresh(ctx, tx, existing, sessionUser, r, token)
				return err
			case !errors.Is(err, store.ErrRecordNotFound):
				return err
			}

			owner, err := d.resolveOwner(ctx, tx, sessionUser, r)
			if err != nil {
				return err
			}
			now := d.nowTime()
			name := strings.TrimSpace(r.Name)
			if name == "" {
				name = clientID
			}
			dev := &domain.Device{
				ID:        uuid.New(),
				UserID:    owner,
				Name:      name,
				ClientID:  clientID,
				PushToken: token,
				LastSeen:  now,
				IsActive:  true,
				Settings:  domain.DefaultDeviceSettings().Apply(r.Settings),
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := tx.Devices().Create(ctx, dev); err != nil {
				return err
			}
			created = true
			out = dev
			return nil
		})
	}

	err := enroll()
	if errors.Is(err, store.ErrDuplicate) {
		// lost a race with a concurrent first enrollment; the retry takes the refresh path
		err = enroll()
	}
	if err != nil {
		metrics.DeviceEnrollmentsTotal.WithLabelValues("failure").Inc()
		return nil, false, err
	}

	outcome := "refreshed"
	if created {
		outcome = "created"
	}
	metrics.DeviceEnrollmentsTotal.WithLabelValues(outcome).Inc()
	slog.Info("device enrolled", append(middleware.LogAttrs(ctx),
		"device_id", out.ID, "client_device_id", out.ClientID, "user_id", out.UserID, "outcome", outcome)...)
	return out, created, nil
}

func (d *DeviceServiceImpl) refresh(ctx context.Context, tx *store.Store, dev *domain.Device, sessionUser domain.UserID, r dto.EnrollDeviceRequest, token string) (*domain.Device, error) {
	if ownerHintMismatch(dev, sessionUser, r) {
		slog.Warn("re-enrollment names a different owner; keeping the registered one",
			append(middleware.LogAttrs(ctx), "device_id", dev.ID)...)
	}
	dev.PushToken = token
	dev.IsActive = true
	if name := strings.TrimSpace(r.Name); name != "" {
		dev.Name = name
	}
	dev.Settings = dev.Settings.Apply(r.Settings)
	now := d.nowTime()
	dev.LastSeen = now
	dev.UpdatedAt = now
	if err := tx.Devices().Update(ctx, dev); err != nil {
		return nil, translateDeviceErr(err)
	}
	return dev, nil
}

func ownerHintMismatch(dev *domain.Device, sessionUser domain.UserID, r dto.EnrollDeviceRequest) bool {
	if sessionUser != uuid.Nil {
		return sessionUser != dev.UserID
	}
	id, err := uuid.Parse(strings.TrimSpace(r.UserID))
	return err == nil && id != dev.UserID
}

// resolveOwner picks the owner of a new device: the session user, then the
// userId field, then the email field.
func (d *DeviceServiceImpl) resolveOwner(ctx context.Context, tx *store.Store, sessionUser domain.UserID, r dto.EnrollDeviceRequest) (domain.UserID, error) {
	var (
		u   *domain.User
		err error
	)
	switch {
	case sessionUser != uuid.Nil:
		u, err = tx.Users().GetByID(ctx, sessionUser)
	case strings.TrimSpace(r.UserID) != "":
		id, perr := uuid.Parse(strings.TrimSpace(r.UserID))
		if perr != nil {
			return uuid.Nil, ErrUnknownOwner
		}
		u, err = tx.Users().GetByID(ctx, id)
	case strings.TrimSpace(r.Email) != "":
		u, err = tx.Users().GetByEmail(ctx, strings.ToLower(strings.TrimSpace(r.Email)))
	default:
		return uuid.Nil, ErrUnknownOwner
	}
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return uuid.Nil, ErrUnknownOwner
		}
		return uuid.Nil, err
	}
	return u.ID, nil
}

func (d *DeviceServiceImpl) Get(ctx context.Context, id domain.DeviceID) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	dev, err := d.store.Devices().Get(ctx, id)
	if err != nil {
		return nil, translateDeviceErr(err)
	}
	return dev, nil
}

func (d *DeviceServiceImpl) Resolve(ctx context.Context, ref string) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, domain.ErrDeviceNotFound
	}
	if id, err := uuid.Parse(ref); err == nil {
		dev, err := d.store.Devices().Get(ctx, id)
		if err == nil {
			return dev, nil
		}
		if !errors.Is(err, store.ErrRecordNotFound) {
			return nil, err
		}
		// a handset may use a UUID as its own identifier
	}
	dev, err := d.store.Devices().GetByClientID(ctx, ref)
	if err != nil {
		return nil, translateDeviceErr(err)
	}
	return dev, nil
}

func (d *DeviceServiceImpl) ResolveOwned(ctx context.Context, userID domain.UserID, ref string) (*domain.Device, error) {
	dev, err := d.Resolve(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !dev.OwnedBy(userID) {
		return nil, domain.ErrDeviceNotFound
	}
	return dev, nil
}

func (d *DeviceServiceImpl) ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	return d.store.Devices().ListByUser(ctx, userID)
}

// Update applies a partial change and always refreshes lastSeen.
func (d *DeviceServiceImpl) Update(ctx context.Context, id domain.DeviceID, r dto.UpdateDeviceRequest) (*domain.Device, error) {
	if err := d.ensureStore(); err != nil {
		return nil, err
	}
	var out *domain.Device
	err := d.store.WithTx(ctx, func(tx *store.Store) error {
		dev, err := tx.Devices().Get(ctx, id)
		if err != nil {
			return translateDeviceErr(err)
		}
		if r.Name != nil {
			name := strings.TrimSpace(*r.Name)
			if name == "" {
				return ErrEmptyName
			}
			dev.Name = name
		}
		if r.PushToken != nil {
			token := strings.TrimSpace(*r.PushToken)
			if token == "" {
				return ErrEmptyPushToken
			}
			dev.PushToken = token
		}
		dev.Settings = dev.Settings.Apply(r.Settings)
		now := d.nowTime()
		dev.LastSeen = now
		dev.UpdatedAt = now
		if err := tx.Devices().Update(ctx, dev); err != nil {
			return translateDeviceErr(err)
		}
		out = dev
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the device with its commands and location history.
func (d *DeviceServiceImpl) Delete(ctx context.Context, id domain.DeviceID) error {
	if err := d.ensureStore(); err != nil {
		return err
	}
	counts, err := d.store.DeleteDevice(ctx, id)
	if err != nil {
		return translateDeviceErr(err)
	}
	slog.Info("device deleted", append(middleware.LogAttrs(ctx),
		"device_id", id, "commands", counts["commands"], "locations", counts["locations"])...)
	return nil
}

func (d *DeviceServiceImpl) ensureStore() error {
	if d.store == nil {
		return errors.New("device store not configured")
	}
	return nil
}

func (d *DeviceServiceImpl) nowTime() time.Time {
	if d.now != nil {
		return d.now()
	}
	return time.Now().UTC()
}

func translateDeviceErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, store.ErrRecordNotFound) {
		return domain.ErrDeviceNotFound
	}
	return err
}
