package store

import (
	"context"
	"time"

	"secureguard/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DeviceStore struct{ db *gorm.DB }

func (s *Store) Devices() *DeviceStore { return &DeviceStore{db: s.DB} }

func (d *DeviceStore) Create(ctx context.Context, device *domain.Device) error {
	if device.ID == uuid.Nil {
		device.ID = uuid.New()
	}
	return translate(d.db.WithContext(ctx).Create(device).Error)
}

func (d *DeviceStore) Get(ctx context.Context, id uuid.UUID) (*domain.Device, error) {
	var device domain.Device
	if err := d.db.WithContext(ctx).First(&device, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &device, nil
}

// GetByClientID looks a device up by the identifier the handset generated.
func (d *DeviceStore) GetByClientID(ctx context.Context, clientID string) (*domain.Device, error) {
	var device domain.Device
	if err := d.db.WithContext(ctx).First(&device, "device_id = ?", clientID).Error; err != nil {
		return nil, translate(err)
	}
	return &device, nil
}

// ListByUser returns the user's devices in enrollment order.
func (d *DeviceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Device, error) {
	devices := []*domain.Device{}
	if err := d.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&devices).Error; err != nil {
		return nil, translate(err)
	}
	return devices, nil
}

// Update writes every mutable column of device, including false toggles.
func (d *DeviceStore) Update(ctx context.Context, device *domain.Device) error {
	res := d.db.WithContext(ctx).Model(device).
		Select("*").
		Omit("id", "created_at").
		Updates(device)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (d *DeviceStore) TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := d.db.WithContext(ctx).Model(&domain.Device{}).
		Where("id = ?", id).
		Updates(map[string]any{"last_seen": at, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// SetActive flips the active flag without touching lastSeen.
func (d *DeviceStore) SetActive(ctx context.Context, id uuid.UUID, active bool, at time.Time) error {
	res := d.db.WithContext(ctx).Model(&domain.Device{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_active": active, "updated_at": at})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

func (d *DeviceStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	res := d.db.WithContext(ctx).Delete(&domain.Device{}, "id = ?", id)
	return res.RowsAffected, translate(res.Error)
}
