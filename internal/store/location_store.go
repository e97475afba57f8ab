package store

import (
	"context"
	"time"

	"secureguard/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LocationStore struct{ db *gorm.DB }

func (s *Store) Locations() *LocationStore { return &LocationStore{db: s.DB} }

func (l *LocationStore) Create(ctx context.Context, loc *domain.Location) error {
	if loc.ID == uuid.Nil {
		loc.ID = uuid.New()
	}
	return translate(l.db.WithContext(ctx).Create(loc).Error)
}

// ListByDevice returns at most limit rows, newest first.
func (l *LocationStore) ListByDevice(ctx context.Context, deviceID uuid.UUID, limit int) ([]*domain.Location, error) {
	out := []*domain.Location{}
	if limit <= 0 {
		return out, nil
	}
	if err := l.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (l *LocationStore) Latest(ctx context.Context, deviceID uuid.UUID) (*domain.Location, error) {
	var loc domain.Location
	if err := l.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Order("created_at DESC").
		First(&loc).Error; err != nil {
		return nil, translate(err)
	}
	return &loc, nil
}

// DeleteOlderThan removes reports strictly before cutoff.
func (l *LocationStore) DeleteOlderThan(ctx context.Context, deviceID uuid.UUID, cutoff time.Time) (int64, error) {
	res := l.db.WithContext(ctx).
		Where("device_id = ? AND timestamp < ?", deviceID, cutoff).
		Delete(&domain.Location{})
	return res.RowsAffected, translate(res.Error)
}

func (l *LocationStore) DeleteByDevice(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	res := l.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&domain.Location{})
	return res.RowsAffected, translate(res.Error)
}
