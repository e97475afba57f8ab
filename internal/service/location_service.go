package service

import (
	"context"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
)

type LocationService interface {
	Record(ctx context.Context, r dto.RecordLocationRequest) (*domain.Location, error)
	List(ctx context.Context, deviceID domain.DeviceID, limit int) ([]*domain.Location, error)
	Latest(ctx context.Context, deviceID domain.DeviceID) (*domain.Location, error)
	PurgeOlderThan(ctx context.Context, deviceID domain.DeviceID, cutoff time.Time) (int64, error)
}
