package service

import (
	"context"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
)

type DeviceService interface {
	// Enroll upserts by client device id. sessionUser is uuid.Nil when the
	// call carried no session. created is false on re-registration.
	Enroll(ctx context.Context, sessionUser domain.UserID, r dto.EnrollDeviceRequest) (device *domain.Device, created bool, err error)
	Get(ctx context.Context, id domain.DeviceID) (*domain.Device, error)
	// Resolve finds a device by server id or client device id.
	Resolve(ctx context.Context, ref string) (*domain.Device, error)
	// ResolveOwned is Resolve restricted to devices owned by userID; other
	// owners' devices are reported as not found.
	ResolveOwned(ctx context.Context, userID domain.UserID, ref string) (*domain.Device, error)
	ListForUser(ctx context.Context, userID domain.UserID) ([]*domain.Device, error)
	Update(ctx context.Context, id domain.DeviceID, r dto.UpdateDeviceRequest) (*domain.Device, error)
	Delete(ctx context.Context, id domain.DeviceID) error
}
