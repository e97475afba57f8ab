package impl

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/observability/middleware"
	"secureguard/internal/service"
	"secureguard/internal/store"

	"github.com/google/uuid"
)

var _ service.LocationService = (*LocationServiceImpl)(nil)

const MaxLocationListLimit = 1000

type LocationServiceImpl struct {
	store   *store.Store
	devices service.DeviceService
	now     func() time.Time
}

func NewLocationServiceImpl(st *store.Store, devices service.DeviceService) *LocationServiceImpl {
	return &LocationServiceImpl{
		store:   st,
		devices: devices,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Record stores a position report and advances the device's lastSeen to at
// least the report time, in one transaction.
func (l *LocationServiceImpl) Record(ctx context.Context, r dto.RecordLocationRequest) (*domain.Location, error) {
	result := "success"
	defer func() {
		metrics.LocationsRecordedTotal.WithLabelValues(result).Inc()
	}()

	if err := validateReport(r); err != nil {
		result = "invalid"
		return nil, err
	}
	dev, err := l.devices.Resolve(ctx, r.DeviceID)
	if err != nil {
		result = "unknown_device"
		return nil, err
	}

	now := l.now()
	ts := now
	if r.Timestamp > 0 {
		ts = time.UnixMilli(r.Timestamp).UTC()
	}
	lastSeen := now
	if ts.After(lastSeen) {
		lastSeen = ts
	}

	loc := &domain.Location{
		ID:        uuid.New(),
		DeviceID:  dev.ID,
		Latitude:  *r.Latitude,
		Longitude: *r.Longitude,
		Accuracy:  r.Accuracy,
		Timestamp: ts,
		CreatedAt: now,
	}
	err = l.store.WithTx(ctx, func(tx *store.Store) error {
		if err := tx.Locations().Create(ctx, loc); err != nil {
			return err
		}
		return tx.Devices().TouchLastSeen(ctx, dev.ID, lastSeen)
	})
	if err != nil {
		result = "failure"
		return nil, translateDeviceErr(err)
	}

	slog.Debug("location recorded", append(middleware.LogAttrs(ctx), "device_id", dev.ID, "timestamp", ts)...)
	return loc, nil
}

func validateReport(r dto.RecordLocationRequest) error {
	if r.DeviceID == "" {
		return ErrEmptyDeviceID
	}
	if r.Latitude == nil || r.Longitude == nil {
		return ErrInvalidCoordinates
	}
	lat, lon := *r.Latitude, *r.Longitude
	if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	if math.IsNaN(r.Accuracy) || r.Accuracy < 0 {
		return ErrInvalidAccuracy
	}
	if r.Timestamp < 0 {
		return invalid("timestamp must be epoch milliseconds")
	}
	return nil
}

// List returns up to limit reports, newest first. Limits above
// MaxLocationListLimit are clamped.
func (l *LocationServiceImpl) List(ctx context.Context, deviceID domain.DeviceID, limit int) ([]*domain.Location, error) {
	if limit < 0 {
		return nil, ErrInvalidLimit
	}
	if limit > MaxLocationListLimit {
		limit = MaxLocationListLimit
	}
	return l.store.Locations().ListByDevice(ctx, deviceID, limit)
}

func (l *LocationServiceImpl) Latest(ctx context.Context, deviceID domain.DeviceID) (*domain.Location, error) {
	loc, err := l.store.Locations().Latest(ctx, deviceID)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return nil, domain.ErrLocationNotFound
		}
		return nil, err
	}
	return loc, nil
}

// PurgeOlderThan is an administrative retention primitive; nothing schedules it.
func (l *LocationServiceImpl) PurgeOlderThan(ctx context.Context, deviceID domain.DeviceID, cutoff time.Time) (int64, error) {
	if cutoff.IsZero() {
		return 0, invalid("cutoff is required")
	}
	n, err := l.store.Locations().DeleteOlderThan(ctx, deviceID, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	slog.Info("locations purged", append(middleware.LogAttrs(ctx), "device_id", deviceID, "cutoff", cutoff, "removed", n)...)
	return n, nil
}
