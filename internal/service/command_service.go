package service

import (
	"context"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
)

type CommandService interface {
	// Dispatch records the command as PENDING, hands it to the push
	// transport and leaves it SENT or FAILED. It is never retried.
	Dispatch(ctx context.Context, deviceID domain.DeviceID, t domain.CommandType, params domain.CommandParameters) (*dto.CommandResult, error)
	List(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error)
	// UpdateStatus applies a validated status transition. It reports false
	// when the command changed status concurrently.
	UpdateStatus(ctx context.Context, id domain.CommandID, status domain.CommandStatus) (bool, error)
}
