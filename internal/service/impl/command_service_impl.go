package impl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/observability/metrics"
	"secureguard/internal/observability/middleware"
	"secureguard/internal/service"
	"secureguard/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

var _ service.CommandService = (*CommandServiceImpl)(nil)

const DefaultPushTimeout = 10 * time.Second

const settleAttempts = 2

// maxPushDataBytes is the FCM limit on the keys and values of a data message.
const maxPushDataBytes = 4096

// Push data keys read by the handset.
const (
	pushKeyCommand    = "command"
	pushKeyCommandID  = "command_id"
	pushKeyParameters = "parameters"
)

type CommandServiceImpl struct {
	store       *store.Store
	push        service.PushNotifier
	pushTimeout time.Duration
	now         func() time.Time
}

func NewCommandServiceImpl(st *store.Store, push service.PushNotifier, pushTimeout time.Duration) *CommandServiceImpl {
	if pushTimeout <= 0 {
		pushTimeout = DefaultPushTimeout
	}
	return &CommandServiceImpl{
		store:       st,
		push:        push,
		pushTimeout: pushTimeout,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch persists the command as PENDING before any external call, hands
// it to the push transport under a bounded timeout and records SENT or
// FAILED. Success reports hand-off only, not receipt or execution.
func (c *CommandServiceImpl) Dispatch(ctx context.Context, deviceID domain.DeviceID, t domain.CommandType, params domain.CommandParameters) (*dto.CommandResult, error) {
	t, err := domain.ParseCommandType(string(t))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	dev, err := c.store.Devices().Get(ctx, deviceID)
	if err != nil {
		return nil, translateDeviceErr(err)
	}
	params, err = validateParameters(t, params)
	if err != nil {
		return nil, err
	}

	now := c.now()
	cmd := &domain.Command{
		ID:         uuid.New(),
		DeviceID:   dev.ID,
		Type:       t,
		Parameters: datatypes.NewJSONType(params),
		Status:     domain.CommandPending,
		Timestamp:  now,
		UpdatedAt:  now,
	}
	data, err := pushData(cmd)
	if err != nil {
		return nil, err
	}
	if size := dataSize(data); size > maxPushDataBytes {
		return nil, invalid(fmt.Sprintf("parameters too large: push data is %d bytes, limit %d", size, maxPushDataBytes))
	}
	if err := c.store.Commands().Create(ctx, cmd); err != nil {
		return nil, err
	}

	logAttrs := append(middleware.LogAttrs(ctx), "command_id", cmd.ID, "device_id", dev.ID, "type", t)

	final := domain.CommandSent
	receipt, pushErr := c.handOff(ctx, dev, data)
	if pushErr != nil {
		final = domain.CommandFailed
		slog.Warn("command push failed", append(logAttrs, "error", pushErr)...)
		if errors.Is(pushErr, service.ErrPushTokenRejected) {
			c.deactivate(ctx, dev, logAttrs)
		}
	}

	applied, err := c.settle(ctx, cmd.ID, final, logAttrs)
	if err != nil {
		slog.Error("command left pending", append(logAttrs, "status", final, "error", err)...)
		return nil, err
	}
	if !applied {
		current, err := c.store.Commands().Get(context.WithoutCancel(ctx), cmd.ID)
		if err != nil {
			return nil, err
		}
		final = current.Status
	}

	metrics.CommandsDispatchedTotal.WithLabelValues(string(t), string(final)).Inc()
	slog.Info("command dispatched", append(logAttrs, "status", final, "receipt", receipt)...)

	return &dto.CommandResult{
		Success:   final == domain.CommandSent,
		CommandID: cmd.ID.String(),
		Status:    final,
	}, nil
}

// settle writes the dispatch outcome, retrying once after a store error. The
// write must land even if the caller went away mid-push.
func (c *CommandServiceImpl) settle(ctx context.Context, id domain.CommandID, final domain.CommandStatus, logAttrs []any) (bool, error) {
	ctx = context.WithoutCancel(ctx)
	var err error
	for attempt := 1; attempt <= settleAttempts; attempt++ {
		var applied bool
		applied, err = c.store.Commands().CompareAndSetStatus(ctx, id, domain.CommandPending, final, c.now())
		if err == nil {
			return applied, nil
		}
		slog.Warn("command status update failed", append(logAttrs, "status", final, "attempt", attempt, "error", err)...)
	}
	return false, err
}

// deactivate marks a device whose token the transport rejected; the next
// enrollment reactivates it.
func (c *CommandServiceImpl) deactivate(ctx context.Context, dev *domain.Device, logAttrs []any) {
	if err := c.store.Devices().SetActive(context.WithoutCancel(ctx), dev.ID, false, c.now()); err != nil {
		slog.Error("device deactivation failed", append(logAttrs, "error", err)...)
		return
	}
	slog.Info("device deactivated after token rejection", logAttrs...)
}

func (c *CommandServiceImpl) handOff(ctx context.Context, dev *domain.Device, data map[string]string) (receipt string, err error) {
	start := time.Now()
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.PushHandoffDurationSeconds.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}()

	if c.push == nil {
		return "", errors.New("push notifier not configured")
	}
	if dev.PushToken == "" {
		return "", errors.New("device has no push token")
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.pushTimeout)
	defer cancel()
	return c.push.Notify(pushCtx, dev.PushToken, data)
}

// pushData builds the data message. Parameters travel as one JSON object
// string so the device can decode them without ad hoc parsing.
func pushData(cmd *domain.Command) (map[string]string, error) {
	encoded, err := json.Marshal(cmd.Params())
	if err != nil {
		return nil, fmt.Errorf("encode parameters: %w", err)
	}
	return map[string]string{
		pushKeyCommand:    string(cmd.Type),
		pushKeyCommandID:  cmd.ID.String(),
		pushKeyParameters: string(encoded),
	}, nil
}

func dataSize(data map[string]string) int {
	n := 0
	for k, v := range data {
		n += len(k) + len(v)
	}
	return n
}

func (c *CommandServiceImpl) List(ctx context.Context, deviceID domain.DeviceID) ([]*domain.Command, error) {
	return c.store.Commands().ListByDevice(ctx, deviceID)
}

// UpdateStatus has no HTTP caller yet; it is the hook for a future device
// acknowledgement channel (DELIVERED, EXECUTED).
func (c *CommandServiceImpl) UpdateStatus(ctx context.Context, id domain.CommandID, status domain.CommandStatus) (bool, error) {
	status, err := domain.ParseCommandStatus(string(status))
	if err != nil {
		return false, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}
	cmd, err := c.store.Commands().Get(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrRecordNotFound) {
			return false, domain.ErrCommandNotFound
		}
		return false, err
	}
	if !cmd.Status.CanTransition(status) {
		return false, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidStatusTransition, cmd.Status, status)
	}
	applied, err := c.store.Commands().CompareAndSetStatus(ctx, id, cmd.Status, status, c.now())
	if err != nil {
		return false, err
	}
	if applied {
		slog.Info("command status updated", append(middleware.LogAttrs(ctx), "command_id", id, "from", cmd.Status, "to", status)...)
	}
	return applied, nil
}
