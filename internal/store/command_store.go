package store

import (
	"context"
	"time"

	"secureguard/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CommandStore struct{ db *gorm.DB }

func (s *Store) Commands() *CommandStore { return &CommandStore{db: s.DB} }

func (c *CommandStore) Create(ctx context.Context, cmd *domain.Command) error {
	if cmd.ID == uuid.Nil {
		cmd.ID = uuid.New()
	}
	return translate(c.db.WithContext(ctx).Create(cmd).Error)
}

func (c *CommandStore) Get(ctx context.Context, id uuid.UUID) (*domain.Command, error) {
	var cmd domain.Command
	if err := c.db.WithContext(ctx).First(&cmd, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &cmd, nil
}

// ListByDevice returns the device's command history, newest first.
func (c *CommandStore) ListByDevice(ctx context.Context, deviceID uuid.UUID) ([]*domain.Command, error) {
	out := []*domain.Command{}
	if err := c.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("timestamp DESC").
		Order("id DESC").
		Find(&out).Error; err != nil {
		return nil, translate(err)
	}
	return out, nil
}

// CompareAndSetStatus moves the command from one status to another and
// reports whether the row was still in the expected status.
func (c *CommandStore) CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to domain.CommandStatus, at time.Time) (bool, error) {
	res := c.db.WithContext(ctx).Model(&domain.Command{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{"status": to, "updated_at": at})
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (c *CommandStore) DeleteByDevice(ctx context.Context, deviceID uuid.UUID) (int64, error) {
	res := c.db.WithContext(ctx).Where("device_id = ?", deviceID).Delete(&domain.Command{})
	return res.RowsAffected, translate(res.Error)
}
