package store

import (
	"context"

	"secureguard/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeleteDevice removes the device together with its commands and location
// history and returns the number of rows removed per table.
func (s *Store) DeleteDevice(ctx context.Context, deviceID uuid.UUID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		n, err := tx.Commands().DeleteByDevice(ctx, deviceID)
		if err != nil {
			return err
		}
		deleted["commands"] = n

		if n, err = tx.Locations().DeleteByDevice(ctx, deviceID); err != nil {
			return err
		}
		deleted["locations"] = n

		if n, err = tx.Devices().Delete(ctx, deviceID); err != nil {
			return err
		}
		if n == 0 {
			return ErrRecordNotFound
		}
		deleted["devices"] = n
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

// DeleteUserData removes the user's record and everything hanging off it and
// returns counts of affected rows captured before deletion.
func (s *Store) DeleteUserData(ctx context.Context, userID uuid.UUID) (map[string]int64, error) {
	deleted := map[string]int64{}

	err := s.WithTx(ctx, func(tx *Store) error {
		db := tx.DB.WithContext(ctx)
		owned := func() *gorm.DB {
			return db.Model(&domain.Device{}).Select("id").Where("user_id = ?", userID)
		}

		count := func(label string, query *gorm.DB) error {
			var total int64
			if err := query.Count(&total).Error; err != nil {
				return err
			}
			deleted[label] = total
			return nil
		}

		if err := count("users", db.Model(&domain.User{}).Where("id = ?", userID)); err != nil {
			return err
		}
		if deleted["users"] == 0 {
			return ErrRecordNotFound
		}
		if err := count("passwordCredentials", db.Model(&domain.PasswordCredential{}).Where("user_id = ?", userID)); err != nil {
			return err
		}
		if err := count("devices", db.Model(&domain.Device{}).Where("user_id = ?", userID)); err != nil {
			return err
		}
		if err := count("commands", db.Model(&domain.Command{}).Where("device_id IN (?)", owned())); err != nil {
			return err
		}
		if err := count("locations", db.Model(&domain.Location{}).Where("device_id IN (?)", owned())); err != nil {
			return err
		}

		if err := db.Where("device_id IN (?)", owned()).Delete(&domain.Command{}).Error; err != nil {
			return err
		}
		if err := db.Where("device_id IN (?)", owned()).Delete(&domain.Location{}).Error; err != nil {
			return err
		}
		if err := db.Where("user_id = ?", userID).Delete(&domain.Device{}).Error; err != nil {
			return err
		}
		if err := db.Where("user_id = ?", userID).Delete(&domain.PasswordCredential{}).Error; err != nil {
			return err
		}
		return db.Where("id = ?", userID).Delete(&domain.User{}).Error
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}
