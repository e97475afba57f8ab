package domain

import "time"

// Location is one position report. Rows are written once and never updated.
type Location struct {
	ID        LocationID `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	DeviceID  DeviceID   `gorm:"type:uuid;not null;index:ix_locations_device_ts,priority:1" db:"device_id" json:"deviceId"`
	Latitude  float64    `gorm:"not null" db:"latitude" json:"latitude"`
	Longitude float64    `gorm:"not null" db:"longitude" json:"longitude"`
	Accuracy  float64    `gorm:"not null" db:"accuracy" json:"accuracy"`
	Timestamp time.Time  `gorm:"not null;index:ix_locations_device_ts,priority:2" db:"timestamp" json:"timestamp"`
	CreatedAt time.Time  `gorm:"not null" db:"created_at" json:"-"`
}

func (Location) TableName() string { return "locations" }
