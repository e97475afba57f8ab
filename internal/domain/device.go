package domain

import "time"

// Device is an enrolled handset. ClientID is the identifier the handset
// generates for itself; ID is assigned by the server on first enrollment.
type Device struct {
	ID        DeviceID       `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	UserID    UserID         `gorm:"type:uuid;index;not null" db:"user_id" json:"userId"`
	Name      string         `gorm:"type:text;not null" db:"name" json:"name"`
	ClientID  string         `gorm:"column:device_id;type:text;not null;uniqueIndex:ux_devices_device_id" db:"device_id" json:"deviceId"`
	PushToken string         `gorm:"type:text;not null" db:"push_token" json:"-"`
	LastSeen  time.Time      `gorm:"not null" db:"last_seen" json:"lastSeen"`
	IsActive  bool           `gorm:"not null" db:"is_active" json:"isActive"`
	Settings  DeviceSettings `gorm:"embedded;embeddedPrefix:setting_" json:"settings"`
	CreatedAt time.Time      `gorm:"not null" db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (Device) TableName() string { return "devices" }

// OwnedBy reports whether userID is the registered owner.
func (d *Device) OwnedBy(userID UserID) bool { return d != nil && d.UserID == userID }

// DeviceSettings holds the per-device feature toggles. Bool columns carry no
// database default so that an explicit false is persisted as written.
type DeviceSettings struct {
	LocationTracking   bool   `gorm:"not null" db:"setting_location_tracking" json:"locationTracking"`
	WrongPasswordPhoto bool   `gorm:"not null" db:"setting_wrong_password_photo" json:"wrongPasswordPhoto"`
	SimChangeDetection bool   `gorm:"not null" db:"setting_sim_change_detection" json:"simChangeDetection"`
	RemoteLock         bool   `gorm:"not null" db:"setting_remote_lock" json:"remoteLock"`
	SoundAlert         bool   `gorm:"not null" db:"setting_sound_alert" json:"soundAlert"`
	CallControl        bool   `gorm:"not null" db:"setting_call_control" json:"callControl"`
	NotificationEmail  string `gorm:"type:text;not null" db:"setting_notification_email" json:"notificationEmail"`
}

// DefaultDeviceSettings enables every security feature.
func DefaultDeviceSettings() DeviceSettings {
	return DeviceSettings{
		LocationTracking:   true,
		WrongPasswordPhoto: true,
		SimChangeDetection: true,
		RemoteLock:         true,
		SoundAlert:         true,
		CallControl:        true,
	}
}

// DeviceSettingsPatch is a partial settings update; nil fields are left as is.
type DeviceSettingsPatch struct {
	LocationTracking   *bool   `json:"locationTracking,omitempty"`
	WrongPasswordPhoto *bool   `json:"wrongPasswordPhoto,omitempty"`
	SimChangeDetection *bool   `json:"simChangeDetection,omitempty"`
	RemoteLock         *bool   `json:"remoteLock,omitempty"`
	SoundAlert         *bool   `json:"soundAlert,omitempty"`
	CallControl        *bool   `json:"callControl,omitempty"`
	NotificationEmail  *string `json:"notificationEmail,omitempty"`
}

// Apply returns s with every non-nil field of p written over it.
func (s DeviceSettings) Apply(p *DeviceSettingsPatch) DeviceSettings {
	if p == nil {
		return s
	}
	set := func(dst *bool, v *bool) {
		if v != nil {
			*dst = *v
		}
	}
	set(&s.LocationTracking, p.LocationTracking)
	set(&s.WrongPasswordPhoto, p.WrongPasswordPhoto)
	set(&s.SimChangeDetection, p.SimChangeDetection)
	set(&s.RemoteLock, p.RemoteLock)
	set(&s.SoundAlert, p.SoundAlert)
	set(&s.CallControl, p.CallControl)
	if p.NotificationEmail != nil {
		s.NotificationEmail = *p.NotificationEmail
	}
	return s
}
