package dto

import (
	"secureguard/internal/domain"
)

// EnrollDeviceRequest is sent by the handset. The owner is taken from a bearer
// session when present, otherwise from UserID, otherwise from Email.
type EnrollDeviceRequest struct {
	DeviceID  string                      `json:"deviceId"`
	PushToken string                      `json:"pushToken"`
	FCMToken  string                      `json:"fcmToken"`
	Name      string                      `json:"name"`
	UserID    string                      `json:"userId"`
	Email     string                      `json:"email"`
	Settings  *domain.DeviceSettingsPatch `json:"settings,omitempty"`
}

// Token returns the push token, accepting the legacy fcmToken field.
func (r EnrollDeviceRequest) Token() string {
	if r.PushToken != "" {
		return r.PushToken
	}
	return r.FCMToken
}

// UpdateDeviceRequest is a partial update; absent fields are left unchanged.
type UpdateDeviceRequest struct {
	Name      *string                     `json:"name,omitempty"`
	PushToken *string                     `json:"pushToken,omitempty"`
	Settings  *domain.DeviceSettingsPatch `json:"settings,omitempty"`
}
