package impl

import (
	"fmt"

	"secureguard/internal/domain"
)

var (
	ErrEmptyPassword      = invalid("empty password")
	ErrEmptyCredential    = invalid("empty credential(s)")
	ErrEmptyName          = invalid("empty name")
	ErrInvalidEmail       = invalid("invalid email")
	ErrPasswordLength     = invalid("password too short")
	ErrWrongPassword      = invalid("current password is incorrect")
	ErrEmptyDeviceID      = invalid("deviceId is required")
	ErrEmptyPushToken     = invalid("pushToken is required")
	ErrUnknownOwner       = invalid("device owner could not be resolved")
	ErrInvalidCoordinates = invalid("latitude and longitude are required and must be in range")
	ErrInvalidAccuracy    = invalid("accuracy must be a non-negative number")
	ErrInvalidLimit       = invalid("limit must not be negative")
)

func invalid(msg string) error { return fmt.Errorf("%w: %s", domain.ErrInvalidRequest, msg) }
