package domain

import "errors"

var (
	ErrInvalidRequest          = errors.New("invalid request")
	ErrInvalidCredentials      = errors.New("invalid credentials")
	ErrUnauthorized            = errors.New("unauthorized")
	ErrEmailTaken              = errors.New("email already registered")
	ErrUserNotFound            = errors.New("user not found")
	ErrDeviceNotFound          = errors.New("device not found")
	ErrCommandNotFound         = errors.New("command not found")
	ErrLocationNotFound        = errors.New("location not found")
	ErrUnknownCommandType      = errors.New("unknown command type")
	ErrUnknownCommandStatus    = errors.New("unknown command status")
	ErrInvalidStatusTransition = errors.New("invalid command status transition")
)
