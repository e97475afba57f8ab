// Package push hands command messages to a push transport.
package push

import (
	"context"
	"errors"

	"secureguard/internal/service"
)

// ErrPushDisabled is returned when no transport is configured; every
// dispatch then ends FAILED.
var ErrPushDisabled = errors.New("push transport disabled")

var _ service.PushNotifier = Disabled{}

// Disabled is the notifier used when FCM credentials are absent.
type Disabled struct{}

func (Disabled) Notify(context.Context, string, map[string]string) (string, error) {
	return "", ErrPushDisabled
}
