package service

import (
	"context"
	"errors"
)

// ErrPushTokenRejected is wrapped by notifiers when the transport reports the
// device token as unknown or malformed. The device must re-enroll.
var ErrPushTokenRejected = errors.New("push token rejected by transport")

// PushNotifier hands a data message to the push transport. A nil error means
// the transport accepted the message, nothing more.
type PushNotifier interface {
	Notify(ctx context.Context, token string, data map[string]string) (receipt string, err error)
}
