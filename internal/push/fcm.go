package push

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"secureguard/internal/service"

	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

var _ service.PushNotifier = (*FCMNotifier)(nil)

// FCMNotifier sends data-only messages through the Firebase Cloud Messaging
// HTTP v1 API.
type FCMNotifier struct {
	messages *fcm.ProjectsMessagesService
	parent   string
}

type FCMConfig struct {
	ProjectID       string
	CredentialsFile string
}

// NewFCMNotifier builds a notifier. Extra client options (endpoint, http
// client) are appended after the credentials option.
func NewFCMNotifier(ctx context.Context, cfg FCMConfig, opts ...option.ClientOption) (*FCMNotifier, error) {
	if cfg.ProjectID == "" {
		return nil, errors.New("fcm: project id is required")
	}
	all := make([]option.ClientOption, 0, len(opts)+1)
	if cfg.CredentialsFile != "" {
		all = append(all, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	all = append(all, opts...)

	svc, err := fcm.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("fcm: create service: %w", err)
	}
	return &FCMNotifier{
		messages: svc.Projects.Messages,
		parent:   "projects/" + cfg.ProjectID,
	}, nil
}

// Notify returns the message name assigned by FCM. High priority wakes the
// handset so commands such as LOCK_DEVICE run promptly.
func (n *FCMNotifier) Notify(ctx context.Context, token string, data map[string]string) (string, error) {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Data:  data,
			Android: &fcm.AndroidConfig{
				Priority: "HIGH",
			},
		},
	}
	msg, err := n.messages.Send(n.parent, req).Context(ctx).Do()
	if err != nil {
		return "", classify(err)
	}
	return msg.Name, nil
}

// FCM error codes that mean the registration token will never work again.
const (
	fcmUnregistered     = "UNREGISTERED"
	fcmSenderIDMismatch = "SENDER_ID_MISMATCH"
	fcmTokenField       = "message.token"
)

// fcmErrorBody is the part of a v1 error response that tells a dead token
// apart from a bad payload. Both arrive as 400 INVALID_ARGUMENT.
type fcmErrorBody struct {
	Error struct {
		Status  string `json:"status"`
		Details []struct {
			Type            string `json:"@type"`
			ErrorCode       string `json:"errorCode"`
			FieldViolations []struct {
				Field string `json:"field"`
			} `json:"fieldViolations"`
		} `json:"details"`
	} `json:"error"`
}

// classify maps FCM responses for stale or malformed tokens onto
// service.ErrPushTokenRejected. Other 4xx answers, such as an oversized
// payload, stay ordinary send errors.
func classify(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && tokenRejected(apiErr) {
		return fmt.Errorf("%w: %s", service.ErrPushTokenRejected, apiErr.Message)
	}
	return fmt.Errorf("fcm send: %w", err)
}

func tokenRejected(apiErr *googleapi.Error) bool {
	if apiErr.Code == http.StatusNotFound {
		return true
	}
	var body fcmErrorBody
	if err := json.Unmarshal([]byte(apiErr.Body), &body); err != nil {
		return false
	}
	for _, d := range body.Error.Details {
		switch d.ErrorCode {
		case fcmUnregistered, fcmSenderIDMismatch:
			return true
		}
		for _, v := range d.FieldViolations {
			if v.Field == fcmTokenField {
				return true
			}
		}
	}
	return false
}
