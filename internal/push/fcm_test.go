package push

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"secureguard/internal/service"

	"google.golang.org/api/option"
)

func newTestNotifier(t *testing.T, handler http.HandlerFunc) *FCMNotifier {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	n, err := NewFCMNotifier(context.Background(), FCMConfig{ProjectID: "guard-test"},
		option.WithEndpoint(srv.URL+"/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new notifier: %v", err)
	}
	return n
}

func TestFCMNotifierSendsDataMessage(t *testing.T) {
	var got struct {
		Message struct {
			Token   string            `json:"token"`
			Data    map[string]string `json:"data"`
			Android struct {
				Priority string `json:"priority"`
			} `json:"android"`
		} `json:"message"`
	}
	var path string
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"projects/guard-test/messages/0:123"}`))
	})

	receipt, err := n.Notify(context.Background(), "tok-1", map[string]string{"command": "LOCK_DEVICE", "command_id": "c-1"})
	if err != nil {
		t.Fatalf("notify: %v", err)
	}
	if receipt != "projects/guard-test/messages/0:123" {
		t.Fatalf("unexpected receipt %q", receipt)
	}
	if !strings.HasSuffix(path, "/projects/guard-test/messages:send") {
		t.Fatalf("unexpected request path %q", path)
	}
	if got.Message.Token != "tok-1" || got.Message.Data["command"] != "LOCK_DEVICE" || got.Message.Android.Priority != "HIGH" {
		t.Fatalf("unexpected message: %+v", got.Message)
	}
}

func TestFCMNotifierMapsUnregisteredToken(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found.","status":"NOT_FOUND"}}`))
	})

	_, err := n.Notify(context.Background(), "stale", map[string]string{"command": "SOUND_ALERT"})
	if !errors.Is(err, service.ErrPushTokenRejected) {
		t.Fatalf("expected service.ErrPushTokenRejected, got %v", err)
	}
}

func TestFCMNotifierServerErrorIsNotTokenError(t *testing.T) {
	n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := n.Notify(context.Background(), "tok", map[string]string{})
	if err == nil || errors.Is(err, service.ErrPushTokenRejected) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestDisabledNotifierAlwaysFails(t *testing.T) {
	if _, err := (Disabled{}).Notify(context.Background(), "tok", nil); !errors.Is(err, ErrPushDisabled) {
		t.Fatalf("expected ErrPushDisabled, got %v", err)
	}
}

func TestNewFCMNotifierRequiresProject(t *testing.T) {
	if _, err := NewFCMNotifier(context.Background(), FCMConfig{}); err == nil {
		t.Fatalf("expected error without project id")
	}
}

func TestFCMNotifierClassifiesBadRequests(t *testing.T) {
	cases := []struct {
		name     string
		status   int
		body     string
		rejected bool
	}{
		{
			name:   "oversized payload",
			status: http.StatusBadRequest,
			body: `{"error":{"code":400,"message":"Request contains an invalid argument.","status":"INVALID_ARGUMENT",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"INVALID_ARGUMENT"}]}}`,
		},
		{
			name:   "bad request without details",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":400,"message":"Request contains an invalid argument.","status":"INVALID_ARGUMENT"}}`,
		},
		{
			name:   "malformed token",
			status: http.StatusBadRequest,
			body: `{"error":{"code":400,"message":"The registration token is not a valid FCM registration token","status":"INVALID_ARGUMENT",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"INVALID_ARGUMENT"},
				{"@type":"type.googleapis.com/google.rpc.BadRequest","fieldViolations":[{"field":"message.token","description":"Invalid registration token"}]}]}}`,
			rejected: true,
		},
		{
			name:   "unregistered",
			status: http.StatusBadRequest,
			body: `{"error":{"code":400,"message":"Requested entity was not found.","status":"INVALID_ARGUMENT",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"UNREGISTERED"}]}}`,
			rejected: true,
		},
		{
			name:   "sender id mismatch",
			status: http.StatusForbidden,
			body: `{"error":{"code":403,"message":"SenderId mismatch","status":"PERMISSION_DENIED",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"SENDER_ID_MISMATCH"}]}}`,
			rejected: true,
		},
		{
			name:   "quota exceeded",
			status: http.StatusTooManyRequests,
			body: `{"error":{"code":429,"message":"Quota exceeded.","status":"RESOURCE_EXHAUSTED",
				"details":[{"@type":"type.googleapis.com/google.firebase.fcm.v1.FcmError","errorCode":"QUOTA_EXCEEDED"}]}}`,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			n := newTestNotifier(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			_, err := n.Notify(context.Background(), "tok", map[string]string{"command": "SOUND_ALERT"})
			if err == nil {
				t.Fatalf("expected an error")
			}
			if got := errors.Is(err, service.ErrPushTokenRejected); got != tc.rejected {
				t.Fatalf("token rejected = %v, want %v (err %v)", got, tc.rejected, err)
			}
		})
	}
}
