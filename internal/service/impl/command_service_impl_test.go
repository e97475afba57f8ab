package impl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"secureguard/internal/domain"
	"secureguard/internal/dto"
	"secureguard/internal/service"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type fakeNotifier struct {
	mu    sync.Mutex
	err   error
	block bool
	sent  []fakePush
}

type fakePush struct {
	token string
	data  map[string]string
}

func (f *fakeNotifier) Notify(ctx context.Context, token string, data map[string]string) (string, error) {
	f.mu.Lock()
	f.sent = append(f.sent, fakePush{token: token, data: data})
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.err != nil {
		return "", f.err
	}
	return "projects/test/messages/1", nil
}

func setupCommandService(t *testing.T, push *fakeNotifier) (*CommandServiceImpl, *domain.Device) {
	t.Helper()
	st := setupStore(t)
	owner := seedUser(t, st, "alice@x.com")
	dev, _, err := NewDeviceServiceImpl(st).Enroll(context.Background(), owner.ID, dto.EnrollDeviceRequest{DeviceID: "A1", PushToken: "tok-A1"})
	if err != nil {
		t.Fatalf("enroll: %v", err)
	}
	return NewCommandServiceImpl(st, push, 50*time.Millisecond), dev
}

func TestDispatchSuccessMarksSent(t *testing.T) {
	push := &fakeNotifier{}
	svc, dev := setupCommandService(t, push)
	ctx := context.Background()

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandMakeCall, domain.CommandParameters{"phoneNumber": " +5511999999999 "})
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if !res.Success || res.Status != domain.CommandSent {
		t.Fatalf("expected SENT success, got %+v", res)
	}

	if len(push.sent) != 1 {
		t.Fatalf("expected one push, got %d", len(push.sent))
	}
	msg := push.sent[0]
	if msg.token != "tok-A1" || msg.data["command"] != "MAKE_CALL" || msg.data["command_id"] != res.CommandID {
		t.Fatalf("unexpected push payload: %+v", msg)
	}
	var params map[string]string
	if err := json.Unmarshal([]byte(msg.data["parameters"]), &params); err != nil {
		t.Fatalf("parameters must be a JSON object string: %v", err)
	}
	if params["phoneNumber"] != "+5511999999999" {
		t.Fatalf("parameters not forwarded: %v", params)
	}

	cmds, err := svc.List(ctx, dev.ID)
	if err != nil || len(cmds) != 1 {
		t.Fatalf("list: %d rows, %v", len(cmds), err)
	}
	if cmds[0].Status != domain.CommandSent || cmds[0].ID.String() != res.CommandID {
		t.Fatalf("stored command mismatch: %+v", cmds[0])
	}
}

func TestDispatchPushFailureMarksFailed(t *testing.T) {
	for name, push := range map[string]*fakeNotifier{
		"transport error": {err: errors.New("unavailable")},
		"timeout":         {block: true},
	} {
		t.Run(name, func(t *testing.T) {
			svc, dev := setupCommandService(t, push)
			ctx := context.Background()

			res, err := svc.Dispatch(ctx, dev.ID, domain.CommandLockDevice, nil)
			if err != nil {
				t.Fatalf("push failure must not surface as an error: %v", err)
			}
			if res.Success || res.Status != domain.CommandFailed {
				t.Fatalf("expected FAILED, got %+v", res)
			}
			cmds, _ := svc.List(ctx, dev.ID)
			if len(cmds) != 1 || cmds[0].Status != domain.CommandFailed {
				t.Fatalf("expected one FAILED record, got %+v", cmds)
			}
		})
	}
}

func TestDispatchTokenRejectionDeactivatesDevice(t *testing.T) {
	push := &fakeNotifier{err: fmt.Errorf("%w: Requested entity was not found.", service.ErrPushTokenRejected)}
	svc, dev := setupCommandService(t, push)
	ctx := context.Background()

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandLockDevice, nil)
	if err != nil || res.Status != domain.CommandFailed {
		t.Fatalf("expected FAILED, got %+v, %v", res, err)
	}
	devices := NewDeviceServiceImpl(svc.store)
	got, err := devices.Get(ctx, dev.ID)
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	if got.IsActive {
		t.Fatalf("device with a rejected token must be inactive")
	}

	again, _, err := devices.Enroll(ctx, dev.UserID, dto.EnrollDeviceRequest{DeviceID: dev.ClientID, PushToken: "fresh-token"})
	if err != nil {
		t.Fatalf("re-enroll: %v", err)
	}
	if !again.IsActive || again.PushToken != "fresh-token" {
		t.Fatalf("re-enrollment should reactivate: %+v", again)
	}
}

func TestDispatchWithoutNotifierFails(t *testing.T) {
	svc, dev := setupCommandService(t, nil)
	svc.push = nil
	res, err := svc.Dispatch(context.Background(), dev.ID, domain.CommandSoundAlert, nil)
	if err != nil || res.Status != domain.CommandFailed {
		t.Fatalf("expected FAILED without a transport, got %+v, %v", res, err)
	}
}

func TestDispatchRejectsBeforePersisting(t *testing.T) {
	push := &fakeNotifier{}
	svc, dev := setupCommandService(t, push)
	ctx := context.Background()

	if _, err := svc.Dispatch(ctx, uuid.New(), domain.CommandLockDevice, nil); !errors.Is(err, domain.ErrDeviceNotFound) {
		t.Fatalf("expected ErrDeviceNotFound, got %v", err)
	}
	if _, err := svc.Dispatch(ctx, dev.ID, domain.CommandType("SELF_DESTRUCT"), nil); !errors.Is(err, domain.ErrUnknownCommandType) || !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected unknown command type as invalid request, got %v", err)
	}
	if _, err := svc.Dispatch(ctx, dev.ID, domain.CommandMakeCall, nil); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected missing phoneNumber to be rejected, got %v", err)
	}

	cmds, err := svc.List(ctx, dev.ID)
	if err != nil || len(cmds) != 0 {
		t.Fatalf("rejected dispatches must not create records, got %d (%v)", len(cmds), err)
	}
	if len(push.sent) != 0 {
		t.Fatalf("rejected dispatches must not push")
	}
}

func TestDispatchNormalizesCommandType(t *testing.T) {
	svc, dev := setupCommandService(t, &fakeNotifier{})
	res, err := svc.Dispatch(context.Background(), dev.ID, domain.CommandType(" lock_device "), nil)
	if err != nil || res.Status != domain.CommandSent {
		t.Fatalf("dispatch: %+v, %v", res, err)
	}
	cmds, _ := svc.List(context.Background(), dev.ID)
	if len(cmds) != 1 || cmds[0].Type != domain.CommandLockDevice {
		t.Fatalf("expected canonical type, got %+v", cmds)
	}
}

func TestUpdateStatusFollowsStateMachine(t *testing.T) {
	svc, dev := setupCommandService(t, &fakeNotifier{})
	ctx := context.Background()

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandTakePhoto, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	id := uuid.MustParse(res.CommandID)

	if _, err := svc.UpdateStatus(ctx, id, domain.CommandPending); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("SENT -> PENDING must be rejected, got %v", err)
	}
	for _, next := range []domain.CommandStatus{domain.CommandDelivered, domain.CommandExecuted} {
		ok, err := svc.UpdateStatus(ctx, id, next)
		if err != nil || !ok {
			t.Fatalf("transition to %s: ok=%v err=%v", next, ok, err)
		}
	}
	if _, err := svc.UpdateStatus(ctx, id, domain.CommandFailed); !errors.Is(err, domain.ErrInvalidStatusTransition) {
		t.Fatalf("terminal status must not change, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, uuid.New(), domain.CommandDelivered); !errors.Is(err, domain.ErrCommandNotFound) {
		t.Fatalf("expected ErrCommandNotFound, got %v", err)
	}
	if _, err := svc.UpdateStatus(ctx, id, domain.CommandStatus("LOST")); !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected invalid request for unknown status, got %v", err)
	}
}

func TestValidateParameters(t *testing.T) {
	cases := []struct {
		name    string
		t       domain.CommandType
		in      domain.CommandParameters
		wantErr bool
		check   func(domain.CommandParameters) bool
	}{
		{name: "lock without params", t: domain.CommandLockDevice, in: nil},
		{name: "reset password required", t: domain.CommandResetPassword, in: domain.CommandParameters{}, wantErr: true},
		{name: "reset password", t: domain.CommandResetPassword, in: domain.CommandParameters{"newPassword": "1234"}},
		{name: "settings empty", t: domain.CommandUpdateSettings, in: domain.CommandParameters{}, wantErr: true},
		{name: "settings unknown key", t: domain.CommandUpdateSettings, in: domain.CommandParameters{"selfDestruct": "true"}, wantErr: true},
		{name: "settings non-bool", t: domain.CommandUpdateSettings, in: domain.CommandParameters{"soundAlert": "loud"}, wantErr: true},
		{
			name:  "settings normalized",
			t:     domain.CommandUpdateSettings,
			in:    domain.CommandParameters{" soundAlert": "1", "notificationEmail": " a@x.com "},
			check: func(p domain.CommandParameters) bool { return p["soundAlert"] == "true" && p["notificationEmail"] == "a@x.com" },
		},
		{name: "wipe passes through", t: domain.CommandWipeData, in: domain.CommandParameters{"confirmationCode": "9876"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := validateParameters(tc.t, tc.in)
			if tc.wantErr {
				if !errors.Is(err, domain.ErrInvalidRequest) {
					t.Fatalf("expected invalid request, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tc.check != nil && !tc.check(got) {
				t.Fatalf("unexpected parameters: %v", got)
			}
		})
	}
}

func TestDispatchRejectsOversizedParameters(t *testing.T) {
	push := &fakeNotifier{}
	svc, dev := setupCommandService(t, push)
	ctx := context.Background()

	_, err := svc.Dispatch(ctx, dev.ID, domain.CommandWipeData, domain.CommandParameters{"confirmationCode": strings.Repeat("7", 5000)})
	if !errors.Is(err, domain.ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
	if len(push.sent) != 0 {
		t.Fatalf("oversized command must not reach the transport")
	}
	if cmds, _ := svc.List(ctx, dev.ID); len(cmds) != 0 {
		t.Fatalf("oversized command must not be persisted, got %d rows", len(cmds))
	}

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandWipeData, domain.CommandParameters{"confirmationCode": strings.Repeat("7", 3000)})
	if err != nil || !res.Success {
		t.Fatalf("command under the limit should dispatch: %+v, %v", res, err)
	}
}

func TestDispatchPayloadFaultKeepsDeviceActive(t *testing.T) {
	push := &fakeNotifier{err: errors.New("fcm send: googleapi: Error 400: Request contains an invalid argument., badRequest")}
	svc, dev := setupCommandService(t, push)
	ctx := context.Background()

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandSoundAlert, nil)
	if err != nil || res.Status != domain.CommandFailed {
		t.Fatalf("expected FAILED, got %+v, %v", res, err)
	}
	got, err := svc.store.Devices().Get(ctx, dev.ID)
	if err != nil {
		t.Fatalf("get device: %v", err)
	}
	if !got.IsActive {
		t.Fatalf("a transport error that is not a token rejection must not deactivate the device")
	}
}

// failCommandUpdates makes the next n UPDATEs of the commands table fail.
func failCommandUpdates(t *testing.T, svc *CommandServiceImpl, n int) {
	t.Helper()
	err := svc.store.DB.Callback().Update().Before("gorm:update").Register("test:fail_command_update", func(db *gorm.DB) {
		if db.Statement.Table == "commands" && n > 0 {
			n--
			_ = db.AddError(errors.New("connection reset by peer"))
		}
	})
	if err != nil {
		t.Fatalf("register callback: %v", err)
	}
}

func TestDispatchRetriesStatusWrite(t *testing.T) {
	svc, dev := setupCommandService(t, &fakeNotifier{})
	failCommandUpdates(t, svc, 1)
	ctx := context.Background()

	res, err := svc.Dispatch(ctx, dev.ID, domain.CommandLockDevice, nil)
	if err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if res.Status != domain.CommandSent {
		t.Fatalf("expected SENT after one retry, got %+v", res)
	}
	cmds, _ := svc.List(ctx, dev.ID)
	if len(cmds) != 1 || cmds[0].Status != domain.CommandSent {
		t.Fatalf("expected one SENT record, got %+v", cmds)
	}
}

func TestDispatchReportsPersistentStatusWriteFailure(t *testing.T) {
	svc, dev := setupCommandService(t, &fakeNotifier{})
	failCommandUpdates(t, svc, settleAttempts)
	ctx := context.Background()

	if _, err := svc.Dispatch(ctx, dev.ID, domain.CommandLockDevice, nil); err == nil {
		t.Fatalf("expected the store error to surface")
	}
	cmds, _ := svc.List(ctx, dev.ID)
	if len(cmds) != 1 || cmds[0].Status != domain.CommandPending {
		t.Fatalf("expected the record to stay PENDING, got %+v", cmds)
	}
}
