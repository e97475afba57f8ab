package domain

import (
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/datatypes"
)

func TestParseCommandType(t *testing.T) {
	tests := []struct {
		in   string
		want CommandType
		err  bool
	}{
		{in: "LOCK_DEVICE", want: CommandLockDevice},
		{in: "lock_device", want: CommandLockDevice},
		{in: " wipe_data ", want: CommandWipeData},
		{in: "SELF_DESTRUCT", err: true},
		{in: "", err: true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseCommandType(tc.in)
			if tc.err {
				if !errors.Is(err, ErrUnknownCommandType) {
					t.Fatalf("expected ErrUnknownCommandType, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestCommandTypesCoverTaxonomy(t *testing.T) {
	if n := len(CommandTypes()); n != 8 {
		t.Fatalf("expected 8 command types, got %d", n)
	}
}

func TestCommandStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to CommandStatus
		ok       bool
	}{
		{CommandPending, CommandSent, true},
		{CommandPending, CommandFailed, true},
		{CommandPending, CommandDelivered, false},
		{CommandSent, CommandDelivered, true},
		{CommandSent, CommandFailed, true},
		{CommandSent, CommandPending, false},
		{CommandDelivered, CommandExecuted, true},
		{CommandFailed, CommandSent, false},
		{CommandExecuted, CommandFailed, false},
	}
	for _, tc := range tests {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: expected %v, got %v", tc.from, tc.to, tc.ok, got)
		}
	}
	if !CommandFailed.Terminal() || !CommandExecuted.Terminal() {
		t.Fatalf("FAILED and EXECUTED must be terminal")
	}
	if CommandPending.Terminal() {
		t.Fatalf("PENDING must not be terminal")
	}
}

func TestEnumsRejectUnknownValues(t *testing.T) {
	var st CommandStatus
	if err := st.Scan("QUEUED"); !errors.Is(err, ErrUnknownCommandStatus) {
		t.Fatalf("expected unknown status error, got %v", err)
	}
	if err := st.Scan([]byte("sent")); err != nil || st != CommandSent {
		t.Fatalf("expected SENT, got %q (%v)", st, err)
	}
	if _, err := CommandStatus("BOGUS").Value(); err == nil {
		t.Fatalf("expected Value to reject unknown status")
	}

	var body struct {
		Type CommandType `json:"type"`
	}
	if err := json.Unmarshal([]byte(`{"type":"EXPLODE"}`), &body); !errors.Is(err, ErrUnknownCommandType) {
		t.Fatalf("expected decode to reject unknown type, got %v", err)
	}
	if err := json.Unmarshal([]byte(`{"type":"take_photo"}`), &body); err != nil || body.Type != CommandTakePhoto {
		t.Fatalf("expected TAKE_PHOTO, got %q (%v)", body.Type, err)
	}
}

func TestDeviceSettingsApply(t *testing.T) {
	off := false
	email := "alerts@example.com"
	got := DefaultDeviceSettings().Apply(&DeviceSettingsPatch{SoundAlert: &off, NotificationEmail: &email})

	if got.SoundAlert {
		t.Fatalf("expected soundAlert disabled")
	}
	if !got.LocationTracking || !got.RemoteLock || !got.CallControl {
		t.Fatalf("untouched toggles must keep their value: %+v", got)
	}
	if got.NotificationEmail != email {
		t.Fatalf("expected notification email %q, got %q", email, got.NotificationEmail)
	}
	if same := DefaultDeviceSettings().Apply(nil); same != DefaultDeviceSettings() {
		t.Fatalf("nil patch must be a no-op")
	}
}

func TestCommandRedactedParams(t *testing.T) {
	cmd := &Command{
		Type: CommandResetPassword,
		Parameters: datatypes.NewJSONType(CommandParameters{
			"newPassword":      "s3cret-pin",
			"confirmationCode": "4321",
			"phoneNumber":      "+5511999999999",
		}),
	}

	got := cmd.RedactedParams()
	if got["newPassword"] != RedactedValue || got["confirmationCode"] != RedactedValue {
		t.Fatalf("secret parameters not redacted: %v", got)
	}
	if got["phoneNumber"] != "+5511999999999" {
		t.Fatalf("plain parameters must pass through: %v", got)
	}
	if cmd.Params()["newPassword"] != "s3cret-pin" {
		t.Fatalf("redaction must not modify the stored parameters")
	}
}
