package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type CommandType string

const (
	CommandLockDevice     CommandType = "LOCK_DEVICE"
	CommandResetPassword  CommandType = "RESET_PASSWORD"
	CommandSoundAlert     CommandType = "SOUND_ALERT"
	CommandStopSoundAlert CommandType = "STOP_SOUND_ALERT"
	CommandMakeCall       CommandType = "MAKE_CALL"
	CommandTakePhoto      CommandType = "TAKE_PHOTO"
	CommandUpdateSettings CommandType = "UPDATE_SETTINGS"
	CommandWipeData       CommandType = "WIPE_DATA"
)

var commandTypes = []CommandType{
	CommandLockDevice,
	CommandResetPassword,
	CommandSoundAlert,
	CommandStopSoundAlert,
	CommandMakeCall,
	CommandTakePhoto,
	CommandUpdateSettings,
	CommandWipeData,
}

// CommandTypes lists every command a device understands.
func CommandTypes() []CommandType {
	return append([]CommandType(nil), commandTypes...)
}

// ParseCommandType accepts the canonical name in any letter case.
func ParseCommandType(s string) (CommandType, error) {
	want := CommandType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range commandTypes {
		if t == want {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommandType, s)
}

func (t CommandType) String() string { return string(t) }

func (t CommandType) MarshalText() ([]byte, error) {
	if _, err := ParseCommandType(string(t)); err != nil {
		return nil, err
	}
	return []byte(t), nil
}

func (t *CommandType) UnmarshalText(b []byte) error {
	parsed, err := ParseCommandType(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t CommandType) Value() (driver.Value, error) {
	if _, err := ParseCommandType(string(t)); err != nil {
		return nil, err
	}
	return string(t), nil
}

func (t *CommandType) Scan(src any) error {
	return scanEnum(src, t.UnmarshalText)
}

type CommandStatus string

const (
	CommandPending   CommandStatus = "PENDING"
	CommandSent      CommandStatus = "SENT"
	CommandDelivered CommandStatus = "DELIVERED"
	CommandExecuted  CommandStatus = "EXECUTED"
	CommandFailed    CommandStatus = "FAILED"
)

// Only PENDING, SENT and FAILED are reached by dispatch. DELIVERED and
// EXECUTED are reserved for a device acknowledgement channel that does not
// exist yet; UpdateStatus accepts them so that channel can be added later.
var commandTransitions = map[CommandStatus][]CommandStatus{
	CommandPending:   {CommandSent, CommandFailed},
	CommandSent:      {CommandDelivered, CommandFailed},
	CommandDelivered: {CommandExecuted, CommandFailed},
}

func ParseCommandStatus(s string) (CommandStatus, error) {
	switch st := CommandStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case CommandPending, CommandSent, CommandDelivered, CommandExecuted, CommandFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownCommandStatus, s)
}

func (s CommandStatus) String() string { return string(s) }

// Terminal reports whether no further transition is allowed.
func (s CommandStatus) Terminal() bool { return len(commandTransitions[s]) == 0 }

// CanTransition reports whether a command in status s may move to next.
func (s CommandStatus) CanTransition(next CommandStatus) bool {
	for _, allowed := range commandTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s CommandStatus) MarshalText() ([]byte, error) {
	if _, err := ParseCommandStatus(string(s)); err != nil {
		return nil, err
	}
	return []byte(s), nil
}

func (s *CommandStatus) UnmarshalText(b []byte) error {
	parsed, err := ParseCommandStatus(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s CommandStatus) Value() (driver.Value, error) {
	if _, err := ParseCommandStatus(string(s)); err != nil {
		return nil, err
	}
	return string(s), nil
}

func (s *CommandStatus) Scan(src any) error {
	return scanEnum(src, s.UnmarshalText)
}

func scanEnum(src any, set func([]byte) error) error {
	switch v := src.(type) {
	case string:
		return set([]byte(v))
	case []byte:
		return set(v)
	case nil:
		return fmt.Errorf("scan enum: null value")
	default:
		return fmt.Errorf("unsupported enum source %T", src)
	}
}

// CommandParameters are the per-type arguments forwarded to the device.
type CommandParameters = map[string]string

// Command is one instruction issued to a device. Status is written only by
// the dispatcher.
type Command struct {
	ID         CommandID                             `gorm:"type:uuid;primaryKey" db:"id" json:"id"`
	DeviceID   DeviceID                              `gorm:"type:uuid;not null;index:ix_commands_device_ts,priority:1" db:"device_id" json:"deviceId"`
	Type       CommandType                           `gorm:"type:text;not null" db:"type" json:"type"`
	Parameters datatypes.JSONType[CommandParameters] `db:"parameters" json:"parameters"`
	Status     CommandStatus                         `gorm:"type:text;not null;index" db:"status" json:"status"`
	Timestamp  time.Time                             `gorm:"not null;index:ix_commands_device_ts,priority:2" db:"timestamp" json:"timestamp"`
	UpdatedAt  time.Time                             `gorm:"not null" db:"updated_at" json:"updatedAt"`
}

func (Command) TableName() string { return "commands" }

// RedactedValue replaces secret parameter values anywhere outside the push
// message itself.
const RedactedValue = "***"

// Parameters that carry credentials for the handset.
var secretParameters = map[string]bool{
	"newPassword":      true,
	"confirmationCode": true,
}

func IsSecretParameter(key string) bool { return secretParameters[key] }

// RedactedParams is Params with secret values replaced by RedactedValue.
func (c *Command) RedactedParams() CommandParameters {
	out := c.Params()
	for k := range out {
		if IsSecretParameter(k) {
			out[k] = RedactedValue
		}
	}
	return out
}

// Params returns a copy of the stored parameters, never nil.
func (c *Command) Params() CommandParameters {
	out := CommandParameters{}
	for k, v := range c.Parameters.Data() {
		out[k] = v
	}
	return out
}
