package dto

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"secureguard/internal/domain"
)

// CommandRequest accepts {"command": T, "parameters": {...}} as well as the
// flat console form {"command": T, "phoneNumber": "..."}.
type CommandRequest struct {
	Command    string
	Parameters domain.CommandParameters
}

func (c *CommandRequest) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	c.Parameters = domain.CommandParameters{}
	for k, v := range raw {
		switch k {
		case "command":
			if err := json.Unmarshal(v, &c.Command); err != nil {
				return fmt.Errorf("command: %w", err)
			}
		case "parameters":
			var nested map[string]json.RawMessage
			if err := json.Unmarshal(v, &nested); err != nil {
				return fmt.Errorf("parameters: %w", err)
			}
			for nk, nv := range nested {
				s, err := scalarString(nv)
				if err != nil {
					return fmt.Errorf("parameters.%s: %w", nk, err)
				}
				c.Parameters[nk] = s
			}
		default:
			s, err := scalarString(v)
			if err != nil {
				return fmt.Errorf("%s: %w", k, err)
			}
			c.Parameters[k] = s
		}
	}
	return nil
}

// scalarString flattens JSON strings, numbers and booleans to their text
// form; devices receive every parameter as a string.
func scalarString(v json.RawMessage) (string, error) {
	var decoded any
	if err := json.Unmarshal(v, &decoded); err != nil {
		return "", err
	}
	switch t := decoded.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("must be a string, number or boolean")
	}
}

// CommandResult reports push hand-off only: success means the transport
// accepted the message, not that the device received or executed it.
type CommandResult struct {
	Success   bool                 `json:"success"`
	CommandID string               `json:"commandId"`
	Status    domain.CommandStatus `json:"status"`
}

// CommandView is one entry of a device's command history. Secret parameters
// are redacted; only the push message carries them.
type CommandView struct {
	ID         domain.CommandID         `json:"id"`
	DeviceID   domain.DeviceID          `json:"deviceId"`
	Type       domain.CommandType       `json:"type"`
	Parameters domain.CommandParameters `json:"parameters"`
	Status     domain.CommandStatus     `json:"status"`
	Timestamp  time.Time                `json:"timestamp"`
	UpdatedAt  time.Time                `json:"updatedAt"`
}

func NewCommandViews(cmds []*domain.Command) []CommandView {
	out := make([]CommandView, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, CommandView{
			ID:         c.ID,
			DeviceID:   c.DeviceID,
			Type:       c.Type,
			Parameters: c.RedactedParams(),
			Status:     c.Status,
			Timestamp:  c.Timestamp,
			UpdatedAt:  c.UpdatedAt,
		})
	}
	return out
}
