package impl

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"secureguard/internal/domain"
)

// Keys understood by an UPDATE_SETTINGS command. Devices apply only the keys
// present.
var settingsToggleKeys = map[string]bool{
	"locationTracking":   true,
	"wrongPasswordPhoto": true,
	"simChangeDetection": true,
	"remoteLock":         true,
	"soundAlert":         true,
	"callControl":        true,
}

const settingsEmailKey = "notificationEmail"

// validateParameters checks the arguments a command type requires and returns
// a trimmed copy. Values are forwarded to the device as strings; formats such
// as phone numbers are left to the device.
func validateParameters(t domain.CommandType, in domain.CommandParameters) (domain.CommandParameters, error) {
	params := domain.CommandParameters{}
	for k, v := range in {
		if k = strings.TrimSpace(k); k != "" {
			params[k] = v
		}
	}

	switch t {
	case domain.CommandMakeCall:
		if strings.TrimSpace(params["phoneNumber"]) == "" {
			return nil, invalid("MAKE_CALL requires phoneNumber")
		}
		params["phoneNumber"] = strings.TrimSpace(params["phoneNumber"])
	case domain.CommandResetPassword:
		if params["newPassword"] == "" {
			return nil, invalid("RESET_PASSWORD requires newPassword")
		}
	case domain.CommandUpdateSettings:
		if len(params) == 0 {
			return nil, invalid("UPDATE_SETTINGS requires at least one setting")
		}
		for _, k := range sortedKeys(params) {
			v := params[k]
			switch {
			case settingsToggleKeys[k]:
				b, err := strconv.ParseBool(strings.TrimSpace(v))
				if err != nil {
					return nil, invalid(fmt.Sprintf("setting %s must be a boolean", k))
				}
				params[k] = strconv.FormatBool(b)
			case k == settingsEmailKey:
				params[k] = strings.TrimSpace(v)
			default:
				return nil, invalid(fmt.Sprintf("unknown setting %s", k))
			}
		}
	case domain.CommandWipeData:
		// the device compares confirmationCode against its own stored code
	}
	return params, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
