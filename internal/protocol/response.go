package protocol

import (
	"encoding/json"
	"fmt"
)

// ResponseErrCode extracts the err_code from a command response such as
// {"system":{"set_relay_state":{"err_code":0}}}. Every legacy command
// response nests the code two levels deep under service and method.
func ResponseErrCode(payload []byte) (int, error) {
	var outer map[string]map[string]struct {
		ErrCode *int `json:"err_code"`
	}
	if err := json.Unmarshal(payload, &outer); err != nil {
		return 0, fmt.Errorf("failed to parse command response: %w", err)
	}
	for _, service := range outer {
		for _, method := range service {
			if method.ErrCode != nil {
				return *method.ErrCode, nil
			}
		}
	}
	return 0, fmt.Errorf("command response carries no err_code")
}
