package dto

import (
	"encoding/json"
	"testing"
)

func TestCommandRequestAcceptsFlatAndNestedForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]string
	}{
		{
			name: "flat",
			body: `{"command":"MAKE_CALL","phoneNumber":"+5511988887777"}`,
			want: map[string]string{"phoneNumber": "+5511988887777"},
		},
		{
			name: "nested with typed values",
			body: `{"command":"UPDATE_SETTINGS","parameters":{"soundAlert":false,"locationTracking":"true"}}`,
			want: map[string]string{"soundAlert": "false", "locationTracking": "true"},
		},
		{
			name: "no parameters",
			body: `{"command":"LOCK_DEVICE"}`,
			want: map[string]string{},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var req CommandRequest
			if err := json.Unmarshal([]byte(tc.body), &req); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if len(req.Parameters) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, req.Parameters)
			}
			for k, v := range tc.want {
				if req.Parameters[k] != v {
					t.Fatalf("parameter %s: expected %q, got %q", k, v, req.Parameters[k])
				}
			}
		})
	}
}

func TestCommandRequestRejectsNestedObjects(t *testing.T) {
	var req CommandRequest
	if err := json.Unmarshal([]byte(`{"command":"MAKE_CALL","phoneNumber":{"n":1}}`), &req); err == nil {
		t.Fatalf("expected error for object parameter")
	}
}
