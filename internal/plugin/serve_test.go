package plugin

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestServe(t *testing.T) {
	handlers := map[string]Handler{
		"echo": func(req *Request) (any, error) {
			return map[string]string{"gesture": req.Gesture}, nil
		},
		"noop": func(*Request) (any, error) { return nil, nil },
		"fail": func(*Request) (any, error) { return nil, errors.New("boom") },
	}

	tests := []struct {
		name        string
		input       string
		wantSuccess bool
		wantError   string
		wantData    string
	}{
		{"echo", `{"action":"echo","gesture":"wave"}`, true, "", `{"gesture":"wave"}`},
		{"no data", `{"action":"noop"}`, true, "", ""},
		{"handler error", `{"action":"fail"}`, false, "action fail failed: boom", ""},
		{"unknown action", `{"action":"dance"}`, false, "unknown action: dance", ""},
		{"bad request", `{`, false, "decode request", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := Serve(strings.NewReader(tt.input), &out, handlers); err != nil {
				t.Fatalf("Serve() error = %v", err)
			}

			var resp Response
			if err := json.Unmarshal(out.Bytes(), &resp); err != nil {
				t.Fatalf("invalid response %q: %v", out.String(), err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("Success = %v, want %v", resp.Success, tt.wantSuccess)
			}
			if !strings.Contains(resp.Error, tt.wantError) {
				t.Errorf("Error = %q, want %q", resp.Error, tt.wantError)
			}
			if string(resp.Data) != tt.wantData {
				t.Errorf("Data = %s, want %s", resp.Data, tt.wantData)
			}
		})
	}
}

func TestManifest_SupportsAction(t *testing.T) {
	m := Manifest{Actions: []string{"volume-up"}}
	if !m.SupportsAction("volume-up") || m.SupportsAction("volume-down") {
		t.Error("SupportsAction() should follow the declared list")
	}
	if !(Manifest{}).SupportsAction("anything") {
		t.Error("a manifest without actions should accept any action")
	}
}

func TestManifest_ValidateConfig(t *testing.T) {
	var m Manifest
	err := json.Unmarshal([]byte(`{
		"name": "shell",
		"executable": "shell",
		"configSchema": {
			"type": "object",
			"required": ["command"],
			"properties": {"command": {"type": "array", "items": {"type": "string"}}}
		}
	}`), &m)
	if err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}

	tests := []struct {
		name    string
		config  string
		wantErr bool
	}{
		{"valid", `{"command":["echo","hi"]}`, false},
		{"missing command", `{}`, true},
		{"wrong type", `{"command":"echo hi"}`, true},
		{"not json", `{`, true},
		{"empty means empty object", ``, true},
	}
	for _, tt := range tests {
		err := m.ValidateConfig(json.RawMessage(tt.config))
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: ValidateConfig() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: error %v should wrap ErrInvalidConfig", tt.name, err)
		}
	}

	if err := (Manifest{}).ValidateConfig(json.RawMessage(`{"anything":1}`)); err != nil {
		t.Errorf("manifest without schema should accept any config: %v", err)
	}
}
