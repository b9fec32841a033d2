// Package plugin discovers and runs action plugins. A plugin is an
// executable in its own directory next to a plugin.json manifest. It reads
// one JSON Request on stdin and writes one JSON Response on stdout.
package plugin

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "plugin.json"

// ErrInvalidConfig is returned when an action config does not match the
// plugin's config schema.
var ErrInvalidConfig = errors.New("invalid plugin config")

// Manifest describes a plugin's metadata and capabilities.
type Manifest struct {
	Name         string             `json:"name"`
	Version      string             `json:"version"`
	Description  string             `json:"description"`
	Executable   string             `json:"executable"`
	Actions      []string           `json:"actions"`
	ConfigSchema *jsonschema.Schema `json:"configSchema,omitempty"`
}

// SupportsAction reports whether the plugin declares action. A manifest
// without an action list accepts any action.
func (m Manifest) SupportsAction(action string) bool {
	return len(m.Actions) == 0 || slices.Contains(m.Actions, action)
}

// ValidateConfig checks an action config against ConfigSchema. Plugins
// without a schema accept any JSON object.
func (m Manifest) ValidateConfig(config json.RawMessage) error {
	var instance any = map[string]any{}
	if len(config) > 0 {
		if err := json.Unmarshal(config, &instance); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	if m.ConfigSchema == nil {
		return nil
	}

	resolved, err := m.ConfigSchema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("plugin %s has an unusable config schema: %w", m.Name, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Request is sent to a plugin when a bound gesture is recognized.
type Request struct {
	Action    string          `json:"action"`
	Gesture   string          `json:"gesture"`
	BodyID    uint64          `json:"body_id,omitempty"`
	Source    string          `json:"source,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Timestamp time.Time       `json:"timestamp,omitzero"`
	Config    json.RawMessage `json:"config,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
}

// Response is the result of a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin is a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
