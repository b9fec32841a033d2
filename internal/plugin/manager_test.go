package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) string {
	t.Helper()
	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	pluginDir := writeManifest(t, root, "test-plugin", Manifest{
		Name:        "test-plugin",
		Version:     "1.0.0",
		Description: "A test plugin",
		Executable:  "test-plugin",
		Actions:     []string{"action1", "action2"},
	})

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}
	plugin := plugins[0]
	if plugin.Manifest.Name != "test-plugin" || plugin.Manifest.Description != "A test plugin" {
		t.Errorf("manifest = %+v", plugin.Manifest)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "test-plugin") {
		t.Errorf("expected executable in plugin dir, got %q", plugin.Executable)
	}
}

func TestManager_Discover_SkipsBadPlugins(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "b", Manifest{Name: "beta", Executable: "beta"})
	writeManifest(t, root, "a", Manifest{Name: "alpha", Executable: "alpha"})
	writeManifest(t, root, "noexec", Manifest{Name: "noexec"})

	os.MkdirAll(filepath.Join(root, "no-manifest"), 0755)
	os.MkdirAll(filepath.Join(root, "broken"), 0755)
	os.WriteFile(filepath.Join(root, "broken", ManifestFile), []byte("{invalid"), 0644)
	os.WriteFile(filepath.Join(root, "stray-file"), []byte("x"), 0644)

	manager := NewManager(root, nil)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 2 || plugins[0].Manifest.Name != "alpha" || plugins[1].Manifest.Name != "beta" {
		var names []string
		for _, p := range plugins {
			names = append(names, p.Manifest.Name)
		}
		t.Errorf("List() = %v, want [alpha beta]", names)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	dir := writeManifest(t, root, "p", Manifest{Name: "p", Executable: "p"})

	manager := NewManager(root, nil)
	manager.Discover()
	if len(manager.List()) != 1 {
		t.Fatal("expected 1 plugin after first scan")
	}

	os.RemoveAll(dir)
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("removed plugin should disappear after rescan")
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager(filepath.Join(t.TempDir(), "missing"), nil)
	if err := manager.Discover(); err != nil {
		t.Errorf("Discover() on missing dir should not fail: %v", err)
	}
	if len(manager.List()) != 0 {
		t.Error("expected no plugins")
	}
}

func TestManager_GetAndResolve(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "kb", Manifest{Name: "keyboard", Executable: "kb", Actions: []string{"press"}})
	writeManifest(t, root, "any", Manifest{Name: "shell", Executable: "shell"})

	manager := NewManager(root, nil)
	manager.Discover()

	if _, err := manager.Get("keyboard"); err != nil {
		t.Errorf("Get(keyboard) error = %v", err)
	}
	if _, err := manager.Get("missing"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Get(missing) error = %v, want ErrPluginNotFound", err)
	}

	tests := []struct {
		plugin, action string
		wantErr        error
	}{
		{"keyboard", "press", nil},
		{"keyboard", "type", ErrActionNotSupported},
		{"shell", "anything", nil},
		{"missing", "press", ErrPluginNotFound},
	}
	for _, tt := range tests {
		_, err := manager.Resolve(tt.plugin, tt.action)
		if !errors.Is(err, tt.wantErr) {
			t.Errorf("Resolve(%s, %s) error = %v, want %v", tt.plugin, tt.action, err, tt.wantErr)
		}
	}
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/some/path", nil)
	if manager.PluginDir() != "/some/path" {
		t.Errorf("expected PluginDir() = %q, got %q", "/some/path", manager.PluginDir())
	}
}
