package app

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/posetest"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
)

// installRecorderPlugin writes a plugin that appends every request it gets to
// a file, and returns the plugin directory and that file.
func installRecorderPlugin(t *testing.T) (string, string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("skipping test on Windows")
	}

	pluginsDir := t.TempDir()
	dir := filepath.Join(pluginsDir, "recorder")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	out := filepath.Join(t.TempDir(), "requests.log")

	manifest := `{"name":"recorder","version":"1.0.0","executable":"run.sh","actions":["note","fail"]}`
	if err := os.WriteFile(filepath.Join(dir, plugin.ManifestFile), []byte(manifest), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	script := "#!/bin/sh\ncat >> " + out + "\necho >> " + out + "\n" +
		`echo '{"success":true}'` + "\n"
	if err := os.WriteFile(filepath.Join(dir, "run.sh"), []byte(script), 0755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return pluginsDir, out
}

func TestApp_RunDispatchesActions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginsDir, out := installRecorderPlugin(t)
	s := newTestStore(t)
	a := New(Options{
		Store:   s,
		Plugins: plugin.NewManager(pluginsDir, discardLogger()),
		Builtin: true,
		Logger:  discardLogger(),
	})
	if err := a.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}
	if err := a.LoadGestures(); err != nil {
		t.Fatalf("LoadGestures() error = %v", err)
	}

	wave, err := s.Gestures().GetByName("wave")
	if err != nil {
		t.Fatalf("GetByName(wave) error = %v", err)
	}
	bindings := []*store.Action{
		{ID: "a1", GestureID: wave.ID, PluginName: "recorder", ActionName: "note", Config: json.RawMessage(`{"tag":"first"}`), Enabled: true},
		{ID: "a2", GestureID: wave.ID, PluginName: "recorder", ActionName: "note", Config: json.RawMessage(`{"tag":"off"}`), Enabled: false},
		{ID: "a3", GestureID: wave.ID, PluginName: "missing", ActionName: "note", Enabled: true},
	}
	for _, b := range bindings {
		if err := s.Actions().Create(b); err != nil {
			t.Fatalf("Create(%s) error = %v", b.ID, err)
		}
	}

	a.AddSource(source.NewScripted("script", posetest.Steps(posetest.Wave(7))...))
	runUntilDone(t, a)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("plugin was not run: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 1 {
		t.Fatalf("plugin ran %d times, want 1: %q", len(lines), data)
	}

	var req plugin.Request
	if err := json.Unmarshal([]byte(lines[0]), &req); err != nil {
		t.Fatalf("invalid request %q: %v", lines[0], err)
	}
	if req.Action != "note" || req.Gesture != "wave" || req.BodyID != 7 || req.Source != "script" || req.Seq != 6 {
		t.Errorf("request = %+v", req)
	}
	if string(req.Config) != `{"tag":"first"}` {
		t.Errorf("request config = %s", req.Config)
	}
}

func TestApp_QueuedActionsRunAfterCancel(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	pluginsDir, out := installRecorderPlugin(t)
	s := newTestStore(t)
	a := New(Options{
		Store:   s,
		Plugins: plugin.NewManager(pluginsDir, discardLogger()),
		Builtin: true,
		Logger:  discardLogger(),
	})
	if err := a.DiscoverPlugins(); err != nil {
		t.Fatalf("DiscoverPlugins() error = %v", err)
	}
	if err := a.LoadGestures(); err != nil {
		t.Fatalf("LoadGestures() error = %v", err)
	}
	wave, err := s.Gestures().GetByName("wave")
	if err != nil {
		t.Fatalf("GetByName(wave) error = %v", err)
	}
	act := &store.Action{ID: "a1", GestureID: wave.ID, PluginName: "recorder", ActionName: "note", Enabled: true}
	if err := s.Actions().Create(act); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	for _, body := range []uint64{1, 2} {
		a.enqueue(job{event: gesture.Event{
			Kind:        gesture.EventRecognized,
			Source:      "script",
			BodyID:      body,
			Recognition: gesture.RecognitionEvent{Gesture: "wave", BodyID: body, Seq: 6},
		}})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done := make(chan struct{})
	close(done)
	a.runActions(ctx, done)

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("queued actions were not run: %v", err)
	}
	if lines := strings.Split(strings.TrimSpace(string(data)), "\n"); len(lines) != 2 {
		t.Errorf("plugin ran %d times, want 2", len(lines))
	}
}
