package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/posetest"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/source"
)

// setupTestEnv writes a config file using a temporary database and returns
// its path.
func setupTestEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	cfg := "database: " + filepath.Join(dir, "mudra.db") + "\n" +
		"plugins:\n  dir: " + filepath.Join(dir, "plugins") + "\n" +
		"engine:\n  mode: multi\n  timeout: 60\n  builtin: true\n" +
		"log:\n  level: error\n"
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(cfg), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func runCmd(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()

	verbose = false
	watchJSON, watchJQ, watchRealtime = false, "", false
	exportOutput, exportDisabled = "", false
	recordSources, recordDuration = nil, 0

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestGesturesListExportImport(t *testing.T) {
	cfgPath := setupTestEnv(t)

	out, err := runCmd(t, cfgPath, "gestures", "list")
	if err != nil {
		t.Fatalf("gestures list: %v", err)
	}
	for _, d := range gesture.Builtin() {
		if !strings.Contains(out, d.Name) {
			t.Errorf("list output missing %q:\n%s", d.Name, out)
		}
	}

	custom := gesture.Builtin()[0]
	custom.Name = "salute"
	data, err := gesture.MarshalDefinitions([]gesture.Definition{custom})
	if err != nil {
		t.Fatalf("MarshalDefinitions() error = %v", err)
	}
	importPath := filepath.Join(t.TempDir(), "salute.yaml")
	if err := os.WriteFile(importPath, data, 0644); err != nil {
		t.Fatalf("failed to write gesture file: %v", err)
	}
	out, err = runCmd(t, cfgPath, "gestures", "import", importPath)
	if err != nil {
		t.Fatalf("gestures import: %v", err)
	}
	if !strings.Contains(out, "Imported 1 gestures") {
		t.Errorf("import output = %q", out)
	}

	exportPath := filepath.Join(t.TempDir(), "export.yaml")
	if _, err := runCmd(t, cfgPath, "gestures", "export", "-o", exportPath); err != nil {
		t.Fatalf("gestures export: %v", err)
	}
	exported, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file missing: %v", err)
	}
	defs, err := gesture.ParseDefinitions(exported)
	if err != nil {
		t.Fatalf("exported library is invalid: %v", err)
	}
	if len(defs) != len(gesture.Builtin())+1 {
		t.Errorf("exported %d gestures, want %d", len(defs), len(gesture.Builtin())+1)
	}
}

func TestGesturesImport_Invalid(t *testing.T) {
	cfgPath := setupTestEnv(t)
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("gestures:\n  - name: broken\n"), 0644); err != nil {
		t.Fatalf("failed to write gesture file: %v", err)
	}
	if _, err := runCmd(t, cfgPath, "gestures", "import", path); err == nil {
		t.Error("importing a gesture without segments should fail")
	}
}

func TestWatch_ReplaysSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	cfgPath := setupTestEnv(t)
	session := filepath.Join(t.TempDir(), "demo.mpk")
	if err := posetest.WriteSession(session, posetest.Wave(5)); err != nil {
		t.Fatalf("WriteSession() error = %v", err)
	}

	out, err := runCmd(t, cfgPath, "watch", "--json", session)
	if err != nil {
		t.Fatalf("watch: %v", err)
	}

	var kinds []string
	var recognized server.EventMessage
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		var msg server.EventMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("invalid event line %q: %v", line, err)
		}
		kinds = append(kinds, msg.Kind)
		if msg.Kind == "recognized" {
			recognized = msg
		}
	}
	want := []string{"source-ready", "recognized", "tracking-lost"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("event kinds = %v, want %v", kinds, want)
	}
	if recognized.Gesture != "wave" || recognized.BodyID != 5 || recognized.Source != "demo" {
		t.Errorf("recognized = %+v", recognized)
	}
}

func TestEventPrinter(t *testing.T) {
	ev := gesture.Event{
		Kind:        gesture.EventRecognized,
		Source:      "cam",
		BodyID:      2,
		Recognition: gesture.RecognitionEvent{Gesture: "wave", BodyID: 2, Seq: 9, Timestamp: posetest.Epoch},
	}

	tests := []struct {
		name   string
		asJSON bool
		expr   string
		want   string
	}{
		{"text", false, "", "wave body=2 source=cam seq=9"},
		{"json", true, "", `"gesture":"wave"`},
		{"jq string", false, ".gesture", "wave\n"},
		{"jq object", false, "{g: .gesture, b: .body_id}", `{"b":2,"g":"wave"}`},
		{"jq filtered", false, `select(.kind == "tracking-lost")`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			p, err := newEventPrinter(&buf, tt.asJSON, tt.expr)
			if err != nil {
				t.Fatalf("newEventPrinter() error = %v", err)
			}
			p.Print(ev)
			if tt.want == "" {
				if buf.Len() != 0 {
					t.Errorf("output = %q, want nothing", buf.String())
				}
				return
			}
			if !strings.Contains(buf.String(), tt.want) {
				t.Errorf("output = %q, want it to contain %q", buf.String(), tt.want)
			}
		})
	}

	if _, err := newEventPrinter(&bytes.Buffer{}, false, ".gesture |"); err == nil {
		t.Error("an invalid jq expression should be rejected")
	}
}

func TestFormatEvent(t *testing.T) {
	now := time.Date(2026, 5, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		msg  server.EventMessage
		want string
	}{
		{server.EventMessage{Kind: "tracking-lost", BodyID: 3, Source: "cam"}, "tracking lost body=3 source=cam"},
		{server.EventMessage{Kind: "source-ready", Source: "cam"}, "source ready cam"},
		{server.EventMessage{Kind: "source-error", Source: "cam", Error: "gone"}, "source error cam: gone"},
	}
	for _, tt := range tests {
		got := formatEvent(tt.msg, now)
		if !strings.Contains(got, tt.want) || !strings.Contains(got, "10:30:00.000") {
			t.Errorf("formatEvent(%s) = %q", tt.msg.Kind, got)
		}
	}
}

func TestSelectSources(t *testing.T) {
	cfgs := []source.Config{
		{Kind: "replay", Name: "demo"},
		{Kind: "websocket"},
	}

	all, err := selectSources(cfgs, nil)
	if err != nil || len(all) != 2 {
		t.Errorf("selectSources(nil) = %v, %v", all, err)
	}
	got, err := selectSources(cfgs, []string{"websocket"})
	if err != nil || len(got) != 1 || got[0].Kind != "websocket" {
		t.Errorf("selectSources(websocket) = %v, %v", got, err)
	}
	if _, err := selectSources(cfgs, []string{"camera"}); err == nil {
		t.Error("selecting an unknown source should fail")
	}
}

func TestDashboardURL(t *testing.T) {
	tests := []struct {
		addr string
		want string
	}{
		{":8080", "http://localhost:8080"},
		{"0.0.0.0:9000", "http://localhost:9000"},
		{"127.0.0.1:8080", "http://127.0.0.1:8080"},
		{"bad", ""},
	}
	for _, tt := range tests {
		if got := dashboardURL(tt.addr); got != tt.want {
			t.Errorf("dashboardURL(%q) = %q, want %q", tt.addr, got, tt.want)
		}
	}
}

func TestPrintSources(t *testing.T) {
	var buf bytes.Buffer
	printSources(&buf, []string{"mediapipe", "replay"}, []source.Availability{
		{Kind: "replay", Name: "demo", Available: true, Capabilities: source.Capabilities{Skeleton: true, MultiBody: true}},
		{Kind: "mediapipe", Name: "camera", Reason: "no camera"},
	})
	out := buf.String()
	for _, want := range []string{"Backends: mediapipe, replay", "demo", "skeleton,multi-body", "unavailable: no camera"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	printSources(&buf, nil, nil)
	if !strings.Contains(buf.String(), "No sources configured.") {
		t.Errorf("output = %q", buf.String())
	}
}
