package tray

import (
	"errors"
	"testing"

	"github.com/ayusman/mudra/internal/gesture"
)

type fakeController struct {
	enabled bool
	err     error
}

func (f *fakeController) Enabled() bool { return f.enabled }

func (f *fakeController) SetEnabled(enabled bool) error {
	if f.err != nil {
		return f.err
	}
	f.enabled = enabled
	return nil
}

func TestTitles(t *testing.T) {
	if got := toggleTitle(true); got != "● Enabled" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := toggleTitle(false); got != "○ Disabled" {
		t.Errorf("toggleTitle(false) = %q", got)
	}
	if got := lastTitle(""); got != "Last: none" {
		t.Errorf("lastTitle(\"\") = %q", got)
	}
	if got := lastTitle("wave"); got != "Last: wave" {
		t.Errorf("lastTitle(wave) = %q", got)
	}
}

func TestOpenCommand(t *testing.T) {
	tests := []struct {
		goos string
		want string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"freebsd", "xdg-open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			name, args := openCommand(tt.goos, "http://localhost:8080")
			if name != tt.want {
				t.Errorf("command = %q, want %q", name, tt.want)
			}
			if args[len(args)-1] != "http://localhost:8080" {
				t.Errorf("args = %v, want the URL last", args)
			}
		})
	}
}

func TestTray_HandleToggle(t *testing.T) {
	ctrl := &fakeController{enabled: true}
	tr := New(Options{Controller: ctrl})

	tr.handleToggle()
	if ctrl.enabled {
		t.Error("toggle should disable recognition")
	}
	tr.handleToggle()
	if !ctrl.enabled {
		t.Error("second toggle should enable recognition")
	}

	ctrl.err = errors.New("read-only store")
	tr.handleToggle()
	if !ctrl.enabled {
		t.Error("a failed toggle should keep the current state")
	}
}

func TestTray_TracksLastRecognition(t *testing.T) {
	tr := New(Options{})
	if got := tr.LastGesture(); got != "" {
		t.Fatalf("LastGesture() = %q, want empty", got)
	}

	tr.handleEvent(gesture.Event{Kind: gesture.EventTrackingLost, BodyID: 1})
	if got := tr.LastGesture(); got != "" {
		t.Errorf("tracking-lost changed LastGesture() to %q", got)
	}

	tr.handleEvent(gesture.Event{
		Kind:        gesture.EventRecognized,
		Recognition: gesture.RecognitionEvent{Gesture: "swipe-left", BodyID: 1},
	})
	if got := tr.LastGesture(); got != "swipe-left" {
		t.Errorf("LastGesture() = %q, want swipe-left", got)
	}
}
