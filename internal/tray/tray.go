// Package tray provides a system tray menu for toggling recognition and
// showing the last recognized gesture.
package tray

import (
	"log/slog"
	"os/exec"
	"runtime"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/gesture"
)

// Controller is the recognition switch the tray drives.
type Controller interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

// Options configures a Tray.
type Options struct {
	Controller Controller
	// Engine, when set, feeds recognition events to the "Last" item.
	Engine *gesture.Engine
	// DashboardURL is opened by the dashboard item. Empty hides the item.
	DashboardURL string
	// OnQuit runs before the tray exits.
	OnQuit func()
	Logger *slog.Logger
}

// Tray is the system tray application.
type Tray struct {
	opts   Options
	logger *slog.Logger

	mu              sync.Mutex
	last            string
	subscription    string
	menuToggle      *systray.MenuItem
	menuLastGesture *systray.MenuItem
}

// New creates a Tray.
func New(opts Options) *Tray {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Tray{opts: opts, logger: logger}
}

// Run starts the tray. It blocks until Quit is called or the quit item is
// clicked, and must be called from the main goroutine.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit stops the tray.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra gesture recognition")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled()), "Toggle gesture recognition")
	systray.AddSeparator()
	t.menuLastGesture = systray.AddMenuItem(lastTitle(t.last), "Last recognized gesture")
	t.menuLastGesture.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	var dashboard <-chan struct{}
	if t.opts.DashboardURL != "" {
		dashboard = systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser").ClickedCh
		systray.AddSeparator()
	}
	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	if t.opts.Engine != nil {
		id := t.opts.Engine.Subscribe(t.handleEvent)
		t.mu.Lock()
		t.subscription = id
		t.mu.Unlock()
	}

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-dashboard:
				t.openDashboard()
			case <-menuQuit.ClickedCh:
				systray.Quit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {
	t.mu.Lock()
	id := t.subscription
	t.subscription = ""
	t.mu.Unlock()
	if id != "" {
		t.opts.Engine.Unsubscribe(id)
	}
	if t.opts.OnQuit != nil {
		t.opts.OnQuit()
	}
}

func (t *Tray) enabled() bool {
	if t.opts.Controller == nil {
		return true
	}
	return t.opts.Controller.Enabled()
}

func (t *Tray) handleToggle() {
	if t.opts.Controller == nil {
		return
	}
	enabled := !t.opts.Controller.Enabled()
	if err := t.opts.Controller.SetEnabled(enabled); err != nil {
		t.logger.Error("failed to toggle recognition", "error", err)
		enabled = t.opts.Controller.Enabled()
	}
	t.mu.Lock()
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
	t.mu.Unlock()
}

func (t *Tray) handleEvent(ev gesture.Event) {
	if ev.Kind != gesture.EventRecognized {
		return
	}
	t.SetLastGesture(ev.Recognition.Gesture)
}

// SetLastGesture updates the last gesture item.
func (t *Tray) SetLastGesture(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.last = name
	if t.menuLastGesture != nil {
		t.menuLastGesture.SetTitle(lastTitle(name))
	}
}

// LastGesture returns the name shown in the last gesture item.
func (t *Tray) LastGesture() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.last
}

func (t *Tray) openDashboard() {
	name, args := openCommand(runtime.GOOS, t.opts.DashboardURL)
	if err := exec.Command(name, args...).Start(); err != nil {
		t.logger.Warn("failed to open dashboard", "url", t.opts.DashboardURL, "error", err)
	}
}

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Enabled"
	}
	return "○ Disabled"
}

func lastTitle(name string) string {
	if name == "" {
		return "Last: none"
	}
	return "Last: " + name
}

// openCommand returns the command that opens url in the desktop browser.
func openCommand(goos, url string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{url}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}
	default:
		return "xdg-open", []string{url}
	}
}
