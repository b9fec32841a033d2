// Command system-control is a mudra plugin for volume and media playback.
// It drives osascript on macOS and pactl/playerctl on Linux.
package main

import (
	"fmt"
	"os/exec"
	"runtime"

	"github.com/ayusman/mudra/internal/plugin"
)

// command is one external program invocation.
type command []string

// commands maps an action to its command per operating system.
var commands = map[string]map[string]command{
	"volume-up": {
		"darwin": osascript(`set volume output volume ((output volume of (get volume settings)) + 10)`),
		"linux":  {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "+10%"},
	},
	"volume-down": {
		"darwin": osascript(`set volume output volume ((output volume of (get volume settings)) - 10)`),
		"linux":  {"pactl", "set-sink-volume", "@DEFAULT_SINK@", "-10%"},
	},
	"volume-mute": {
		"darwin": osascript(`set volume output muted (not (output muted of (get volume settings)))`),
		"linux":  {"pactl", "set-sink-mute", "@DEFAULT_SINK@", "toggle"},
	},
	"media-play-pause": {
		"darwin": osascript(`tell application "System Events" to key code 100`),
		"linux":  {"playerctl", "play-pause"},
	},
	"media-next": {
		"darwin": osascript(`tell application "System Events" to key code 101`),
		"linux":  {"playerctl", "next"},
	},
	"media-prev": {
		"darwin": osascript(`tell application "System Events" to key code 98`),
		"linux":  {"playerctl", "previous"},
	},
}

func osascript(script string) command {
	return command{"osascript", "-e", script}
}

func main() {
	handlers := make(map[string]plugin.Handler, len(commands))
	for action, byOS := range commands {
		handlers[action] = func(*plugin.Request) (any, error) {
			cmd, ok := byOS[runtime.GOOS]
			if !ok {
				return nil, fmt.Errorf("not supported on %s", runtime.GOOS)
			}
			return nil, run(cmd)
		}
	}
	plugin.Main(handlers)
}

func run(c command) error {
	output, err := exec.Command(c[0], c[1:]...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", c[0], err, output)
	}
	return nil
}
