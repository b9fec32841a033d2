// Command shell is a mudra plugin that runs a configured command line when
// a gesture is recognized. The recognition is passed in MUDRA_* environment
// variables.
//
// Action config:
//
//	{"command": ["notify-send", "mudra", "gesture seen"], "dir": "/tmp"}
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

type config struct {
	Command []string `json:"command"`
	Dir     string   `json:"dir"`
}

type result struct {
	Output string `json:"output"`
}

func main() {
	plugin.Main(map[string]plugin.Handler{
		"run": run,
	})
}

func run(req *plugin.Request) (any, error) {
	var cfg config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if len(cfg.Command) == 0 {
		return nil, errors.New("config.command is required")
	}

	cmd := exec.Command(cfg.Command[0], cfg.Command[1:]...)
	cmd.Dir = cfg.Dir
	cmd.Env = append(os.Environ(),
		"MUDRA_GESTURE="+req.Gesture,
		"MUDRA_BODY="+strconv.FormatUint(req.BodyID, 10),
		"MUDRA_SOURCE="+req.Source,
		"MUDRA_SEQ="+strconv.FormatUint(req.Seq, 10),
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", cfg.Command[0], err, output)
	}
	return result{Output: strings.TrimSpace(string(output))}, nil
}
