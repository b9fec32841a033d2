package mediapipe

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/vmihailenco/msgpack/v5"
	"gocv.io/x/gocv"
)

// ScriptName is the pose estimation service started as a subprocess.
const ScriptName = "pose_service.py"

// DefaultIdleTimeout is how long the subprocess may sit unused before it is
// shut down. It is restarted on the next frame.
const DefaultIdleTimeout = 30 * time.Second

// ErrScriptNotFound is returned when the pose service script cannot be located.
var ErrScriptNotFound = errors.New(ScriptName + " not found")

// Estimator turns a camera image into zero or more poses.
type Estimator interface {
	Estimate(frame *gocv.Mat) ([]Pose, error)
	Close() error
}

// Subprocess runs MediaPipe Pose in a Python process. Each request is a
// length-prefixed JPEG on stdin; each response a length-prefixed msgpack
// document on stdout. The process is started on first use and stopped after
// IdleTimeout without requests.
type Subprocess struct {
	python      string
	script      string
	idleTimeout time.Duration
	logger      *slog.Logger

	mu        sync.Mutex
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	idleTimer *time.Timer
}

type response struct {
	Poses []Pose `msgpack:"poses"`
	Error string `msgpack:"error,omitempty"`
}

// NewSubprocess creates an estimator for the given interpreter and script.
// Empty values are discovered with FindPython and FindScript.
func NewSubprocess(python, script string, logger *slog.Logger) (*Subprocess, error) {
	if script == "" {
		script = FindScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrScriptNotFound, err)
	}
	if python == "" {
		python = FindPython()
	}
	if _, err := exec.LookPath(python); err != nil {
		return nil, fmt.Errorf("python interpreter %q: %w", python, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Subprocess{
		python:      python,
		script:      script,
		idleTimeout: DefaultIdleTimeout,
		logger:      logger.With("component", "pose-service"),
	}, nil
}

// Estimate implements Estimator.
func (s *Subprocess) Estimate(frame *gocv.Mat) ([]Pose, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	if err := writeFramed(s.stdin, buf.GetBytes()); err != nil {
		s.kill()
		return nil, err
	}
	data, err := readFramed(s.stdout)
	if err != nil {
		s.kill()
		return nil, fmt.Errorf("read response: %w", err)
	}

	var resp response
	if err := msgpack.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("pose service: %s", resp.Error)
	}

	s.resetIdleTimer()
	return resp.Poses, nil
}

// Close stops the subprocess.
func (s *Subprocess) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown()
}

func (s *Subprocess) ensureStarted() error {
	if s.cmd != nil {
		return nil
	}

	cmd := exec.Command(s.python, s.script)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start pose service: %w", err)
	}
	s.logger.Info("pose service started", "python", s.python, "script", s.script, "pid", cmd.Process.Pid)

	s.cmd = cmd
	s.stdin = stdin
	s.stdout = bufio.NewReader(stdout)
	return nil
}

// shutdown closes stdin and waits for the process to exit. Callers hold s.mu.
func (s *Subprocess) shutdown() error {
	if s.cmd == nil {
		return nil
	}
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}

	s.stdin.Close()
	err := s.cmd.Wait()
	s.logger.Info("pose service stopped")
	s.cmd = nil
	s.stdin = nil
	s.stdout = nil
	return err
}

// kill terminates a process whose pipes are out of sync. Callers hold s.mu.
func (s *Subprocess) kill() {
	if s.cmd == nil {
		return
	}
	s.cmd.Process.Kill()
	s.shutdown()
}

func (s *Subprocess) resetIdleTimer() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
	}
	s.idleTimer = time.AfterFunc(s.idleTimeout, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.logger.Debug("pose service idle")
		s.shutdown()
	})
}

func writeFramed(w io.Writer, data []byte) error {
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func readFramed(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	data := make([]byte, binary.BigEndian.Uint32(prefix[:]))
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	return data, nil
}

// FindScript looks for the pose service script next to the working
// directory, the executable and in ~/.mudra/scripts.
func FindScript() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	return firstExisting(
		filepath.Join("scripts", ScriptName),
		filepath.Join("..", "scripts", ScriptName),
		filepath.Join(execDir, "scripts", ScriptName),
		filepath.Join(home, ".mudra", "scripts", ScriptName),
	)
}

// FindPython prefers a virtual environment interpreter and falls back to
// python3 on PATH.
func FindPython() string {
	var execDir string
	if execPath, err := os.Executable(); err == nil {
		execDir = filepath.Dir(execPath)
	}
	home, _ := os.UserHomeDir()

	if p := firstExisting(
		filepath.Join("venv", "bin", "python"),
		filepath.Join("..", "venv", "bin", "python"),
		filepath.Join(execDir, "venv", "bin", "python"),
		filepath.Join(home, ".mudra", "venv", "bin", "python"),
	); p != "" {
		return p
	}
	return "python3"
}

func firstExisting(candidates ...string) string {
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
