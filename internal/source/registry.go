package source

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Config selects and configures one backend. Which fields apply depends on Kind.
type Config struct {
	Kind string `yaml:"kind" json:"kind"`
	Name string `yaml:"name,omitempty" json:"name,omitempty"`

	// replay
	Path     string `yaml:"path,omitempty" json:"path,omitempty"`
	Loop     bool   `yaml:"loop,omitempty" json:"loop,omitempty"`
	Realtime bool   `yaml:"realtime,omitempty" json:"realtime,omitempty"`

	// wsclient
	URL string `yaml:"url,omitempty" json:"url,omitempty"`

	// mediapipe
	Device int    `yaml:"device,omitempty" json:"device,omitempty"`
	Script string `yaml:"script,omitempty" json:"script,omitempty"`
	Python string `yaml:"python,omitempty" json:"python,omitempty"`
	FPS    int    `yaml:"fps,omitempty" json:"fps,omitempty"`

	// Retry is the delay between reconnection attempts for backends that
	// reconnect. Zero uses the backend default.
	Retry time.Duration `yaml:"retry,omitempty" json:"retry,omitempty"`
}

// DisplayName returns Name, or Kind when Name is empty.
func (c Config) DisplayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind
}

// Opener constructs a source from its config. Openers must not block on
// hardware or network; failures are reported wrapping ErrSourceUnavailable.
type Opener func(cfg Config) (Source, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Opener)
)

// Register makes a backend available under kind. It panics when kind is
// registered twice, like database/sql drivers.
func Register(kind string, open Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if open == nil {
		panic("source: Register opener is nil")
	}
	if _, dup := registry[kind]; dup {
		panic("source: Register called twice for kind " + kind)
	}
	registry[kind] = open
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Open constructs the source described by cfg.
func Open(cfg Config) (Source, error) {
	registryMu.RLock()
	open, ok := registry[cfg.Kind]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, cfg.Kind)
	}
	src, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s source %q: %w", cfg.Kind, cfg.DisplayName(), err)
	}
	return src, nil
}

// Availability is the outcome of opening one configured source.
type Availability struct {
	Kind         string       `json:"kind"`
	Name         string       `json:"name"`
	Available    bool         `json:"available"`
	Reason       string       `json:"reason,omitempty"`
	Capabilities Capabilities `json:"capabilities"`
}

// Discover opens every configured source. Sources that fail are reported as
// unavailable and skipped; Discover itself never fails.
func Discover(cfgs []Config) ([]Source, []Availability) {
	var sources []Source
	report := make([]Availability, 0, len(cfgs))

	for _, cfg := range cfgs {
		a := Availability{Kind: cfg.Kind, Name: cfg.DisplayName()}
		src, err := Open(cfg)
		if err != nil {
			a.Reason = err.Error()
		} else {
			a.Available = true
			a.Name = src.Name()
			a.Capabilities = src.Capabilities()
			sources = append(sources, src)
		}
		report = append(report, a)
	}
	return sources, report
}
