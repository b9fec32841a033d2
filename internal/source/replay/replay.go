// Package replay plays back recorded pose sessions and records new ones.
//
// A session file is a sequence of length-prefixed msgpack records as defined
// by package wire.
package replay

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/source/wire"
)

// Kind is the registry name of the replay backend.
const Kind = "replay"

func init() {
	source.Register(Kind, Open)
}

// Options configures playback.
type Options struct {
	// Loop restarts playback at the end of the file.
	Loop bool
	// Realtime paces frames by their recorded timestamps.
	Realtime bool
	Logger   *slog.Logger
}

// Source plays back a session file.
type Source struct {
	name   string
	path   string
	opts   Options
	logger *slog.Logger
	once   source.Once
}

// Open implements source.Opener. The file must exist.
func Open(cfg source.Config) (source.Source, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("%w: replay path is required", source.ErrSourceUnavailable)
	}
	if _, err := os.Stat(cfg.Path); err != nil {
		return nil, fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	return New(cfg.DisplayName(), cfg.Path, Options{Loop: cfg.Loop, Realtime: cfg.Realtime}), nil
}

// New creates a replay source without checking the file.
func New(name, path string, opts Options) *Source {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		name:   name,
		path:   path,
		opts:   opts,
		logger: logger.With("component", "replay", "source", name),
	}
}

// Name implements source.Source.
func (s *Source) Name() string { return s.name }

// Capabilities implements source.Source.
func (s *Source) Capabilities() source.Capabilities {
	return source.Capabilities{Skeleton: true, MultiBody: true}
}

// Run implements source.Source.
func (s *Source) Run(ctx context.Context, sink source.Sink) error {
	if err := s.once.Start(); err != nil {
		return err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("%w: %v", source.ErrSourceUnavailable, err)
	}
	defer f.Close()

	sink.OnSourceReady(s.name)
	s.logger.Info("replay started", "path", s.path, "loop", s.opts.Loop)

	p := &player{src: s, sink: sink}
	for {
		err := p.play(ctx, bufio.NewReader(f))
		if err != nil {
			return err
		}
		if !s.opts.Loop {
			s.logger.Info("replay finished", "frames", p.frames)
			return nil
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			return fmt.Errorf("rewind %s: %w", s.path, err)
		}
		// Keep sequence numbers increasing across passes.
		p.offset = p.last
		p.prev = time.Time{}
	}
}

type player struct {
	src    *Source
	sink   source.Sink
	frames int
	offset uint64
	last   uint64
	prev   time.Time
}

// play delivers one pass over the file.
func (p *player) play(ctx context.Context, r io.Reader) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		rec, err := wire.ReadRecord(r)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", p.src.path, err)
		}

		switch rec.Type {
		case wire.TypeFrame:
			if err := p.pace(ctx, rec.Timestamp); err != nil {
				return err
			}
			rec.Seq += p.offset
			p.last = rec.Seq
			frame, err := rec.Frame(p.src.name)
			if err != nil {
				p.sink.OnSourceError(p.src.name, err)
				continue
			}
			p.frames++
			p.sink.OnFrame(frame)
		case wire.TypeLost:
			p.sink.OnSourceLost(p.src.name, rec.BodyID)
		case wire.TypeError:
			p.sink.OnSourceError(p.src.name, errors.New(rec.Message))
		default:
			p.src.logger.Debug("skipping unknown record", "type", rec.Type)
		}
	}
}

// pace sleeps for the recorded gap between frames when playing in real time.
func (p *player) pace(ctx context.Context, ts time.Time) error {
	if !p.src.opts.Realtime || ts.IsZero() {
		return nil
	}
	prev := p.prev
	p.prev = ts
	if prev.IsZero() {
		return nil
	}
	gap := ts.Sub(prev)
	if gap <= 0 {
		return nil
	}

	timer := time.NewTimer(gap)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
