// Package wsclient receives pose frames from a network peer over WebSocket.
//
// The peer sends one JSON wire.Record per text message:
//
//	{"type":"frame","seq":1,"body":7,"joints":[{"type":"hand-right","x":0.4,"y":1.3,"z":2.0}]}
//	{"type":"lost","body":7}
package wsclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/source/wire"
)

// Kind is the registry name of the WebSocket backend.
const Kind = "websocket"

// DefaultRetry is the reconnection delay used when none is configured.
const DefaultRetry = 2 * time.Second

func init() {
	source.Register(Kind, Open)
}

// Options configures a Client.
type Options struct {
	// Retry is the delay before reconnecting after the peer goes away.
	// Negative disables reconnection.
	Retry            time.Duration
	HandshakeTimeout time.Duration
	Logger           *slog.Logger
}

// Client is a source reading frames from a WebSocket peer.
type Client struct {
	name   string
	url    string
	opts   Options
	logger *slog.Logger
	once   source.Once

	seq    uint64
	bodies map[uint64]struct{}
}

// Open implements source.Opener. It validates the URL without dialing.
func Open(cfg source.Config) (source.Source, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || cfg.URL == "" {
		return nil, fmt.Errorf("%w: invalid url %q", source.ErrSourceUnavailable, cfg.URL)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("%w: url %q must use ws or wss", source.ErrSourceUnavailable, cfg.URL)
	}
	return New(cfg.DisplayName(), cfg.URL, Options{Retry: cfg.Retry}), nil
}

// New creates a client for the given ws:// or wss:// URL.
func New(name, rawURL string, opts Options) *Client {
	if opts.Retry == 0 {
		opts.Retry = DefaultRetry
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 5 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		name:   name,
		url:    rawURL,
		opts:   opts,
		logger: logger.With("component", "wsclient", "source", name),
		bodies: make(map[uint64]struct{}),
	}
}

// Name implements source.Source.
func (c *Client) Name() string { return c.name }

// Capabilities implements source.Source.
func (c *Client) Capabilities() source.Capabilities {
	return source.Capabilities{Skeleton: true, MultiBody: true}
}

// Run implements source.Source. A peer that cannot be reached on the first
// attempt makes the source unavailable. Later disconnects are reported as
// errors and retried, or returned when reconnection is disabled.
func (c *Client) Run(ctx context.Context, sink source.Sink) error {
	if err := c.once.Start(); err != nil {
		return err
	}

	dialer := websocket.Dialer{HandshakeTimeout: c.opts.HandshakeTimeout}
	first := true
	for {
		conn, _, err := dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if first {
				return fmt.Errorf("%w: dial %s: %v", source.ErrSourceUnavailable, c.url, err)
			}
			sink.OnSourceError(c.name, fmt.Errorf("reconnect %s: %w", c.url, err))
		} else {
			if first {
				sink.OnSourceReady(c.name)
			}
			c.logger.Info("connected", "url", c.url)
			err = c.read(ctx, conn, sink)
			c.loseAll(sink)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if c.opts.Retry < 0 {
				return err
			}
			sink.OnSourceError(c.name, err)
		}
		first = false

		timer := time.NewTimer(c.opts.Retry)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// read consumes messages until the connection fails or ctx is cancelled.
func (c *Client) read(ctx context.Context, conn *websocket.Conn, sink source.Sink) error {
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		var rec wire.Record
		if err := conn.ReadJSON(&rec); err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) && closeErr.Code == websocket.CloseNormalClosure {
				return fmt.Errorf("peer closed the stream")
			}
			return fmt.Errorf("read: %w", err)
		}

		switch rec.Type {
		case wire.TypeFrame:
			c.seq++
			if rec.Seq == 0 {
				rec.Seq = c.seq
			}
			if rec.Timestamp.IsZero() {
				rec.Timestamp = time.Now()
			}
			f, err := rec.Frame(c.name)
			if err != nil {
				sink.OnSourceError(c.name, err)
				continue
			}
			c.bodies[f.BodyID()] = struct{}{}
			sink.OnFrame(f)
		case wire.TypeLost:
			delete(c.bodies, rec.BodyID)
			sink.OnSourceLost(c.name, rec.BodyID)
		case wire.TypeError:
			sink.OnSourceError(c.name, errors.New(rec.Message))
		default:
			c.logger.Debug("ignoring message", "type", rec.Type)
		}
	}
}

func (c *Client) loseAll(sink source.Sink) {
	for id := range c.bodies {
		delete(c.bodies, id)
		sink.OnSourceLost(c.name, id)
	}
}
