package wsclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/ayusman/mudra/internal/skeleton"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/source/wire"
)

type collector struct {
	frames []skeleton.Frame
	lost   []uint64
	errs   []error
	ready  int
}

func (c *collector) OnFrame(f skeleton.Frame) { c.frames = append(c.frames, f) }

func (c *collector) OnSourceReady(string) { c.ready++ }

func (c *collector) OnSourceLost(_ string, id uint64) { c.lost = append(c.lost, id) }

func (c *collector) OnSourceError(_ string, err error) { c.errs = append(c.errs, err) }

// peer serves the given messages to each client and then closes normally.
func peer(t *testing.T, messages ...any) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		for _, m := range messages {
			if s, ok := m.(string); ok {
				conn.WriteMessage(websocket.TextMessage, []byte(s))
				continue
			}
			if err := conn.WriteJSON(m); err != nil {
				t.Errorf("write: %v", err)
				return
			}
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.ReadMessage()
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestClient_ReceivesFrames(t *testing.T) {
	f := skeleton.NeutralPose().Frame(skeleton.FrameInfo{Seq: 10, BodyID: 3})
	srv := peer(t,
		wire.FromFrame(f),
		`{"type":"frame","body":3,"joints":[{"type":"hand-right","x":0.5,"y":1.3,"z":2}]}`,
		`{"type":"frame","body":3,"joints":[{"type":"wing","x":0,"y":0,"z":0}]}`,
		wire.Lost(3),
		`{"type":"frame","body":8,"joints":[]}`,
	)
	defer srv.Close()

	c := New("peer", wsURL(srv), Options{Retry: -1})
	var col collector
	err := c.Run(context.Background(), &col)
	if err == nil || !strings.Contains(err.Error(), "peer closed") {
		t.Fatalf("Run() error = %v, want the closed stream", err)
	}

	if col.ready != 1 {
		t.Errorf("ready = %d, want 1", col.ready)
	}
	if len(col.frames) != 3 {
		t.Fatalf("frames = %d, want 3", len(col.frames))
	}
	if col.frames[0].Seq() != 10 || col.frames[0].Source() != "peer" {
		t.Errorf("frame 0 info = %+v", col.frames[0].Info())
	}
	if col.frames[1].Seq() == 0 || col.frames[1].Timestamp().IsZero() {
		t.Errorf("frame without seq should be numbered and stamped: %+v", col.frames[1].Info())
	}
	if _, ok := col.frames[1].Position(skeleton.HandRight, false); !ok {
		t.Error("hand-right missing")
	}
	// Body 3 lost explicitly, body 8 lost on disconnect.
	if len(col.lost) != 2 || col.lost[0] != 3 || col.lost[1] != 8 {
		t.Errorf("lost = %v, want [3 8]", col.lost)
	}
	// Only the unknown joint. The closed stream is the Run error.
	if len(col.errs) != 1 {
		t.Errorf("errors = %v", col.errs)
	}
}

func TestClient_DisconnectCountedOnceByMux(t *testing.T) {
	srv := peer(t, `{"type":"frame","body":3,"joints":[]}`)
	defer srv.Close()

	var col collector
	mux := source.NewMux(&col, source.MuxOptions{})
	mux.Add(New("peer", wsURL(srv), Options{Retry: -1}))
	if err := mux.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if len(col.errs) != 1 {
		t.Errorf("errors reported = %v, want 1", col.errs)
	}
	stats := mux.Stats()
	if len(stats) != 1 || stats[0].Errors != 1 {
		t.Errorf("stats = %+v, want 1 error", stats)
	}
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := wsURL(srv)
	srv.Close()

	c := New("gone", url, Options{})
	err := c.Run(context.Background(), &collector{})
	if !errors.Is(err, source.ErrSourceUnavailable) {
		t.Errorf("Run() error = %v, want ErrSourceUnavailable", err)
	}
	if err := c.Run(context.Background(), &collector{}); !errors.Is(err, source.ErrSourceClosed) {
		t.Errorf("second Run() error = %v, want ErrSourceClosed", err)
	}
}

func TestOpen(t *testing.T) {
	tests := []struct {
		url string
		ok  bool
	}{
		{"ws://localhost:9000/pose", true},
		{"wss://sensor.local/pose", true},
		{"http://localhost:9000", false},
		{"", false},
	}
	for _, tt := range tests {
		_, err := source.Open(source.Config{Kind: Kind, URL: tt.url})
		if tt.ok && err != nil {
			t.Errorf("Open(%q) error = %v", tt.url, err)
		}
		if !tt.ok && !errors.Is(err, source.ErrSourceUnavailable) {
			t.Errorf("Open(%q) error = %v, want ErrSourceUnavailable", tt.url, err)
		}
	}
}
