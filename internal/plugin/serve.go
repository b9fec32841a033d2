package plugin

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Handler performs one plugin action. The returned data, if any, is sent
// back in Response.Data.
type Handler func(req *Request) (any, error)

// Serve reads one Request from r, runs the handler registered for its
// action and writes the Response to w. Plugin executables call it from main.
func Serve(r io.Reader, w io.Writer, handlers map[string]Handler) error {
	var req Request
	if err := json.NewDecoder(r).Decode(&req); err != nil {
		return reply(w, nil, fmt.Errorf("decode request: %w", err))
	}

	handler, ok := handlers[req.Action]
	if !ok {
		return reply(w, nil, fmt.Errorf("unknown action: %s", req.Action))
	}

	data, err := handler(&req)
	if err != nil {
		return reply(w, nil, fmt.Errorf("action %s failed: %w", req.Action, err))
	}
	return reply(w, data, nil)
}

// Main runs Serve on the process's standard streams.
func Main(handlers map[string]Handler) {
	if err := Serve(os.Stdin, os.Stdout, handlers); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func reply(w io.Writer, data any, err error) error {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	if data != nil {
		raw, merr := json.Marshal(data)
		if merr != nil {
			resp = Response{Error: fmt.Sprintf("encode result: %v", merr)}
		} else {
			resp.Data = raw
		}
	}
	return json.NewEncoder(w).Encode(resp)
}
