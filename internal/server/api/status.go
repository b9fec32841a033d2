package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/source"
	"github.com/ayusman/mudra/internal/store"
)

// MaxRecognitions caps the limit parameter of the recognition log.
const MaxRecognitions = 500

// RecognitionHandler serves GET /api/recognitions.
type RecognitionHandler struct {
	store *store.Store
}

// NewRecognitionHandler creates a RecognitionHandler.
func NewRecognitionHandler(s *store.Store) *RecognitionHandler {
	return &RecognitionHandler{store: s}
}

type listRecognitionsResponse struct {
	Recognitions []*store.Recognition `json:"recognitions"`
}

// ServeHTTP returns the newest log entries. Query parameters: limit and
// gesture.
func (h *RecognitionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, MaxRecognitions)
	}

	recs, err := h.store.Recognitions().Recent(limit, r.URL.Query().Get("gesture"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list recognitions")
		return
	}
	if recs == nil {
		recs = []*store.Recognition{}
	}
	writeJSON(w, http.StatusOK, listRecognitionsResponse{Recognitions: recs})
}

// SourceReporter describes the configured pose sources.
type SourceReporter interface {
	Availability() []source.Availability
	SourceStats() []source.Stats
}

// SourcesHandler serves GET /api/sources.
type SourcesHandler struct {
	sources SourceReporter
}

// NewSourcesHandler creates a SourcesHandler.
func NewSourcesHandler(sources SourceReporter) *SourcesHandler {
	return &SourcesHandler{sources: sources}
}

type sourcesResponse struct {
	Configured []source.Availability `json:"configured"`
	Running    []source.Stats        `json:"running"`
}

func (h *SourcesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	resp := sourcesResponse{
		Configured: h.sources.Availability(),
		Running:    h.sources.SourceStats(),
	}
	if resp.Configured == nil {
		resp.Configured = []source.Availability{}
	}
	if resp.Running == nil {
		resp.Running = []source.Stats{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// PluginsHandler serves GET /api/plugins and POST /api/plugins/discover.
type PluginsHandler struct {
	plugins *plugin.Manager
}

// NewPluginsHandler creates a PluginsHandler.
func NewPluginsHandler(m *plugin.Manager) *PluginsHandler {
	return &PluginsHandler{plugins: m}
}

type pluginResponse struct {
	Name        string          `json:"name"`
	Version     string          `json:"version"`
	Description string          `json:"description,omitempty"`
	Actions     []string        `json:"actions"`
	Schema      json.RawMessage `json:"config_schema,omitempty"`
}

type listPluginsResponse struct {
	Plugins []pluginResponse `json:"plugins"`
}

func (h *PluginsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/plugins/discover" && r.Method == http.MethodPost:
		if err := h.plugins.Discover(); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to discover plugins: "+err.Error())
			return
		}
		h.list(w)
	case r.URL.Path == "/api/plugins" && r.Method == http.MethodGet:
		h.list(w)
	case r.URL.Path == "/api/plugins" || r.URL.Path == "/api/plugins/discover":
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *PluginsHandler) list(w http.ResponseWriter) {
	plugins := h.plugins.List()
	resp := listPluginsResponse{Plugins: make([]pluginResponse, 0, len(plugins))}
	for _, p := range plugins {
		pr := pluginResponse{
			Name:        p.Manifest.Name,
			Version:     p.Manifest.Version,
			Description: p.Manifest.Description,
			Actions:     p.Manifest.Actions,
		}
		if pr.Actions == nil {
			pr.Actions = []string{}
		}
		if p.Manifest.ConfigSchema != nil {
			if data, err := json.Marshal(p.Manifest.ConfigSchema); err == nil {
				pr.Schema = data
			}
		}
		resp.Plugins = append(resp.Plugins, pr)
	}
	writeJSON(w, http.StatusOK, resp)
}

// Toggler switches recognition on and off.
type Toggler interface {
	Enabled() bool
	SetEnabled(enabled bool) error
}

// EngineHandler serves GET and PUT /api/engine.
type EngineHandler struct {
	engine Toggler
}

// NewEngineHandler creates an EngineHandler.
func NewEngineHandler(t Toggler) *EngineHandler {
	return &EngineHandler{engine: t}
}

type engineState struct {
	Enabled *bool `json:"enabled"`
}

func (h *EngineHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req engineState
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if req.Enabled == nil {
			writeError(w, http.StatusBadRequest, "enabled is required")
			return
		}
		if err := h.engine.SetEnabled(*req.Enabled); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to save engine state")
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	enabled := h.engine.Enabled()
	writeJSON(w, http.StatusOK, engineState{Enabled: &enabled})
}
