// Package api provides the HTTP API handlers of the mudra service.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
)

// GestureSyncer keeps the running engine in line with stored gestures.
type GestureSyncer interface {
	ApplyGesture(g *store.Gesture, previous string) error
	RemoveGesture(name string) int
}

// GestureHandler handles HTTP requests for gesture resources.
type GestureHandler struct {
	store  *store.Store
	engine GestureSyncer
}

// NewGestureHandler creates a GestureHandler. engine may be nil, in which
// case changes only reach the store.
func NewGestureHandler(s *store.Store, engine GestureSyncer) *GestureHandler {
	return &GestureHandler{store: s, engine: engine}
}

// ServeHTTP routes /api/gestures and /api/gestures/{id}.
func (h *GestureHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/gestures")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodPut:
		h.update(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type gestureRequest struct {
	Definition *gesture.Definition `json:"definition"`
	Enabled    *bool               `json:"enabled"`
}

type gestureResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Builtin     bool               `json:"builtin"`
	Enabled     bool               `json:"enabled"`
	Definition  gesture.Definition `json:"definition"`
	CreatedAt   string             `json:"created_at"`
	UpdatedAt   string             `json:"updated_at"`
}

type listGesturesResponse struct {
	Gestures []gestureResponse `json:"gestures"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(g *store.Gesture) gestureResponse {
	return gestureResponse{
		ID:          g.ID,
		Name:        g.Name(),
		Description: g.Definition.Description,
		Builtin:     g.Builtin,
		Enabled:     g.Enabled,
		Definition:  g.Definition,
		CreatedAt:   g.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   g.UpdatedAt.Format(time.RFC3339),
	}
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func (h *GestureHandler) list(w http.ResponseWriter, r *http.Request) {
	gestures, err := h.store.Gestures().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list gestures")
		return
	}

	response := listGesturesResponse{
		Gestures: make([]gestureResponse, 0, len(gestures)),
	}
	for _, g := range gestures {
		response.Gestures = append(response.Gestures, toResponse(g))
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *GestureHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}
	writeJSON(w, http.StatusOK, toResponse(g))
}

func (h *GestureHandler) create(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Definition == nil || req.Definition.Name == "" {
		writeError(w, http.StatusBadRequest, "definition.name is required")
		return
	}
	if err := req.Definition.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	_, err := h.store.Gestures().GetByName(req.Definition.Name)
	switch {
	case err == nil:
		writeError(w, http.StatusConflict, "A gesture with this name already exists")
		return
	case !errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusInternalServerError, "Failed to check gesture name")
		return
	}

	g := &store.Gesture{
		ID:         uuid.NewString(),
		Definition: *req.Definition,
		Enabled:    req.Enabled == nil || *req.Enabled,
	}
	if err := h.store.Gestures().Create(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create gesture")
		return
	}
	if !h.apply(w, g, "") {
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(g))
}

func (h *GestureHandler) update(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}

	var req gestureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	previous := g.Name()
	if req.Definition != nil {
		if g.Builtin && req.Definition.Name != previous {
			writeError(w, http.StatusConflict, "Bundled gestures cannot be renamed")
			return
		}
		if err := req.Definition.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if req.Definition.Name != previous {
			if _, err := h.store.Gestures().GetByName(req.Definition.Name); err == nil {
				writeError(w, http.StatusConflict, "A gesture with this name already exists")
				return
			}
		}
		g.Definition = *req.Definition
	}
	if req.Enabled != nil {
		g.Enabled = *req.Enabled
	}

	if err := h.store.Gestures().Update(g); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to update gesture")
		return
	}
	if !h.apply(w, g, previous) {
		return
	}
	writeJSON(w, http.StatusOK, toResponse(g))
}

// delete removes a user gesture. Bundled gestures are seeded again on
// startup, so they can only be disabled.
func (h *GestureHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	g, err := h.store.Gestures().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Gesture not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get gesture")
		return
	}
	if g.Builtin {
		writeError(w, http.StatusConflict, "Bundled gestures can be disabled but not deleted")
		return
	}

	if err := h.store.Gestures().Delete(id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete gesture")
		return
	}
	if h.engine != nil {
		h.engine.RemoveGesture(g.Name())
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GestureHandler) apply(w http.ResponseWriter, g *store.Gesture, previous string) bool {
	if h.engine == nil {
		return true
	}
	if err := h.engine.ApplyGesture(g, previous); err != nil {
		writeError(w, http.StatusInternalServerError, "Stored gesture could not be registered: "+err.Error())
		return false
	}
	return true
}
