// Package httphost exposes the modules of a bridge.AppContext over a small
// JSON HTTP API.
package httphost

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/GoCodeAlone/bridge"
	"github.com/GoCodeAlone/bridge/lifecycle"
)

// Error kinds reported for failures outside the bridge taxonomy.
const (
	ErrorKindBadRequest = "bad_request"
	ErrorKindLifecycle  = "invalid_lifecycle"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// InvokeRequest is the body of a method call.
type InvokeRequest struct {
	Args []any `json:"args"`
}

// InvokeResponse carries a method result.
type InvokeResponse struct {
	Result any `json:"result"`
}

// ListenersRequest changes an event's listener count by Delta.
type ListenersRequest struct {
	Delta int `json:"delta"`
}

// ListenersResponse reports an event's listener state after a change.
type ListenersResponse struct {
	Module    string `json:"module"`
	Event     string `json:"event"`
	Listeners int    `json:"listeners"`
	Observing string `json:"observing"`
}

// LifecycleResponse acknowledges a broadcast lifecycle transition.
type LifecycleResponse struct {
	Kind lifecycle.Kind `json:"kind"`
}

// Handler serves the API for one app context.
type Handler struct {
	ac     *bridge.AppContext
	logger bridge.Logger
}

// NewHandler creates a handler. A nil logger discards everything.
func NewHandler(ac *bridge.AppContext, logger bridge.Logger) *Handler {
	if logger == nil {
		logger = bridge.NopLogger{}
	}
	return &Handler{ac: ac, logger: logger}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Modules
	r.Get("/modules", h.ListModules)
	r.Get("/modules/{module}", h.GetModule)
	r.Post("/modules/{module}/methods/{method}", h.InvokeMethod)
	r.Post("/modules/{module}/events/{event}/listeners", h.ChangeListeners)

	// Lifecycle
	r.Post("/lifecycle/{kind}", h.DispatchLifecycle)
	r.Get("/lifecycle/history", h.LifecycleHistory)

	return r
}

// ListModules describes every registered module.
func (h *Handler) ListModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.ac.Describe())
}

// GetModule describes one module.
func (h *Handler) GetModule(w http.ResponseWriter, r *http.Request) {
	holder, err := h.ac.Module(chi.URLParam(r, "module"))
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, holder.Definition().Describe())
}

// InvokeMethod calls a module method with the request's positional args.
func (h *Handler) InvokeMethod(w http.ResponseWriter, r *http.Request) {
	var req InvokeRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Args == nil {
		req.Args = []any{}
	}
	result, err := h.ac.InvokeMethod(r.Context(), chi.URLParam(r, "module"), chi.URLParam(r, "method"), req.Args)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, InvokeResponse{Result: result})
}

// ChangeListeners applies a listener count delta to a module event.
func (h *Handler) ChangeListeners(w http.ResponseWriter, r *http.Request) {
	var req ListenersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	holder, err := h.ac.Module(chi.URLParam(r, "module"))
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	event := chi.URLParam(r, "event")
	if err := holder.NotifyObserversChanged(r.Context(), event, req.Delta); err != nil {
		h.writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListenersResponse{
		Module:    holder.Name(),
		Event:     event,
		Listeners: holder.ListenerCount(event),
		Observing: holder.ObservingState(event).String(),
	})
}

// DispatchLifecycle broadcasts foreground, active or background.
func (h *Handler) DispatchLifecycle(w http.ResponseWriter, r *http.Request) {
	kind, err := lifecycle.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorKindLifecycle, err.Error())
		return
	}
	if err := h.ac.DispatchLifecycle(r.Context(), kind); err != nil {
		if errors.Is(err, bridge.ErrLifecycleNotBroadcast) {
			writeError(w, http.StatusBadRequest, ErrorKindLifecycle, err.Error())
			return
		}
		h.writeBridgeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, LifecycleResponse{Kind: kind})
}

// LifecycleHistory lists recorded lifecycle dispatches, filtered by the
// kind, source, since (RFC 3339) and limit query parameters.
func (h *Handler) LifecycleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := &lifecycle.QueryCriteria{Sources: q["source"]}
	for _, raw := range q["kind"] {
		kind, err := lifecycle.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorKindBadRequest, err.Error())
			return
		}
		criteria.Kinds = append(criteria.Kinds, kind)
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, ErrorKindBadRequest, "since: "+err.Error())
			return
		}
		criteria.Since = &since
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, ErrorKindBadRequest, "limit must be a non-negative integer")
			return
		}
		criteria.Limit = limit
	}
	events, err := h.ac.LifecycleHistory(r.Context(), criteria)
	if err != nil {
		h.writeBridgeError(w, err)
		return
	}
	if events == nil {
		events = []*lifecycle.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// StatusFor maps an error kind to an HTTP status.
func StatusFor(kind string) int {
	switch kind {
	case bridge.ErrorKindUnknownMethod, bridge.ErrorKindUnknownEvent, bridge.ErrorKindModuleNotFound:
		return http.StatusNotFound
	case bridge.ErrorKindCoercion, bridge.ErrorKindArity, bridge.ErrorKindListenerDelta, bridge.ErrorKindInvalidDefinition:
		return http.StatusBadRequest
	case bridge.ErrorKindInstanceUnavailable, bridge.ErrorKindDuplicateDefinition, bridge.ErrorKindObservingBusy:
		return http.StatusConflict
	case bridge.ErrorKindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeBridgeError(w http.ResponseWriter, err error) {
	kind := bridge.ErrorKind(err)
	status := StatusFor(kind)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", "kind", kind, "error", err)
	}
	writeError(w, status, kind, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, ErrorKindBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, ErrorResponse{Kind: kind, Message: message})
}
