package web

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/debug"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/shade"
	"github.com/UniversalDevicesInc-PG3/udi-somfy-poly/internal/logic/urts"
)

// maxBodyBytes bounds POST bodies; commands are a few dozen bytes.
const maxBodyBytes = 4 << 10

// ShadeService is what the handlers need from the shade controller.
type ShadeService interface {
	Shades() []*shade.Shade
	Shade(address string) (*shade.Shade, error)
	Dispatch(address string, cmd shade.Command) (shade.Status, error)
	Connected() bool
}

// CommandRequest is the body of POST /shades/{addr}/command.
type CommandRequest struct {
	Command string `json:"command"`
	Value   string `json:"value,omitempty"`
}

// ShadeList is the body of GET /shades.
type ShadeList struct {
	Connected bool           `json:"connected"`
	Shades    []shade.Status `json:"shades"`
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	Broadcaster *StatusBroadcaster
	Shades      ShadeService
	staticFS    fs.FS
}

// NewHandlers creates handlers with the given dependencies.
func NewHandlers(broadcaster *StatusBroadcaster, shades ShadeService, staticFS fs.FS) *Handlers {
	return &Handlers{
		Broadcaster: broadcaster,
		Shades:      shades,
		staticFS:    staticFS,
	}
}

// ServeIndex serves the main HTML page (root path only).
func (h *Handlers) ServeIndex(w http.ResponseWriter, r *http.Request) {
	data, err := fs.ReadFile(h.staticFS, "index.html")
	if err != nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(data)
}

// HandleList handles GET /shades.
func (h *Handlers) HandleList(w http.ResponseWriter, r *http.Request) {
	shades := h.Shades.Shades()
	list := ShadeList{Connected: h.Shades.Connected(), Shades: make([]shade.Status, 0, len(shades))}
	for _, s := range shades {
		list.Shades = append(list.Shades, s.Status())
	}
	writeJSON(w, http.StatusOK, list)
}

// HandleShade handles GET /shades/{addr}.
func (h *Handlers) HandleShade(w http.ResponseWriter, r *http.Request) {
	s, err := h.Shades.Shade(r.PathValue("addr"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Status())
}

// HandleCommand handles POST /shades/{addr}/command.
func (h *Handlers) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}
	cmd, err := shade.ParseCommand(req.Command, req.Value)
	if err != nil {
		writeError(w, err)
		return
	}

	addr := r.PathValue("addr")
	debug.Live("web: %s %s", addr, cmd.Kind)
	st, err := h.Shades.Dispatch(addr, cmd)
	if err != nil {
		h.Broadcaster.Broadcast("error", addr+": "+err.Error())
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleStatusStream handles GET /status/stream for SSE.
func (h *Handlers) HandleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // nginx

	ch, unsub := h.Broadcaster.Subscribe()
	defer unsub()

	// Send initial comment to establish connection
	w.Write([]byte(": connected\n\n"))
	flusher.Flush()

	// Heartbeat while idle
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return
			}
			w.Write([]byte("data: " + msg + "\n\n"))
			flusher.Flush()

		case <-ticker.C:
			w.Write([]byte(": heartbeat\n\n"))
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

// writeError maps shade errors to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, shade.ErrUnknownShade):
		code = http.StatusNotFound
	case errors.Is(err, urts.ErrInvalidAddress),
		errors.Is(err, shade.ErrOutOfRange),
		errors.Is(err, shade.ErrUnknownCommand):
		code = http.StatusBadRequest
	case errors.Is(err, shade.ErrPositionUnknown):
		code = http.StatusConflict
	case errors.Is(err, shade.ErrTransport):
		code = http.StatusBadGateway
	}
	writeJSON(w, code, map[string]string{"error": err.Error()})
}
