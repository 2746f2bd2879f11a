package drawing

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"github.com/mydraw/mydraw/internal/auth"
	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/session"
)

type Handler struct {
	service        *Service
	maxUploadBytes int64
	isOpen         func(drawingID string) bool
}

type HandlerOption func(*Handler)

// WithOpenCheck makes Upload and Delete refuse drawings for which isOpen
// reports a live editing session.
func WithOpenCheck(isOpen func(drawingID string) bool) HandlerOption {
	return func(h *Handler) { h.isOpen = isOpen }
}

func NewHandler(service *Service, maxUploadBytes int64, opts ...HandlerOption) *Handler {
	h := &Handler{service: service, maxUploadBytes: maxUploadBytes}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// writable reports whether the drawing may be replaced or deleted, writing
// the error response when it may not.
func (h *Handler) writable(w http.ResponseWriter, r *http.Request, drawingID, userID string) bool {
	if h.isOpen == nil || !h.isOpen(drawingID) {
		return true
	}
	if _, err := h.service.Get(r.Context(), drawingID, userID); err != nil {
		handleServiceError(w, "check drawing", err)
		return false
	}
	writeJSON(w, http.StatusConflict, map[string]string{"error": session.ErrDrawingBusy.Error()})
	return false
}

type createRequest struct {
	Name string `json:"name"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	d, err := h.service.Create(r.Context(), req.Name, userID)
	if err != nil {
		handleServiceError(w, "create drawing", err)
		return
	}

	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	d, err := h.service.Get(r.Context(), drawingID, userID)
	if err != nil {
		handleServiceError(w, "get drawing", err)
		return
	}

	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	drawings, err := h.service.List(r.Context(), userID)
	if err != nil {
		handleServiceError(w, "list drawings", err)
		return
	}

	writeJSON(w, http.StatusOK, drawings)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]
	if !h.writable(w, r, drawingID, userID) {
		return
	}

	if err := h.service.Delete(r.Context(), drawingID, userID); err != nil {
		handleServiceError(w, "delete drawing", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Download serves the stored .mydraw file.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]

	data, d, err := h.service.File(r.Context(), drawingID, userID)
	if err != nil {
		handleServiceError(w, "download drawing", err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", fileName(d.Name)))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

// Upload replaces a drawing with the .mydraw file in the request body.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]
	if !h.writable(w, r, drawingID, userID) {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUploadBytes))
	if err != nil {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "file too large"})
		return
	}

	result, err := h.service.ReplaceFile(r.Context(), drawingID, userID, data)
	if err != nil {
		handleServiceError(w, "replace drawing", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Import creates a drawing from a multipart "file" upload.
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file too large or invalid form"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing file field"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		slog.Error("read upload failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read file"})
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(header.Filename), filepath.Ext(header.Filename))
	}

	result, err := h.service.Import(r.Context(), userID, name, data)
	if err != nil {
		handleServiceError(w, "import drawing", err)
		return
	}

	slog.Info("drawing imported",
		"drawing", result.Drawing.ID,
		"loaded", result.Loaded,
		"skipped", result.Skipped,
		"truncated", result.Truncated,
	)
	writeJSON(w, http.StatusCreated, result)
}

func fileName(name string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || r == '"' || r < 0x20 {
			return '_'
		}
		return r
	}, name)
	return clean + codec.Extension
}

func handleServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "drawing not found"})
	case errors.Is(err, ErrForbidden):
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
	case errors.Is(err, ErrInvalidName):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, codec.ErrFormat):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		slog.Error(op+" failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
