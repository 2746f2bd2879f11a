package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mydraw/mydraw/internal/auth"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/drawing"
)

// Loader returns the shapes of a drawing the user may read.
type Loader func(ctx context.Context, drawingID, userID string) ([]document.Shape, error)

type Handler struct {
	load     Loader
	defaults Options
}

func NewHandler(load Loader, defaults Options) *Handler {
	return &Handler{load: load, defaults: defaults}
}

// Export serves GET /api/drawings/{drawingId}/export?format=png|pdf|thumb&width=&height=.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	drawingID := mux.Vars(r)["drawingId"]
	q := r.URL.Query()

	format := FormatPNG
	if v := q.Get("format"); v != "" {
		f, err := ParseFormat(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		format = f
	}

	opts := h.defaults
	for _, dim := range []struct {
		key string
		dst *int
	}{{"width", &opts.Width}, {"height", &opts.Height}} {
		v := q.Get(dim.key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid " + dim.key})
			return
		}
		*dim.dst = n
	}
	if err := opts.validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	shapes, err := h.load(r.Context(), drawingID, userID)
	if err != nil {
		switch {
		case errors.Is(err, drawing.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "drawing not found"})
		case errors.Is(err, drawing.ErrForbidden):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden"})
		default:
			slog.Error("load drawing for export failed", "error", err, "drawing", drawingID)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		}
		return
	}

	var buf bytes.Buffer
	if err := Write(&buf, format, shapes, opts); err != nil {
		slog.Error("export failed", "error", err, "drawing", drawingID, "format", format)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "export failed"})
		return
	}

	slog.Info("drawing exported", "drawing", drawingID, "format", format, "shapes", len(shapes), "size", buf.Len())

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", drawingID+format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.Write(buf.Bytes())
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
