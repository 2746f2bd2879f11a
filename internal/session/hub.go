package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

var (
	// ErrDrawingBusy is returned when a drawing already has an open session.
	ErrDrawingBusy = errors.New("drawing is open in another session")
	ErrHubStopped  = errors.New("session hub stopped")
)

const saveTimeout = 10 * time.Second

// Loader reads a drawing's shapes; Saver stores an encoded .mydraw container.
type (
	Loader func(ctx context.Context, drawingID string) ([]document.Shape, error)
	Saver  func(ctx context.Context, drawingID string, content []byte) error
)

// Hub tracks the open sessions and allows at most one per drawing.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]*Session // drawingID -> session
	stopped  bool
	wg       sync.WaitGroup

	load Loader
	save Saver
}

func NewHub(load Loader, save Saver) *Hub {
	return &Hub{
		sessions: make(map[string]*Session),
		load:     load,
		save:     save,
	}
}

// Open claims drawingID for a new session and loads its shapes.
func (h *Hub) Open(ctx context.Context, drawingID, userID, clientID string) (*Session, error) {
	s := newSession(h, drawingID, userID, clientID)

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil, ErrHubStopped
	}
	if _, busy := h.sessions[drawingID]; busy {
		h.mu.Unlock()
		return nil, ErrDrawingBusy
	}
	h.sessions[drawingID] = s
	h.wg.Add(1)
	h.mu.Unlock()

	shapes, err := h.load(ctx, drawingID)

	h.mu.Lock()
	if err == nil && h.stopped {
		err = ErrHubStopped
	}
	if err != nil {
		delete(h.sessions, drawingID)
		h.mu.Unlock()
		h.wg.Done()
		if errors.Is(err, ErrHubStopped) {
			return nil, err
		}
		return nil, fmt.Errorf("load drawing: %w", err)
	}
	h.mu.Unlock()

	s.engine = engine.NewEngine(
		engine.WithShapes(shapes),
		engine.WithListener(s.publish),
	)

	s.Send(TypeWelcome, WelcomePayload{
		ClientID:  clientID,
		DrawingID: drawingID,
		View:      s.engine.View(),
	})

	slog.Info("session opened", "user", userID, "drawing", drawingID, "shapes", len(shapes))
	return s, nil
}

// Close releases the session's drawing, saving it first if it changed.
func (h *Hub) Close(s *Session) {
	h.mu.Lock()
	if h.sessions[s.DrawingID] != s {
		h.mu.Unlock()
		return
	}
	delete(h.sessions, s.DrawingID)
	h.mu.Unlock()
	defer h.wg.Done()

	s.stop()
	close(s.send)

	if s.dirty {
		ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
		defer cancel()
		if err := h.save(ctx, s.DrawingID, codec.Encode(s.engine.Shapes())); err != nil {
			slog.Error("save on close failed", "error", err, "drawing", s.DrawingID)
		} else {
			s.dirty = false
		}
	}

	slog.Info("session closed", "user", s.UserID, "drawing", s.DrawingID)
}

// IsOpen reports whether drawingID has a live session.
func (h *Hub) IsOpen(drawingID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.sessions[drawingID]
	return ok
}

// Stop refuses new sessions, asks every open session to finish and waits
// for them to save, or for ctx to expire.
func (h *Hub) Stop(ctx context.Context) error {
	h.mu.Lock()
	h.stopped = true
	open := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		open = append(open, s)
	}
	h.mu.Unlock()

	for _, s := range open {
		s.stop()
	}

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
