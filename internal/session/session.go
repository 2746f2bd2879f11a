package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/coder/websocket"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
	maxMsgSize = 64 * 1024
	sendBuffer = 256
)

// Session is one client editing one drawing. It owns the drawing's Engine;
// every engine call happens on the goroutine running Serve.
type Session struct {
	hub    *Hub
	engine *engine.Engine
	send   chan []byte
	dirty  bool

	stop context.CancelFunc
	halt context.Context

	DrawingID string
	UserID    string
	ClientID  string
}

func newSession(hub *Hub, drawingID, userID, clientID string) *Session {
	halt, stop := context.WithCancel(context.Background())
	return &Session{
		hub:       hub,
		send:      make(chan []byte, sendBuffer),
		halt:      halt,
		stop:      stop,
		DrawingID: drawingID,
		UserID:    userID,
		ClientID:  clientID,
	}
}

// Serve runs the session over conn until the client disconnects, ctx is
// cancelled or the hub stops. The drawing is saved on the way out if it
// changed since the last save.
func (s *Session) Serve(ctx context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	release := context.AfterFunc(s.halt, cancel)
	defer release()

	defer func() {
		s.hub.Close(s)
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	go s.writePump(ctx, conn)
	s.readPump(ctx, conn)
}

func (s *Session) readPump(ctx context.Context, conn *websocket.Conn) {
	conn.SetReadLimit(maxMsgSize)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
				websocket.CloseStatus(err) == websocket.StatusGoingAway {
				return
			}
			slog.Debug("read error", "error", err, "user", s.UserID)
			return
		}

		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			slog.Warn("invalid message", "error", err, "user", s.UserID)
			s.sendError("invalid message")
			continue
		}

		s.Handle(ctx, &msg)
	}
}

func (s *Session) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-s.send:
			if !ok {
				return
			}

			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				slog.Debug("write error", "error", err, "user", s.UserID)
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}

		case <-ctx.Done():
			return
		}
	}
}

// Handle applies one client message to the engine.
func (s *Session) Handle(ctx context.Context, msg *Message) {
	undo, redo := s.engine.HistoryDepth()
	defer func() {
		if u, r := s.engine.HistoryDepth(); u != undo || r != redo {
			s.dirty = true
		}
	}()

	switch msg.Type {
	case TypePointerDown, TypePointerMove, TypePointerUp:
		var p PointerPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid pointer payload")
			return
		}
		pt := document.Pt(p.X, p.Y)
		if !pt.IsFinite() {
			s.sendError("pointer position must be finite")
			return
		}
		switch msg.Type {
		case TypePointerDown:
			s.engine.PointerDown(pt)
		case TypePointerMove:
			s.engine.PointerMove(pt)
		default:
			s.engine.PointerUp(pt)
		}

	case TypeToolSet:
		var p ToolPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid tool payload")
			return
		}
		tool, err := engine.ParseTool(p.Tool)
		if err != nil {
			s.sendError(err.Error())
			return
		}
		s.engine.SetTool(tool)

	case TypeStyleSet:
		var p StylePayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid style payload")
			return
		}
		if err := s.applyStyle(p); err != nil {
			s.sendError(err.Error())
		}

	case TypeCommand:
		var p CommandPayload
		if err := json.Unmarshal(msg.Payload, &p); err != nil {
			s.sendError("invalid command payload")
			return
		}
		s.command(ctx, p.Name)

	default:
		slog.Warn("unknown message type", "type", msg.Type, "user", s.UserID)
		s.sendError(fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Session) applyStyle(p StylePayload) error {
	if p.StrokeColor != nil {
		c, err := document.ParseColor(*p.StrokeColor)
		if err != nil {
			return err
		}
		s.engine.SetStrokeColor(c)
	}
	if p.FillColor != nil {
		c, err := document.ParseColor(*p.FillColor)
		if err != nil {
			return err
		}
		s.engine.SetFillColor(c)
	}
	if p.StrokeWidth != nil {
		return s.engine.SetStrokeWidth(*p.StrokeWidth)
	}
	return nil
}

func (s *Session) command(ctx context.Context, name string) {
	var applied bool
	switch name {
	case CommandUndo:
		applied = s.engine.Undo()
	case CommandRedo:
		applied = s.engine.Redo()
	case CommandDelete:
		applied = s.engine.DeleteSelection()
	case CommandClear:
		applied = s.engine.Clear()
	case CommandSave:
		applied = s.save(ctx)
	default:
		s.sendError(fmt.Sprintf("unknown command %q", name))
		return
	}
	if !applied {
		s.Send(TypeState, StatePayload{
			View:   s.engine.View(),
			Result: &CommandResult{Name: name, Applied: false},
		})
	}
}

// save persists the drawing. An empty drawing is not saved and reports false.
func (s *Session) save(ctx context.Context) bool {
	var buf bytes.Buffer
	if err := s.engine.Save(&buf); err != nil {
		if errors.Is(err, engine.ErrEmptyDrawing) {
			return false
		}
		s.sendError("save failed")
		return true
	}
	if err := s.hub.save(ctx, s.DrawingID, buf.Bytes()); err != nil {
		slog.Error("save drawing failed", "error", err, "drawing", s.DrawingID)
		s.sendError("save failed")
		return true
	}
	s.dirty = false
	s.Send(TypeSaved, SavedPayload{ShapeCount: len(s.engine.Shapes()), Size: buf.Len()})
	return true
}

func (s *Session) publish(v engine.View) {
	s.Send(TypeState, StatePayload{View: v})
}

func (s *Session) sendError(message string) {
	s.Send(TypeError, ErrorPayload{Message: message})
}

// Send queues a message for the client. A full buffer drops the message.
func (s *Session) Send(msgType string, payload interface{}) {
	raw, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal payload", "error", err)
		return
	}
	data, err := json.Marshal(&Message{
		Type:      msgType,
		DrawingID: s.DrawingID,
		ClientID:  s.ClientID,
		Payload:   raw,
	})
	if err != nil {
		slog.Error("marshal message", "error", err)
		return
	}

	select {
	case s.send <- data:
	default:
		slog.Warn("client send buffer full, dropping message", "user", s.UserID)
	}
}
