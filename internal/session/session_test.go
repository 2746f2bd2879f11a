package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/document"
)

type memDrawings struct {
	mu    sync.Mutex
	files map[string][]byte
	saves int
}

func newMemDrawings() *memDrawings {
	return &memDrawings{files: map[string][]byte{"drw_a": codec.Encode(nil)}}
}

func (m *memDrawings) load(_ context.Context, id string) ([]document.Shape, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.files[id]
	if !ok {
		return nil, errors.New("no such drawing")
	}
	report, err := codec.Decode(data)
	return report.Shapes, err
}

func (m *memDrawings) save(_ context.Context, id string, content []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[id] = content
	m.saves++
	return nil
}

func (m *memDrawings) stored(t *testing.T, id string) []document.Shape {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	report, err := codec.Decode(m.files[id])
	if err != nil {
		t.Fatalf("stored drawing does not decode: %v", err)
	}
	return report.Shapes
}

func newTestHub() (*Hub, *memDrawings) {
	store := newMemDrawings()
	return NewHub(store.load, store.save), store
}

func msg(t *testing.T, typ string, payload interface{}) *Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return &Message{Type: typ, Payload: raw}
}

// drain returns the queued outgoing messages.
func drain(s *Session) []Message {
	var out []Message
	for {
		select {
		case data := <-s.send:
			var m Message
			json.Unmarshal(data, &m)
			out = append(out, m)
		default:
			return out
		}
	}
}

func last(t *testing.T, msgs []Message) Message {
	t.Helper()
	if len(msgs) == 0 {
		t.Fatal("no messages queued")
	}
	return msgs[len(msgs)-1]
}

func drawRect(t *testing.T, s *Session) {
	ctx := context.Background()
	s.Handle(ctx, msg(t, TypeToolSet, ToolPayload{Tool: "rectangle"}))
	s.Handle(ctx, msg(t, TypePointerDown, PointerPayload{X: 10, Y: 10}))
	s.Handle(ctx, msg(t, TypePointerMove, PointerPayload{X: 60, Y: 40}))
	s.Handle(ctx, msg(t, TypePointerUp, PointerPayload{X: 100, Y: 50}))
}

func TestOneSessionPerDrawing(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()

	s, err := h.Open(ctx, "drw_a", "user_a", "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.Open(ctx, "drw_a", "user_a", "c2"); !errors.Is(err, ErrDrawingBusy) {
		t.Fatalf("second Open = %v, want ErrDrawingBusy", err)
	}
	h.Close(s)
	if h.IsOpen("drw_a") {
		t.Fatal("drawing still open after Close")
	}
	s2, err := h.Open(ctx, "drw_a", "user_a", "c3")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	h.Close(s2)
}

func TestOpenLoadFailureReleasesDrawing(t *testing.T) {
	h, _ := newTestHub()
	if _, err := h.Open(context.Background(), "drw_missing", "user_a", "c1"); err == nil {
		t.Fatal("Open of a missing drawing succeeded")
	}
	if h.IsOpen("drw_missing") {
		t.Fatal("failed open kept the drawing claimed")
	}
}

func TestWelcomeCarriesView(t *testing.T) {
	h, _ := newTestHub()
	s, _ := h.Open(context.Background(), "drw_a", "user_a", "c1")
	defer h.Close(s)

	msgs := drain(s)
	if len(msgs) != 1 || msgs[0].Type != TypeWelcome {
		t.Fatalf("messages = %+v", msgs)
	}
	var w WelcomePayload
	if err := json.Unmarshal(msgs[0].Payload, &w); err != nil {
		t.Fatal(err)
	}
	if w.ClientID != "c1" || w.View.Tool != "select" {
		t.Fatalf("welcome = %+v", w)
	}
}

func TestPointerMessagesDriveEngine(t *testing.T) {
	h, store := newTestHub()
	s, _ := h.Open(context.Background(), "drw_a", "user_a", "c1")
	drain(s)

	drawRect(t, s)
	m := last(t, drain(s))
	if m.Type != TypeState {
		t.Fatalf("last message = %s", m.Type)
	}
	var st StatePayload
	json.Unmarshal(m.Payload, &st)
	if len(st.View.Shapes) != 1 || !st.View.CanUndo {
		t.Fatalf("view after draw = %+v", st.View)
	}

	h.Close(s)
	if got := store.stored(t, "drw_a"); len(got) != 1 {
		t.Fatalf("close saved %d shapes, want 1", len(got))
	}
}

func TestSaveCommand(t *testing.T) {
	h, store := newTestHub()
	ctx := context.Background()
	s, _ := h.Open(ctx, "drw_a", "user_a", "c1")
	drain(s)

	s.Handle(ctx, msg(t, TypeCommand, CommandPayload{Name: CommandSave}))
	m := last(t, drain(s))
	var st StatePayload
	json.Unmarshal(m.Payload, &st)
	if m.Type != TypeState || st.Result == nil || st.Result.Applied {
		t.Fatalf("empty save = %s %+v", m.Type, st.Result)
	}
	if store.saves != 0 {
		t.Fatal("empty drawing was saved")
	}

	drawRect(t, s)
	s.Handle(ctx, msg(t, TypeCommand, CommandPayload{Name: CommandSave}))
	m = last(t, drain(s))
	if m.Type != TypeSaved {
		t.Fatalf("save reply = %s", m.Type)
	}
	var saved SavedPayload
	json.Unmarshal(m.Payload, &saved)
	if saved.ShapeCount != 1 || saved.Size != codec.HeaderSize+codec.FixedRecordSize {
		t.Fatalf("saved = %+v", saved)
	}

	h.Close(s)
	if store.saves != 1 {
		t.Fatalf("clean session saved again on close (%d saves)", store.saves)
	}
}

func TestCommandsReportEmptyOperations(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()
	s, _ := h.Open(ctx, "drw_a", "user_a", "c1")
	defer h.Close(s)
	drain(s)

	for _, name := range []string{CommandUndo, CommandRedo, CommandDelete, CommandClear} {
		s.Handle(ctx, msg(t, TypeCommand, CommandPayload{Name: name}))
		var st StatePayload
		json.Unmarshal(last(t, drain(s)).Payload, &st)
		if st.Result == nil || st.Result.Name != name || st.Result.Applied {
			t.Errorf("%s on empty drawing = %+v", name, st.Result)
		}
	}

	drawRect(t, s)
	drain(s)
	s.Handle(ctx, msg(t, TypeCommand, CommandPayload{Name: CommandUndo}))
	var st StatePayload
	json.Unmarshal(last(t, drain(s)).Payload, &st)
	if st.Result != nil || len(st.View.Shapes) != 0 || !st.View.CanRedo {
		t.Fatalf("undo view = %+v", st)
	}
}

func TestInvalidMessages(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()
	s, _ := h.Open(ctx, "drw_a", "user_a", "c1")
	defer h.Close(s)
	drain(s)

	width := float32(-1)
	bad := "chartreuse"
	cases := []*Message{
		{Type: "teleport"},
		{Type: TypePointerDown, Payload: json.RawMessage(`"nope"`)},
		msg(t, TypeToolSet, ToolPayload{Tool: "lasso"}),
		msg(t, TypeStyleSet, StylePayload{StrokeWidth: &width}),
		msg(t, TypeStyleSet, StylePayload{FillColor: &bad}),
		msg(t, TypeCommand, CommandPayload{Name: "explode"}),
	}
	for _, m := range cases {
		s.Handle(ctx, m)
		if got := last(t, drain(s)); got.Type != TypeError {
			t.Errorf("%s %s answered with %s", m.Type, m.Payload, got.Type)
		}
	}
}

func TestStyleSet(t *testing.T) {
	h, _ := newTestHub()
	ctx := context.Background()
	s, _ := h.Open(ctx, "drw_a", "user_a", "c1")
	defer h.Close(s)

	stroke, fill, width := "#FF0000", "#8000FF00", float32(3)
	s.Handle(ctx, msg(t, TypeStyleSet, StylePayload{StrokeColor: &stroke, FillColor: &fill, StrokeWidth: &width}))
	style := s.engine.Style()
	if style.StrokeColor != document.ARGB(0xFF, 0xFF, 0, 0) ||
		style.FillColor != document.ARGB(0x80, 0, 0xFF, 0) ||
		style.StrokeWidth != 3 {
		t.Fatalf("style = %+v", style)
	}
}

func TestStopRefusesNewSessions(t *testing.T) {
	h, _ := newTestHub()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := h.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if _, err := h.Open(ctx, "drw_a", "user_a", "c1"); !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Open after Stop = %v", err)
	}
}

func TestStopWaitsForDrawingBeingLoaded(t *testing.T) {
	entered, release := make(chan struct{}), make(chan struct{})
	load := func(context.Context, string) ([]document.Shape, error) {
		close(entered)
		<-release
		return nil, nil
	}
	h := NewHub(load, func(context.Context, string, []byte) error { return nil })

	opened := make(chan error, 1)
	go func() {
		_, err := h.Open(context.Background(), "drw_a", "user_a", "c1")
		opened <- err
	}()
	<-entered

	stopped := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		stopped <- h.Stop(ctx)
	}()

	select {
	case err := <-stopped:
		t.Fatalf("Stop returned %v while a drawing was still loading", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	if err := <-opened; !errors.Is(err, ErrHubStopped) {
		t.Fatalf("Open finishing after Stop = %v, want ErrHubStopped", err)
	}
	if err := <-stopped; err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if h.IsOpen("drw_a") {
		t.Fatal("drawing still claimed after Stop")
	}
}

func TestServeOverWebsocket(t *testing.T) {
	h, store := newTestHub()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, err := h.Open(r.Context(), "drw_a", "user_a", "c1")
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			h.Close(s)
			return
		}
		s.Serve(r.Context(), conn)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.CloseNow()

	var welcome Message
	if err := wsjson.Read(ctx, conn, &welcome); err != nil || welcome.Type != TypeWelcome {
		t.Fatalf("first message = %+v, %v", welcome, err)
	}

	for _, m := range []*Message{
		msg(t, TypeToolSet, ToolPayload{Tool: "circle"}),
		msg(t, TypePointerDown, PointerPayload{X: 50, Y: 50}),
		msg(t, TypePointerUp, PointerPayload{X: 60, Y: 50}),
		msg(t, TypeCommand, CommandPayload{Name: CommandSave}),
	} {
		if err := wsjson.Write(ctx, conn, m); err != nil {
			t.Fatalf("write %s: %v", m.Type, err)
		}
	}

	for {
		var m Message
		if err := wsjson.Read(ctx, conn, &m); err != nil {
			t.Fatalf("read: %v", err)
		}
		if m.Type == TypeError {
			t.Fatalf("server error: %s", m.Payload)
		}
		if m.Type == TypeSaved {
			break
		}
	}

	got := store.stored(t, "drw_a")
	if len(got) != 1 || got[0].Kind != document.KindCircle || got[0].Radius() != 10 {
		t.Fatalf("stored = %+v", got)
	}
	conn.Close(websocket.StatusNormalClosure, "")
}
