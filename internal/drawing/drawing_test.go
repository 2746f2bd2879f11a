package drawing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"github.com/mydraw/mydraw/internal/auth"
	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/db"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/session"
)

type memStore struct {
	mu       sync.Mutex
	drawings map[string]db.Drawing
}

func newMemStore() *memStore { return &memStore{drawings: map[string]db.Drawing{}} }

func (m *memStore) CreateDrawing(_ context.Context, arg db.CreateDrawingParams) (db.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	d := db.Drawing{
		ID: arg.ID, OwnerID: arg.OwnerID, Name: arg.Name,
		Content: arg.Content, ShapeCount: arg.ShapeCount,
		CreatedAt: now, UpdatedAt: now,
	}
	m.drawings[d.ID] = d
	return d, nil
}

func (m *memStore) GetDrawing(_ context.Context, id string) (db.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drawings[id]
	if !ok {
		return db.Drawing{}, pgx.ErrNoRows
	}
	return d, nil
}

func (m *memStore) ListDrawingsForOwner(_ context.Context, ownerID string) ([]db.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.Drawing
	for _, d := range m.drawings {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memStore) UpdateDrawingContent(_ context.Context, arg db.UpdateDrawingContentParams) (db.Drawing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drawings[arg.ID]
	if !ok {
		return db.Drawing{}, pgx.ErrNoRows
	}
	d.Content = arg.Content
	d.ShapeCount = arg.ShapeCount
	d.UpdatedAt = time.Now()
	m.drawings[arg.ID] = d
	return d, nil
}

func (m *memStore) DeleteDrawing(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.drawings, id)
	return nil
}

func TestServiceOwnership(t *testing.T) {
	s := NewService(newMemStore())
	ctx := context.Background()

	d, err := s.Create(ctx, "  sketch ", "user_a")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if d.Name != "sketch" || d.ShapeCount != 0 || d.Size != codec.HeaderSize {
		t.Fatalf("created %+v", d)
	}

	if _, err := s.Get(ctx, d.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Get by stranger = %v", err)
	}
	if _, err := s.Get(ctx, "drw_missing", "user_a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v", err)
	}
	if err := s.Delete(ctx, d.ID, "user_b"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("Delete by stranger = %v", err)
	}
	if err := s.Delete(ctx, d.ID, "user_a"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Create(ctx, "   ", "user_a"); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("blank name = %v", err)
	}
}

func TestServicePersistAndLoad(t *testing.T) {
	s := NewService(newMemStore())
	ctx := context.Background()
	d, _ := s.Create(ctx, "sketch", "user_a")

	shapes := document.NewSampleDrawing()
	if err := s.Persist(ctx, d.ID, codec.Encode(shapes)); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	got, err := s.Load(ctx, d.ID)
	if err != nil || len(got) != len(shapes) {
		t.Fatalf("Load = %d shapes, %v", len(got), err)
	}
	meta, _ := s.Get(ctx, d.ID, "user_a")
	if meta.ShapeCount != len(shapes) {
		t.Fatalf("shape count = %d", meta.ShapeCount)
	}

	if err := s.Persist(ctx, d.ID, []byte("junk")); !errors.Is(err, codec.ErrFormat) {
		t.Fatalf("Persist(junk) = %v", err)
	}
	if err := s.Persist(ctx, "drw_missing", codec.Encode(nil)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Persist(missing) = %v", err)
	}
}

func TestServiceReplaceFileDropsBadRecords(t *testing.T) {
	s := NewService(newMemStore())
	ctx := context.Background()
	d, _ := s.Create(ctx, "sketch", "user_a")

	data := codec.Encode(document.NewSampleDrawing())
	data[codec.HeaderSize] = 0xEE // first record becomes an unknown type

	res, err := s.ReplaceFile(ctx, d.ID, "user_a", data)
	if err != nil {
		t.Fatalf("ReplaceFile: %v", err)
	}
	if res.Skipped != 1 || res.Loaded != res.Declared-1 {
		t.Fatalf("result = %+v", res)
	}
	if res.Drawing.ShapeCount != res.Loaded {
		t.Fatalf("stored %d shapes, loaded %d", res.Drawing.ShapeCount, res.Loaded)
	}

	if _, err := s.ReplaceFile(ctx, d.ID, "user_a", []byte{1, 2, 3}); !errors.Is(err, codec.ErrFormat) {
		t.Fatalf("bad header = %v", err)
	}
	shapes, _ := s.Shapes(ctx, d.ID, "user_a")
	if len(shapes) != res.Loaded {
		t.Fatal("rejected upload modified the drawing")
	}
}

func newTestHandler() (*Handler, *Service) {
	s := NewService(newMemStore())
	return NewHandler(s, 1<<20), s
}

func asUser(r *http.Request, userID string, vars map[string]string) *http.Request {
	r = r.WithContext(auth.WithUserID(r.Context(), userID))
	if vars != nil {
		r = mux.SetURLVars(r, vars)
	}
	return r
}

func TestHandlerCreateGetDownload(t *testing.T) {
	h, _ := newTestHandler()

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/drawings", bytes.NewBufferString(`{"name":"plan"}`)), "user_a", nil)
	rec := httptest.NewRecorder()
	h.Create(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("Create = %d %s", rec.Code, rec.Body)
	}
	var d Drawing
	if err := json.NewDecoder(rec.Body).Decode(&d); err != nil {
		t.Fatal(err)
	}

	vars := map[string]string{"drawingId": d.ID}

	rec = httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), "user_b", vars))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("Get by stranger = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.Download(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), "user_a", vars))
	if rec.Code != http.StatusOK {
		t.Fatalf("Download = %d", rec.Code)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="plan.mydraw"` {
		t.Fatalf("Content-Disposition = %q", cd)
	}
	if _, err := codec.Decode(rec.Body.Bytes()); err != nil {
		t.Fatalf("downloaded file does not decode: %v", err)
	}

	rec = httptest.NewRecorder()
	h.Get(rec, asUser(httptest.NewRequest(http.MethodGet, "/", nil), "user_a", map[string]string{"drawingId": "drw_nope"}))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("Get missing = %d", rec.Code)
	}
}

func TestHandlerUploadRejectsBadFile(t *testing.T) {
	h, s := newTestHandler()
	d, _ := s.Create(context.Background(), "plan", "user_a")
	vars := map[string]string{"drawingId": d.ID}

	rec := httptest.NewRecorder()
	h.Upload(rec, asUser(httptest.NewRequest(http.MethodPut, "/", bytes.NewReader([]byte("nope nope"))), "user_a", vars))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("Upload(bad) = %d %s", rec.Code, rec.Body)
	}

	rec = httptest.NewRecorder()
	body := codec.Encode(document.NewSampleDrawing())
	h.Upload(rec, asUser(httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body)), "user_a", vars))
	if rec.Code != http.StatusOK {
		t.Fatalf("Upload = %d %s", rec.Code, rec.Body)
	}
}

func TestHandlerImport(t *testing.T) {
	h, s := newTestHandler()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "garden.mydraw")
	if err != nil {
		t.Fatal(err)
	}
	fw.Write(codec.Encode(document.NewSampleDrawing()))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/drawings/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.Import(rec, asUser(req, "user_a", nil))
	if rec.Code != http.StatusCreated {
		t.Fatalf("Import = %d %s", rec.Code, rec.Body)
	}

	var res ImportResult
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res.Drawing.Name != "garden" || res.Loaded != len(document.NewSampleDrawing()) {
		t.Fatalf("import result = %+v", res)
	}
	list, _ := s.List(context.Background(), "user_a")
	if len(list) != 1 {
		t.Fatalf("list = %+v", list)
	}
}

func TestHandlerRefusesChangesWhileSessionOpen(t *testing.T) {
	s := NewService(newMemStore())
	hub := session.NewHub(s.Load, s.Persist)
	h := NewHandler(s, 1<<20, WithOpenCheck(hub.IsOpen))
	ctx := context.Background()

	d, _ := s.Create(ctx, "plan", "user_a")
	vars := map[string]string{"drawingId": d.ID}
	sess, err := hub.Open(ctx, d.ID, "user_a", "c1")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	upload := func(userID string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		body := codec.Encode(document.NewSampleDrawing())
		h.Upload(rec, asUser(httptest.NewRequest(http.MethodPut, "/", bytes.NewReader(body)), userID, vars))
		return rec
	}

	if rec := upload("user_a"); rec.Code != http.StatusConflict {
		t.Fatalf("Upload during session = %d %s", rec.Code, rec.Body)
	}
	if rec := upload("user_b"); rec.Code != http.StatusForbidden {
		t.Fatalf("Upload by stranger during session = %d", rec.Code)
	}
	rec := httptest.NewRecorder()
	h.Delete(rec, asUser(httptest.NewRequest(http.MethodDelete, "/", nil), "user_a", vars))
	if rec.Code != http.StatusConflict {
		t.Fatalf("Delete during session = %d", rec.Code)
	}
	if shapes, _ := s.Shapes(ctx, d.ID, "user_a"); len(shapes) != 0 {
		t.Fatalf("drawing changed during session: %d shapes", len(shapes))
	}

	hub.Close(sess)
	if rec := upload("user_a"); rec.Code != http.StatusOK {
		t.Fatalf("Upload after session closed = %d %s", rec.Code, rec.Body)
	}
	if shapes, _ := s.Shapes(ctx, d.ID, "user_a"); len(shapes) != len(document.NewSampleDrawing()) {
		t.Fatalf("upload stored %d shapes", len(shapes))
	}
}
