package drawing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/db"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/typeid"
)

var (
	ErrNotFound    = errors.New("drawing not found")
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidName = errors.New("invalid drawing name")
)

const maxNameLen = 200

// Store is the slice of db.Queries the service needs.
type Store interface {
	CreateDrawing(ctx context.Context, arg db.CreateDrawingParams) (db.Drawing, error)
	GetDrawing(ctx context.Context, id string) (db.Drawing, error)
	ListDrawingsForOwner(ctx context.Context, ownerID string) ([]db.Drawing, error)
	UpdateDrawingContent(ctx context.Context, arg db.UpdateDrawingContentParams) (db.Drawing, error)
	DeleteDrawing(ctx context.Context, id string) error
}

type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

type Drawing struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	OwnerID    string `json:"ownerId"`
	ShapeCount int    `json:"shapeCount"`
	Size       int    `json:"size"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

// ImportResult describes a .mydraw upload.
type ImportResult struct {
	Drawing   *Drawing `json:"drawing"`
	Declared  int      `json:"declared"`
	Loaded    int      `json:"loaded"`
	Skipped   int      `json:"skipped"`
	Truncated bool     `json:"truncated"`
}

func newImportResult(d *Drawing, r codec.Report) *ImportResult {
	return &ImportResult{
		Drawing:   d,
		Declared:  r.Declared,
		Loaded:    r.Loaded(),
		Skipped:   r.Skipped,
		Truncated: r.Truncated,
	}
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxNameLen {
		return "", fmt.Errorf("%w: must be 1-%d characters", ErrInvalidName, maxNameLen)
	}
	return name, nil
}

// Create stores a new empty drawing.
func (s *Service) Create(ctx context.Context, name, ownerID string) (*Drawing, error) {
	return s.create(ctx, name, ownerID, nil)
}

func (s *Service) create(ctx context.Context, name, ownerID string, shapes []document.Shape) (*Drawing, error) {
	name, err := cleanName(name)
	if err != nil {
		return nil, err
	}
	d, err := s.store.CreateDrawing(ctx, db.CreateDrawingParams{
		ID:         typeid.NewDrawingID(),
		OwnerID:    ownerID,
		Name:       name,
		Content:    codec.Encode(shapes),
		ShapeCount: int32(len(shapes)),
	})
	if err != nil {
		return nil, fmt.Errorf("create drawing: %w", err)
	}
	return toDrawing(d), nil
}

func (s *Service) Get(ctx context.Context, drawingID, userID string) (*Drawing, error) {
	d, err := s.owned(ctx, drawingID, userID)
	if err != nil {
		return nil, err
	}
	return toDrawing(d), nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Drawing, error) {
	rows, err := s.store.ListDrawingsForOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list drawings: %w", err)
	}
	drawings := make([]Drawing, len(rows))
	for i, d := range rows {
		drawings[i] = *toDrawing(d)
	}
	return drawings, nil
}

func (s *Service) Delete(ctx context.Context, drawingID, userID string) error {
	if _, err := s.owned(ctx, drawingID, userID); err != nil {
		return err
	}
	if err := s.store.DeleteDrawing(ctx, drawingID); err != nil {
		return fmt.Errorf("delete drawing: %w", err)
	}
	return nil
}

// File returns the stored .mydraw bytes.
func (s *Service) File(ctx context.Context, drawingID, userID string) ([]byte, *Drawing, error) {
	d, err := s.owned(ctx, drawingID, userID)
	if err != nil {
		return nil, nil, err
	}
	return d.Content, toDrawing(d), nil
}

// Shapes decodes the stored drawing.
func (s *Service) Shapes(ctx context.Context, drawingID, userID string) ([]document.Shape, error) {
	d, err := s.owned(ctx, drawingID, userID)
	if err != nil {
		return nil, err
	}
	return decodeStored(d)
}

// Load decodes a drawing without an ownership check. Callers must have
// authorized the request already.
func (s *Service) Load(ctx context.Context, drawingID string) ([]document.Shape, error) {
	d, err := s.get(ctx, drawingID)
	if err != nil {
		return nil, err
	}
	return decodeStored(d)
}

// Persist replaces the content of a drawing with an encoded container.
// Callers must have authorized the request already.
func (s *Service) Persist(ctx context.Context, drawingID string, content []byte) error {
	report, err := codec.Decode(content)
	if err != nil {
		return err
	}
	_, err = s.store.UpdateDrawingContent(ctx, db.UpdateDrawingContentParams{
		ID:         drawingID,
		Content:    content,
		ShapeCount: int32(report.Loaded()),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("update drawing: %w", err)
	}
	return nil
}

// ReplaceFile validates an uploaded .mydraw file and stores the shapes that
// could be read. A file with an unusable header is rejected with
// codec.ErrFormat and the drawing is left untouched.
func (s *Service) ReplaceFile(ctx context.Context, drawingID, userID string, data []byte) (*ImportResult, error) {
	if _, err := s.owned(ctx, drawingID, userID); err != nil {
		return nil, err
	}
	report, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	d, err := s.store.UpdateDrawingContent(ctx, db.UpdateDrawingContentParams{
		ID:         drawingID,
		Content:    codec.Encode(report.Shapes),
		ShapeCount: int32(report.Loaded()),
	})
	if err != nil {
		return nil, fmt.Errorf("update drawing: %w", err)
	}
	return newImportResult(toDrawing(d), report), nil
}

// Import creates a drawing from an uploaded .mydraw file.
func (s *Service) Import(ctx context.Context, userID, name string, data []byte) (*ImportResult, error) {
	report, err := codec.Decode(data)
	if err != nil {
		return nil, err
	}
	d, err := s.create(ctx, name, userID, report.Shapes)
	if err != nil {
		return nil, err
	}
	return newImportResult(d, report), nil
}

func (s *Service) get(ctx context.Context, drawingID string) (db.Drawing, error) {
	d, err := s.store.GetDrawing(ctx, drawingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return db.Drawing{}, ErrNotFound
		}
		return db.Drawing{}, fmt.Errorf("get drawing: %w", err)
	}
	return d, nil
}

func (s *Service) owned(ctx context.Context, drawingID, userID string) (db.Drawing, error) {
	d, err := s.get(ctx, drawingID)
	if err != nil {
		return db.Drawing{}, err
	}
	if d.OwnerID != userID {
		return db.Drawing{}, ErrForbidden
	}
	return d, nil
}

func decodeStored(d db.Drawing) ([]document.Shape, error) {
	report, err := codec.Decode(d.Content)
	if err != nil {
		return nil, fmt.Errorf("drawing %s: %w", d.ID, err)
	}
	return report.Shapes, nil
}

func toDrawing(d db.Drawing) *Drawing {
	return &Drawing{
		ID:         d.ID,
		Name:       d.Name,
		OwnerID:    d.OwnerID,
		ShapeCount: int(d.ShapeCount),
		Size:       len(d.Content),
		CreatedAt:  d.CreatedAt.Format(time.RFC3339),
		UpdatedAt:  d.UpdatedAt.Format(time.RFC3339),
	}
}
