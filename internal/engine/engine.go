package engine

import (
	"errors"
	"fmt"
	"io"
	"math"
	"slices"

	"github.com/mydraw/mydraw/internal/codec"
	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/history"
)

var (
	// ErrEmptyDrawing is returned when saving a drawing without shapes.
	ErrEmptyDrawing = errors.New("drawing has no shapes")
	// ErrInvalidStrokeWidth rejects widths that are not positive and finite.
	ErrInvalidStrokeWidth = errors.New("stroke width must be positive")
)

// Tool selects what pointer input does: draw a shape kind, or select.
type Tool string

const ToolSelect Tool = "select"

// ToolFor returns the drawing tool for a shape kind.
func ToolFor(k document.Kind) Tool { return Tool(k.String()) }

// ParseTool validates a tool name.
func ParseTool(s string) (Tool, error) {
	if Tool(s) == ToolSelect {
		return ToolSelect, nil
	}
	k, err := document.ParseKind(s)
	if err != nil {
		return "", fmt.Errorf("unknown tool %q", s)
	}
	return ToolFor(k), nil
}

// Kind returns the shape kind a drawing tool creates.
func (t Tool) Kind() (document.Kind, bool) {
	if t == ToolSelect {
		return 0, false
	}
	k, err := document.ParseKind(string(t))
	return k, err == nil
}

// View is the published state of the editor. Renderers draw Commands in
// order; the selection overlay uses SelectionBounds and Handles.
type View struct {
	Shapes          []document.Shape `json:"shapes"`
	Commands        []DrawCommand    `json:"commands"`
	Preview         *document.Shape  `json:"preview,omitempty"`
	Selected        string           `json:"selected,omitempty"`
	SelectionBounds *document.Rect   `json:"selectionBounds,omitempty"`
	Handles         []document.Point `json:"handles,omitempty"`
	CanUndo         bool             `json:"canUndo"`
	CanRedo         bool             `json:"canRedo"`
	Tool            Tool             `json:"tool"`
	Style           document.Style   `json:"style"`
}

type dragMode int

const (
	dragNone dragMode = iota
	dragDraw
	dragMove
	dragResize
)

type dragState struct {
	mode     dragMode
	id       string
	origin   document.Point   // pointer position at pointer-down
	original document.Shape   // shape captured at pointer-down
	before   []document.Shape // shape list at pointer-down
	handle   Handle
	corner   document.Point // grabbed corner at pointer-down
	changed  bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithListener registers a function called with the new View after every
// state change.
func WithListener(fn func(View)) Option {
	return func(e *Engine) { e.listener = fn }
}

// WithStyle sets the initial stroke and fill used for new shapes.
func WithStyle(s document.Style) Option {
	return func(e *Engine) { e.style = s }
}

// WithTool sets the initial tool.
func WithTool(t Tool) Option {
	return func(e *Engine) { e.tool = t }
}

// WithShapes seeds the drawing without recording history.
func WithShapes(shapes []document.Shape) Option {
	return func(e *Engine) { e.shapes = clearSelection(shapes) }
}

// Engine is the editing context for one drawing. It owns the shape list,
// the in-progress preview, the selection and the undo history, and turns
// pointer and command input into state changes.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	shapes     []document.Shape
	preview    *document.Shape
	selectedID string
	history    *history.History

	tool  Tool
	style document.Style
	drag  dragState

	listener func(View)
}

// NewEngine creates an engine with an empty drawing and the select tool.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		history: history.New(),
		tool:    ToolSelect,
		style:   document.DefaultStyle(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// --- Commands ---

// SetTool switches the active tool. Any gesture in progress is finished
// and the selection is dropped when a drawing tool is picked.
func (e *Engine) SetTool(t Tool) {
	e.finishDrag()
	e.tool = t
	if t != ToolSelect {
		e.deselect()
	}
	e.publish()
}

func (e *Engine) SetStrokeColor(c document.Color) {
	e.style.StrokeColor = c
	e.publish()
}

func (e *Engine) SetFillColor(c document.Color) {
	e.style.FillColor = c
	e.publish()
}

func (e *Engine) SetStrokeWidth(w float32) error {
	f := float64(w)
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return fmt.Errorf("%w: %v", ErrInvalidStrokeWidth, w)
	}
	e.style.StrokeWidth = w
	e.publish()
	return nil
}

// PointerDown starts a gesture at p.
func (e *Engine) PointerDown(p document.Point) {
	if e.drag.mode != dragNone {
		e.finishDrag()
	}

	if kind, ok := e.tool.Kind(); ok {
		s := document.NewShape(kind, e.style, p)
		e.preview = &s
		e.drag = dragState{mode: dragDraw, origin: p}
		e.publish()
		return
	}

	if sel, ok := e.Selected(); ok {
		box := sel.LogicalBounds()
		if h, ok := HandleAt(box, p, HandleRadius); ok {
			e.drag = dragState{
				mode:     dragResize,
				id:       sel.ID,
				origin:   p,
				original: sel.Clone(),
				before:   document.CloneAll(e.shapes),
				handle:   h,
				corner:   Corner(box, h),
			}
			e.publish()
			return
		}
	}

	e.deselect()
	if i, ok := SelectAt(e.shapes, p); ok {
		e.shapes[i].Selected = true
		e.selectedID = e.shapes[i].ID
		e.drag = dragState{
			mode:     dragMove,
			id:       e.shapes[i].ID,
			origin:   p,
			original: e.shapes[i].Clone(),
			before:   document.CloneAll(e.shapes),
		}
	}
	e.publish()
}

// PointerMove updates the gesture in progress.
func (e *Engine) PointerMove(p document.Point) {
	if e.apply(p) {
		e.publish()
	}
}

// PointerUp ends the gesture at p, committing a drawn shape or recording
// a completed move or resize.
func (e *Engine) PointerUp(p document.Point) {
	if e.drag.mode == dragNone {
		return
	}
	e.apply(p)
	e.finishDrag()
	e.publish()
}

// apply moves the gesture to p. It reports whether anything changed.
func (e *Engine) apply(p document.Point) bool {
	switch e.drag.mode {
	case dragDraw:
		if e.preview == nil {
			return false
		}
		if e.preview.Kind == document.KindFreehand {
			return e.preview.AddPoint(p)
		}
		if e.preview.End == p {
			return false
		}
		e.preview.End = p
		return true

	case dragMove:
		i := e.indexOf(e.drag.id)
		if i < 0 {
			return false
		}
		moved := Move(e.drag.original, p.Sub(e.drag.origin))
		e.shapes[i] = moved
		e.drag.changed = !sameGeometry(moved, e.drag.original)
		return true

	case dragResize:
		i := e.indexOf(e.drag.id)
		if i < 0 {
			return false
		}
		target := e.drag.corner.Add(p.Sub(e.drag.origin))
		resized, err := Resize(e.drag.original, e.drag.handle, target)
		if err != nil {
			// Keep the last accepted size.
			return false
		}
		e.shapes[i] = resized
		e.drag.changed = !sameGeometry(resized, e.drag.original)
		return true
	}
	return false
}

func (e *Engine) finishDrag() {
	d := e.drag
	e.drag = dragState{}

	switch d.mode {
	case dragDraw:
		if e.preview == nil {
			return
		}
		e.history.Record(e.shapes)
		e.shapes = append(e.shapes, *e.preview)
		e.preview = nil
	case dragMove, dragResize:
		if d.changed {
			e.history.Record(d.before)
		}
	}
}

// Undo restores the previous drawing state. It reports false when there is
// nothing to undo.
func (e *Engine) Undo() bool {
	e.cancelDrag()
	prev, ok := e.history.Undo(e.shapes)
	if !ok {
		return false
	}
	e.shapes = clearSelection(prev)
	e.selectedID = ""
	e.publish()
	return true
}

// Redo reapplies the last undone state. It reports false when there is
// nothing to redo.
func (e *Engine) Redo() bool {
	e.cancelDrag()
	next, ok := e.history.Redo(e.shapes)
	if !ok {
		return false
	}
	e.shapes = clearSelection(next)
	e.selectedID = ""
	e.publish()
	return true
}

// DeleteSelection removes the selected shape. It reports false when nothing
// is selected.
func (e *Engine) DeleteSelection() bool {
	i := e.indexOf(e.selectedID)
	if e.selectedID == "" || i < 0 {
		return false
	}
	e.cancelDrag()
	e.history.Record(e.shapes)
	e.shapes = slices.Delete(e.shapes, i, i+1)
	e.selectedID = ""
	e.publish()
	return true
}

// Clear removes every shape. It reports false when the drawing is already
// empty.
func (e *Engine) Clear() bool {
	if len(e.shapes) == 0 {
		return false
	}
	e.cancelDrag()
	e.history.Record(e.shapes)
	e.shapes = nil
	e.selectedID = ""
	e.publish()
	return true
}

// Replace swaps in a new drawing. The previous drawing is recorded so the
// replacement can be undone.
func (e *Engine) Replace(shapes []document.Shape) {
	e.cancelDrag()
	e.history.Record(e.shapes)
	e.shapes = clearSelection(shapes)
	e.selectedID = ""
	e.publish()
}

// Save writes the drawing in the .mydraw format.
func (e *Engine) Save(w io.Writer) error {
	if len(e.shapes) == 0 {
		return ErrEmptyDrawing
	}
	if _, err := w.Write(codec.Encode(e.shapes)); err != nil {
		return fmt.Errorf("save drawing: %w", err)
	}
	return nil
}

// Load decodes a .mydraw stream and replaces the drawing with the shapes
// that could be read. On a header error the drawing is left untouched.
func (e *Engine) Load(r io.Reader) (codec.Report, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return codec.Report{}, fmt.Errorf("load drawing: %w", err)
	}
	report, err := codec.Decode(data)
	if err != nil {
		return report, err
	}
	e.Replace(report.Shapes)
	return report, nil
}

// --- Queries ---

// Shapes returns a copy of the committed shapes in paint order.
func (e *Engine) Shapes() []document.Shape {
	return document.CloneAll(e.shapes)
}

// Preview returns the shape being drawn, if any.
func (e *Engine) Preview() (document.Shape, bool) {
	if e.preview == nil {
		return document.Shape{}, false
	}
	return e.preview.Clone(), true
}

// Selected returns the selected shape, if any.
func (e *Engine) Selected() (document.Shape, bool) {
	if i := e.indexOf(e.selectedID); e.selectedID != "" && i >= 0 {
		return e.shapes[i].Clone(), true
	}
	return document.Shape{}, false
}

// SelectionBounds returns the stroke-inclusive bounds of the selection.
func (e *Engine) SelectionBounds() (document.Rect, bool) {
	s, ok := e.Selected()
	if !ok {
		return document.Rect{}, false
	}
	return s.Bounds(), true
}

func (e *Engine) Tool() Tool { return e.tool }

func (e *Engine) Style() document.Style { return e.style }

func (e *Engine) CanUndo() bool { return e.history.CanUndo() }

func (e *Engine) CanRedo() bool { return e.history.CanRedo() }

// HistoryDepth reports how many undo and redo steps are available.
func (e *Engine) HistoryDepth() (undo, redo int) { return e.history.Depth() }

// View snapshots the editor state for rendering.
func (e *Engine) View() View {
	v := View{
		Shapes:  e.Shapes(),
		CanUndo: e.CanUndo(),
		CanRedo: e.CanRedo(),
		Tool:    e.tool,
		Style:   e.style,
	}
	if v.Shapes == nil {
		v.Shapes = []document.Shape{}
	}
	paint := v.Shapes
	if p, ok := e.Preview(); ok {
		v.Preview = &p
		paint = append(slices.Clip(paint), p)
	}
	v.Commands = DrawCommands(paint)
	if s, ok := e.Selected(); ok {
		b := s.Bounds()
		h := Handles(s.LogicalBounds())
		v.Selected = s.ID
		v.SelectionBounds = &b
		v.Handles = h[:]
	}
	return v
}

func (e *Engine) publish() {
	if e.listener != nil {
		e.listener(e.View())
	}
}

func (e *Engine) indexOf(id string) int {
	if id == "" {
		return -1
	}
	return slices.IndexFunc(e.shapes, func(s document.Shape) bool { return s.ID == id })
}

func (e *Engine) deselect() {
	for i := range e.shapes {
		e.shapes[i].Selected = false
	}
	e.selectedID = ""
}

// cancelDrag abandons a gesture without recording it. A partially moved
// shape is put back.
func (e *Engine) cancelDrag() {
	switch e.drag.mode {
	case dragMove, dragResize:
		if i := e.indexOf(e.drag.id); i >= 0 {
			e.shapes[i] = e.drag.original
		}
	}
	e.preview = nil
	e.drag = dragState{}
}

func clearSelection(shapes []document.Shape) []document.Shape {
	out := document.CloneAll(shapes)
	for i := range out {
		out[i].Selected = false
	}
	return out
}

func sameGeometry(a, b document.Shape) bool {
	return a.Start == b.Start && a.End == b.End && slices.Equal(a.Points, b.Points)
}
