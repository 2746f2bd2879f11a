// Package history keeps full-snapshot undo and redo stacks over a shape list.
//
// Every entry is a deep copy of the whole list, so memory grows linearly
// with the number of recorded mutations. The stacks are deliberately
// unbounded: a session that records N mutations of an S-shape drawing
// holds O(N·S) shapes until Reset is called or the session ends. A
// command/diff history would trade that memory for per-operation inverse
// logic.
package history

import "github.com/mydraw/mydraw/internal/document"

// History holds the undo and redo stacks. The zero value is ready to use.
type History struct {
	undo [][]document.Shape
	redo [][]document.Shape
}

// New creates an empty history.
func New() *History {
	return &History{}
}

// Record pushes a copy of snapshot, the list as it was before a mutation,
// onto the undo stack and invalidates the redo stack.
func (h *History) Record(snapshot []document.Shape) {
	h.undo = append(h.undo, clone(snapshot))
	h.redo = h.redo[:0]
}

// Undo returns the most recent snapshot and parks current on the redo stack.
// It reports false, leaving both stacks untouched, when there is nothing to undo.
func (h *History) Undo(current []document.Shape) ([]document.Shape, bool) {
	if len(h.undo) == 0 {
		return nil, false
	}
	h.redo = append(h.redo, clone(current))
	return pop(&h.undo), true
}

// Redo is the mirror of Undo.
func (h *History) Redo(current []document.Shape) ([]document.Shape, bool) {
	if len(h.redo) == 0 {
		return nil, false
	}
	h.undo = append(h.undo, clone(current))
	return pop(&h.redo), true
}

func (h *History) CanUndo() bool { return len(h.undo) > 0 }
func (h *History) CanRedo() bool { return len(h.redo) > 0 }

// Depth returns the number of entries on each stack.
func (h *History) Depth() (undo, redo int) {
	return len(h.undo), len(h.redo)
}

// Reset drops both stacks.
func (h *History) Reset() {
	h.undo = nil
	h.redo = nil
}

func pop(stack *[][]document.Shape) []document.Shape {
	s := *stack
	last := s[len(s)-1]
	s[len(s)-1] = nil
	*stack = s[:len(s)-1]
	return last
}

// clone never returns nil so an empty drawing restores as an empty list.
func clone(shapes []document.Shape) []document.Shape {
	out := document.CloneAll(shapes)
	if out == nil {
		out = []document.Shape{}
	}
	return out
}
