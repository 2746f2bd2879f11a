package session

import (
	"encoding/json"

	"github.com/mydraw/mydraw/internal/engine"
)

type Message struct {
	Type      string          `json:"type"`
	DrawingID string          `json:"drawingId,omitempty"`
	ClientID  string          `json:"clientId,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

const (
	// Client -> server
	TypePointerDown = "pointer.down"
	TypePointerMove = "pointer.move"
	TypePointerUp   = "pointer.up"
	TypeToolSet     = "tool.set"
	TypeStyleSet    = "style.set"
	TypeCommand     = "cmd"

	// Server -> client
	TypeWelcome = "welcome"
	TypeState   = "state"
	TypeSaved   = "saved"
	TypeError   = "error"
)

// Command names carried by TypeCommand.
const (
	CommandUndo   = "undo"
	CommandRedo   = "redo"
	CommandDelete = "delete"
	CommandClear  = "clear"
	CommandSave   = "save"
)

type PointerPayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type ToolPayload struct {
	Tool string `json:"tool"`
}

// StylePayload fields are optional; colors are #RRGGBB or #AARRGGBB.
type StylePayload struct {
	StrokeColor *string  `json:"strokeColor,omitempty"`
	FillColor   *string  `json:"fillColor,omitempty"`
	StrokeWidth *float32 `json:"strokeWidth,omitempty"`
}

type CommandPayload struct {
	Name string `json:"name"`
}

// CommandResult reports whether a command had anything to act on.
type CommandResult struct {
	Name    string `json:"name"`
	Applied bool   `json:"applied"`
}

type WelcomePayload struct {
	ClientID  string      `json:"clientId"`
	DrawingID string      `json:"drawingId"`
	View      engine.View `json:"view"`
}

type StatePayload struct {
	View   engine.View    `json:"view"`
	Result *CommandResult `json:"result,omitempty"`
}

type SavedPayload struct {
	ShapeCount int `json:"shapeCount"`
	Size       int `json:"size"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
