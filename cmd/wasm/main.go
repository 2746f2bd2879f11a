//go:build js && wasm

package main

import (
	"bytes"
	"encoding/json"
	"syscall/js"

	"github.com/mydraw/mydraw/internal/document"
	"github.com/mydraw/mydraw/internal/engine"
)

var (
	eng      *engine.Engine
	listener js.Value
)

func main() {
	eng = engine.NewEngine(engine.WithListener(notify))

	// Create the engine API object
	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("pointerDown", js.FuncOf(pointer(eng.PointerDown)))
	api.Set("pointerMove", js.FuncOf(pointer(eng.PointerMove)))
	api.Set("pointerUp", js.FuncOf(pointer(eng.PointerUp)))
	api.Set("setTool", js.FuncOf(setTool))
	api.Set("setStrokeColor", js.FuncOf(setColor(eng.SetStrokeColor)))
	api.Set("setFillColor", js.FuncOf(setColor(eng.SetFillColor)))
	api.Set("setStrokeWidth", js.FuncOf(setStrokeWidth))
	api.Set("undo", js.FuncOf(command(eng.Undo)))
	api.Set("redo", js.FuncOf(command(eng.Redo)))
	api.Set("deleteSelection", js.FuncOf(command(eng.DeleteSelection)))
	api.Set("clear", js.FuncOf(command(eng.Clear)))
	api.Set("loadSample", js.FuncOf(loadSample))
	api.Set("load", js.FuncOf(load))
	api.Set("onView", js.FuncOf(onView))

	// --- Queries (frontend ← engine) ---
	api.Set("save", js.FuncOf(save))
	api.Set("view", js.FuncOf(view))
	api.Set("render", js.FuncOf(render))
	api.Set("hitTest", js.FuncOf(hitTest))

	// Register on global scope
	js.Global().Set("mydrawEngine", api)

	// Signal that WASM is ready
	js.Global().Set("mydrawWasmReady", js.ValueOf(true))

	// Keep Go runtime alive
	select {}
}

func errorResult(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func okResult() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

// notify forwards every view change to the callback registered with onView.
func notify(v engine.View) {
	if listener.Type() != js.TypeFunction {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	listener.Invoke(string(data))
}

// --- Command Handlers ---

func onView(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeFunction {
		listener = js.Undefined()
		return nil
	}
	listener = args[0]
	return nil
}

func pointer(fn func(document.Point)) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 2 {
			return nil
		}
		p := document.Pt(args[0].Float(), args[1].Float())
		if !p.IsFinite() {
			return nil
		}
		fn(p)
		return nil
	}
}

func setTool(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing tool"})
	}
	tool, err := engine.ParseTool(args[0].String())
	if err != nil {
		return errorResult(err)
	}
	eng.SetTool(tool)
	return okResult()
}

func setColor(fn func(document.Color)) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		if len(args) < 1 {
			return js.ValueOf(map[string]interface{}{"error": "missing color"})
		}
		c, err := document.ParseColor(args[0].String())
		if err != nil {
			return errorResult(err)
		}
		fn(c)
		return okResult()
	}
}

func setStrokeWidth(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return js.ValueOf(map[string]interface{}{"error": "missing width"})
	}
	if err := eng.SetStrokeWidth(float32(args[0].Float())); err != nil {
		return errorResult(err)
	}
	return okResult()
}

func command(fn func() bool) func(js.Value, []js.Value) interface{} {
	return func(this js.Value, args []js.Value) interface{} {
		return js.ValueOf(fn())
	}
}

func loadSample(this js.Value, args []js.Value) interface{} {
	eng.Replace(document.NewSampleDrawing())
	return okResult()
}

// load takes a Uint8Array holding a .mydraw file.
func load(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		return js.ValueOf(map[string]interface{}{"error": "missing file bytes"})
	}
	data := make([]byte, args[0].Get("length").Int())
	js.CopyBytesToGo(data, args[0])

	report, err := eng.Load(bytes.NewReader(data))
	if err != nil {
		return errorResult(err)
	}
	return js.ValueOf(map[string]interface{}{
		"ok":        true,
		"declared":  report.Declared,
		"loaded":    report.Loaded(),
		"skipped":   report.Skipped,
		"truncated": report.Truncated,
	})
}

// --- Query Handlers ---

// save returns the drawing as a Uint8Array.
func save(this js.Value, args []js.Value) interface{} {
	var buf bytes.Buffer
	if err := eng.Save(&buf); err != nil {
		return errorResult(err)
	}
	out := js.Global().Get("Uint8Array").New(buf.Len())
	js.CopyBytesToJS(out, buf.Bytes())
	return out
}

func view(this js.Value, args []js.Value) interface{} {
	data, err := json.Marshal(eng.View())
	if err != nil {
		return js.ValueOf("{}")
	}
	return js.ValueOf(string(data))
}

func render(this js.Value, args []js.Value) interface{} {
	data, err := engine.DrawCommandsToJSON(eng.View().Commands)
	if err != nil {
		return js.ValueOf("[]")
	}
	return js.ValueOf(data)
}

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	shapes := eng.Shapes()
	i, ok := engine.SelectAt(shapes, document.Pt(args[0].Float(), args[1].Float()))
	if !ok {
		return js.ValueOf("")
	}
	return js.ValueOf(shapes[i].ID)
}
