package typeid

import (
	"strings"
	"testing"
)

func TestNewCarriesPrefix(t *testing.T) {
	for prefix, gen := range map[string]func() string{
		PrefixUser:    NewUserID,
		PrefixDrawing: NewDrawingID,
		PrefixShape:   NewShapeID,
	} {
		id := gen()
		if !strings.HasPrefix(id, prefix+"_") {
			t.Errorf("id %q lacks prefix %q", id, prefix)
		}
		if err := Validate(id, prefix); err != nil {
			t.Errorf("Validate(%q): %v", id, err)
		}
	}
	if NewShapeID() == NewShapeID() {
		t.Fatal("ids repeat")
	}
}

func TestValidateRejects(t *testing.T) {
	if err := Validate(NewShapeID(), PrefixDrawing); err == nil {
		t.Error("shape id accepted as a drawing id")
	}
	if err := Validate("drw_not-a-typeid", PrefixDrawing); err == nil {
		t.Error("malformed id accepted")
	}
}
