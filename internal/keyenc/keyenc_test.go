package keyenc

import (
	"bytes"
	"testing"
)

func TestEncode_Named(t *testing.T) {
	tests := []struct {
		key  string
		want []byte
	}{
		{"enter", []byte("\r")},
		{"Enter", []byte("\r")},
		{"pageup", []byte("\x1b[5~")},
		{"f5", []byte("\x1b[15~")},
		{"f12", []byte("\x1b[24~")},
		{"escape", []byte("\x1b")},
		{"backspace", []byte("\x7f")},
	}
	for _, tt := range tests {
		got, err := Encode(tt.key)
		if err != nil {
			t.Fatalf("Encode(%q): %v", tt.key, err)
		}
		if !bytes.Equal(got, tt.want) {
			t.Errorf("Encode(%q) = %q, want %q", tt.key, got, tt.want)
		}
	}
}

func TestEncode_CtrlCombinations(t *testing.T) {
	got, err := Encode("ctrl+c")
	if err != nil {
		t.Fatalf("Encode(ctrl+c): %v", err)
	}
	if !bytes.Equal(got, []byte{0x03}) {
		t.Errorf("Encode(ctrl+c) = %v, want [0x03]", got)
	}

	got, err = Encode("CTRL+A")
	if err != nil {
		t.Fatalf("Encode(CTRL+A): %v", err)
	}
	if !bytes.Equal(got, []byte{0x01}) {
		t.Errorf("Encode(CTRL+A) = %v, want [0x01]", got)
	}
}

func TestEncode_SingleChar(t *testing.T) {
	got, err := Encode("q")
	if err != nil {
		t.Fatalf("Encode(q): %v", err)
	}
	if !bytes.Equal(got, []byte("q")) {
		t.Errorf("Encode(q) = %q, want %q", got, "q")
	}
}

func TestEncode_Unknown(t *testing.T) {
	_, err := Encode("qux")
	if err == nil {
		t.Fatal("expected error for unknown key")
	}
	var uke *UnknownKeyError
	if !isUnknownKeyError(err, &uke) {
		t.Fatalf("expected UnknownKeyError, got %T: %v", err, err)
	}
}

func isUnknownKeyError(err error, target **UnknownKeyError) bool {
	uke, ok := err.(*UnknownKeyError)
	if ok {
		*target = uke
	}
	return ok
}

func TestEncode_UnknownCtrlDigit(t *testing.T) {
	_, err := Encode("ctrl+1")
	if err == nil {
		t.Fatal("expected error for ctrl+1")
	}
}
