package ring

import (
	"reflect"
	"testing"
)

func TestWrite_EvictsOldest(t *testing.T) {
	r := New(5)
	r.Write([]byte("hello"))
	r.Write([]byte("world"))
	if got := string(r.Bytes()); got != "world" {
		t.Errorf("Bytes() = %q, want %q", got, "world")
	}
}

func TestWrite_UnderCapacity(t *testing.T) {
	r := New(20)
	r.Write([]byte("abc"))
	r.Write([]byte("def"))
	if got := string(r.Bytes()); got != "abcdef" {
		t.Errorf("Bytes() = %q, want %q", got, "abcdef")
	}
}

func TestLastLines(t *testing.T) {
	r := New(1024)
	r.Write([]byte("one\ntwo\nthree\nfour\n"))
	got := r.LastLines(2)
	want := []string{"three", "four"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LastLines(2) = %v, want %v", got, want)
	}
}

func TestLastLines_MoreThanAvailable(t *testing.T) {
	r := New(1024)
	r.Write([]byte("boom\n"))
	got := r.LastLines(5)
	want := []string{"boom"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("LastLines(5) = %v, want %v", got, want)
	}
}

func TestZeroCapacity(t *testing.T) {
	r := New(0)
	r.Write([]byte("anything"))
	if len(r.Bytes()) != 0 {
		t.Errorf("expected empty buffer with zero capacity, got %q", r.Bytes())
	}
}
