package ansi

import (
	"strings"
	"testing"

	"ptyctl/internal/grid"
)

func TestMenuNavigation(t *testing.T) {
	g := grid.New(24, 80)
	p := New(g)
	// A PTY's output processing delivers the child's "\n" as "\r\n"; the
	// interpreter itself treats a bare LF as a line feed with no CR.
	p.Write([]byte("\x1b[2J\x1b[HHello\r\nWorld\r\n"))

	lines := g.Lines()
	if strings.TrimRight(lines[0], " ") != "Hello" {
		t.Errorf("line 0 = %q, want Hello", lines[0])
	}
	if strings.TrimRight(lines[1], " ") != "World" {
		t.Errorf("line 1 = %q, want World", lines[1])
	}
	for i := 2; i < len(lines); i++ {
		if strings.TrimRight(lines[i], " ") != "" {
			t.Errorf("line %d = %q, want blank", i, lines[i])
		}
	}
	if g.Cursor.Row != 2 || g.Cursor.Col != 0 {
		t.Errorf("cursor = %+v, want (2,0)", g.Cursor)
	}
}

func TestEraseLineMode0(t *testing.T) {
	g := grid.New(3, 10)
	p := New(g)
	for r := 0; r < 3; r++ {
		p.Write([]byte("\x1b[" + rowMove(r) + "H"))
		p.Write([]byte("XXXXXXXXXX"))
	}
	p.Write([]byte("\x1b[2;5H")) // row 1, col 4 (0-indexed)
	p.Write([]byte("\x1b[0K"))

	want := "XXXX      "
	if g.Lines()[1] != want {
		t.Errorf("row 1 = %q, want %q", g.Lines()[1], want)
	}
}

func rowMove(r int) string {
	return string(rune('1' + r))
}

func TestParseRobustness_SplitEscape(t *testing.T) {
	whole := grid.New(5, 20)
	pWhole := New(whole)
	pWhole.Write([]byte("\x1b[10;5Hhello\x1b[2K"))

	split := grid.New(5, 20)
	pSplit := New(split)
	full := []byte("\x1b[10;5Hhello\x1b[2K")
	for cut := 1; cut < len(full); cut++ {
		s := grid.New(5, 20)
		ps := New(s)
		ps.Write(full[:cut])
		ps.Write(full[cut:])
		if got, want := s.Lines(), whole.Lines(); joinLines(got) != joinLines(want) {
			t.Errorf("split at %d: grid mismatch: got %v want %v", cut, got, want)
		}
	}
	_ = split
	_ = pSplit
}

func joinLines(lines []string) string {
	return strings.Join(lines, "\n")
}

func TestCtrlCodesIgnored(t *testing.T) {
	g := grid.New(2, 10)
	p := New(g)
	p.Write([]byte("AB\x07CD"))
	if got := strings.TrimRight(g.Lines()[0], " "); got != "ABCD" {
		t.Errorf("got %q, want ABCD (BEL ignored)", got)
	}
}

func TestOSCSkipped(t *testing.T) {
	g := grid.New(2, 20)
	p := New(g)
	p.Write([]byte("\x1b]0;title here\x07after"))
	if got := strings.TrimRight(g.Lines()[0], " "); got != "after" {
		t.Errorf("got %q, want 'after' (OSC skipped)", got)
	}
}

func TestOSCSkippedSTTerminated(t *testing.T) {
	g := grid.New(2, 20)
	p := New(g)
	p.Write([]byte("\x1b]0;title\x1b\\after"))
	if got := strings.TrimRight(g.Lines()[0], " "); got != "after" {
		t.Errorf("got %q, want 'after' (OSC ST-terminated)", got)
	}
}

func TestSGRIgnored(t *testing.T) {
	g := grid.New(1, 10)
	p := New(g)
	p.Write([]byte("\x1b[1;31mHi\x1b[0m"))
	if got := strings.TrimRight(g.Lines()[0], " "); got != "Hi" {
		t.Errorf("got %q, want Hi (SGR dropped, no attributes modelled)", got)
	}
}

func TestUnknownEscapeDoesNotDerail(t *testing.T) {
	g := grid.New(1, 10)
	p := New(g)
	p.Write([]byte("\x1bZHello"))
	if got := strings.TrimRight(g.Lines()[0], " "); got != "Hello" {
		t.Errorf("got %q, want Hello", got)
	}
}
