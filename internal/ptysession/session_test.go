package ptysession

import (
	"strings"
	"testing"
	"time"
)

func waitForState(t *testing.T, s *Session, want State, timeout time.Duration) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if s.State() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("state = %v after %v, want %v", s.State(), timeout, want)
}

func TestStartStopLifecycle(t *testing.T) {
	s := New(Recipe{Command: "sh", Args: []string{"-c", "sleep 5"}, Cols: 80, Rows: 24})
	if s.State() != Fresh {
		t.Fatalf("initial state = %v, want Fresh", s.State())
	}

	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if s.State() != Running {
		t.Fatalf("state after Start = %v, want Running", s.State())
	}

	if err := s.Start(); err != ErrAlreadyRunning {
		t.Fatalf("second Start err = %v, want ErrAlreadyRunning", err)
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	waitForState(t, s, Exited, 2*time.Second)

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop after exit should be idempotent, got: %v", err)
	}
}

func TestScreenShowsChildOutput(t *testing.T) {
	s := New(Recipe{Command: "sh", Args: []string{"-c", "printf 'Hello\\nWorld\\n'; sleep 5"}, Cols: 80, Rows: 24})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if strings.Contains(s.GetScreenText(), "Hello") {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	text := s.GetScreenText()
	if !strings.Contains(text, "Hello") || !strings.Contains(text, "World") {
		t.Fatalf("screen text = %q, want it to contain Hello and World", text)
	}
}

func TestNotRunningAfterExit(t *testing.T) {
	s := New(Recipe{Command: "sh", Args: []string{"-c", "exit 0"}, Cols: 80, Rows: 24})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, s, Exited, 2*time.Second)

	if err := s.TypeText([]byte("x")); err != ErrNotRunning {
		t.Fatalf("TypeText after exit err = %v, want ErrNotRunning", err)
	}
}

func TestCrashRecovery(t *testing.T) {
	s := New(Recipe{Command: "sh", Args: []string{"-c", "echo boom 1>&2; exit 139"}, Cols: 80, Rows: 24})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	waitForState(t, s, Exited, 2*time.Second)

	if !strings.Contains(s.GetScreenText(), "boom") {
		t.Errorf("screen text = %q, want it to contain boom", s.GetScreenText())
	}
	lines := s.GetLastOutput(5)
	found := false
	for _, l := range lines {
		if strings.Contains(l, "boom") {
			found = true
		}
	}
	if !found {
		t.Errorf("GetLastOutput(5) = %v, want it to contain boom", lines)
	}

	if err := s.TypeText([]byte("x")); err != ErrNotRunning {
		t.Fatalf("TypeText after crash err = %v, want ErrNotRunning", err)
	}
}

func TestResizeRequiresRunning(t *testing.T) {
	s := New(Recipe{Command: "sh", Cols: 80, Rows: 24})
	if err := s.Resize(100, 30); err != ErrNotRunning {
		t.Fatalf("Resize on fresh session err = %v, want ErrNotRunning", err)
	}
}

func TestInvalidCommand(t *testing.T) {
	s := New(Recipe{Cols: 80, Rows: 24})
	if err := s.Start(); err != ErrInvalidCommand {
		t.Fatalf("Start with no command err = %v, want ErrInvalidCommand", err)
	}
}

func TestRestartClearsGridAndRing(t *testing.T) {
	s := New(Recipe{Command: "sh", Args: []string{"-c", "printf 'FIRST\\n'; sleep 5"}, Cols: 80, Rows: 24})
	if err := s.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !strings.Contains(s.GetScreenText(), "FIRST") {
		time.Sleep(10 * time.Millisecond)
	}

	if err := s.Restart(Recipe{}); err != nil {
		t.Fatalf("Restart: %v", err)
	}
	defer s.Stop()

	if strings.Contains(s.GetScreenText(), "FIRST") {
		t.Errorf("screen after restart still contains FIRST: %q", s.GetScreenText())
	}
	if len(s.GetLastOutput(100)) > 1 {
		t.Errorf("ring after restart should be cleared, got %v", s.GetLastOutput(100))
	}
}
