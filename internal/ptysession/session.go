// Package ptysession owns one child process and its PTY, a reader activity
// that feeds the ANSI interpreter and a raw-output ring, and the Fresh →
// Running → Exited lifecycle described in spec.md §4.D. The PTY-handling
// core (StartPTY's env merge, the read loop, the write-timeout/hang
// detection) is grounded directly on the teacher's virtualterminal.VT.
package ptysession

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"ptyctl/internal/ansi"
	"ptyctl/internal/grid"
	"ptyctl/internal/ring"
)

// State is the session's lifecycle state.
type State int

const (
	Fresh State = iota
	Running
	Exited
)

func (s State) String() string {
	switch s {
	case Fresh:
		return "fresh"
	case Running:
		return "running"
	case Exited:
		return "exited"
	default:
		return "unknown"
	}
}

// Recipe describes how to spawn a session's child process.
type Recipe struct {
	Command string
	Args    []string
	Cwd     string
	Cols    int
	Rows    int
	Env     map[string]string
}

// ExitInfo records how a session's child terminated.
type ExitInfo struct {
	Code   int
	Signal string
}

// Sentinel errors surfaced by Session methods. The remote package maps
// these to the §7 error taxonomy.
var (
	ErrNotRunning      = errors.New("session is not running")
	ErrAlreadyRunning  = errors.New("session is already running")
	ErrInvalidCommand  = errors.New("recipe has no command")
	ErrPTYWriteTimeout = errors.New("timed out writing to pty")
)

// RingCapacity is the default byte bound for a session's raw output ring.
const RingCapacity = 64 * 1024

// writeTimeout bounds how long a write to the child's PTY may block before
// the child is considered hung.
const writeTimeout = 2 * time.Second

// Event is a tagged variant emitted by a Session as its child produces
// output, starts, or exits. The registry wraps these with a terminal ID
// before republishing them (spec.md §9).
type Event struct {
	Kind   EventKind
	Data   []byte
	Code   int
	Signal string
}

// EventKind tags an Event's variant.
type EventKind int

const (
	EventData EventKind = iota
	EventExit
	EventStart
)

// Session owns one child process, its PTY, a read loop, a character grid,
// and a bounded raw-output ring.
type Session struct {
	mu sync.Mutex

	recipe Recipe
	state  State

	grid  *grid.Grid
	interp *ansi.Interpreter
	ring  *ring.Ring

	ptm *os.File
	cmd *exec.Cmd

	// readerDone is closed by pipeOutput when it returns, so Stop/Restart can
	// wait for the old reader to actually finish with the old ptm/cmd before
	// reassigning session state for a new generation.
	readerDone chan struct{}

	exitInfo *ExitInfo

	subscribers []func(Event)
}

// New constructs a fresh, unstarted session for the given recipe.
func New(recipe Recipe) *Session {
	g := grid.New(recipe.Rows, recipe.Cols)
	return &Session{
		recipe: recipe,
		state:  Fresh,
		grid:   g,
		interp: ansi.New(g),
		ring:   ring.New(RingCapacity),
	}
}

// Subscribe registers a handler invoked for every event this session emits.
// It must not block.
func (s *Session) Subscribe(handler func(Event)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers = append(s.subscribers, handler)
}

func (s *Session) emit(ev Event) {
	// Called with s.mu NOT held by the reader goroutine, and deliberately
	// without holding it here either, so a slow subscriber cannot block
	// grid mutation; subscribers are expected to be cheap (registry
	// forwarders, the live renderer's debounce scheduler).
	for _, h := range s.subscribers {
		h(ev)
	}
}

// State returns the session's current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Recipe returns a copy of the session's current recipe.
func (s *Session) Recipe() Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipe
}

// childEnv merges the current process environment with TERM/COLORTERM and
// the recipe's overrides, following virtualterminal's env-merge-with-override
// pattern.
func childEnv(overrides map[string]string) []string {
	base := os.Environ()
	merged := make(map[string]string, len(base)+len(overrides)+2)
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			merged[kv[:i]] = kv[i+1:]
		}
	}
	merged["TERM"] = "xterm-256color"
	merged["COLORTERM"] = "truecolor"
	for k, v := range overrides {
		merged[k] = v
	}
	out := make([]string, 0, len(merged))
	for k, v := range merged {
		out = append(out, k+"="+v)
	}
	return out
}

// Start spawns the recipe's command under a PTY and begins the reader
// activity. Requires the session be Fresh or Exited.
func (s *Session) Start() error {
	s.mu.Lock()
	if s.state == Running {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}
	if s.recipe.Command == "" {
		s.mu.Unlock()
		return ErrInvalidCommand
	}

	cmd := exec.Command(s.recipe.Command, s.recipe.Args...)
	cmd.Dir = s.recipe.Cwd
	cmd.Env = childEnv(s.recipe.Env)

	ptm, err := pty.StartWithSize(cmd, &pty.Winsize{
		Rows: uint16(s.recipe.Rows),
		Cols: uint16(s.recipe.Cols),
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("spawn %s: %w", s.recipe.Command, err)
	}

	done := make(chan struct{})
	s.ptm = ptm
	s.cmd = cmd
	s.readerDone = done
	s.state = Running
	s.exitInfo = nil
	s.mu.Unlock()

	go s.pipeOutput(ptm, cmd, done)
	s.emit(Event{Kind: EventStart})
	return nil
}

// pipeOutput is the reader activity: it reads PTY bytes as they arrive,
// applies them to the grid and ring, and emits data events, until the PTY
// reports EOF, at which point it records the child's exit and transitions
// to Exited. ptm/cmd/done are captured once at Start time rather than read
// back off the Session, so a concurrent Restart reassigning s.ptm/s.cmd for
// a new generation can never be raced by this (the old) generation's reader.
func (s *Session) pipeOutput(ptm *os.File, cmd *exec.Cmd, done chan struct{}) {
	defer close(done)

	buf := make([]byte, 4096)
	for {
		n, err := ptm.Read(buf)
		if n > 0 {
			chunk := append([]byte(nil), buf[:n]...)
			s.mu.Lock()
			s.interp.Write(chunk)
			s.ring.Write(chunk)
			s.mu.Unlock()
			s.emit(Event{Kind: EventData, Data: chunk})
		}
		if err != nil {
			s.onEOF(cmd)
			return
		}
	}
}

func (s *Session) onEOF(cmd *exec.Cmd) {
	code, signal := -1, ""
	if cmd != nil {
		werr := cmd.Wait()
		state := cmd.ProcessState
		var exitErr *exec.ExitError
		if werr != nil && !errors.As(werr, &exitErr) {
			// wait failed for a reason other than a non-zero exit; no
			// exit record is available.
		} else if state != nil {
			code = state.ExitCode()
			if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
				signal = ws.Signal().String()
			}
		}
	}

	s.mu.Lock()
	// Only this generation's own exit may transition state: if a Restart
	// has already moved the session on to a new cmd, s.cmd no longer
	// matches and this stale onEOF must not clobber the new generation.
	if s.cmd == cmd {
		s.state = Exited
		s.exitInfo = &ExitInfo{Code: code, Signal: signal}
	}
	s.mu.Unlock()

	s.emit(Event{Kind: EventExit, Code: code, Signal: signal})
}

// writePTY writes p to the PTY master with a timeout, treating a stalled
// write as a hung child rather than blocking forever.
func (s *Session) writePTY(p []byte) (int, error) {
	type result struct {
		n   int
		err error
	}
	ch := make(chan result, 1)
	ptm := s.ptm
	go func() {
		n, err := ptm.Write(p)
		ch <- result{n, err}
	}()

	timer := time.NewTimer(writeTimeout)
	defer timer.Stop()
	select {
	case r := <-ch:
		return r.n, r.err
	case <-timer.C:
		return 0, ErrPTYWriteTimeout
	}
}

// TypeText writes bytes verbatim to the child's PTY. Fails with
// ErrNotRunning if the child has exited.
func (s *Session) TypeText(text []byte) error {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return ErrNotRunning
	}
	s.mu.Unlock()

	_, err := s.writePTY(text)
	return err
}

// PressKey writes a key's already-encoded bytes (see internal/keyenc) to
// the PTY.
func (s *Session) PressKey(encoded []byte) error {
	return s.TypeText(encoded)
}

// Resize updates the PTY window size and the grid size atomically.
// Requires the session be Running.
func (s *Session) Resize(cols, rows int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Running {
		return ErrNotRunning
	}
	s.recipe.Cols, s.recipe.Rows = cols, rows
	s.grid.Resize(rows, cols)
	return pty.Setsize(s.ptm, &pty.Winsize{Rows: uint16(rows), Cols: uint16(cols)})
}

// Stop signals the child to terminate and waits for the reader activity to
// observe EOF and finish before returning, so a caller (Restart in
// particular) can safely reassign session state for a new generation
// immediately afterward. Idempotent: stopping a session that is not running
// has no effect.
func (s *Session) Stop() error {
	s.mu.Lock()
	cmd := s.cmd
	done := s.readerDone
	running := s.state == Running
	s.mu.Unlock()

	if !running || cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	if done != nil {
		<-done
	}
	return nil
}

// Restart stops the session if running, applies partial's non-zero fields
// over the stored recipe, clears the grid and raw ring, and starts again.
func (s *Session) Restart(partial Recipe) error {
	if err := s.Stop(); err != nil {
		return err
	}

	s.mu.Lock()
	if partial.Command != "" {
		s.recipe.Command = partial.Command
	}
	if len(partial.Args) > 0 {
		s.recipe.Args = partial.Args
	}
	if partial.Cwd != "" {
		s.recipe.Cwd = partial.Cwd
	}
	if partial.Cols > 0 {
		s.recipe.Cols = partial.Cols
	}
	if partial.Rows > 0 {
		s.recipe.Rows = partial.Rows
	}
	for k, v := range partial.Env {
		if s.recipe.Env == nil {
			s.recipe.Env = map[string]string{}
		}
		s.recipe.Env[k] = v
	}

	// restart clears grid and raw ring (spec.md §9 Open Question b).
	s.grid = grid.New(s.recipe.Rows, s.recipe.Cols)
	s.interp = ansi.New(s.grid)
	s.ring = ring.New(RingCapacity)
	s.mu.Unlock()

	return s.Start()
}

// Screen is a structured snapshot of a session's grid.
type Screen struct {
	Lines  []string
	Cursor grid.Cursor
	Cols   int
	Rows   int
}

// GetScreen snapshots the grid's lines, cursor, and size.
func (s *Session) GetScreen() Screen {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Screen{
		Lines:  s.grid.Lines(),
		Cursor: s.grid.Cursor,
		Cols:   s.grid.Cols,
		Rows:   s.grid.Rows,
	}
}

// GetScreenText snapshots the grid as plain text with trailing spaces
// trimmed from each line.
func (s *Session) GetScreenText() string {
	s.mu.Lock()
	lines := s.grid.Lines()
	s.mu.Unlock()

	trimmed := make([]string, len(lines))
	for i, l := range lines {
		trimmed[i] = strings.TrimRight(l, " ")
	}
	return strings.Join(trimmed, "\n")
}

// GetSize returns the grid's current cols and rows.
func (s *Session) GetSize() (cols, rows int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.grid.Cols, s.grid.Rows
}

// GetLastOutput returns the last n newline-separated lines of the raw ring.
func (s *Session) GetLastOutput(n int) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ring.LastLines(n)
}

// ExitInfo returns the session's recorded exit code and signal, or nil if
// it has not exited.
func (s *Session) ExitInfo() *ExitInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.exitInfo
}

// Command returns the recipe's command string, for listing.
func (s *Session) Command() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recipe.Command
}

// IsRunning reports whether the session's state is Running.
func (s *Session) IsRunning() bool {
	return s.State() == Running
}

// Wait suspends the caller for the given duration. Legal in any state.
func Wait(d time.Duration) {
	time.Sleep(d)
}
