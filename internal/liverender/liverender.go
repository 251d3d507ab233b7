// Package liverender mirrors the focused session's grid to stderr (when it
// is a terminal and --live is set) and/or to a regularly-overwritten file
// (when --live-file is set), debounced so bursty child output does not
// thrash the output device. The cursor-hide/home/clear-per-line drawing
// discipline and the truncate-or-pad-to-width status bar are grounded
// directly on the teacher's overlay.RenderScreen/RenderBar, simplified here
// to drop all color/format handling (overlay.RenderLine's midterm.Format
// region walk) since this server's grid models no attributes.
package liverender

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"

	"ptyctl/internal/grid"
)

// DebounceInterval coalesces bursty redraw requests. Spec.md §9 Open
// Question (c): the exact value is not load-tested and may be tuned.
const DebounceInterval = 16 * time.Millisecond

// Status is the one-line status bar content: the LastCall label and how
// long ago At was.
type Status struct {
	LastCall string
	At       time.Time
}

func (s Status) label() string {
	if s.LastCall == "" {
		return "idle"
	}
	return fmt.Sprintf("%s (%s ago)", s.LastCall, time.Since(s.At).Round(time.Millisecond))
}

// Snapshot is what a redraw renders: a session's screen plus the current
// status.
type Snapshot struct {
	TerminalID string
	Lines      []string
	Cursor     grid.Cursor
	Cols, Rows int
	Status     Status
}

// Renderer coalesces redraw requests and writes snapshots to whichever
// sinks are enabled.
type Renderer struct {
	mu       sync.Mutex
	terminal *terminalSink
	file     *fileSink

	timer   *time.Timer
	pending *Snapshot
}

// New constructs a Renderer. liveTerminal enables the stderr sink (only if
// stderr is actually a terminal); liveFilePath, if non-empty, enables the
// file sink.
func New(liveTerminal bool, liveFilePath string) *Renderer {
	r := &Renderer{}
	if liveTerminal && isatty.IsTerminal(os.Stderr.Fd()) {
		r.terminal = newTerminalSink()
	}
	if liveFilePath != "" {
		r.file = newFileSink(liveFilePath)
	}
	return r
}

// Enabled reports whether any sink is active.
func (r *Renderer) Enabled() bool {
	return r.terminal != nil || r.file != nil
}

// Schedule coalesces a redraw of snap into the next debounce tick.
func (r *Renderer) Schedule(snap Snapshot) {
	if !r.Enabled() {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pending = &snap
	if r.timer != nil {
		return // already scheduled; absorbed into the next tick
	}
	r.timer = time.AfterFunc(DebounceInterval, r.flush)
}

func (r *Renderer) flush() {
	r.mu.Lock()
	snap := r.pending
	r.pending = nil
	r.timer = nil
	r.mu.Unlock()

	if snap == nil {
		return
	}
	if r.terminal != nil {
		r.terminal.render(*snap)
	}
	if r.file != nil {
		r.file.render(*snap)
	}
}

// Shutdown restores the terminal sink (shows the cursor) and performs one
// final flush to the file sink, if configured.
func (r *Renderer) Shutdown() {
	r.mu.Lock()
	snap := r.pending
	r.mu.Unlock()

	if r.file != nil && snap != nil {
		r.file.render(*snap)
	}
	if r.terminal != nil {
		r.terminal.restore()
	}
}

// terminalSink renders to stderr with cursor hide/home/show and a
// decorative border, following overlay.RenderScreen/RenderBar.
type terminalSink struct{}

func newTerminalSink() *terminalSink { return &terminalSink{} }

func (t *terminalSink) render(snap Snapshot) {
	width, height, err := term.GetSize(int(os.Stderr.Fd()))
	if err != nil || width <= 0 || height <= 0 {
		width, height = 80, 24
	}

	var buf bytes.Buffer
	buf.WriteString("\033[?25l\033[H")
	buf.WriteString(border(width))
	buf.WriteString("\r\n")

	rows := height - 3 // border x2 + status bar
	if rows < 1 {
		rows = 1
	}
	for i := 0; i < rows; i++ {
		buf.WriteString("\033[2K")
		if i < len(snap.Lines) {
			buf.WriteString(fitWidth(snap.Lines[i], width))
		} else {
			buf.WriteString(strings.Repeat(" ", width))
		}
		buf.WriteString("\r\n")
	}
	buf.WriteString(border(width))
	buf.WriteString("\r\n")
	buf.WriteString("\033[2K")
	buf.WriteString(fitWidth(" "+snap.Status.label(), width))
	buf.WriteString("\033[?25h")

	os.Stderr.Write(buf.Bytes())
}

func (t *terminalSink) restore() {
	os.Stderr.WriteString("\033[0m\033[?25h")
}

func border(width int) string {
	return strings.Repeat("-", width)
}

func fitWidth(s string, width int) string {
	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

// fileSink overwrites a file in place on each redraw, serialized against a
// concurrent reader (e.g. a polling `tail -f`-style consumer) with an
// advisory flock — the one piece the teacher's socket-attached live view
// never needed, since attach there is a stream, not a polled file.
type fileSink struct {
	path string
}

func newFileSink(path string) *fileSink {
	return &fileSink{path: path}
}

func (f *fileSink) render(snap Snapshot) {
	lock := flock.New(f.path + ".lock")
	if err := lock.Lock(); err != nil {
		return // swallow: observability must never throttle the control path
	}
	defer lock.Unlock()

	width := snap.Cols
	if width <= 0 {
		width = 80
	}

	var buf bytes.Buffer
	buf.WriteString(border(width))
	buf.WriteByte('\n')
	for _, line := range snap.Lines {
		buf.WriteString(fitWidth(line, width))
		buf.WriteByte('\n')
	}
	buf.WriteString(border(width))
	buf.WriteByte('\n')
	buf.WriteString(snap.Status.label())
	buf.WriteByte('\n')

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0644); err != nil {
		return
	}
	os.Rename(tmp, f.path)
}
