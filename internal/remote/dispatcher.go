// Package remote implements the ten remote operations of spec.md §6 as
// plain Go methods on a Dispatcher, independent of any wire transport, plus
// the §7 error taxonomy. cmd/server wires a Dispatcher to a trivial
// newline-delimited JSON transport over stdin/stdout, chosen because the
// spec leaves the wire format explicitly external and this is the simplest
// transport that can exercise every operation end-to-end.
package remote

import (
	"strconv"
	"time"

	"github.com/google/shlex"

	"ptyctl/internal/keyenc"
	"ptyctl/internal/ptysession"
	"ptyctl/internal/registry"
)

// DefaultWaitMS is the default sleep duration for the wait operation when
// the caller omits ms.
const DefaultWaitMS = 100

// settleDelay is the short post-input settle observed after type_text and
// press_key (spec.md §5).
const settleDelay = 50 * time.Millisecond

// startRenderDelay is the pause after start to let the child's initial
// screen render before the caller's next call observes it.
const startRenderDelay = 500 * time.Millisecond

// Dispatcher implements spec.md §6's operation table over a Registry, an
// optional legacy session, and a focus slot.
type Dispatcher struct {
	reg         *registry.Registry
	focus       string
	defaultCols int
	defaultRows int
	defaultCwd  string
}

// NewDispatcher returns a Dispatcher over reg with the given default
// session dimensions and working directory for recipes that omit them.
func NewDispatcher(reg *registry.Registry, defaultCols, defaultRows int, defaultCwd string) *Dispatcher {
	return &Dispatcher{reg: reg, defaultCols: defaultCols, defaultRows: defaultRows, defaultCwd: defaultCwd}
}

// Focus returns the currently focused terminal ID, or "" if none.
func (d *Dispatcher) Focus() string { return d.focus }

// resolve implements the terminal-ID resolution chain from spec.md §4.E:
// explicit ID → current focus → last_id → legacy (if running) → fail.
func (d *Dispatcher) resolve(explicit string) (string, *ptysession.Session, *Error) {
	if explicit != "" {
		sess := d.reg.Get(explicit)
		if sess == nil {
			return "", nil, unknownSession(explicit, d.reg.IDs())
		}
		return explicit, sess, nil
	}
	if d.focus != "" {
		if sess := d.reg.Get(d.focus); sess != nil {
			return d.focus, sess, nil
		}
	}
	if id, ok := d.reg.LastID(); ok {
		if sess := d.reg.Get(id); sess != nil {
			return id, sess, nil
		}
	}
	if legacy := d.reg.Legacy(); legacy != nil && legacy.IsRunning() {
		return registry.LegacyID, legacy, nil
	}
	return "", nil, newErr(NoSession, "no session available")
}

// ViewScreenArgs are the inputs to ViewScreen.
type ViewScreenArgs struct {
	TerminalID      string
	IncludeMetadata bool
}

// ViewScreenResult is the output of ViewScreen.
type ViewScreenResult struct {
	TerminalID string
	Screen     string
	CursorRow  int
	CursorCol  int
	Cols       int
	Rows       int
}

// ViewScreen returns a snapshot of a session's screen: the trimmed text
// plus cursor and size. IncludeMetadata is not read here; the transport
// uses it to choose between sending only the text or the whole record.
func (d *Dispatcher) ViewScreen(args ViewScreenArgs) (ViewScreenResult, *Error) {
	id, sess, err := d.resolve(args.TerminalID)
	if err != nil {
		return ViewScreenResult{}, err
	}
	scr := sess.GetScreen()
	return ViewScreenResult{
		TerminalID: id,
		Screen:     sess.GetScreenText(),
		CursorRow:  scr.Cursor.Row,
		CursorCol:  scr.Cursor.Col,
		Cols:       scr.Cols,
		Rows:       scr.Rows,
	}, nil
}

// TypeTextArgs are the inputs to TypeText.
type TypeTextArgs struct {
	TerminalID string
	Text       string
}

// TypeText writes text verbatim to the resolved session.
func (d *Dispatcher) TypeText(args TypeTextArgs) (string, *Error) {
	if args.Text == "" {
		return "", newErr(InvalidArgs, "text is required")
	}
	_, sess, rerr := d.resolve(args.TerminalID)
	if rerr != nil {
		return "", rerr
	}
	if err := sess.TypeText([]byte(args.Text)); err != nil {
		return "", notRunningOr(err)
	}
	time.Sleep(settleDelay)
	return "typed", nil
}

// PressKeyArgs are the inputs to PressKey.
type PressKeyArgs struct {
	TerminalID string
	Key        string
}

// PressKey encodes Key (see internal/keyenc) and writes it to the resolved
// session.
func (d *Dispatcher) PressKey(args PressKeyArgs) (string, *Error) {
	if args.Key == "" {
		return "", newErr(InvalidArgs, "key is required")
	}
	_, sess, rerr := d.resolve(args.TerminalID)
	if rerr != nil {
		return "", rerr
	}
	encoded, err := keyenc.Encode(args.Key)
	if err != nil {
		return "", newErr(UnknownKey, err.Error())
	}
	if err := sess.PressKey(encoded); err != nil {
		return "", notRunningOr(err)
	}
	time.Sleep(settleDelay)
	return "sent key " + args.Key, nil
}

// GetScreenSizeResult is the output of GetScreenSize.
type GetScreenSizeResult struct {
	TerminalID string
	Cols, Rows int
}

// GetScreenSize returns the resolved session's current grid size.
func (d *Dispatcher) GetScreenSize(terminalID string) (GetScreenSizeResult, *Error) {
	id, sess, err := d.resolve(terminalID)
	if err != nil {
		return GetScreenSizeResult{}, err
	}
	cols, rows := sess.GetSize()
	return GetScreenSizeResult{TerminalID: id, Cols: cols, Rows: rows}, nil
}

// Wait suspends the caller for ms (or DefaultWaitMS if ms <= 0).
func (d *Dispatcher) Wait(ms int) string {
	if ms <= 0 {
		ms = DefaultWaitMS
	}
	ptysession.Wait(time.Duration(ms) * time.Millisecond)
	return "waited " + strconv.Itoa(ms) + "ms"
}

// RunArgs are the shared inputs to RunTUI and CreateProcess.
type RunArgs struct {
	Command string
	Args    []string
	Cwd     string
	Cols    int
	Rows    int
	Env     map[string]string
}

func (d *Dispatcher) recipeFrom(args RunArgs) (ptysession.Recipe, *Error) {
	if args.Command == "" {
		return ptysession.Recipe{}, newErr(InvalidArgs, "command is required")
	}
	cmdArgs := args.Args
	if len(cmdArgs) == 0 {
		parts, err := shlex.Split(args.Command)
		if err != nil || len(parts) == 0 {
			return ptysession.Recipe{}, newErr(InvalidArgs, "could not parse command")
		}
		return ptysession.Recipe{
			Command: parts[0],
			Args:    parts[1:],
			Cwd:     withDefault(args.Cwd, d.defaultCwd),
			Cols:    withDefaultInt(args.Cols, d.defaultCols),
			Rows:    withDefaultInt(args.Rows, d.defaultRows),
			Env:     args.Env,
		}, nil
	}
	return ptysession.Recipe{
		Command: args.Command,
		Args:    cmdArgs,
		Cwd:     withDefault(args.Cwd, d.defaultCwd),
		Cols:    withDefaultInt(args.Cols, d.defaultCols),
		Rows:    withDefaultInt(args.Rows, d.defaultRows),
		Env:     args.Env,
	}, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func withDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

// RunResult is the output of RunTUI and CreateProcess.
type RunResult struct {
	TerminalID string
	Command    string
	Message    string
}

// RunTUI creates a new session (if focus is vacant) or restarts the
// currently focused session preserving its ID, and focuses it.
func (d *Dispatcher) RunTUI(args RunArgs) (RunResult, *Error) {
	recipe, err := d.recipeFrom(args)
	if err != nil {
		return RunResult{}, err
	}

	if d.focus != "" {
		if sess := d.reg.Get(d.focus); sess != nil {
			if rerr := sess.Restart(recipe); rerr != nil {
				return RunResult{}, spawnFailed(rerr)
			}
			time.Sleep(startRenderDelay)
			return RunResult{TerminalID: d.focus, Command: recipe.Command, Message: "restarted"}, nil
		}
	}

	id, _, cerr := d.reg.Create(recipe)
	if cerr != nil {
		return RunResult{}, spawnFailed(cerr)
	}
	d.focus = id
	time.Sleep(startRenderDelay)
	return RunResult{TerminalID: id, Command: recipe.Command, Message: "started"}, nil
}

// CreateProcess always creates and focuses a new session.
func (d *Dispatcher) CreateProcess(args RunArgs) (RunResult, *Error) {
	recipe, err := d.recipeFrom(args)
	if err != nil {
		return RunResult{}, err
	}
	id, _, cerr := d.reg.Create(recipe)
	if cerr != nil {
		return RunResult{}, spawnFailed(cerr)
	}
	d.focus = id
	time.Sleep(startRenderDelay)
	return RunResult{TerminalID: id, Command: recipe.Command, Message: "created"}, nil
}

// StopTUI stops the focused session and re-focuses the most recent
// remaining session, or clears focus.
func (d *Dispatcher) StopTUI() (string, *Error) {
	id, sess, err := d.resolve("")
	if err != nil {
		return "", err
	}
	sess.Stop()

	if id == d.focus {
		d.focus = ""
		for _, other := range d.reg.IDs() {
			if other != id {
				d.focus = other
			}
		}
	}
	return "stopped " + id, nil
}

// KillProcess kills the session with terminalID. The legacy session cannot
// be killed this way (spec.md §9 Open Question a) — it is reported as
// UnknownSession since it is not present in the killable map.
func (d *Dispatcher) KillProcess(terminalID string) (string, *Error) {
	if terminalID == "" {
		return "", newErr(InvalidArgs, "terminal_id is required")
	}
	if !d.reg.Kill(terminalID) {
		return "", unknownSession(terminalID, d.reg.IDs())
	}
	if d.focus == terminalID {
		d.focus = ""
	}
	return "killed " + terminalID, nil
}

// ListTabsResult is the output of ListTabs.
type ListTabsResult struct {
	Terminals []registry.Summary
	Focused   string
}

// ListTabs lists every session (including legacy) and the current focus.
func (d *Dispatcher) ListTabs() ListTabsResult {
	return ListTabsResult{Terminals: d.reg.List(), Focused: d.focus}
}

func notRunningOr(err error) *Error {
	switch err {
	case ptysession.ErrNotRunning:
		return newErr(NotRunning, "session is not running")
	default:
		return newErr(NotRunning, err.Error())
	}
}

func spawnFailed(err error) *Error {
	return newErr(SpawnFailed, err.Error())
}
