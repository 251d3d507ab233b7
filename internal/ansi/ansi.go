// Package ansi implements a small, explicit state machine that parses a
// byte stream a VT-style terminal would receive and drives a grid.Grid
// accordingly. Escape sequences are recognised only as far as needed to
// keep the grid's cursor and contents correct; color/attribute-setting
// sequences (SGR) and scroll-region sequences are recognised and ignored,
// since the grid models neither. This mirrors the shape of the teacher's
// own hand-rolled, byte-at-a-time plain-text scrollback parser, generalized
// from "skip or extract" to "skip or apply to the grid".
package ansi

import (
	"unicode/utf8"

	"ptyctl/internal/grid"
)

type state int

const (
	stateGround state = iota
	stateEscape
	stateCSI
	stateOSC
)

// Interpreter holds the parser's state across Write calls, so an escape
// sequence truncated at a chunk boundary resumes correctly on the next call.
type Interpreter struct {
	grid *grid.Grid

	st state

	// pendingDesignator tracks a pending '(' or ')' designator byte wait.
	pendingDesignator bool

	// csiParams accumulates the raw parameter+intermediate bytes of a CSI
	// sequence until the final byte is seen.
	csiParams []byte

	// oscPendingEsc is true when OSC saw an ESC and is waiting to see if
	// the next byte is '\' (ST) to terminate the sequence.
	oscPendingEsc bool

	// pending holds undecoded bytes of a rune that was split across Write
	// calls.
	pending []byte
}

// New returns an Interpreter that applies recognised sequences to g.
func New(g *grid.Grid) *Interpreter {
	return &Interpreter{grid: g}
}

// Write feeds bytes to the interpreter in arrival order.
func (p *Interpreter) Write(data []byte) {
	if len(p.pending) > 0 {
		data = append(p.pending, data...)
		p.pending = nil
	}

	i := 0
	for i < len(data) {
		b := data[i]

		switch p.st {
		case stateGround:
			if b < 0x80 {
				p.groundByte(b)
				i++
				continue
			}
			// Possible multi-byte UTF-8 rune.
			r, size := utf8.DecodeRune(data[i:])
			if r == utf8.RuneError && size <= 1 {
				if !utf8.FullRune(data[i:]) {
					p.pending = append(p.pending, data[i:]...)
					return
				}
				i++
				continue
			}
			p.grid.Put(r)
			i += size

		case stateEscape:
			p.escapeByte(b)
			i++

		case stateCSI:
			p.csiByte(b)
			i++

		case stateOSC:
			p.oscByte(b)
			i++
		}
	}
}

func (p *Interpreter) groundByte(b byte) {
	switch b {
	case '\r':
		p.grid.CarriageReturn()
	case '\n':
		p.grid.LineFeed()
	case '\b':
		p.grid.Backspace()
	case '\t':
		p.grid.Tab()
	case 0x07: // BEL
		// ignored
	case 0x1b: // ESC
		p.st = stateEscape
	default:
		if b >= 0x20 {
			p.grid.Put(rune(b))
		}
		// other control bytes below 0x20: ignored
	}
}

func (p *Interpreter) escapeByte(b byte) {
	if p.pendingDesignator {
		p.pendingDesignator = false
		p.st = stateGround
		return
	}

	switch b {
	case 'c':
		p.grid.Reset()
		p.st = stateGround
	case '7', '8':
		// save/restore cursor: no state kept
		p.st = stateGround
	case '(', ')':
		p.pendingDesignator = true
		// stay in Escape state for one more byte
	case '[':
		p.csiParams = p.csiParams[:0]
		p.st = stateCSI
	case ']':
		p.oscPendingEsc = false
		p.st = stateOSC
	default:
		p.st = stateGround
	}
}

func (p *Interpreter) csiByte(b byte) {
	if b >= 0x40 && b <= 0x7e {
		p.applyCSI(b, p.csiParams)
		p.csiParams = nil
		p.st = stateGround
		return
	}
	p.csiParams = append(p.csiParams, b)
}

func (p *Interpreter) oscByte(b byte) {
	switch {
	case b == 0x07: // BEL terminates
		p.st = stateGround
	case p.oscPendingEsc && b == '\\':
		p.st = stateGround
	case b == 0x1b:
		p.oscPendingEsc = true
	default:
		p.oscPendingEsc = false
	}
}

// applyCSI dispatches a complete CSI sequence (accumulated parameter and
// intermediate bytes, plus the final byte) to the grid.
func (p *Interpreter) applyCSI(final byte, raw []byte) {
	params := parseParams(raw)

	arg := func(i int, def int) int {
		if i >= len(params) {
			return def
		}
		if params[i] == 0 {
			return def
		}
		return params[i]
	}
	argOr0 := func(i int) int {
		if i >= len(params) {
			return 0
		}
		return params[i]
	}

	switch final {
	case 'H', 'f':
		p.grid.MoveTo(arg(0, 1)-1, arg(1, 1)-1)
	case 'A':
		p.grid.MoveRel(-max1(argOr0(0)), 0)
	case 'B':
		p.grid.MoveRel(max1(argOr0(0)), 0)
	case 'C':
		p.grid.MoveRel(0, max1(argOr0(0)))
	case 'D':
		p.grid.MoveRel(0, -max1(argOr0(0)))
	case 'J':
		p.grid.EraseDisplay(argOr0(0))
	case 'K':
		p.grid.EraseLine(argOr0(0))
	case '@':
		p.grid.InsertChars(max1(argOr0(0)))
	case 'P':
		p.grid.DeleteChars(max1(argOr0(0)))
	case 'm', 'r', 'h', 'l':
		// attributes, scroll regions, and modes are not modelled
	default:
		// unrecognised final byte: ignored
	}
}

func max1(v int) int {
	if v < 1 {
		return 1
	}
	return v
}

// parseParams splits the CSI parameter bytes on ';' into integers, treating
// a missing or empty parameter as 0. Intermediate bytes (0x20-0x2f) are not
// numeric and are skipped.
func parseParams(raw []byte) []int {
	if len(raw) == 0 {
		return nil
	}
	var params []int
	cur := 0
	has := false
	for _, b := range raw {
		switch {
		case b >= '0' && b <= '9':
			cur = cur*10 + int(b-'0')
			has = true
		case b == ';':
			params = append(params, cur)
			cur = 0
			has = false
		default:
			// intermediate byte: ignored for parameter purposes
		}
	}
	if has || len(params) > 0 {
		params = append(params, cur)
	}
	return params
}
