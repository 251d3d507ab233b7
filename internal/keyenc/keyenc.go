// Package keyenc maps symbolic key names to the exact bytes a VT-style
// terminal would transmit for that key.
package keyenc

import (
	"fmt"
	"strings"
)

// Control byte names, following the kylelemons-goat term package's
// convention of naming control bytes instead of spelling out escapes inline.
const (
	esc = 0x1b
	cr  = '\r'
	tab = '\t'
	bs  = 0x7f
)

var named = map[string][]byte{
	"enter":     {cr},
	"return":    {cr},
	"tab":       {tab},
	"escape":    {esc},
	"esc":       {esc},
	"backspace": {bs},
	"delete":    {esc, '[', '3', '~'},
	"up":        {esc, '[', 'A'},
	"down":      {esc, '[', 'B'},
	"right":     {esc, '[', 'C'},
	"left":      {esc, '[', 'D'},
	"space":     {' '},
	"home":      {esc, '[', 'H'},
	"end":       {esc, '[', 'F'},
	"pageup":    {esc, '[', '5', '~'},
	"pagedown":  {esc, '[', '6', '~'},
	"insert":    {esc, '[', '2', '~'},
	"f1":        {esc, 'O', 'P'},
	"f2":        {esc, 'O', 'Q'},
	"f3":        {esc, 'O', 'R'},
	"f4":        {esc, 'O', 'S'},
	"f5":        {esc, '[', '1', '5', '~'},
	"f6":        {esc, '[', '1', '7', '~'},
	"f7":        {esc, '[', '1', '8', '~'},
	"f8":        {esc, '[', '1', '9', '~'},
	"f9":        {esc, '[', '2', '0', '~'},
	"f10":       {esc, '[', '2', '1', '~'},
	"f11":       {esc, '[', '2', '3', '~'},
	"f12":       {esc, '[', '2', '4', '~'},
}

// UnknownKeyError reports a key name that matched no control combination,
// no named-key table entry, and was not a single character.
type UnknownKeyError struct {
	Key string
}

func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown key %q", e.Key)
}

// Encode resolves a symbolic key name to the bytes a terminal would send.
// Resolution order: ctrl+<letter> combinations, the named-key table, then a
// single passed-through character. Anything else fails with UnknownKeyError.
func Encode(key string) ([]byte, error) {
	name := strings.ToLower(strings.TrimSpace(key))

	if rest, ok := strings.CutPrefix(name, "ctrl+"); ok {
		if len(rest) == 1 && rest[0] >= 'a' && rest[0] <= 'z' {
			return []byte{byte(1 + (rest[0] - 'a'))}, nil
		}
		return nil, &UnknownKeyError{Key: key}
	}

	if b, ok := named[name]; ok {
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}

	runes := []rune(key)
	if len(runes) == 1 {
		return []byte(string(runes[0])), nil
	}

	return nil, &UnknownKeyError{Key: key}
}
