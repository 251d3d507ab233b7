package remote

import "strings"

// ErrorKind is the closed taxonomy of error kinds a remote operation may
// surface (spec.md §7). Only the kind and a human-readable message cross
// the remote-operation boundary; raw Go error chains never do.
type ErrorKind string

const (
	InvalidArgs    ErrorKind = "InvalidArgs"
	UnknownKey     ErrorKind = "UnknownKey"
	NoSession      ErrorKind = "NoSession"
	UnknownSession ErrorKind = "UnknownSession"
	NotRunning     ErrorKind = "NotRunning"
	SpawnFailed    ErrorKind = "SpawnFailed"
	AlreadyRunning ErrorKind = "AlreadyRunning"
)

// Error is a structured error payload carrying a kind and a message. It
// implements the error interface.
type Error struct {
	Kind        ErrorKind
	Message     string
	AvailableIDs []string // populated for UnknownSession
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Kind == UnknownSession && len(e.AvailableIDs) > 0 {
		msg = msg + " (available IDs: " + strings.Join(e.AvailableIDs, ", ") + ")"
	}
	return msg
}

func newErr(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

func unknownSession(id string, available []string) *Error {
	return &Error{
		Kind:         UnknownSession,
		Message:      "no session with id " + id,
		AvailableIDs: available,
	}
}
