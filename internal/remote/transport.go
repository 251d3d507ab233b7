package remote

import (
	"bufio"
	"encoding/json"
	"io"
	"time"

	"github.com/google/uuid"

	"ptyctl/internal/activitylog"
)

// request is the wire shape of one line of the newline-delimited JSON
// transport: one JSON object per request line, one per response line.
type request struct {
	Operation string          `json:"operation"`
	Args      json.RawMessage `json:"args"`
}

type response struct {
	Operation string     `json:"operation"`
	Result    any        `json:"result,omitempty"`
	Error     *wireError `json:"error,omitempty"`
}

type wireError struct {
	Kind         ErrorKind `json:"kind"`
	Message      string    `json:"message"`
	AvailableIDs []string  `json:"available_ids,omitempty"`
}

// Serve reads newline-delimited JSON requests from r and writes
// newline-delimited JSON responses to w until r is exhausted. Every call is
// logged to the activity logger as a TOOL_CALL/TOOL_RESULT pair.
func Serve(d *Dispatcher, r io.Reader, w io.Writer, log *activitylog.Logger) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	enc := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(response{Error: &wireError{Kind: InvalidArgs, Message: "malformed request: " + err.Error()}})
			continue
		}
		if len(req.Args) == 0 {
			req.Args = json.RawMessage("{}")
		}

		requestID := uuid.New().String()
		start := time.Now()
		var argsMap map[string]any
		json.Unmarshal(req.Args, &argsMap)
		log.ToolCall(requestID, req.Operation, argsMap)

		result, rerr := dispatch(d, req.Operation, req.Args)

		outcome := "ok"
		resp := response{Operation: req.Operation, Result: result}
		if rerr != nil {
			outcome = "error"
			resp.Error = &wireError{Kind: rerr.Kind, Message: rerr.Message, AvailableIDs: rerr.AvailableIDs}
		}
		log.ToolResult(requestID, req.Operation, outcome, time.Since(start))

		if err := enc.Encode(resp); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func dispatch(d *Dispatcher, operation string, rawArgs json.RawMessage) (any, *Error) {
	switch operation {
	case "view_screen":
		var args struct {
			TerminalID      string `json:"terminal_id"`
			IncludeMetadata bool   `json:"include_metadata"`
		}
		json.Unmarshal(rawArgs, &args)
		res, err := d.ViewScreen(ViewScreenArgs{TerminalID: args.TerminalID, IncludeMetadata: args.IncludeMetadata})
		if err != nil {
			return nil, err
		}
		if args.IncludeMetadata {
			return res, nil
		}
		return res.Screen, nil

	case "type_text":
		var args struct {
			TerminalID string `json:"terminal_id"`
			Text       string `json:"text"`
		}
		json.Unmarshal(rawArgs, &args)
		return d.TypeText(TypeTextArgs{TerminalID: args.TerminalID, Text: args.Text})

	case "press_key":
		var args struct {
			TerminalID string `json:"terminal_id"`
			Key        string `json:"key"`
		}
		json.Unmarshal(rawArgs, &args)
		return d.PressKey(PressKeyArgs{TerminalID: args.TerminalID, Key: args.Key})

	case "get_screen_size":
		var args struct {
			TerminalID string `json:"terminal_id"`
		}
		json.Unmarshal(rawArgs, &args)
		return d.GetScreenSize(args.TerminalID)

	case "wait":
		var args struct {
			TerminalID string `json:"terminal_id"`
			MS         int    `json:"ms"`
		}
		json.Unmarshal(rawArgs, &args)
		return d.Wait(args.MS), nil

	case "run_tui":
		args, err := parseRunArgs(rawArgs)
		if err != nil {
			return nil, err
		}
		return d.RunTUI(args)

	case "stop_tui":
		return d.StopTUI()

	case "create_process":
		args, err := parseRunArgs(rawArgs)
		if err != nil {
			return nil, err
		}
		return d.CreateProcess(args)

	case "kill_process":
		var args struct {
			TerminalID string `json:"terminal_id"`
		}
		json.Unmarshal(rawArgs, &args)
		return d.KillProcess(args.TerminalID)

	case "list_tabs":
		return d.ListTabs(), nil

	default:
		return nil, newErr(InvalidArgs, "unknown operation "+operation)
	}
}

func parseRunArgs(rawArgs json.RawMessage) (RunArgs, *Error) {
	var args struct {
		Command string            `json:"command"`
		Args    []string          `json:"args"`
		Cwd     string            `json:"cwd"`
		Cols    int               `json:"cols"`
		Rows    int               `json:"rows"`
		Env     map[string]string `json:"env"`
	}
	if err := json.Unmarshal(rawArgs, &args); err != nil {
		return RunArgs{}, newErr(InvalidArgs, "malformed args: "+err.Error())
	}
	return RunArgs{
		Command: args.Command,
		Args:    args.Args,
		Cwd:     args.Cwd,
		Cols:    args.Cols,
		Rows:    args.Rows,
		Env:     args.Env,
	}, nil
}
