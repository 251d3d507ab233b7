// Command server is the ptyctl control server: it drives interactive TUI
// applications under a PTY and exposes the spec's remote operations over a
// newline-delimited JSON transport on stdin/stdout.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"ptyctl/internal/activitylog"
	"ptyctl/internal/config"
	"ptyctl/internal/liverender"
	"ptyctl/internal/ptysession"
	"ptyctl/internal/registry"
	"ptyctl/internal/remote"
	"ptyctl/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cols         int
		rows         int
		cwd          string
		live         bool
		liveFilePath string
		logFilePath  string
	)

	cmd := &cobra.Command{
		Use:     "server [--cols N] [--rows N] [--cwd P] [--live] [--live-file P] [--log-file P] [command args...]",
		Short:   "Drive interactive TUI applications over a remote PTY-control protocol",
		Version: version.DisplayVersion(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(runOptions{
				cols:         cols,
				rows:         rows,
				cwd:          cwd,
				live:         live,
				liveFilePath: liveFilePath,
				logFilePath:  logFilePath,
				legacyArgs:   args,
			})
		},
	}

	cmd.Flags().IntVar(&cols, "cols", 0, "default session width (overrides config, falls back to 80)")
	cmd.Flags().IntVar(&rows, "rows", 0, "default session height (overrides config, falls back to 24)")
	cmd.Flags().StringVar(&cwd, "cwd", "", "default working directory for spawned sessions")
	cmd.Flags().BoolVar(&live, "live", false, "mirror the focused session to stderr")
	cmd.Flags().StringVar(&liveFilePath, "live-file", "", "mirror the focused session to this file, overwritten in place")
	cmd.Flags().StringVar(&logFilePath, "log-file", "", "append TOOL_CALL/TOOL_RESULT activity records to this file")

	return cmd
}

type runOptions struct {
	cols, rows   int
	cwd          string
	live         bool
	liveFilePath string
	logFilePath  string
	legacyArgs   []string
}

const (
	defaultCols = 80
	defaultRows = 24
)

func run(opts runOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	cols := firstPositive(opts.cols, cfg.Cols, defaultCols)
	rows := firstPositive(opts.rows, cfg.Rows, defaultRows)

	log := activitylog.New(opts.logFilePath != "", opts.logFilePath)
	defer log.Close()

	reg := registry.New()
	dispatcher := remote.NewDispatcher(reg, cols, rows, opts.cwd)

	renderer := liverender.New(opts.live, opts.liveFilePath)
	if renderer.Enabled() {
		wireLiveRenderer(reg, dispatcher, renderer)
	}

	if len(opts.legacyArgs) > 0 {
		recipe := ptysession.Recipe{
			Command: opts.legacyArgs[0],
			Args:    opts.legacyArgs[1:],
			Cwd:     opts.cwd,
			Cols:    cols,
			Rows:    rows,
			Env:     cfg.Env,
		}
		if _, err := reg.SetLegacy(recipe); err != nil {
			return fmt.Errorf("start legacy session: %w", err)
		}
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- remote.Serve(dispatcher, os.Stdin, os.Stdout, log)
	}()

	select {
	case err := <-serveErr:
		gracefulShutdown(reg, renderer)
		return err
	case <-shutdown:
		gracefulShutdown(reg, renderer)
		return nil
	}
}

// gracefulShutdown kills every session, flushes the live-file sink once,
// and restores the live-terminal sink, per spec.md §5.
func gracefulShutdown(reg *registry.Registry, renderer *liverender.Renderer) {
	reg.KillAll()
	if legacy := reg.Legacy(); legacy != nil {
		legacy.Stop()
	}
	renderer.Shutdown()
}

// wireLiveRenderer subscribes the renderer to the registry's data/exit
// streams, scheduling a debounced redraw for every event matching the
// dispatcher's current focus (spec.md §4.F). The status bar's LastCall is
// the fixed label "data" for both data and exit events and At is the time
// of the event; the most recent remote operation is not passed to it.
func wireLiveRenderer(reg *registry.Registry, d *remote.Dispatcher, renderer *liverender.Renderer) {
	schedule := func(terminalID string) {
		if terminalID != d.Focus() {
			return
		}
		sess := reg.Get(terminalID)
		if sess == nil {
			return
		}
		scr := sess.GetScreen()
		renderer.Schedule(liverender.Snapshot{
			TerminalID: terminalID,
			Lines:      scr.Lines,
			Cursor:     scr.Cursor,
			Cols:       scr.Cols,
			Rows:       scr.Rows,
			Status:     liverender.Status{LastCall: "data", At: time.Now()},
		})
	}

	reg.On(registry.EventData, func(ev registry.Event) { schedule(ev.TerminalID) })
	reg.On(registry.EventExit, func(ev registry.Event) { schedule(ev.TerminalID) })
}

func firstPositive(vals ...int) int {
	for _, v := range vals {
		if v > 0 {
			return v
		}
	}
	return 0
}
