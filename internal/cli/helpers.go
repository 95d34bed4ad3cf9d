package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aretw0/stateflow/internal/config"
	"github.com/aretw0/stateflow/internal/logging"
	"github.com/aretw0/stateflow/internal/presentation/tui"
)

// SignalContext wraps a context and captures the signal that cancelled it.
type SignalContext struct {
	context.Context
	Cancel func()
	stop   sync.Once
	sigCh  chan os.Signal
	sigVal os.Signal
	mu     sync.Mutex
}

// NewSignalContext creates a context that is cancelled on SIGINT or SIGTERM.
// Unlike signal.NotifyContext it lets callers ask which signal arrived.
func NewSignalContext(parent context.Context) *SignalContext {
	ctx, cancel := context.WithCancel(parent)
	sc := &SignalContext{
		Context: ctx,
		Cancel:  cancel,
		sigCh:   make(chan os.Signal, 1),
	}

	signal.Notify(sc.sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sc.sigCh:
			sc.mu.Lock()
			sc.sigVal = sig
			sc.mu.Unlock()
			sc.Cancel()
		case <-sc.Context.Done():
		}
		sc.stop.Do(func() {
			signal.Stop(sc.sigCh)
		})
	}()

	return sc
}

// Signal returns the signal that caused the context to be cancelled, or nil.
func (sc *SignalContext) Signal() os.Signal {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.sigVal
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the application logger from the log settings.
// The closer flushes the rotating log file when one is configured.
func NewLogger(cfg config.LogConfig) (*slog.Logger, io.Closer, error) {
	level, err := logging.ParseLevel(cfg.Level)
	if err != nil {
		return nil, nil, err
	}
	if cfg.File != "" {
		logger, closer := logging.NewWithFile(level, cfg.File)
		return logger, closer, nil
	}
	return logging.New(level), nopCloser{}, nil
}

// PrintSystemMessage prints a standardized system message.
func PrintSystemMessage(w io.Writer, format string, args ...any) {
	fmt.Fprintf(w, ">>> %s\n", fmt.Sprintf(format, args...))
}

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Output writes command results either as JSON or as terminal-rendered markdown.
type Output struct {
	W    io.Writer
	JSON bool
}

// NewOutput picks JSON unless stdout is an interactive terminal and forceJSON is false.
func NewOutput(forceJSON bool) Output {
	return Output{W: os.Stdout, JSON: forceJSON || !tui.IsInteractive(os.Stdout)}
}

// Print emits v as JSON, or markdown rendered through glamour.
func (o Output) Print(v any, markdown string) error {
	if o.JSON {
		return PrintJSON(o.W, v)
	}
	rendered, err := tui.NewRenderer()(markdown)
	if err != nil {
		rendered = markdown
	}
	_, err = io.WriteString(o.W, rendered)
	return err
}
