// Package linear implements a synchronous, line-buffered ports.Renderer for
// CI and other non-interactive environments: chronological log lines
// prefixed with the emitting script's label.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/wireit-go/wireit/internal/core/ports"
	"github.com/wireit-go/wireit/internal/ui/style"
)

// Renderer implements ports.Renderer, printing one prefixed line per
// complete line of script output as it arrives.
type Renderer struct {
	stdout   io.Writer
	stderr   io.Writer
	renderer *lipgloss.Renderer

	mu      sync.Mutex
	started map[string]time.Time
	buffers map[string]*bytes.Buffer
}

// NewRenderer creates a Renderer writing script output to stdout and its
// own status lines to stderr.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}
	return &Renderer{
		stdout:   stdout,
		stderr:   stderr,
		renderer: lipgloss.NewRenderer(stderr),
		started:  make(map[string]time.Time),
		buffers:  make(map[string]*bytes.Buffer),
	}
}

// Start is a no-op; the linear renderer has no background lifecycle.
func (r *Renderer) Start(_ context.Context) error { return nil }

// Stop flushes any buffered partial lines.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for spanID := range r.buffers {
		r.flushLocked(spanID)
	}
	return nil
}

// Wait is a no-op; Stop already flushes synchronously.
func (r *Renderer) Wait() error { return nil }

// OnPlanEmit announces the resolved execution plan.
func (r *Renderer) OnPlanEmit(scripts []string, _ map[string][]string, root string) {
	fmt.Fprintf(r.stderr, "Resolved %d script(s) for %q\n", len(scripts), root)
}

// OnScriptStart records the script's start time and prints a start line.
func (r *Renderer) OnScriptStart(spanID, _, label string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.started[spanID] = startTime
	r.buffers[spanID] = new(bytes.Buffer)

	prefix := r.renderer.NewStyle().Foreground(style.Slate).Render("[" + label + "]")
	fmt.Fprintf(r.stderr, "%s starting\n", prefix)
}

// OnScriptLog buffers data and prints each complete line, prefixed with the
// script's label; stderr chunks and stdout chunks share the same line
// buffer so cross-stream ordering within one script is preserved.
func (r *Renderer) OnScriptLog(spanID string, data []byte, _ bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	buf, ok := r.buffers[spanID]
	if !ok {
		return
	}
	buf.Write(data)

	for {
		line, err := buf.ReadBytes('\n')
		if err != nil {
			if len(line) > 0 {
				remainder := new(bytes.Buffer)
				remainder.Write(line)
				r.buffers[spanID] = remainder
			}
			return
		}
		r.printLineLocked(spanID, line)
	}
}

// OnScriptComplete flushes any remaining buffer and prints a summary line.
func (r *Renderer) OnScriptComplete(spanID string, endTime time.Time, outcome ports.ExecutionOutcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	start, ok := r.started[spanID]
	if !ok {
		return
	}
	r.flushLocked(spanID)

	duration := endTime.Sub(start)
	prefix := "[" + spanID + "]"

	switch outcome {
	case ports.OutcomeFailed:
		symbol := r.renderer.NewStyle().Foreground(style.Red).Render(style.Cross)
		fmt.Fprintf(r.stderr, "%s %s failed after %v: %v\n", prefix, symbol, duration, err)
	case ports.OutcomeSuccessFresh:
		fmt.Fprintf(r.stderr, "%s Already fresh\n", prefix)
	case ports.OutcomeSuccessCached:
		symbol := r.renderer.NewStyle().Foreground(style.Green).Render(style.Check)
		fmt.Fprintf(r.stderr, "%s %s restored from cache\n", prefix, symbol)
	case ports.OutcomeSuccessNoCommand:
		fmt.Fprintf(r.stderr, "%s no command\n", prefix)
	default:
		symbol := r.renderer.NewStyle().Foreground(style.Green).Render(style.Check)
		fmt.Fprintf(r.stderr, "%s %s completed in %v\n", prefix, symbol, duration)
	}

	delete(r.started, spanID)
	delete(r.buffers, spanID)
}

func (r *Renderer) flushLocked(spanID string) {
	buf, ok := r.buffers[spanID]
	if !ok || buf.Len() == 0 {
		return
	}
	line := buf.Bytes()
	buf.Reset()
	r.printLineLocked(spanID, line)
}

func (r *Renderer) printLineLocked(spanID string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	fmt.Fprintf(r.stdout, "[%s] %s\n", spanID, line)
}
