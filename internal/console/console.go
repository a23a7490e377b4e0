// Package console renders operator-facing status lines and the blocking
// acknowledgment prompt shown before the updater exits.
package console

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

const (
	successSymbol = "✅"
	failureSymbol = "❌"
	warningSymbol = "⚠"
)

// Console writes status lines to out and reads acknowledgments from in.
type Console struct {
	in          io.Reader
	out         io.Writer
	interactive bool

	failStyle    lipgloss.Style
	successStyle lipgloss.Style
	warnStyle    lipgloss.Style
}

// NewWithIO creates a console with custom input/output (for testing).
// Styles are bound to out, so writers that are not terminals get plain text.
func NewWithIO(in io.Reader, out io.Writer, interactive bool) *Console {
	r := lipgloss.NewRenderer(out)
	return &Console{
		in:           in,
		out:          out,
		interactive:  interactive,
		failStyle:    r.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		successStyle: r.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		warnStyle:    r.NewStyle().Foreground(lipgloss.Color("11")),
	}
}

// IsTerminal reports whether stdin is a terminal (TTY).
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// Out returns the writer status lines go to.
func (c *Console) Out() io.Writer {
	return c.out
}

// Interactive reports whether Acknowledge blocks.
func (c *Console) Interactive() bool {
	return c.interactive
}

// Info prints a plain status line.
func (c *Console) Info(format string, args ...interface{}) {
	_, _ = fmt.Fprintf(c.out, format+"\n", args...)
}

// Success prints a line prefixed with the success marker.
func (c *Console) Success(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(c.out, c.successStyle.Render(successSymbol+" "+msg))
}

// Warn prints a line prefixed with the warning marker.
func (c *Console) Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(c.out, c.warnStyle.Render(warningSymbol+" "+msg))
}

// Fail prints a diagnostic prefixed with the failure marker.
func (c *Console) Fail(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	_, _ = fmt.Fprintln(c.out, c.failStyle.Render(failureSymbol+" "+msg))
}

// Acknowledge shows prompt and blocks until the operator presses Enter or
// ctx is done. Non-interactive consoles return immediately without printing
// the prompt. End of input counts as an acknowledgment.
func (c *Console) Acknowledge(ctx context.Context, prompt string) {
	if !c.interactive {
		return
	}
	_, _ = fmt.Fprint(c.out, prompt)

	// The read cannot be interrupted, so it is left behind on cancellation.
	read := make(chan struct{})
	go func() {
		_, _ = bufio.NewReader(c.in).ReadString('\n')
		close(read)
	}()

	select {
	case <-read:
	case <-ctx.Done():
	}
	_, _ = fmt.Fprintln(c.out)
}
