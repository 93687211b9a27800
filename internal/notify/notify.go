// Package notify delivers short user-facing messages, the toasts of the
// client. Services depend on the Notifier interface; the CLI installs a
// Console that prints styled lines to a terminal.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

type Level int

const (
	Info Level = iota
	Success
	Warning
	Error
)

func (l Level) String() string {
	switch l {
	case Success:
		return "success"
	case Warning:
		return "warning"
	case Error:
		return "error"
	default:
		return "info"
	}
}

type Notifier interface {
	Notify(level Level, msg string)
}

// Nop discards every message.
type Nop struct{}

func (Nop) Notify(Level, string) {}

// Func adapts a plain function to Notifier.
type Func func(level Level, msg string)

func (f Func) Notify(level Level, msg string) { f(level, msg) }

var (
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

// Console writes one styled line per message.
type Console struct {
	mu sync.Mutex
	w  io.Writer
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

func (c *Console) Notify(level Level, msg string) {
	var prefix string
	switch level {
	case Success:
		prefix = successStyle.Render("✓")
	case Warning:
		prefix = warningStyle.Render("!")
	case Error:
		prefix = errorStyle.Render("✗")
	default:
		prefix = infoStyle.Render("•")
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, _ = fmt.Fprintf(c.w, "%s %s\n", prefix, msg)
}
