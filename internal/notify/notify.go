// Package notify carries user-visible, non-fatal problems to whatever UI is
// attached. Notifications are fire-and-forget.
package notify

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notifier shows an error dialog (or its equivalent) to the user.
type Notifier interface {
	ShowError(title, message string)
}

// Func adapts a function to Notifier.
type Func func(title, message string)

// ShowError implements Notifier.
func (f Func) ShowError(title, message string) {
	if f != nil {
		f(title, message)
	}
}

// Discard drops notifications.
var Discard Notifier = Func(nil)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("1"))
	messageStyle = lipgloss.NewStyle().PaddingLeft(2)
)

// Writer prints notifications to an io.Writer, one block per notification.
type Writer struct {
	mu  sync.Mutex
	out io.Writer
}

// NewWriter returns a Writer notifier.
func NewWriter(out io.Writer) *Writer {
	return &Writer{out: out}
}

// ShowError implements Notifier.
func (w *Writer) ShowError(title, message string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fmt.Fprintln(w.out, titleStyle.Render(title))
	fmt.Fprintln(w.out, messageStyle.Render(message))
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// ShowError implements Notifier.
func (m Multi) ShowError(title, message string) {
	for _, n := range m {
		if n != nil {
			n.ShowError(title, message)
		}
	}
}

// OrDiscard returns n, or Discard when n is nil.
func OrDiscard(n Notifier) Notifier {
	if n == nil {
		return Discard
	}
	return n
}
