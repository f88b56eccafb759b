package tui

import (
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// RunWithWork runs model while workFn executes in the background. workFn
// reports progress through send; the program quits once workFn returns.
func RunWithWork(out io.Writer, model ProgressModel, workFn func(send func(tea.Msg))) error {
	p := tea.NewProgram(model, tea.WithOutput(out), tea.WithInput(nil))

	go func() {
		// Let the first frame render before updates arrive.
		time.Sleep(50 * time.Millisecond)
		workFn(p.Send)
		p.Send(WorkDoneMsg{})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(ProgressModel); ok && m.Err() != nil {
		return m.Err()
	}
	return nil
}
