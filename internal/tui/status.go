package tui

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// StatusWriter keeps a single spinner line up to date while a long step,
// such as an app install, runs in the background.
type StatusWriter struct {
	w          io.Writer
	mu         sync.Mutex
	label      string
	message    string
	phaseStart time.Time
	done       chan struct{}
	stopped    bool
}

// NewStatusWriter starts the spinner. label prefixes every line.
func NewStatusWriter(w io.Writer, label string) *StatusWriter {
	sw := &StatusWriter{
		w:          w,
		label:      label,
		phaseStart: time.Now(),
		done:       make(chan struct{}),
	}
	go sw.loop()
	return sw
}

// Update replaces the message and restarts the elapsed timer.
func (sw *StatusWriter) Update(msg string) {
	sw.mu.Lock()
	sw.message = msg
	sw.phaseStart = time.Now()
	sw.mu.Unlock()
}

// Phase returns a callback that shows each reported phase, suitable for an
// install's OnPhase hook.
func Phase[P ~string](sw *StatusWriter) func(P) {
	return func(p P) {
		sw.Update(string(p))
	}
}

// Stop clears the line and stops the spinner. It is safe to call twice.
func (sw *StatusWriter) Stop() {
	sw.mu.Lock()
	if sw.stopped {
		sw.mu.Unlock()
		return
	}
	sw.stopped = true
	sw.mu.Unlock()
	close(sw.done)
	fmt.Fprint(sw.w, "\r\033[K")
}

func (sw *StatusWriter) loop() {
	tick := 0
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.done:
			return
		case <-ticker.C:
			sw.mu.Lock()
			line := sw.render(tick)
			sw.mu.Unlock()
			tick++
			fmt.Fprint(sw.w, line)
		}
	}
}

// render must be called with mu held.
func (sw *StatusWriter) render(tick int) string {
	frame := spinnerFrames[tick%len(spinnerFrames)]
	msg := sw.message
	if sw.label != "" {
		msg = sw.label + ": " + msg
	}
	return fmt.Sprintf("\r\033[K%s %s (%s)", frame, msg, formatElapsed(time.Since(sw.phaseStart)))
}

func formatElapsed(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < 10*time.Second:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
}
