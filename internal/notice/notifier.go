// Package notice shows transient, auto-dismissing messages to the user.
package notice

import (
	"log/slog"
	"sync"
	"time"
)

const (
	DefaultDuration = 3 * time.Second
	OrderDuration   = 2 * time.Second
)

// Notice is the message currently on screen.
type Notice struct {
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Notifier holds at most one notice. A new notice replaces the current one and restarts the
// dismissal timer; there is no queue.
type Notifier struct {
	mu         sync.Mutex
	current    *Notice
	generation uint64
	timer      *time.Timer
	logger     *slog.Logger
}

func NewNotifier(logger *slog.Logger) *Notifier {
	return &Notifier{logger: logger.With("component", "notice")}
}

// Show displays message for DefaultDuration.
func (n *Notifier) Show(message string) {
	n.ShowFor(message, DefaultDuration)
}

// ShowFor displays message for d.
func (n *Notifier) ShowFor(message string, d time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.generation++
	gen := n.generation
	n.current = &Notice{Message: message, ExpiresAt: time.Now().Add(d)}
	n.timer = time.AfterFunc(d, func() { n.dismiss(gen) })

	n.logger.Debug("Showing notice", "message", message, "duration", d)
}

// dismiss hides the notice shown as generation gen. A timer that fires after a newer
// notice replaced it leaves the newer one alone.
func (n *Notifier) dismiss(gen uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if gen != n.generation {
		return
	}
	n.current = nil
	n.timer = nil
}

// Current returns the visible notice, if any.
func (n *Notifier) Current() (Notice, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.current == nil {
		return Notice{}, false
	}
	return *n.current, true
}

// Stop hides the current notice and cancels its timer.
func (n *Notifier) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.generation++
	n.current = nil
}
