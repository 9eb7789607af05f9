package session

import (
	"sync"
	"time"
)

// Pages a session can be on.
const (
	LandingPage  = "index.html"
	CheckoutPage = "checkout.html"
)

// Location is where the page is and where it is about to go.
type Location struct {
	Page       string     `json:"page"`
	Pending    string     `json:"pending,omitempty"`
	NavigateAt *time.Time `json:"navigate_at,omitempty"`
}

type navigator struct {
	mu       sync.Mutex
	page     string
	pending  string
	at       time.Time
	timer    *time.Timer
	onArrive func(page string)
}

func newNavigator(page string, onArrive func(page string)) *navigator {
	return &navigator{page: page, onArrive: onArrive}
}

// Navigate moves to location once delay has elapsed. A later call replaces a pending navigation.
func (n *navigator) Navigate(location string, delay time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.timer != nil {
		n.timer.Stop()
	}
	n.pending = location
	n.at = time.Now().Add(delay)
	n.timer = time.AfterFunc(delay, func() { n.arrive(location) })
}

// Go moves to page immediately and discards a pending navigation.
func (n *navigator) Go(page string) {
	n.mu.Lock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
	n.pending = ""
	n.page = page
	n.mu.Unlock()

	n.onArrive(page)
}

func (n *navigator) arrive(location string) {
	n.mu.Lock()
	if n.pending != location {
		n.mu.Unlock()
		return
	}
	n.page = location
	n.pending = ""
	n.timer = nil
	n.mu.Unlock()

	n.onArrive(location)
}

func (n *navigator) Location() Location {
	n.mu.Lock()
	defer n.mu.Unlock()

	loc := Location{Page: n.page, Pending: n.pending}
	if n.pending != "" {
		at := n.at
		loc.NavigateAt = &at
	}
	return loc
}

func (n *navigator) stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}
