// Package theme keeps the persisted light/dark preference of a page session.
package theme

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	storefronterrors "github.com/mugbeans/storefront/internal/errors"
	"github.com/mugbeans/storefront/internal/storage"
)

// StorageKey is the key the preference is persisted under.
const StorageKey = "theme"

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Switcher holds the active theme.
type Switcher struct {
	mu      sync.Mutex
	current Theme
	storage storage.Storage
	logger  *slog.Logger
}

// NewSwitcher reads the stored preference. Only a stored "dark" selects the dark theme.
func NewSwitcher(ctx context.Context, st storage.Storage, logger *slog.Logger) *Switcher {
	s := &Switcher{current: Light, storage: st, logger: logger.With("component", "theme")}
	data, err := st.GetItem(ctx, StorageKey)
	if err == nil && Theme(data) == Dark {
		s.current = Dark
	}
	return s
}

// Current returns the active theme.
func (s *Switcher) Current() Theme {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Toggle flips the theme and persists it. The switch takes effect even if persisting fails.
func (s *Switcher) Toggle(ctx context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == Dark {
		s.current = Light
	} else {
		s.current = Dark
	}
	if err := s.storage.SetItem(ctx, StorageKey, []byte(s.current)); err != nil {
		s.logger.ErrorContext(ctx, "Failed to persist theme", "theme", s.current, "error", err)
		return s.current, fmt.Errorf("%w: %w", storefronterrors.ErrPersistTheme, err)
	}
	return s.current, nil
}
