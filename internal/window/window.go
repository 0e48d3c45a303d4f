// Package window provides handles on the host application window that the
// capture session hides while a screenshot is taken.
package window

import (
	"sync"

	"github.com/bryanchriswhite/focusshot/internal/config"
	"github.com/bryanchriswhite/focusshot/internal/logger"
)

// Headless stands in for a host window when focusshot runs without one, for
// example from the CLI or the HTTP server. It only remembers its visibility.
type Headless struct {
	mu      sync.Mutex
	visible bool
}

// NewHeadless returns a headless window in the given visibility.
func NewHeadless(visible bool) *Headless {
	return &Headless{visible: visible}
}

func (h *Headless) Hide() error {
	h.mu.Lock()
	h.visible = false
	h.mu.Unlock()
	return nil
}

func (h *Headless) Show() error {
	h.mu.Lock()
	h.visible = true
	h.mu.Unlock()
	return nil
}

func (h *Headless) IsVisible() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.visible
}

// Handle is what the session manager needs from a host window.
type Handle interface {
	Hide() error
	Show() error
	IsVisible() bool
}

// Open returns the host window named by cfg. With no host class configured,
// or when the X11 lookup fails, it returns a hidden Headless window, which
// the session manager never touches.
func Open(cfg config.WindowConfig) Handle {
	log := logger.WithComponent("window")
	if cfg.HostClass == "" {
		return NewHeadless(false)
	}
	w, err := FindX11(cfg.HostClass)
	if err != nil {
		log.Warn().Err(err).Str("class", cfg.HostClass).Msg("Host window not found, running headless")
		return NewHeadless(false)
	}
	return w
}
