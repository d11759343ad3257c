// Package browser owns the Chrome lifecycle for one run: launch a local
// instance (or attach to a remote one), hand out prepared pages, tear
// everything down when the run ends.
package browser

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// DefaultUserAgent is the desktop Chrome identity presented to the site.
// Watch pages serve a different DOM to clients they classify as bots, so a
// realistic UA is part of extraction correctness, not cosmetics.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the WebSocket URL of an external Chrome instance.
	// Empty = launch a local Chrome via launcher.
	RemoteURL string

	// ChromePath points the launcher at a specific browser binary.
	// Empty = let the launcher find one.
	ChromePath string

	// Headful disables headless mode, for watching runs during debugging.
	Headful bool

	// UserAgent overrides DefaultUserAgent.
	UserAgent string

	// WindowWidth and WindowHeight size the browser window (and with it
	// the viewport). Default: 1920x1080.
	WindowWidth  int
	WindowHeight int

	// BlockResources lists resource types to drop at the network layer
	// (images, fonts, media, stylesheets). Empty = block nothing.
	BlockResources []string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1920
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1080
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager manages the Chrome process for a run.
type Manager struct {
	cfg     Config
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool
}

// NewManager creates a Manager. Call Start to launch Chrome.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome (or connects to a remote instance).
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return nil
	}

	log := m.cfg.Logger

	var wsURL string
	if m.cfg.RemoteURL != "" {
		wsURL = m.cfg.RemoteURL
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().
			Headless(!m.cfg.Headful).
			Set("disable-blink-features", "AutomationControlled").
			Set("no-sandbox").
			Set("disable-setuid-sandbox").
			Set("user-agent", m.cfg.UserAgent).
			Set("window-size", fmt.Sprintf("%d,%d", m.cfg.WindowWidth, m.cfg.WindowHeight))
		if m.cfg.ChromePath != "" {
			l = l.Bin(m.cfg.ChromePath)
		}

		u, err := l.Launch()
		if err != nil {
			return fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "headful", m.cfg.Headful)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return fmt.Errorf("browser: connect: %w", err)
	}

	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}

	m.browser = b
	return nil
}

// NewTab opens a prepared stealth page. When isolated is true the page lives
// in its own incognito context, so cookies and storage never leak between
// extraction units; closing the tab disposes the context again.
func (m *Manager) NewTab(isolated bool) (*Tab, error) {
	m.mu.Lock()
	b := m.browser
	closed := m.closed
	m.mu.Unlock()

	if closed || b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	tab := &Tab{log: m.cfg.Logger}
	if isolated {
		inc, err := b.Incognito()
		if err != nil {
			return nil, fmt.Errorf("browser: incognito context: %w", err)
		}
		b = inc
		// The context holds the unit's cookie jar and storage; it must go
		// when the tab does, or a long run piles them up in Chrome.
		tab.dispose = func() error {
			return proto.TargetDisposeBrowserContext{BrowserContextID: inc.BrowserContextID}.Call(inc)
		}
	}

	page, err := stealth.Page(b)
	if err != nil {
		if tab.dispose != nil {
			_ = tab.dispose()
		}
		return nil, fmt.Errorf("browser: create page: %w", err)
	}
	tab.page = page

	if len(m.cfg.BlockResources) > 0 {
		if err := blockResources(page, m.cfg.BlockResources); err != nil {
			m.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	return tab, nil
}

// Close shuts down Chrome and releases the launcher's user data dir.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closed = true
	if m.browser != nil {
		m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	return nil
}
