// CLAUDE:SUMMARY Chrome lifecycle for capture jobs: launch or connect, per-page incognito contexts, recycling between jobs.
// Package browser owns the Chrome process used for captures: start it or
// connect to a remote one, hand out one isolated tab per page, and recycle
// the process between jobs when it has lived too long or grown too large.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// StealthLevel controls how the browser is driven.
type StealthLevel int

const (
	LevelPlain    StealthLevel = 0 // headless, no evasion scripts
	LevelHeadless StealthLevel = 1 // headless + stealth
	LevelHeadful  StealthLevel = 2 // headful on Xvfb + stealth
)

// ParseStealth maps a config string to a level. Unknown values fall back to
// LevelHeadless.
func ParseStealth(s string) StealthLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "plain", "0":
		return LevelPlain
	case "headful", "2":
		return LevelHeadful
	default:
		return LevelHeadless
	}
}

// Config configures the browser manager.
type Config struct {
	// RemoteURL is the DevTools WebSocket URL of an external Chrome.
	// Empty launches a local Chrome.
	RemoteURL string

	// ViewportWidth and ViewportHeight size every tab. Default: 1200x1200.
	ViewportWidth  int
	ViewportHeight int

	// NavTimeout bounds navigation and load. Default: 25s.
	NavTimeout time.Duration

	// MemoryLimit is the JS heap size above which Chrome is recycled
	// between jobs. Default: 1GB.
	MemoryLimit int64

	// RecycleInterval is the maximum lifetime of a Chrome process. Default: 4h.
	RecycleInterval time.Duration

	// ResourceBlocking lists resource types not to load (fonts, media).
	// Images and stylesheets are needed for screenshots and are ignored.
	ResourceBlocking []string

	Stealth StealthLevel

	// XvfbDisplay for headful mode. Default: ":99".
	XvfbDisplay string

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.ViewportWidth <= 0 {
		c.ViewportWidth = 1200
	}
	if c.ViewportHeight <= 0 {
		c.ViewportHeight = 1200
	}
	if c.NavTimeout <= 0 {
		c.NavTimeout = 25 * time.Second
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Manager owns the Chrome process. Tabs opened from it are independent and
// may be used from different goroutines, one goroutine per tab.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	closed  bool
	active  sync.WaitGroup
}

// NewManager creates a Manager. Call Start before opening tabs.
func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Start launches Chrome or connects to the remote instance.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}
	if m.browser != nil {
		return nil
	}
	b, err := m.launch(ctx)
	if err != nil {
		return err
	}
	m.browser = b
	m.startAt = time.Now()
	return nil
}

// Browser returns the current rod handle, nil before Start.
func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// MaybeRecycle restarts Chrome when it exceeded its lifetime or memory
// limit. It waits for open tabs to close first and is meant to be called
// between jobs.
func (m *Manager) MaybeRecycle(ctx context.Context) error {
	m.mu.RLock()
	b, startAt, closed := m.browser, m.startAt, m.closed
	m.mu.RUnlock()
	if closed || b == nil {
		return nil
	}

	reason := ""
	if time.Since(startAt) > m.cfg.RecycleInterval {
		reason = "interval"
	} else if used, err := jsHeapUsage(b); err != nil {
		m.cfg.Logger.Debug("browser: heap check failed", "error", err)
	} else if used > m.cfg.MemoryLimit {
		reason = "memory"
	}
	if reason == "" {
		return nil
	}

	m.active.Wait()
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.cfg.Logger.Info("browser: recycling", "reason", reason, "uptime", time.Since(m.startAt))
	if err := m.cleanup(); err != nil {
		m.cfg.Logger.Warn("browser: cleanup during recycle", "error", err)
	}
	nb, err := m.launch(ctx)
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = nb
	m.startAt = time.Now()
	m.cfg.Logger.Info("browser: recycled")
	return nil
}

// Close shuts down Chrome and Xvfb.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Stealth == LevelHeadful && m.cfg.RemoteURL == "" {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	wsURL := m.cfg.RemoteURL
	if wsURL != "" {
		log.Info("browser: connecting to remote", "url", wsURL)
	} else {
		l := launcher.New().Context(ctx)
		if m.cfg.Stealth == LevelHeadful {
			l = l.Headless(false).Env("DISPLAY=" + m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(true)
		}
		l = l.Set("disable-blink-features", "AutomationControlled").
			Set("hide-scrollbars").
			Set("window-size", fmt.Sprintf("%d,%d", m.cfg.ViewportWidth, m.cfg.ViewportHeight))

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}
	if err := b.IgnoreCertErrors(true); err != nil {
		log.Warn("browser: ignore cert errors failed", "error", err)
	}
	return b, nil
}

func (m *Manager) cleanup() error {
	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return err
}

// jsHeapUsage reads the JS heap of the first open page as a proxy for the
// whole process.
func jsHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil {
		return 0, err
	}
	if len(pages) == 0 {
		return 0, nil
	}
	res, err := pages[0].Eval(`() => performance.memory ? performance.memory.usedJSHeapSize : 0`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}
