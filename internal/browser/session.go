// Package browser drives the proposals SPA over the Chrome DevTools protocol.
// It owns the Chrome lifecycle, the authenticated session, and the locator
// fallback chains that keep lookups working across UI revisions.
package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

// Config holds browser and portal settings.
type Config struct {
	// DebuggerURL attaches to an already-running Chrome instead of launching.
	DebuggerURL string
	// Bin overrides the Chrome binary; empty means auto-detect.
	Bin string
	// Flags are extra Chrome flags, with or without leading dashes.
	Flags []string
	Headless          bool
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	// PortalURL is the login page of the proposals portal.
	PortalURL string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:          false,
		ViewportWidth:     1920,
		ViewportHeight:    1080,
		NavigationTimeout: 30 * time.Second,
	}
}

// Session owns one Chrome connection and the portal page.
type Session struct {
	cfg     Config
	log     *zap.Logger
	browser *rod.Browser
	page    *rod.Page
}

// NewSession wires a session. Connect must be called before use.
func NewSession(cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.NavigationTimeout <= 0 {
		cfg.NavigationTimeout = 30 * time.Second
	}
	return &Session{cfg: cfg, log: log}
}

// Connect attaches to or launches Chrome and opens the portal page.
func (s *Session) Connect(ctx context.Context) error {
	controlURL := s.cfg.DebuggerURL
	if controlURL == "" {
		launch := launcher.New().Headless(s.cfg.Headless)
		if s.cfg.Bin != "" {
			launch = launch.Bin(s.cfg.Bin)
		}
		for _, rawFlag := range s.cfg.Flags {
			flagStr := strings.TrimLeft(rawFlag, "-")
			name, val, hasVal := strings.Cut(flagStr, "=")
			if hasVal {
				launch = launch.Set(flags.Flag(name), val)
			} else {
				launch = launch.Set(flags.Flag(name))
			}
		}
		url, err := launch.Launch()
		if err != nil {
			return fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("connect to chrome: %w", err)
	}
	s.browser = browser

	page, err := browser.Page(proto.TargetCreateTarget{URL: s.cfg.PortalURL})
	if err != nil {
		return fmt.Errorf("open portal page: %w", err)
	}
	if err := (proto.EmulationSetDeviceMetricsOverride{
		Width:             s.viewportWidth(),
		Height:            s.viewportHeight(),
		DeviceScaleFactor: 1.0,
		Mobile:            false,
	}).Call(page); err != nil {
		s.log.Warn("failed to set viewport", zap.Error(err))
	}
	if err := page.Timeout(s.cfg.NavigationTimeout).WaitLoad(); err != nil {
		s.log.Warn("portal page slow to load", zap.Error(err))
	}
	s.page = page
	s.log.Info("portal page open", zap.String("url", s.cfg.PortalURL))
	return nil
}

// Page returns the portal page. Valid only after Connect.
func (s *Session) Page() *rod.Page {
	return s.page
}

// Login fills the portal login form and waits for the authenticated shell.
func (s *Session) Login(ctx context.Context, user, pass string) error {
	if s.page == nil {
		return fmt.Errorf("session not connected")
	}
	page := s.page.Context(ctx)

	userEl, err := query(page, s.cfg.NavigationTimeout, loginUserStrategies)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := clearAndType(userEl, user); err != nil {
		return fmt.Errorf("fill username: %w", err)
	}

	passEl, err := query(page, s.cfg.NavigationTimeout, loginPassStrategies)
	if err != nil {
		return fmt.Errorf("login form: %w", err)
	}
	if err := clearAndType(passEl, pass); err != nil {
		return fmt.Errorf("fill password: %w", err)
	}

	submitEl, err := query(page, s.cfg.NavigationTimeout, loginSubmitStrategies)
	if err != nil {
		return fmt.Errorf("login submit: %w", err)
	}
	if err := submitEl.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click login: %w", err)
	}

	// The shell's search field is the signal that auth finished.
	if _, err := query(page, s.cfg.NavigationTimeout, searchFieldStrategies); err != nil {
		return fmt.Errorf("authenticated shell never rendered: %w", err)
	}
	s.log.Info("login complete", zap.String("user", user))
	return nil
}

// Shutdown closes the page and the browser.
func (s *Session) Shutdown() error {
	if s.page != nil {
		_ = s.page.Close()
		s.page = nil
	}
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	return err
}

func (s *Session) viewportWidth() int {
	if s.cfg.ViewportWidth == 0 {
		return 1920
	}
	return s.cfg.ViewportWidth
}

func (s *Session) viewportHeight() int {
	if s.cfg.ViewportHeight == 0 {
		return 1080
	}
	return s.cfg.ViewportHeight
}
