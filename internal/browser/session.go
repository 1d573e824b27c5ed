// Package browser owns the automated Chromium session: launch, stealth
// setup, cookie persistence, and the login handshake. Everything above this
// package talks to the page through the service.Page interface.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/unclebandit/linkreach-backend/internal/config"
	appErrors "github.com/unclebandit/linkreach-backend/internal/errors"
)

// Masks the most common automation fingerprints before any page script runs.
const stealthJS = `() => {
	Object.defineProperty(navigator, 'webdriver', { get: () => undefined });
	Object.defineProperty(navigator, 'languages', { get: () => ['en-US', 'en'] });
	Object.defineProperty(navigator, 'plugins', { get: () => [1, 2, 3, 4, 5] });
	window.chrome = window.chrome || { runtime: {} };
	const query = window.navigator.permissions.query;
	window.navigator.permissions.query = (parameters) =>
		parameters.name === 'notifications'
			? Promise.resolve({ state: Notification.permission })
			: query(parameters);
}`

// Session is one logged-in browser. It is not safe for concurrent use; the
// whole pipeline runs strictly sequentially.
type Session struct {
	cfg      *config.Config
	launcher *launcher.Launcher
	browser  *rod.Browser
	page     *rod.Page
}

// NewSession launches Chromium and opens a prepared blank page. The caller
// must Close the session to tear the browser down.
func NewSession(cfg *config.Config) (*Session, error) {
	l := launcher.New().
		Headless(cfg.Headless).
		Set("disable-blink-features", "AutomationControlled")
	if cfg.NoSandbox {
		l = l.NoSandbox(true)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		l.Cleanup()
		return nil, fmt.Errorf("connect to chromium: %w", err)
	}

	page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("open page: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: cfg.UserAgent}); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set user agent: %w", err)
	}
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.ViewportWidth,
		Height:            cfg.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("set viewport: %w", err)
	}
	if _, err := page.EvalOnNewDocument(stealthJS); err != nil {
		_ = b.Close()
		l.Cleanup()
		return nil, fmt.Errorf("install stealth script: %w", err)
	}

	return &Session{cfg: cfg, launcher: l, browser: b, page: page}, nil
}

// Page returns the session's page wrapped for the executor.
func (s *Session) Page() *PageAdapter {
	return &PageAdapter{page: s.page, navTimeout: s.cfg.NavTimeout}
}

// Close saves the session state and tears down the page, browser, and
// launched process.
func (s *Session) Close() {
	if s.browser != nil {
		if err := s.SaveState(); err != nil {
			log.Println("⚠️ Failed to save session state:", err)
		}
	}
	if s.page != nil {
		_ = s.page.Close()
	}
	if s.browser != nil {
		_ = s.browser.Close()
	}
	if s.launcher != nil {
		s.launcher.Cleanup()
	}
}

// ====================== Cookie persistence ======================

// LoadState restores cookies from the state file. A missing file is not an
// error: it just means no saved session yet.
func (s *Session) LoadState() (bool, error) {
	raw, err := os.ReadFile(s.cfg.StatePath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read state file: %w", err)
	}

	var cookies []*proto.NetworkCookieParam
	if err := json.Unmarshal(raw, &cookies); err != nil {
		return false, fmt.Errorf("parse state file: %w", err)
	}
	if len(cookies) == 0 {
		return false, nil
	}
	if err := s.browser.SetCookies(cookies); err != nil {
		return false, fmt.Errorf("restore cookies: %w", err)
	}
	log.Printf("[BROWSER] Restored %d cookies from %s", len(cookies), s.cfg.StatePath)
	return true, nil
}

// SaveState snapshots the browser's cookies to the state file so the next
// run skips the login flow.
func (s *Session) SaveState() error {
	cookies, err := s.browser.GetCookies()
	if err != nil {
		return fmt.Errorf("get cookies: %w", err)
	}

	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, c := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Expires:  c.Expires,
			HTTPOnly: c.HTTPOnly,
			Secure:   c.Secure,
			SameSite: c.SameSite,
			Priority: c.Priority,
		})
	}

	raw, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cookies: %w", err)
	}
	if err := os.WriteFile(s.cfg.StatePath, raw, 0o600); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}
	log.Printf("[BROWSER] Saved %d cookies to %s", len(params), s.cfg.StatePath)
	return nil
}

// ====================== Login ======================

// IsLoggedIn probes the feed page. A redirect back to the login wall or an
// auth wall means the session is dead.
func (s *Session) IsLoggedIn(ctx context.Context) (bool, error) {
	if err := s.page.Context(ctx).Timeout(s.cfg.NavTimeout).Navigate(s.cfg.FeedURL); err != nil {
		return false, fmt.Errorf("navigate to feed: %w", err)
	}
	if err := s.page.Context(ctx).Timeout(s.cfg.NavTimeout).WaitLoad(); err != nil {
		return false, fmt.Errorf("load feed: %w", err)
	}

	info, err := s.page.Info()
	if err != nil {
		return false, fmt.Errorf("page info: %w", err)
	}
	current := info.URL
	if strings.Contains(current, "/login") ||
		strings.Contains(current, "/authwall") ||
		strings.Contains(current, "uas/login") ||
		strings.Contains(current, "/checkpoint") {
		return false, nil
	}
	return strings.HasPrefix(current, s.cfg.BaseURL) && strings.Contains(current, "/feed"), nil
}

// EnsureLoggedIn restores a saved session when possible, otherwise runs the
// provider's login flow, then persists the fresh cookies.
func (s *Session) EnsureLoggedIn(ctx context.Context, provider LoginProvider) error {
	restored, err := s.LoadState()
	if err != nil {
		return err
	}
	if restored {
		ok, err := s.IsLoggedIn(ctx)
		if err != nil {
			return err
		}
		if ok {
			log.Println("[BROWSER] Saved session is valid.")
			return nil
		}
		log.Println("[BROWSER] Saved session expired. Logging in again.")
	}

	if provider == nil {
		return appErrors.ErrLoginRequired
	}
	if err := provider.Login(ctx, s); err != nil {
		return err
	}

	ok, err := s.IsLoggedIn(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("login flow finished but the session is not authenticated")
	}
	return s.SaveState()
}

// Navigate drives the raw page. Used by login providers.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if err := s.page.Context(ctx).Timeout(s.cfg.NavTimeout).Navigate(url); err != nil {
		return err
	}
	return s.page.Context(ctx).Timeout(s.cfg.NavTimeout).WaitLoad()
}
