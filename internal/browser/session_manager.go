// Package browser drives a Chrome instance through rod: it installs the page
// instrumentation before any page script runs, opens the target, waits for the capture
// buffer to fill and hands the page to the capture extractor.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"secretgrab/internal/capture"
	"secretgrab/internal/instrument"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/rod/lib/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TargetURL is the application whose secrets are captured.
const TargetURL = "https://open.spotify.com"

// Session describes the page used for one grab.
type Session struct {
	ID        string    `json:"id"`
	TargetID  string    `json:"target_id,omitempty"`
	URL       string    `json:"url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Config holds browser configuration.
type Config struct {
	DebuggerURL         string   `json:"debugger_url"`
	Bin                 string   `json:"bin"`
	Flags               []string `json:"flags"`
	Headless            bool     `json:"headless"`
	NavigationTimeoutMs int      `json:"navigation_timeout_ms"`
	CaptureTimeoutMs    int      `json:"capture_timeout_ms"`
	CapturePollMs       int      `json:"capture_poll_ms"`
	CaptureSettleMs     int      `json:"capture_settle_ms"`

	// TargetURL overrides the target for in-process callers such as tests.
	TargetURL string `json:"-"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		NavigationTimeoutMs: 30000,
		CaptureTimeoutMs:    3000,
		CapturePollMs:       100,
		CaptureSettleMs:     250,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// CaptureTimeout bounds the wait for the first captured secret.
func (c Config) CaptureTimeout() time.Duration {
	if c.CaptureTimeoutMs <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.CaptureTimeoutMs) * time.Millisecond
}

// CapturePollInterval returns how often the capture buffer is checked.
func (c Config) CapturePollInterval() time.Duration {
	if c.CapturePollMs <= 0 {
		return 100 * time.Millisecond
	}
	return time.Duration(c.CapturePollMs) * time.Millisecond
}

// CaptureSettle returns the grace period after the first capture.
func (c Config) CaptureSettle() time.Duration {
	if c.CaptureSettleMs <= 0 {
		return 0
	}
	return time.Duration(c.CaptureSettleMs) * time.Millisecond
}

// Target returns the URL to open.
func (c Config) Target() string {
	if c.TargetURL == "" {
		return TargetURL
	}
	return c.TargetURL
}

// SessionManager owns the Chrome instance for the duration of a grab.
type SessionManager struct {
	cfg       Config
	log       *zap.Logger
	extractor *capture.Extractor

	mu         sync.Mutex
	browser    *rod.Browser
	launcher   *launcher.Launcher // set only when we started the process
	controlURL string
	last       *Session
}

// NewSessionManager creates a new session manager.
func NewSessionManager(cfg Config, log *zap.Logger) *SessionManager {
	if log == nil {
		log = zap.NewNop()
	}
	return &SessionManager{
		cfg:       cfg,
		log:       log,
		extractor: capture.NewExtractor(log),
	}
}

// WithExtractor replaces the extractor, e.g. to route its logs elsewhere.
func (m *SessionManager) WithExtractor(e *capture.Extractor) *SessionManager {
	m.extractor = e
	return m
}

// Start connects to an existing Chrome or launches a new one.
func (m *SessionManager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// If we already have a browser, verify it's still alive
	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return nil
		}
		m.log.Warn("Stale browser connection detected, reconnecting")
		_ = m.closeLocked()
	}

	controlURL := m.cfg.DebuggerURL
	if controlURL == "" {
		m.log.Info("Launching browser", zap.Bool("headless", m.cfg.Headless), zap.String("bin", m.cfg.Bin))
		l := m.newLauncher(ctx)
		url, err := l.Launch()
		if err != nil {
			l.Kill()
			return fmt.Errorf("launch chrome: %w", err)
		}
		m.launcher = l
		controlURL = url
	} else {
		m.log.Info("Connecting to existing browser", zap.String("url", controlURL))
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		if m.launcher != nil {
			m.launcher.Kill()
			m.launcher = nil
		}
		return fmt.Errorf("connect to chrome: %w", err)
	}

	m.browser = browser
	m.controlURL = controlURL
	m.log.Debug("Browser connected", zap.String("control_url", controlURL))
	return nil
}

func (m *SessionManager) newLauncher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(m.cfg.Headless).
		NoSandbox(true).
		Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	if m.cfg.Bin != "" {
		l = l.Bin(m.cfg.Bin)
	}
	for _, rawFlag := range m.cfg.Flags {
		flagStr := strings.TrimLeft(rawFlag, "-")
		if flagStr == "" {
			continue
		}
		name, val, hasVal := strings.Cut(flagStr, "=")
		if hasVal {
			l = l.Set(flags.Flag(name), val)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	return l
}

func (m *SessionManager) ensureStarted(ctx context.Context) error {
	m.mu.Lock()
	started := m.browser != nil
	m.mu.Unlock()
	if started {
		return nil
	}
	return m.Start(ctx)
}

// ControlURL returns the WebSocket debugger URL.
func (m *SessionManager) ControlURL() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.controlURL
}

// IsConnected returns whether the browser is connected.
func (m *SessionManager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.browser != nil
}

// LastSession returns metadata for the most recent grab.
func (m *SessionManager) LastSession() (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.last == nil {
		return Session{}, false
	}
	return *m.last, true
}

// Shutdown releases the browser. A process we launched is closed and its profile removed;
// a browser we merely connected to is left running.
func (m *SessionManager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closeLocked()
}

func (m *SessionManager) closeLocked() error {
	var err error
	if m.browser != nil && m.launcher != nil {
		err = m.browser.Close()
	}
	m.browser = nil
	if m.launcher != nil {
		m.launcher.Kill()
		m.launcher.Cleanup()
		m.launcher = nil
	}
	m.controlURL = ""
	return err
}

// Grab runs one capture: new page, instrumentation, navigation, bounded wait, extraction.
// Failures before the wait are fatal; everything after it degrades to fewer records.
func (m *SessionManager) Grab(ctx context.Context) ([]capture.Record, error) {
	if err := m.ensureStarted(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	browser := m.browser
	m.mu.Unlock()
	if browser == nil {
		return nil, errors.New("browser not connected")
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			m.log.Debug("Failed to close page", zap.Error(err))
		}
	}()

	sess := Session{
		ID:        uuid.NewString(),
		TargetID:  string(page.TargetID),
		URL:       m.cfg.Target(),
		CreatedAt: time.Now(),
	}
	m.mu.Lock()
	m.last = &sess
	m.mu.Unlock()
	log := m.log.With(zap.String("session", sess.ID))

	for _, script := range instrument.OnNewDocument() {
		log.Info("Installing script to evaluate on new document", zap.String("script", script.Name))
		if _, err := page.EvalOnNewDocument(script.Source); err != nil {
			return nil, fmt.Errorf("install %s script: %w", script.Name, err)
		}
	}

	log.Info("Opening target", zap.String("url", sess.URL))
	nav := page.Context(ctx).Timeout(m.cfg.NavigationTimeout())
	err = nav.Navigate(sess.URL)
	nav.CancelTimeout()
	if err != nil {
		log.Error("Navigation error", zap.Error(err))
		return nil, fmt.Errorf("navigate to %s: %w", sess.URL, err)
	}

	m.waitForCaptures(ctx, page, log)

	log.Info("Evaluating captured secrets")
	return m.extractor.Extract(ctx, pageEvaluator{page: page}), nil
}

// waitForCaptures blocks until the capture buffer is non-empty or the capture timeout
// elapses. A timeout is not an error; extraction simply sees whatever is there.
func (m *SessionManager) waitForCaptures(ctx context.Context, page *rod.Page, log *zap.Logger) {
	timeout := m.cfg.CaptureTimeout()
	interval := m.cfg.CapturePollInterval()
	log.Info("Waiting for capture buffer", zap.Duration("timeout", timeout), zap.Duration("poll", interval))

	start := time.Now()
	p := page.Context(ctx).
		Sleeper(func() utils.Sleeper { return utils.BackoffSleeper(interval, interval, nil) }).
		Timeout(timeout)
	err := p.Wait(&rod.EvalOptions{JS: instrument.BufferReady(), ByValue: true})
	p.CancelTimeout()
	if err != nil {
		log.Warn("Capture buffer still empty, continuing",
			zap.Duration("waited", time.Since(start)), zap.Error(err))
		return
	}
	log.Debug("Capture buffer populated", zap.Duration("after", time.Since(start)))

	settle := m.cfg.CaptureSettle()
	if settle <= 0 {
		return
	}
	t := time.NewTimer(settle)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

// pageEvaluator runs a self-invoking expression in the page's main world.
type pageEvaluator struct {
	page *rod.Page
}

func (e pageEvaluator) Evaluate(ctx context.Context, expression string) (*proto.RuntimeRemoteObject, error) {
	res, err := proto.RuntimeEvaluate{
		Expression:    expression,
		ReturnByValue: true,
	}.Call(e.page.Context(ctx))
	if err != nil {
		return nil, err
	}
	if res.ExceptionDetails != nil {
		return nil, fmt.Errorf("evaluate: %s", res.ExceptionDetails.Text)
	}
	return res.Result, nil
}
