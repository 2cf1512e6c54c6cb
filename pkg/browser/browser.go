// Package browser drives the web application under test through chromedp.
//
// A Browser owns one Chrome process and one tab. Steps (Navigate, Fill,
// Click, ...) run with a per-step timeout, are logged and traced, and save
// a screenshot when they fail. Page objects in this package build on the
// steps.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
	"github.com/marmos91/screening-e2e/pkg/config"
)

// DefaultStepTimeout bounds one step when Config.Timeout is zero.
const DefaultStepTimeout = 30 * time.Second

// ErrClosed is returned by steps run after Close.
var ErrClosed = errors.New("browser is closed")

// Config configures a Browser.
type Config struct {
	// BaseURL is joined with relative paths passed to Navigate.
	BaseURL string

	// ShowWindow runs Chrome with a visible window.
	ShowWindow bool

	// Timeout bounds each step.
	Timeout time.Duration

	// ScreenshotDir receives a PNG of the page when a step fails. Empty
	// disables failure screenshots.
	ScreenshotDir string

	// ExecPath overrides the Chrome binary.
	ExecPath string
}

// ConfigFrom converts the browser section of the suite configuration.
func ConfigFrom(cfg config.BrowserConfig) Config {
	return Config{
		BaseURL:       cfg.BaseURL,
		ShowWindow:    cfg.ShowWindow,
		Timeout:       cfg.Timeout,
		ScreenshotDir: cfg.ScreenshotDir,
		ExecPath:      cfg.ExecPath,
	}
}

// Browser is one Chrome tab. Steps are safe to call from one goroutine at
// a time; ConsoleErrors may be called concurrently.
type Browser struct {
	cfg Config

	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc

	mu            sync.Mutex
	consoleErrors []string
	closed        bool
}

// New starts Chrome and opens a tab. Close releases both.
func New(ctx context.Context, cfg Config) (*Browser, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultStepTimeout
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !cfg.ShowWindow),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1440, 900),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}

	// The browser outlives the caller's context: it is closed explicitly.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...any) {
			logger.Debug("chromedp: " + fmt.Sprintf(format, args...))
		}),
	)

	b := &Browser{
		cfg:         cfg,
		ctx:         tabCtx,
		cancel:      cancel,
		allocCancel: allocCancel,
	}
	chromedp.ListenTarget(tabCtx, b.onEvent)

	// The first Run launches Chrome.
	if err := chromedp.Run(tabCtx); err != nil {
		b.Close()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}
	logger.DebugCtx(ctx, "Browser started", "show_window", cfg.ShowWindow)
	return b, nil
}

func (b *Browser) onEvent(ev any) {
	var msg string
	switch ev := ev.(type) {
	case *runtime.EventExceptionThrown:
		msg = ev.ExceptionDetails.Text
		if ev.ExceptionDetails.Exception != nil && ev.ExceptionDetails.Exception.Description != "" {
			msg = ev.ExceptionDetails.Exception.Description
		}
	case *runtime.EventConsoleAPICalled:
		if ev.Type != runtime.APITypeError {
			return
		}
		var parts []string
		for _, arg := range ev.Args {
			if len(arg.Value) > 0 {
				parts = append(parts, strings.Trim(string(arg.Value), `"`))
			} else if arg.Description != "" {
				parts = append(parts, arg.Description)
			}
		}
		msg = strings.Join(parts, " ")
	default:
		return
	}

	b.mu.Lock()
	b.consoleErrors = append(b.consoleErrors, msg)
	b.mu.Unlock()
}

// ConsoleErrors returns the uncaught exceptions and console.error calls
// seen so far.
func (b *Browser) ConsoleErrors() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.consoleErrors...)
}

// Close shuts down the tab and Chrome. It is idempotent.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	b.mu.Unlock()

	b.cancel()
	b.allocCancel()
}

func (b *Browser) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// URL resolves path against the configured base URL. Absolute URLs are
// returned unchanged.
func (b *Browser) URL(path string) (string, error) {
	return resolveURL(b.cfg.BaseURL, path)
}

func resolveURL(base, path string) (string, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path, nil
	}
	if base == "" {
		return "", fmt.Errorf("relative path %q without a base URL", path)
	}
	u, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return "", fmt.Errorf("invalid base URL %q: %w", base, err)
	}
	ref, err := url.Parse(strings.TrimLeft(path, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid path %q: %w", path, err)
	}
	return u.ResolveReference(ref).String(), nil
}

// run executes actions as one named step. The step is bounded by the step
// timeout and by ctx, which is usually the test attempt's context.
func (b *Browser) run(ctx context.Context, step, target string, actions ...chromedp.Action) error {
	if b.isClosed() {
		return ErrClosed
	}

	start := time.Now()
	spanCtx, span := telemetry.StartBrowserStepSpan(ctx, step, target)
	defer span.End()

	stepCtx, cancel := context.WithTimeout(b.ctx, b.cfg.Timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(stepCtx, actions...)
	if err == nil {
		logger.DebugCtx(spanCtx, "Browser step done",
			"step", step, "target", target,
			logger.DurationMs(time.Since(start)))
		return nil
	}

	if ctx.Err() != nil {
		err = ctx.Err()
	} else if errors.Is(stepCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", b.cfg.Timeout, err)
	}
	telemetry.RecordError(spanCtx, err)

	fields := []any{"step", step, "target", target, logger.KeyError, err}
	if path := b.failureScreenshot(spanCtx, step, target); path != "" {
		fields = append(fields, logger.KeyPath, path)
	}
	logger.WarnCtx(spanCtx, "❌ Browser step failed", fields...)
	return fmt.Errorf("%s %s: %w", step, target, err)
}

func (b *Browser) failureScreenshot(ctx context.Context, step, target string) string {
	if b.cfg.ScreenshotDir == "" {
		return ""
	}
	// The step context may be dead already; take the shot on a fresh one.
	shotCtx, cancel := context.WithTimeout(b.ctx, 5*time.Second)
	defer cancel()

	var buf []byte
	if err := chromedp.Run(shotCtx, chromedp.CaptureScreenshot(&buf)); err != nil {
		logger.DebugCtx(ctx, "Failure screenshot not taken", logger.KeyError, err)
		return ""
	}
	path, err := b.saveScreenshot(screenshotName(ctx, step, target), buf)
	if err != nil {
		logger.DebugCtx(ctx, "Failure screenshot not saved", logger.KeyError, err)
		return ""
	}
	return path
}

// screenshotName names a failure screenshot after the running test, when
// the context carries one, and the failed step.
func screenshotName(ctx context.Context, step, target string) string {
	parts := []string{}
	if lc := logger.FromContext(ctx); lc != nil {
		parts = append(parts, lc.Suite, lc.Test, fmt.Sprintf("attempt%d", lc.Attempt))
	}
	parts = append(parts, step, target)
	return strings.Join(parts, "-")
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeFilename keeps names portable and short.
func sanitizeFilename(name string) string {
	name = strings.Trim(unsafeChars.ReplaceAllString(name, "_"), "_")
	if len(name) > 100 {
		name = name[:100]
	}
	if name == "" {
		name = "screenshot"
	}
	return name
}

func (b *Browser) saveScreenshot(name string, data []byte) (string, error) {
	if err := os.MkdirAll(b.cfg.ScreenshotDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create screenshot dir: %w", err)
	}
	filename := fmt.Sprintf("%s-%s.png", sanitizeFilename(name), time.Now().Format("20060102-150405"))
	path := filepath.Join(b.cfg.ScreenshotDir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save screenshot: %w", err)
	}
	return path, nil
}
