package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

// Navigate loads path, relative to the base URL, and waits for the body.
func (b *Browser) Navigate(ctx context.Context, path string) error {
	target, err := b.URL(path)
	if err != nil {
		return err
	}
	return b.run(ctx, "navigate", target,
		chromedp.Navigate(target),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// Fill replaces the value of the input matching sel.
func (b *Browser) Fill(ctx context.Context, sel, value string) error {
	return b.run(ctx, "fill", sel,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Clear(sel, chromedp.ByQuery),
		chromedp.SendKeys(sel, value, chromedp.ByQuery),
	)
}

// Click waits for sel to be visible and clicks it.
func (b *Browser) Click(ctx context.Context, sel string) error {
	return b.run(ctx, "click", sel,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Click(sel, chromedp.ByQuery),
	)
}

// WaitVisible waits until sel is visible.
func (b *Browser) WaitVisible(ctx context.Context, sel string) error {
	return b.run(ctx, "wait-visible", sel, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// WaitNotVisible waits until sel is hidden or removed.
func (b *Browser) WaitNotVisible(ctx context.Context, sel string) error {
	return b.run(ctx, "wait-not-visible", sel, chromedp.WaitNotVisible(sel, chromedp.ByQuery))
}

// Text returns the trimmed text content of sel once it is visible.
func (b *Browser) Text(ctx context.Context, sel string) (string, error) {
	var text string
	err := b.run(ctx, "text", sel,
		chromedp.WaitVisible(sel, chromedp.ByQuery),
		chromedp.Text(sel, &text, chromedp.ByQuery),
	)
	return strings.TrimSpace(text), err
}

// Value returns the value of the input matching sel.
func (b *Browser) Value(ctx context.Context, sel string) (string, error) {
	var value string
	err := b.run(ctx, "value", sel,
		chromedp.WaitReady(sel, chromedp.ByQuery),
		chromedp.Value(sel, &value, chromedp.ByQuery),
	)
	return value, err
}

// Count returns how many elements currently match sel, without waiting.
func (b *Browser) Count(ctx context.Context, sel string) (int, error) {
	var nodes []*cdp.Node
	err := b.run(ctx, "count", sel,
		chromedp.Nodes(sel, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)),
	)
	return len(nodes), err
}

// TextContains waits for sel and checks that its text contains want.
func (b *Browser) TextContains(ctx context.Context, sel, want string) error {
	got, err := b.Text(ctx, sel)
	if err != nil {
		return err
	}
	if !strings.Contains(got, want) {
		return fmt.Errorf("text of %s is %q, want it to contain %q", sel, truncate(got, 100), want)
	}
	return nil
}

// Location returns the current page URL.
func (b *Browser) Location(ctx context.Context) (string, error) {
	var loc string
	err := b.run(ctx, "location", "", chromedp.Location(&loc))
	return loc, err
}

// Evaluate runs a JavaScript expression and decodes its result into res.
func (b *Browser) Evaluate(ctx context.Context, expr string, res any) error {
	return b.run(ctx, "evaluate", truncate(expr, 60), chromedp.Evaluate(expr, res))
}

// Screenshot saves a full-page screenshot under name in the screenshot
// directory and returns its path.
func (b *Browser) Screenshot(ctx context.Context, name string) (string, error) {
	if b.cfg.ScreenshotDir == "" {
		return "", fmt.Errorf("screenshot %s: no screenshot directory configured", name)
	}
	var buf []byte
	if err := b.run(ctx, "screenshot", name, chromedp.FullScreenshot(&buf, 90)); err != nil {
		return "", err
	}
	return b.saveScreenshot(name, buf)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
