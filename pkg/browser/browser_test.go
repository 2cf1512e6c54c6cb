package browser

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/chromedp/cdproto/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/config"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		path    string
		want    string
		wantErr bool
	}{
		{"relative", "http://localhost:3000", "/login", "http://localhost:3000/login", false},
		{"base with path", "http://localhost:3000/app/", "sessions/1", "http://localhost:3000/app/sessions/1", false},
		{"query kept", "http://localhost:3000", "/sessions?page=2", "http://localhost:3000/sessions?page=2", false},
		{"absolute wins", "http://localhost:3000", "https://example.com/x", "https://example.com/x", false},
		{"no base", "", "/login", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveURL(tt.base, tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "applicants-creates_a_user-click-_data-testid_login-submit",
		sanitizeFilename(`applicants-creates a user-click-[data-testid="login-submit"]`))
	assert.Equal(t, "screenshot", sanitizeFilename("///"))

	long := ""
	for len(long) < 250 {
		long += "abcdefghij"
	}
	assert.Len(t, sanitizeFilename(long), 100)
}

func TestScreenshotNameUsesTestContext(t *testing.T) {
	ctx := logger.WithContext(context.Background(), logger.NewLogContext("applicants", "creates", 1, 2))
	assert.Equal(t, "applicants-creates-attempt1-click-#go", screenshotName(ctx, "click", "#go"))
	assert.Equal(t, "click-#go", screenshotName(context.Background(), "click", "#go"))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.BrowserConfig{
		BaseURL:       "http://localhost:3000",
		ShowWindow:    true,
		Timeout:       time.Second,
		ScreenshotDir: "/tmp/shots",
		ExecPath:      "/usr/bin/chromium",
	})
	assert.Equal(t, Config{
		BaseURL:       "http://localhost:3000",
		ShowWindow:    true,
		Timeout:       time.Second,
		ScreenshotDir: "/tmp/shots",
		ExecPath:      "/usr/bin/chromium",
	}, cfg)
}

func TestConsoleErrorsCollected(t *testing.T) {
	b := &Browser{}
	b.onEvent(&runtime.EventExceptionThrown{
		ExceptionDetails: &runtime.ExceptionDetails{Text: "Uncaught"},
	})
	b.onEvent(&runtime.EventExceptionThrown{
		ExceptionDetails: &runtime.ExceptionDetails{
			Text:      "Uncaught",
			Exception: &runtime.RemoteObject{Description: "TypeError: x is undefined"},
		},
	})
	b.onEvent(&runtime.EventConsoleAPICalled{
		Type: runtime.APITypeError,
		Args: []*runtime.RemoteObject{{Description: "request failed"}},
	})
	b.onEvent(&runtime.EventConsoleAPICalled{
		Type: runtime.APITypeLog,
		Args: []*runtime.RemoteObject{{Description: "just logging"}},
	})
	b.onEvent("unrelated")

	assert.Equal(t, []string{"Uncaught", "TypeError: x is undefined", "request failed"}, b.ConsoleErrors())
}

func TestSaveScreenshot(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shots")
	b := &Browser{cfg: Config{ScreenshotDir: dir}}

	path, err := b.saveScreenshot("login failed", []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Regexp(t, `^login_failed-\d{8}-\d{6}\.png$`, filepath.Base(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "png", string(data))
}

func TestClosedBrowserRefusesSteps(t *testing.T) {
	b := &Browser{closed: true, cfg: Config{BaseURL: "http://localhost"}}
	err := b.Click(context.Background(), "#go")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSessionPagePath(t *testing.T) {
	p := NewSessionPage(nil, "abc/1")
	assert.Equal(t, "/sessions/abc%2F1", p.Path())
}
