package cmdutil

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/pkg/config"
)

// testTableRenderer implements output.TableRenderer for testing
type testTableRenderer struct {
	headers []string
	rows    [][]string
}

func (t testTableRenderer) Headers() []string {
	return t.headers
}

func (t testTableRenderer) Rows() [][]string {
	return t.rows
}

func withFlags(t *testing.T, f GlobalFlags) {
	t.Helper()
	prev := *Flags
	*Flags = f
	t.Cleanup(func() { *Flags = prev })
}

func TestPrintOutput_JSON(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "json"})

	var buf bytes.Buffer
	data := []string{"foo", "bar"}
	renderer := testTableRenderer{
		headers: []string{"NAME"},
		rows:    [][]string{{"foo"}, {"bar"}},
	}

	if err := PrintOutput(&buf, data, false, "No items", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(`"foo"`)) || !bytes.Contains(buf.Bytes(), []byte(`"bar"`)) {
		t.Errorf("PrintOutput() = %q, missing expected data", buf.String())
	}
}

func TestPrintOutput_YAML(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "yaml"})

	var buf bytes.Buffer
	if err := PrintOutput(&buf, []string{"foo", "bar"}, false, "No items", testTableRenderer{}); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}

	expected := "- foo\n- bar\n"
	if buf.String() != expected {
		t.Errorf("PrintOutput() = %q, want %q", buf.String(), expected)
	}
}

func TestPrintOutput_Table_Empty(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "table"})

	var buf bytes.Buffer
	if err := PrintOutput(&buf, []string{}, true, "No items found.", testTableRenderer{}); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}

	expected := "No items found.\n"
	if buf.String() != expected {
		t.Errorf("PrintOutput() = %q, want %q", buf.String(), expected)
	}
}

func TestPrintOutput_Table_WithData(t *testing.T) {
	withFlags(t, GlobalFlags{Output: "table"})

	var buf bytes.Buffer
	renderer := testTableRenderer{
		headers: []string{"NAME"},
		rows:    [][]string{{"foo"}, {"bar"}},
	}
	if err := PrintOutput(&buf, nil, false, "No items found.", renderer); err != nil {
		t.Fatalf("PrintOutput() error = %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte("foo")) {
		t.Errorf("PrintOutput() = %q, missing row", buf.String())
	}
}

func TestGetOutputFormatParsed(t *testing.T) {
	tests := []struct {
		flagValue string
		expected  output.Format
		wantErr   bool
	}{
		{"table", output.FormatTable, false},
		{"json", output.FormatJSON, false},
		{"yaml", output.FormatYAML, false},
		{"", output.FormatTable, false},
		{"invalid", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.flagValue, func(t *testing.T) {
			withFlags(t, GlobalFlags{Output: tt.flagValue})
			got, err := GetOutputFormatParsed()
			if (err != nil) != tt.wantErr {
				t.Fatalf("GetOutputFormatParsed() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("GetOutputFormatParsed() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("API_BASE_URL", "http://api.test:8080/")
	withFlags(t, GlobalFlags{})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.API.BaseURL != "http://api.test:8080" {
		t.Errorf("API.BaseURL = %q, want %q", cfg.API.BaseURL, "http://api.test:8080")
	}
}

func TestLoadConfigExplicitFileMustExist(t *testing.T) {
	withFlags(t, GlobalFlags{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})

	if _, err := LoadConfig(); err == nil {
		t.Fatal("LoadConfig() succeeded for a missing --config file")
	}
}

func TestLoadConfigExplicitFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := config.InitConfigToPath(path, false); err != nil {
		t.Fatalf("InitConfigToPath() error = %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	withFlags(t, GlobalFlags{ConfigFile: path})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Cleanup.Policy != "last-or-failure" {
		t.Errorf("Cleanup.Policy = %q, want last-or-failure", cfg.Cleanup.Policy)
	}
}

func TestBoolToYesNo(t *testing.T) {
	if got := BoolToYesNo(true); got != "yes" {
		t.Errorf("BoolToYesNo(true) = %q", got)
	}
	if got := BoolToYesNo(false); got != "no" {
		t.Errorf("BoolToYesNo(false) = %q", got)
	}
}

func TestEmptyOr(t *testing.T) {
	if got := EmptyOr("", "-"); got != "-" {
		t.Errorf("EmptyOr(\"\", \"-\") = %q", got)
	}
	if got := EmptyOr("x", "-"); got != "x" {
		t.Errorf("EmptyOr(\"x\", \"-\") = %q", got)
	}
}
