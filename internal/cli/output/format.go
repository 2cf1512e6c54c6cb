// Package output renders e2ectl results as tables, JSON or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// Format is an output format selected with --output.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat parses --output. Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "table", "":
		return FormatTable, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("invalid output format: %q (valid: table, json, yaml)", s)
	}
}

func (f Format) String() string {
	return string(f)
}

// Printer writes results and status lines in one format.
type Printer struct {
	out    io.Writer
	format Format
	color  bool
}

// NewPrinter creates a Printer. color adds ANSI colors to status lines.
func NewPrinter(out io.Writer, format Format, color bool) *Printer {
	return &Printer{out: out, format: format, color: color}
}

// NewPrinterForFlags builds a Printer from the --output and --no-color
// flags. Colors are only used on a terminal.
func NewPrinterForFlags(out io.Writer, format string, noColor bool) (*Printer, error) {
	f, err := ParseFormat(format)
	if err != nil {
		return nil, err
	}
	color := !noColor && os.Getenv("NO_COLOR") == ""
	if file, ok := out.(*os.File); !ok || !term.IsTerminal(int(file.Fd())) {
		color = false
	}
	return NewPrinter(out, f, color), nil
}

func (p *Printer) Format() Format {
	return p.format
}

func (p *Printer) Writer() io.Writer {
	return p.out
}

// Structured reports whether the printer emits JSON or YAML. Status lines
// are suppressed then, so the output stays parseable.
func (p *Printer) Structured() bool {
	return p.format == FormatJSON || p.format == FormatYAML
}

// Print writes data in the configured format. Table output needs a
// TableRenderer and falls back to JSON otherwise.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatTable:
		if renderer, ok := data.(TableRenderer); ok {
			return PrintTable(p.out, renderer)
		}
		return PrintJSON(p.out, data)
	case FormatJSON:
		return PrintJSON(p.out, data)
	case FormatYAML:
		return PrintYAML(p.out, data)
	default:
		return fmt.Errorf("unknown format: %s", p.format)
	}
}

func (p *Printer) Printf(format string, args ...any) {
	_, _ = fmt.Fprintf(p.out, format, args...)
}

// Success, Warning and Error print a marked status line. They print
// nothing in structured mode.
func (p *Printer) Success(format string, args ...any) {
	p.status("32", "✅", format, args...)
}

func (p *Printer) Warning(format string, args ...any) {
	p.status("33", "⚠️", format, args...)
}

func (p *Printer) Error(format string, args ...any) {
	p.status("31", "❌", format, args...)
}

func (p *Printer) status(color, marker, format string, args ...any) {
	if p.Structured() {
		return
	}
	msg := marker + " " + fmt.Sprintf(format, args...)
	if p.color {
		msg = "\033[" + color + "m" + msg + "\033[0m"
	}
	_, _ = fmt.Fprintln(p.out, msg)
}
