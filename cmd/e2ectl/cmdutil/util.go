// Package cmdutil provides shared utilities for e2ectl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmos91/screening-e2e/internal/cli/output"
	"github.com/marmos91/screening-e2e/internal/cli/prompt"
	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/pkg/config"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	Output     string
	NoColor    bool
	Verbose    bool
}

// LoadConfig loads the configuration named by --config, or the default
// file and environment when the flag is empty, and configures logging.
// CLI logs go to stderr so they never mix with command output.
func LoadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if Flags.ConfigFile != "" {
		cfg, err = config.MustLoad(Flags.ConfigFile)
	} else {
		cfg, err = config.Load("")
	}
	if err != nil {
		return nil, err
	}

	logCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if strings.EqualFold(logCfg.Output, "stdout") {
		logCfg.Output = "stderr"
	}
	if Flags.Verbose {
		logCfg.Level = "DEBUG"
	} else if strings.EqualFold(logCfg.Level, "INFO") {
		logCfg.Level = "WARN"
	}
	if err := logger.Init(logCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// Printer returns a printer for stdout honoring --output and --no-color.
func Printer() (*output.Printer, error) {
	return output.NewPrinterForFlags(os.Stdout, Flags.Output, Flags.NoColor)
}

// PrintOutput prints data in the specified format (JSON, YAML, or table).
// For table format, it displays emptyMsg if data is empty, otherwise uses the tableRenderer.
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, tableRenderer output.TableRenderer) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		if isEmpty {
			_, _ = fmt.Fprintln(w, emptyMsg)
			return nil
		}
		return output.PrintTable(w, tableRenderer)
	}
}

// PrintResourceWithSuccess prints a resource in the specified format.
// For table format, it displays a success message. For JSON/YAML, it outputs the resource.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}

	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		PrintSuccess(successMsg)
		return nil
	}
}

// PrintSuccess prints a success message if the output format is table.
func PrintSuccess(msg string) {
	p, err := Printer()
	if err != nil {
		return
	}
	p.Success("%s", msg)
}

// RunWithConfirmation prompts for confirmation (unless force is true) and runs fn.
// It returns false when the user declined.
func RunWithConfirmation(label string, force bool, fn func() error) (bool, error) {
	confirmed, err := prompt.ConfirmWithForce(label, force)
	if err != nil {
		return false, HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return false, nil
	}
	return true, fn()
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
