package ui

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/conduit-lang/dbdesc/internal/reconcile"
	"github.com/conduit-lang/dbdesc/internal/runlock"
)

// ErrorLevel represents the severity of an error message
type ErrorLevel int

const (
	ErrorLevelError ErrorLevel = iota
	ErrorLevelWarning
	ErrorLevelInfo
)

// ErrorOptions configures the error message formatting
type ErrorOptions struct {
	Level        ErrorLevel
	Context      string
	Problem      string
	Consequence  string
	Suggestions  []string
	HelpCommands []string
	NoColor      bool
}

// FormatError creates a standardized error message with suggestions and help commands
//
// Example output:
//
//	❌ CATALOG WRITE FAILED: catalog I/O failed during add of column dbo.Person.FirstName
//
//	   The transaction was rolled back; 3 changes were discarded.
//
//	   → Preview the run: dbdesc plan
func FormatError(opts ErrorOptions) string {
	var b strings.Builder

	var headerColor, bodyColor *color.Color
	var symbol string

	switch opts.Level {
	case ErrorLevelWarning:
		headerColor = color.New(color.FgYellow, color.Bold)
		bodyColor = color.New(color.FgYellow)
		symbol = "⚠️"
	case ErrorLevelInfo:
		headerColor = color.New(color.FgCyan, color.Bold)
		bodyColor = color.New(color.FgCyan)
		symbol = "ℹ️"
	default:
		headerColor = color.New(color.FgRed, color.Bold)
		bodyColor = color.New(color.FgRed)
		symbol = "❌"
	}

	if opts.NoColor {
		headerColor.DisableColor()
		bodyColor.DisableColor()
	}

	if opts.Context != "" {
		headerColor.Fprintf(&b, "%s %s: %s\n", symbol, strings.ToUpper(opts.Context), opts.Problem)
	} else {
		headerColor.Fprintf(&b, "%s %s\n", symbol, opts.Problem)
	}

	if opts.Consequence != "" {
		b.WriteString("\n")
		bodyColor.Fprintf(&b, "   %s\n", opts.Consequence)
	}

	if len(opts.Suggestions) > 0 {
		b.WriteString("\n")
		yellow := color.New(color.FgYellow)
		if opts.NoColor {
			yellow.DisableColor()
		}
		for _, s := range opts.Suggestions {
			yellow.Fprintf(&b, "   %s\n", s)
		}
	}

	if len(opts.HelpCommands) > 0 {
		b.WriteString("\n")
		cyan := color.New(color.FgCyan)
		if opts.NoColor {
			cyan.DisableColor()
		}
		for _, cmd := range opts.HelpCommands {
			cyan.Fprintf(&b, "   → %s\n", cmd)
		}
	}

	return b.String()
}

// WriteError writes a formatted error message to the writer
func WriteError(w io.Writer, opts ErrorOptions) {
	fmt.Fprint(w, FormatError(opts))
}

// FormatSuccess creates a success message
func FormatSuccess(message string, noColor bool) string {
	green := color.New(color.FgGreen, color.Bold)
	if noColor {
		green.DisableColor()
	}
	return green.Sprintf("✓ %s", message)
}

// WriteSuccess writes a success message to the writer
func WriteSuccess(w io.Writer, message string, noColor bool) {
	fmt.Fprintln(w, FormatSuccess(message, noColor))
}

// RunError formats a failed run. discarded is the number of changes the
// rollback threw away.
func RunError(err error, discarded int, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Problem: err.Error(),
		NoColor: noColor,
	}
	if discarded > 0 {
		opts.Consequence = fmt.Sprintf("The transaction was rolled back; %d changes were discarded.", discarded)
	}

	var ioErr *reconcile.CatalogIOError
	switch {
	case errors.Is(err, reconcile.ErrScan):
		opts.Context = "MODEL SCAN FAILED"
		opts.Suggestions = []string{"Check the manifest for unknown keys, empty names and duplicate entries."}
		opts.HelpCommands = []string{"Get help: dbdesc apply --help"}
	case errors.Is(err, reconcile.ErrResolution):
		opts.Context = "NAME RESOLUTION FAILED"
		opts.Suggestions = []string{"Declare an explicit table or column name for the entity."}
	case errors.As(err, &ioErr):
		opts.Context = "CATALOG WRITE FAILED"
		if ioErr.Op == "connect" || ioErr.Op == "begin" {
			opts.Context = "CONNECTION FAILED"
			opts.Suggestions = []string{"Check database.url and that the server is reachable."}
		}
		opts.HelpCommands = []string{"Preview the run: dbdesc plan"}
	case errors.Is(err, runlock.ErrLocked):
		opts.Level = ErrorLevelWarning
		opts.Context = "RUN IN PROGRESS"
		opts.Suggestions = []string{"Another dbdesc run holds the lock for this schema; retry when it finishes."}
	}
	return FormatError(opts)
}

// ConfigError creates a standardized configuration error
func ConfigError(message string, noColor bool) string {
	opts := ErrorOptions{
		Level:   ErrorLevelError,
		Context: "CONFIGURATION ERROR",
		Problem: message,
		HelpCommands: []string{
			"View config: cat dbdesc.yml",
			"Get help: dbdesc --help",
		},
		NoColor: noColor,
	}
	return FormatError(opts)
}

// Warning creates a standardized warning message
func Warning(message string, noColor bool) string {
	return FormatError(ErrorOptions{
		Level:   ErrorLevelWarning,
		Problem: message,
		NoColor: noColor,
	})
}
