package ui

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/fatih/color"

	"github.com/conduit-lang/dbdesc/internal/orm/catalog"
	"github.com/conduit-lang/dbdesc/internal/reconcile"
	"github.com/conduit-lang/dbdesc/internal/runlock"
)

func TestFormatError(t *testing.T) {
	// Disable color for testing
	color.NoColor = true
	defer func() { color.NoColor = false }()

	tests := []struct {
		name     string
		opts     ErrorOptions
		contains []string
	}{
		{
			name: "basic error",
			opts: ErrorOptions{
				Level:   ErrorLevelError,
				Context: "configuration error",
				Problem: "database.url is not set",
			},
			contains: []string{"❌", "CONFIGURATION ERROR: database.url is not set"},
		},
		{
			name: "warning with suggestions",
			opts: ErrorOptions{
				Level:       ErrorLevelWarning,
				Problem:     "Nothing to describe.",
				Suggestions: []string{"Add desc tags to the model."},
			},
			contains: []string{"⚠️", "Nothing to describe.", "   Add desc tags to the model."},
		},
		{
			name: "consequence and help",
			opts: ErrorOptions{
				Problem:      "write failed",
				Consequence:  "Nothing was changed.",
				HelpCommands: []string{"Preview the run: dbdesc plan"},
			},
			contains: []string{"   Nothing was changed.", "   → Preview the run: dbdesc plan"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			opts.NoColor = true
			output := FormatError(opts)

			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, got:\n%s", s, output)
				}
			}
		})
	}
}

func TestRunError(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	key := catalog.ColumnKey("dbo", "Person", "FirstName")
	tests := []struct {
		name      string
		err       error
		discarded int
		contains  []string
	}{
		{
			name:     "scan",
			err:      &reconcile.ScanError{Err: errors.New("duplicate entity")},
			contains: []string{"MODEL SCAN FAILED", "duplicate entity"},
		},
		{
			name:     "resolution",
			err:      &reconcile.ResolutionError{Entity: "Person", Err: errors.New("no name")},
			contains: []string{"NAME RESOLUTION FAILED", "Person"},
		},
		{
			name:      "catalog write",
			err:       &reconcile.CatalogIOError{Op: "add", Key: &key, Err: errors.New("denied")},
			discarded: 3,
			contains: []string{
				"CATALOG WRITE FAILED",
				"column dbo.Person.FirstName",
				"3 changes were discarded",
				"dbdesc plan",
			},
		},
		{
			name:     "connection",
			err:      &reconcile.CatalogIOError{Op: "connect", Err: errors.New("refused")},
			contains: []string{"CONNECTION FAILED", "database.url"},
		},
		{
			name:     "locked",
			err:      fmt.Errorf("dbdesc:lock:dbo: %w", runlock.ErrLocked),
			contains: []string{"⚠️", "RUN IN PROGRESS"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output := RunError(tt.err, tt.discarded, true)
			for _, s := range tt.contains {
				if !strings.Contains(output, s) {
					t.Errorf("expected output to contain %q, got:\n%s", s, output)
				}
			}
		})
	}
}

func TestFormatSuccess(t *testing.T) {
	color.NoColor = true
	defer func() { color.NoColor = false }()

	if got := FormatSuccess("2 descriptions written", true); got != "✓ 2 descriptions written" {
		t.Errorf("unexpected success message %q", got)
	}
}
