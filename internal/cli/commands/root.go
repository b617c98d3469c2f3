package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"runtime"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/dbdesc/internal/cli/config"
	"github.com/conduit-lang/dbdesc/internal/cli/ui"
)

var (
	// Version information - set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
	GoVersion = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand
type globalFlags struct {
	configFile string
	envFile    string
	noColor    bool
	overrides  config.Overrides
}

// loadConfig reads .env, the config file and the environment, then applies
// the command-line overrides
func (g *globalFlags) loadConfig() (*config.Config, error) {
	if g.envFile != "" {
		if err := godotenv.Load(g.envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Load(g.configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(g.overrides); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewRootCommand creates the root command
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "dbdesc",
		Short: "Write table and column descriptions into the database catalog",
		Long: color.CyanString(`dbdesc - database description reconciler

dbdesc reads the descriptions declared for your entities and stores them as
catalog metadata (extended properties on SQL Server, comments on PostgreSQL),
so database tooling shows the same documentation as the code.

Every run is a single transaction: either all descriptions are written or none.`),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&g.configFile, "config", "", "Config file (default: dbdesc.yml in this or a parent directory)")
	flags.StringVar(&g.envFile, "env-file", ".env", "Environment file loaded before the config")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored output")
	flags.StringVar(&g.overrides.DatabaseURL, "database-url", "", "Database URL (overrides DATABASE_URL)")
	flags.StringVar(&g.overrides.Driver, "driver", "", "database/sql driver name (sqlserver, pgx, postgres, sqlite3)")
	flags.StringVar(&g.overrides.Dialect, "dialect", "", "Catalog dialect (mssql, postgres, sqlite)")
	flags.StringVar(&g.overrides.Schema, "schema", "", "Schema qualifier (default: dbo, public or main)")
	flags.StringVarP(&g.overrides.Manifest, "manifest", "m", "", "Description manifest (default: descriptions.yml)")
	flags.StringVar(&g.overrides.Convention, "naming", "", "Fallback naming convention (verbatim, snake)")
	flags.StringVar(&g.overrides.Isolation, "isolation", "", "Transaction isolation level")
	flags.StringVar(&g.overrides.LogLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// Add subcommands
	rootCmd.AddCommand(NewVersionCommand())
	rootCmd.AddCommand(NewApplyCommand(g))
	rootCmd.AddCommand(NewPlanCommand(g))
	rootCmd.AddCommand(NewStatusCommand(g))

	return rootCmd
}

// NewVersionCommand creates the version command
func NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display the dbdesc version, Git commit, build date, and Go version",
		Run: func(cmd *cobra.Command, args []string) {
			// Set GoVersion to actual runtime if not set at build time
			goVer := GoVersion
			if goVer == "unknown" {
				goVer = runtime.Version()
			}

			out := cmd.OutOrStdout()
			titleColor := color.New(color.FgCyan, color.Bold)

			titleColor.Fprint(out, "dbdesc version: ")
			fmt.Fprintln(out, Version)

			titleColor.Fprint(out, "Git commit: ")
			fmt.Fprintln(out, GitCommit)

			titleColor.Fprint(out, "Build date: ")
			fmt.Fprintln(out, BuildDate)

			titleColor.Fprint(out, "Go version: ")
			fmt.Fprintln(out, goVer)
		},
	}
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		writeError(rootCmd.ErrOrStderr(), err)
		return err
	}
	return nil
}

// writeError prints err in the format matching its kind
func writeError(w io.Writer, err error) {
	var cfgErr *configError
	switch {
	case errors.As(err, &cfgErr):
		fmt.Fprint(w, ui.ConfigError(cfgErr.Error(), color.NoColor))
	case errors.Is(err, errAborted):
		fmt.Fprint(w, ui.Warning("Aborted, nothing was written.", color.NoColor))
	default:
		fmt.Fprint(w, ui.RunError(err, discarded(err), color.NoColor))
	}
}
