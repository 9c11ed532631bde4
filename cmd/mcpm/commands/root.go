// Package commands implements the CLI commands for mcpm.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/cmd"
	"github.com/thoreinstein/mcpm/internal/backup"
	"github.com/thoreinstein/mcpm/internal/cache"
	"github.com/thoreinstein/mcpm/internal/cli/prompt"
	"github.com/thoreinstein/mcpm/internal/config"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/extract"
	"github.com/thoreinstein/mcpm/internal/icon"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/manager"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

// verbosity holds the count of -v flags.
var verbosity int

// quiet holds the value of the -q/--quiet flag.
var quiet bool

// logFormat holds the value of the --log-format flag.
var logFormat string

// logFile holds the path to the log file.
var logFile string

// configFile holds the value of the --config flag.
var configFile string

// universeFlag overrides the active universe for one invocation.
var universeFlag string

var (
	settingsStore *config.Store
	settings      *config.Settings
)

// logOutput is the open --log-file, closed by closeLogFile.
var logOutput *os.File

func init() {
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v",
		"increase verbosity level (e.g., -v, -vv)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false,
		"suppress non-error output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"log format: text, json")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"write logs to file in JSON format")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "",
		"settings file (default: <config home>/mcpm/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&universeFlag, "universe", "u", "",
		"operate on this universe for one command: claude, gemini, codex")

	rootCmd.Version = cmd.Version
	rootCmd.SetVersionTemplate("mcpm version {{.Version}}\n")

	// Silence errors and usage so we can control error output
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
}

var rootCmd = &cobra.Command{
	Use:   "mcpm",
	Short: "Keep MCP server entries in sync across Claude, Gemini and Codex",
	Long: `mcpm reads the MCP server entries of Claude, Gemini and Codex config
files, merges them into one list, and writes changes back without touching
anything else in those files.

Claude and Gemini share servers: an entry in one is visible from the other.
Codex is kept separate. The active universe decides which servers commands
see and where new servers go; switch it with 'mcpm use'.`,
	Example: `  # List servers of the active universe
  mcpm list

  # Paste servers from a README
  pbpaste | mcpm add

  # Work on Codex servers
  mcpm use codex

  # Check config files for problems
  mcpm check

  See Also: mcpm config, mcpm backup`,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		// Initialize logging first
		if err := setupLogging(cmd); err != nil {
			return err
		}
		if cmd.Name() == "help" || cmd.Name() == "version" {
			return nil
		}
		return loadSettings()
	},
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// setupLogging configures the default logger based on verbosity flags.
func setupLogging(cmd *cobra.Command) error {
	if quiet && verbosity > 0 {
		return errors.NewUserError(errors.New("conflicting flags"), "cannot use --quiet and --verbose together")
	}

	var level slog.Level
	if quiet {
		level = slog.LevelError
	} else {
		v := verbosity

		// CLI flags take precedence, but if not set, check env var
		if v == 0 {
			if val, ok := os.LookupEnv("MCPM_DEBUG"); ok {
				switch val {
				case "1", "true":
					v = 2 // Debug
				case "2":
					v = 3 // Trace
				}
			}
		}
		level = logging.LevelFromVerbosity(v)
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	var primaryHandler slog.Handler
	switch logging.Format(logFormat) {
	case logging.FormatJSON:
		primaryHandler = slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
	default:
		primaryHandler = logging.NewHandler(cmd.ErrOrStderr(), opts)
	}

	handlers := []slog.Handler{primaryHandler}

	closeLogFile()
	if logFile != "" {
		f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return errors.NewUserError(err, "failed to open log file")
		}
		logOutput = f
		// File output uses JSON format
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: level,
		}))
	}

	var handler slog.Handler
	if len(handlers) > 1 {
		handler = logging.NewMultiHandler(handlers...)
	} else {
		handler = handlers[0]
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))

	return nil
}

// loadSettings reads the settings file and applies --universe.
func loadSettings() error {
	settingsStore = config.NewStore(configFile)
	cfg, err := settingsStore.Load(configFile != "")
	if err != nil {
		return errors.NewConfigError(err)
	}
	if universeFlag != "" {
		u, err := mcp.ParseUniverse(universeFlag)
		if err != nil {
			return errors.NewUserError(err, "valid universes: claude, gemini, codex")
		}
		cfg.ActiveConfigIndex = int(u)
	}
	settings = cfg
	return nil
}

// newManager builds a manager over the loaded settings with backups, the
// server cache and the icon store in their default locations.
func newManager() *manager.Manager {
	backup.Version = cmd.Version
	return manager.New(settings,
		manager.WithBackups(backup.NewSession(backup.NewManager())),
		manager.WithCache(cache.NewStore()),
		manager.WithIcons(icon.NewStore()),
	)
}

// loadManager builds a manager and loads the sources. When a source cannot
// be read the cached list is still returned so read-only commands work;
// mutations on it fail with manager.ErrLoadFailed.
func loadManager(ctx context.Context) (*manager.Manager, error) {
	m := newManager()
	if err := m.Load(ctx); err != nil {
		if !errors.Is(err, manager.ErrLoadFailed) {
			return nil, errors.NewSystemError(err, "")
		}
		logging.FromContext(ctx).Warn("showing cached servers", "error", err)
	}
	return m, nil
}

// mutationError maps manager errors to exit codes and suggestions.
func mutationError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) {
		return err
	}
	var partitionErr *manager.PartitionError
	switch {
	case errors.Is(err, manager.ErrLoadFailed), errors.As(err, &partitionErr):
		return errors.NewConfigError(err)
	case errors.Is(err, errors.ErrNotFound):
		return errors.NewUserError(err, "Run: mcpm list")
	case errors.Is(err, errors.ErrUniverseMismatch):
		return errors.NewUserError(err, "Switch universes with: mcpm use <universe>")
	case errors.Is(err, errors.ErrInvalidConfig):
		return errors.NewUserError(err, "Fix the entry or pass --force")
	case errors.Is(err, errors.ErrMissingName):
		return errors.NewUserError(err, "")
	case errors.Is(err, prompt.ErrSelectionCancelled), errors.Is(err, prompt.ErrInvalidSelection):
		return errors.NewUserError(err, "Pass --yes to skip the question")
	case errors.Is(err, extract.ErrNoServers):
		return errors.NewUserError(err, "Paste a JSON object or an [mcp_servers] TOML table")
	case errors.Is(err, icon.ErrFileNotFound), errors.Is(err, icon.ErrFileTooLarge),
		errors.Is(err, icon.ErrImageTooLarge), errors.Is(err, icon.ErrInvalidImage):
		return errors.NewUserError(err, "")
	}
	var extractErr *extract.ExtractError
	if errors.As(err, &extractErr) {
		return errors.NewUserError(err, "Pass --format json or --format toml if the format was guessed wrong")
	}
	var syncErr *manager.SyncError
	if errors.As(err, &syncErr) {
		return errors.NewSystemError(err, "Restore the previous file with: mcpm backup restore "+syncErr.Universe.String())
	}
	return errors.NewSystemError(err, "")
}

// Execute runs the root command. Errors raised by cobra itself, such as an
// unknown flag, are reported as user errors.
func Execute() error {
	err := rootCmd.Execute()
	closeLogFile()
	if err == nil {
		return nil
	}
	var exitErr *errors.ExitError
	if !errors.As(err, &exitErr) {
		err = errors.NewUserError(err, "Run 'mcpm --help' for usage")
	}
	return errors.Wrap(err, "executing root command")
}

// closeLogFile closes the --log-file opened by setupLogging, if any.
func closeLogFile() {
	if logOutput == nil {
		return
	}
	if err := logOutput.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing log file: %v\n", err)
	}
	logOutput = nil
}

// PrintError writes err and its suggestion, if any, to w.
func PrintError(w io.Writer, err error) {
	var exitErr *errors.ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(w, "Error: %v\n", err)
		return
	}
	if exitErr.Err != nil {
		fmt.Fprintf(w, "Error: %v\n", exitErr.Err)
	}
	if exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
	}
}
