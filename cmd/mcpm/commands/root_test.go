package commands

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/logging"
	"github.com/thoreinstein/mcpm/internal/manager"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

func TestSetupLogging_VerbosityFlags(t *testing.T) {
	// Save/Restore original state
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	tests := []struct {
		name      string
		verbosity int
		wantLevel slog.Level
	}{
		{"default (0)", 0, slog.LevelWarn},
		{"verbose (1)", 1, slog.LevelInfo},
		{"debug (2)", 2, slog.LevelDebug},
		{"trace (3)", 3, logging.LevelTrace},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbosity = tt.verbosity
			if err := setupLogging(rootCmd); err != nil {
				t.Fatalf("setupLogging failed: %v", err)
			}

			logger := slog.Default()
			if !logger.Enabled(t.Context(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}
			if tt.wantLevel > logging.LevelTrace {
				shouldBeDisabled := tt.wantLevel - 4
				if logger.Enabled(t.Context(), shouldBeDisabled) {
					t.Errorf("expected level %v to be disabled", shouldBeDisabled)
				}
			}
		})
	}
}

func TestSetupLogging_EnvVar(t *testing.T) {
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	tests := []struct {
		name      string
		envVal    string
		wantLevel slog.Level
	}{
		{"MCPM_DEBUG=1", "1", slog.LevelDebug},
		{"MCPM_DEBUG=true", "true", slog.LevelDebug},
		{"MCPM_DEBUG=2", "2", logging.LevelTrace},
		{"MCPM_DEBUG=0", "0", slog.LevelWarn},
		{"MCPM_DEBUG=unknown", "foo", slog.LevelWarn},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verbosity = 0
			t.Setenv("MCPM_DEBUG", tt.envVal)

			if err := setupLogging(rootCmd); err != nil {
				t.Fatalf("setupLogging failed: %v", err)
			}

			logger := slog.Default()
			if !logger.Enabled(t.Context(), tt.wantLevel) {
				t.Errorf("expected level %v to be enabled", tt.wantLevel)
			}

			if tt.wantLevel == slog.LevelDebug {
				if logger.Enabled(t.Context(), logging.LevelTrace) {
					t.Error("expected Trace level to be disabled when MCPM_DEBUG=1")
				}
			}
		})
	}
}

func TestSetupLogging_FlagPrecedence(t *testing.T) {
	origVerbosity := verbosity
	defer func() { verbosity = origVerbosity }()

	t.Setenv("MCPM_DEBUG", "2")
	verbosity = 1

	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}

	logger := slog.Default()
	if !logger.Enabled(t.Context(), slog.LevelInfo) {
		t.Error("expected Info level to be enabled")
	}
	if logger.Enabled(t.Context(), slog.LevelDebug) {
		t.Error("expected Debug level to be disabled (flag should override env var)")
	}
}

func TestSetupLogging_Quiet(t *testing.T) {
	origQuiet := quiet
	origVerbosity := verbosity
	defer func() {
		quiet = origQuiet
		verbosity = origVerbosity
	}()

	quiet = true
	verbosity = 0

	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logger := slog.Default()
	if !logger.Enabled(t.Context(), slog.LevelError) {
		t.Error("expected Error level to be enabled")
	}
	if logger.Enabled(t.Context(), slog.LevelWarn) {
		t.Error("expected Warn level to be disabled")
	}
}

func TestSetupLogging_QuietMutualExclusion(t *testing.T) {
	origVerbosity := verbosity
	origQuiet := quiet
	defer func() {
		verbosity = origVerbosity
		quiet = origQuiet
	}()

	verbosity = 1
	quiet = true

	err := setupLogging(rootCmd)
	if err == nil {
		t.Fatal("expected error when both quiet and verbose are set")
	}
	if got := errors.ExitCode(err); got != errors.ExitUser {
		t.Errorf("ExitCode() = %d, want %d", got, errors.ExitUser)
	}
}

func TestMutationError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantCode       int
		wantSuggestion string
	}{
		{"nil", nil, errors.ExitSuccess, ""},
		{"not found", errors.Wrapf(errors.ErrNotFound, "%q", "fs"), errors.ExitUser, "Run: mcpm list"},
		{"mismatch", errors.ErrUniverseMismatch, errors.ExitUser, "Switch universes with: mcpm use <universe>"},
		{"invalid", &manager.InvalidConfigError{Name: "fs", Reason: "no command"}, errors.ExitUser, "Fix the entry or pass --force"},
		{"degraded", errors.Wrap(manager.ErrLoadFailed, "reload"), errors.ExitUser, "Run: mcpm check"},
		{"crossing partitions", &manager.PartitionError{Names: []string{"github"}}, errors.ExitUser, "Run: mcpm check"},
		{
			"sync failure",
			&manager.SyncError{Universe: mcp.UniverseGemini, Path: "/x", Err: errors.New("disk full")},
			errors.ExitSystem,
			"Restore the previous file with: mcpm backup restore gemini",
		},
		{"already mapped", errors.NewUserError(errors.New("x"), "keep me"), errors.ExitUser, "keep me"},
		{"other", errors.New("boom"), errors.ExitSystem, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mutationError(tt.err)
			if got := errors.ExitCode(err); got != tt.wantCode {
				t.Errorf("ExitCode() = %d, want %d", got, tt.wantCode)
			}
			if err == nil {
				return
			}
			var exitErr *errors.ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("mutationError() = %T, want *ExitError", err)
			}
			if exitErr.Suggestion != tt.wantSuggestion {
				t.Errorf("Suggestion = %q, want %q", exitErr.Suggestion, tt.wantSuggestion)
			}
		})
	}
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	PrintError(&buf, errors.Wrap(errors.NewUserError(errors.ErrNotFound, "Run: mcpm list"), "executing root command"))

	want := "Error: server not found\n  Run: mcpm list\n"
	if got := buf.String(); got != want {
		t.Errorf("PrintError() = %q, want %q", got, want)
	}

	buf.Reset()
	PrintError(&buf, errors.New("plain"))
	if got := buf.String(); got != "Error: plain\n" {
		t.Errorf("PrintError() = %q, want %q", got, "Error: plain\n")
	}
}

func TestSetupLogging_LogFileIsClosed(t *testing.T) {
	origLogFile, origDefault := logFile, slog.Default()
	defer func() {
		logFile = origLogFile
		slog.SetDefault(origDefault)
	}()

	path := filepath.Join(t.TempDir(), "mcpm.log")
	logFile = path
	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	first := logOutput
	if first == nil {
		t.Fatal("expected the log file to be open")
	}

	// A second setup replaces the handle instead of leaking it.
	if err := setupLogging(rootCmd); err != nil {
		t.Fatalf("setupLogging failed: %v", err)
	}
	if _, err := first.WriteString("x"); err == nil {
		t.Error("expected the first handle to be closed")
	}

	slog.Error("written to file")
	second := logOutput
	closeLogFile()
	if logOutput != nil {
		t.Error("expected logOutput to be cleared")
	}
	if _, err := second.WriteString("x"); err == nil {
		t.Error("expected the log file to be closed")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("log file = %q, want the logged message", data)
	}
}
