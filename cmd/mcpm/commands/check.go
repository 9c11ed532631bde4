package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/cache"
	"github.com/thoreinstein/mcpm/internal/config"
	"github.com/thoreinstein/mcpm/internal/doctor"
	"github.com/thoreinstein/mcpm/internal/errors"
)

var (
	checkJSON    bool
	checkQuiet   bool
	checkVerbose bool
	checkFix     bool
)

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false,
		"output results as JSON")
	checkCmd.Flags().BoolVar(&checkQuiet, "quiet", false,
		"suppress output, exit code only")
	checkCmd.Flags().BoolVar(&checkVerbose, "verbose", false,
		"show detailed check-by-check output")
	checkCmd.Flags().BoolVar(&checkFix, "fix", false,
		"repair fixable problems (file permissions, corrupt cache)")
	checkCmd.MarkFlagsMutuallyExclusive("json", "quiet", "verbose")
	rootCmd.AddCommand(checkCmd)
}

var checkCmd = &cobra.Command{
	Use:     "check",
	Aliases: []string{"doctor"},
	Short:   "Diagnose config file problems",
	Long: `Run diagnostic checks over the Claude, Gemini and Codex config files,
mcpm's settings and its server cache.

Checks:
  path-permissions      secrets readable by other users, world-writable files
  config-syntax         every source parses; errors show line and column
  server-entries        entries have a command, URL, transport or remotes
  universe-assignment   entries hidden because they belong to the other universe
  server-cache          the cache decodes; records no file lists any more

Output modes (mutually exclusive):
  (default)   Show errors and warnings
  --verbose   Show all checks including passed ones
  --quiet     No output, exit code only
  --json      Machine-readable JSON output

Exit codes:
  0 - No errors (warnings may be present)
  1 - Errors present`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

// newCheckRunner registers every check against the loaded settings.
func newCheckRunner(cfg *config.Settings, settingsPath string) *doctor.Runner {
	sources := cfg.SourcePaths()
	store := cache.NewStore()

	targets := doctor.SourceTargets(sources)
	targets = append(targets,
		doctor.Target{Label: "settings", Path: settingsPath},
		doctor.Target{Label: "cache", Path: store.Path(), Sensitive: true},
	)

	return doctor.NewRunner(
		doctor.NewPermissionCheck(targets...),
		doctor.NewSyntaxCheck(sources),
		doctor.NewServerCheck(sources),
		doctor.NewUniverseCheck(sources, store),
		doctor.NewCacheCheck(store, time.Now),
	)
}

func runCheck(cmd *cobra.Command, _ []string) error {
	runner := newCheckRunner(settings, settingsStore.Path())
	report := runner.Run(cmd.Context())

	w := cmd.OutOrStdout()
	if checkFix {
		fixes := runner.Fix()
		if !checkQuiet && !checkJSON {
			printFixes(w, fixes)
		}
		if len(fixes) > 0 {
			// Report the state after fixing.
			report = runner.Run(cmd.Context())
		}
	}

	if err := outputCheckReport(w, report); err != nil {
		return err
	}

	if report.HasErrors() {
		return errors.NewUserError(errCheckErrors, fixSuggestion(report))
	}
	return nil
}

func fixSuggestion(report *doctor.Report) string {
	if checkFix {
		return ""
	}
	for _, r := range report.Results {
		if r.Fixable && r.Status == doctor.SeverityError {
			return "Run: mcpm check --fix"
		}
	}
	return ""
}

func printFixes(w io.Writer, fixes []doctor.FixResult) {
	for _, f := range fixes {
		if f.Error != nil {
			fmt.Fprintf(w, "%s could not fix %s: %v\n", red("✗"), f.Path, f.Error)
			continue
		}
		if f.Fixed {
			fmt.Fprintf(w, "%s fixed %s: %s\n", green("✓"), f.Path, f.Description)
		}
	}
	if len(fixes) > 0 {
		fmt.Fprintln(w)
	}
}

func outputCheckReport(w io.Writer, report *doctor.Report) error {
	if checkQuiet {
		return nil
	}

	if checkJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return errors.Wrap(err, "encoding JSON")
		}
		return nil
	}

	outputCheckText(w, report)
	return nil
}

func outputCheckText(w io.Writer, report *doctor.Report) {
	// In normal mode, show only errors and warnings
	// In verbose mode, show all checks
	showAll := checkVerbose

	hasOutput := false
	for _, result := range report.Results {
		problem := result.Status == doctor.SeverityError || result.Status == doctor.SeverityWarning
		if !showAll && !problem {
			continue
		}

		hasOutput = true
		fmt.Fprintf(w, "%s [%s] %s: %s\n", statusIcon(result.Status), result.Category, result.Name, result.Message)

		if result.FixHint != "" && problem {
			fmt.Fprintf(w, "  hint: %s\n", result.FixHint)
		}
	}

	if hasOutput || showAll {
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Summary: %d passed, %d info, %d warnings, %d errors\n",
		report.Summary.Passed, report.Summary.Info, report.Summary.Warnings, report.Summary.Errors)
}

func statusIcon(s doctor.Severity) string {
	switch s {
	case doctor.SeverityPass:
		return green("✓")
	case doctor.SeverityInfo:
		return cyan("ℹ")
	case doctor.SeverityWarning:
		return yellow("⚠")
	case doctor.SeverityError:
		return red("✗")
	default:
		return "?"
	}
}

// errCheckErrors makes the command exit with ExitUser.
var errCheckErrors = errors.New("check found errors")
