package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/thoreinstein/mcpm/internal/backup"
	"github.com/thoreinstein/mcpm/internal/errors"
	"github.com/thoreinstein/mcpm/internal/mcp"
)

var (
	backupListJSON bool
	backupKeep     int
)

func init() {
	backupListCmd.Flags().BoolVar(&backupListJSON, "json", false, "Output in JSON format")
	backupPruneCmd.Flags().IntVar(&backupKeep, "keep", backup.DefaultRetentionCount,
		"number of backups to keep per universe")
	backupCmd.AddCommand(backupListCmd, backupCreateCmd, backupRestoreCmd, backupPruneCmd)
	rootCmd.AddCommand(backupCmd)
}

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Manage config file backups",
	Long: `mcpm copies a config file into its data directory before the first
write of each run. The newest five copies per universe are kept.`,
}

var backupListCmd = &cobra.Command{
	Use:   "list [universe]",
	Short: "List available backups",
	Long: `List backups grouped by universe, most recent first. Pass a universe to
list only its backups.`,
	Example: `  # List all backups
  mcpm backup list

  # Only Codex
  mcpm backup list codex

  See Also:
    mcpm backup restore - Restore from a backup
    mcpm backup create  - Create a new backup`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBackupList,
}

var backupCreateCmd = &cobra.Command{
	Use:   "create [universe]",
	Short: "Back up config files now",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupCreate,
}

var backupRestoreCmd = &cobra.Command{
	Use:   "restore <universe> [backup-id]",
	Short: "Restore a config file from a backup",
	Long: `Restore a universe's config file from a backup. Without an ID the most
recent backup is used. The file is overwritten; run 'mcpm backup create'
first if you want to keep the current version.`,
	Example: `  mcpm backup restore claude
  mcpm backup restore codex 20260123T100712`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runBackupRestore,
}

var backupPruneCmd = &cobra.Command{
	Use:   "prune [universe]",
	Short: "Delete old backups",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runBackupPrune,
}

// universesArg returns the universe named in args, or all of them.
func universesArg(args []string) ([]mcp.Universe, error) {
	if len(args) == 0 {
		return mcp.Universes(), nil
	}
	u, err := mcp.ParseUniverse(args[0])
	if err != nil {
		return nil, errors.NewUserError(err, "valid universes: claude, gemini, codex")
	}
	return []mcp.Universe{u}, nil
}

// backupListOutput represents the JSON output for backup list.
type backupListOutput struct {
	Universe string             `json:"universe"`
	Backups  []backupInfoOutput `json:"backups"`
}

// backupInfoOutput represents a single backup in JSON output.
type backupInfoOutput struct {
	ID          string    `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	FileCount   int       `json:"file_count"`
	MCPMVersion string    `json:"mcpm_version"`
}

func runBackupList(cmd *cobra.Command, args []string) error {
	universes, err := universesArg(args)
	if err != nil {
		return err
	}
	mgr := backup.NewManager()

	listed := make(map[mcp.Universe][]backup.Manifest, len(universes))
	for _, u := range universes {
		manifests, err := mgr.List(u.String())
		if err != nil && !errors.Is(err, backup.ErrNoBackupsFound) {
			return errors.Wrapf(err, "listing backups for %s", u)
		}
		listed[u] = manifests
	}

	if backupListJSON {
		return outputBackupListJSON(cmd.OutOrStdout(), universes, listed)
	}
	return outputBackupListTabular(cmd.OutOrStdout(), universes, listed)
}

func outputBackupListJSON(w io.Writer, universes []mcp.Universe, listed map[mcp.Universe][]backup.Manifest) error {
	output := make([]backupListOutput, 0, len(universes))
	for _, u := range universes {
		backups := make([]backupInfoOutput, len(listed[u]))
		for i, m := range listed[u] {
			backups[i] = backupInfoOutput{
				ID:          m.ID,
				CreatedAt:   m.CreatedAt,
				FileCount:   len(m.Files),
				MCPMVersion: m.MCPMVersion,
			}
		}
		output = append(output, backupListOutput{Universe: u.String(), Backups: backups})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}

func outputBackupListTabular(w io.Writer, universes []mcp.Universe, listed map[mcp.Universe][]backup.Manifest) error {
	hasBackups := false

	for i, u := range universes {
		manifests := listed[u]
		if len(manifests) > 0 {
			hasBackups = true
		}

		// Add blank line between universes (but not before first)
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, cyan("Universe: "+u.String()))

		if len(manifests) == 0 {
			fmt.Fprintln(w, gray("  (no backups available)"))
			continue
		}

		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", bold("ID"), bold("CREATED"), bold("FILES"), bold("VERSION"))
		for _, m := range manifests {
			fmt.Fprintf(tw, "  %s\t%s\t%d\t%s\n",
				green(m.ID),
				m.CreatedAt.Local().Format("2006-01-02 15:04:05"),
				len(m.Files),
				m.MCPMVersion)
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if !hasBackups {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "No backups available")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Backups are created automatically before mcpm writes a config file.")
		fmt.Fprintln(w, "You can also create a backup manually with: mcpm backup create")
	}
	return nil
}

func runBackupCreate(cmd *cobra.Command, args []string) error {
	universes, err := universesArg(args)
	if err != nil {
		return err
	}
	mgr := backup.NewManager()

	created := 0
	for _, u := range universes {
		path := settings.Path(u)
		if path == "" {
			continue
		}
		manifest, err := mgr.Backup(u.String(), []string{path})
		if errors.Is(err, backup.ErrNothingToBackUp) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s does not exist\n", gray("-"), u, path)
			continue
		}
		if err != nil {
			return errors.NewSystemError(errors.Wrapf(err, "backing up %s", u), "")
		}
		created++
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s: backup %s\n", green("✓"), u, manifest.ID)
	}
	if created == 0 {
		return errors.NewUserError(backup.ErrNothingToBackUp, "Check the paths with: mcpm config list")
	}
	return nil
}

func runBackupRestore(cmd *cobra.Command, args []string) error {
	u, err := mcp.ParseUniverse(args[0])
	if err != nil {
		return errors.NewUserError(err, "valid universes: claude, gemini, codex")
	}
	w := cmd.OutOrStdout()
	mgr := backup.NewManager()

	// Determine backup ID
	var backupID string
	if len(args) > 1 {
		backupID = args[1]
	} else {
		latest, err := mgr.Latest(u.String())
		if err != nil {
			if errors.Is(err, backup.ErrNoBackupsFound) {
				return errors.NewUserError(errors.Newf("no backups found for %s", u), "")
			}
			return errors.Wrap(err, "listing backups")
		}
		backupID = latest.ID
		fmt.Fprintf(w, "Using most recent backup: %s\n", backupID)
	}

	manifest, err := mgr.Restore(u.String(), backupID)
	if err != nil {
		if errors.Is(err, backup.ErrBackupCorrupted) {
			return errors.NewSystemError(err, "Pick another backup with: mcpm backup list "+u.String())
		}
		return errors.NewUserError(errors.Wrapf(err, "restoring backup %s", backupID), "")
	}

	fmt.Fprintf(w, "%s Restored %d file(s) for %s from backup %s\n",
		green("✓"), len(manifest.Files), u, backupID)
	return nil
}

func runBackupPrune(cmd *cobra.Command, args []string) error {
	universes, err := universesArg(args)
	if err != nil {
		return err
	}
	mgr := backup.NewManager()
	for _, u := range universes {
		if err := mgr.Prune(u.String(), backupKeep); err != nil {
			return errors.NewUserError(err, "")
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "kept at most %d backup(s) per universe\n", backupKeep)
	return nil
}
