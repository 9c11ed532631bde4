// Package paths resolves the directories and files mcpm reads and writes.
//
// The application's own state follows the XDG Base Directory layout via
// github.com/adrg/xdg:
//
//	| Purpose  | Location                         |
//	|----------|----------------------------------|
//	| Settings | <ConfigHome>/mcpm/config.yaml    |
//	| Cache    | <DataHome>/mcpm/servers.json     |
//	| Backups  | <DataHome>/mcpm/backups/         |
//	| Icons    | <DataHome>/mcpm/icons/           |
//
// Setting MCPM_HOME relocates all of them under one directory, which is
// what tests and sandboxed runs use.
//
// The managed MCP config files default to ~/.claude.json,
// ~/.gemini/settings.json and ~/.codex/config.toml; see [DefaultSourcePaths].
package paths
