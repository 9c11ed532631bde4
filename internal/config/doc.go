// Package config handles mcpm's own settings file, distinct from the MCP
// config files it manages.
//
// The default location is <ConfigHome>/mcpm/config.yaml:
//
//	confirm_delete: true
//	config_paths:
//	  - ~/.claude.json
//	  - ~/.gemini/settings.json
//	  - ~/.codex/config.toml
//	active_config_index: 0
//
// Every key can be overridden from the environment with the MCPM_ prefix,
// e.g. MCPM_ACTIVE_CONFIG_INDEX=2. A list value from the environment is
// comma separated.
//
// [Store.Load] validates the file. An active index outside 0..2 is clamped
// rather than rejected, and fewer than three paths leave the missing sources
// disabled.
package config
