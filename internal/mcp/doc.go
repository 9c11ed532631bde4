// Package mcp defines the MCP server records mcpm reconciles.
//
// [ServerConfig] is one entry of a config file's server map, for example
//
//	{
//	  "command": "npx",
//	  "args": ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"],
//	  "env": {"DEBUG": "1"}
//	}
//
// Keys it does not model (timeouts, trust flags, vendor extensions) are kept
// and written back untouched.
//
// [ServerModel] is the merged record kept in the cache. Besides the config
// it carries membership flags for the three sources, user metadata (tags,
// custom icon, registry image) and the [Universe] the server was first seen
// in. Claude (0) and Gemini (1) form one partition; Codex (2) is isolated.
package mcp
