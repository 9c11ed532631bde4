// Package merge reconciles the three config sources with the cached server
// list.
//
// Merge seeds from the cache, overlays the sources in order and then clears
// the membership flag of every source a name is missing from. Source 1 wins a
// config conflict with source 2. Source 3 always overwrites, and the universe
// a server was first seen in never changes, so a Codex server cannot be
// folded into the Claude/Gemini group or the reverse.
//
// Merge never deletes a record. A name that disappears from every file keeps
// its tags, icon and universe with all membership flags false.
package merge
