// Package core provides the filesystem and search tools.
//
// Tools:
//   - read_file: Read file contents
//   - write_file: Write content to a file (mode-gated)
//   - edit_file: Replace an exact substring (mode-gated)
//   - delete_file: Delete a file (mode-gated)
//   - grep: Search file contents by regex, structured query, or YAML rule
//   - glob: Find files matching a pattern
//   - tree: Parse a file and report its syntax tree shape
package core
