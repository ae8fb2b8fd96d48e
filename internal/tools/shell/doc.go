// Package shell provides the command-execution tools. Both are gated:
// Build mode is the only mode that may run commands or git operations.
//
// Tools:
//   - run_command: Execute a shell command
//   - git: Run a git subcommand in the workspace
package shell
