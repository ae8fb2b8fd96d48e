package agent

import "agcodex/internal/types"

// Builtins returns the default agent set. They are registered only where
// no user descriptor shadows the name, so a project can replace any of
// them with its own YAML.
func Builtins() []*Descriptor {
	return []*Descriptor{
		{
			Name:         "general",
			Description:  "General-purpose coding agent for open-ended tasks",
			Intelligence: types.IntelligenceMedium,
			Prompt: "You are a general-purpose coding agent. Use the available " +
				"tools to inspect the workspace, then carry out the requested task. " +
				"Report findings with file and line references.",
			Timeout:        Duration(defaultTimeout),
			Chainable:      true,
			Parallelizable: true,
			Source:         SourceBuiltin,
		},
		{
			Name:         "code-reviewer",
			Description:  "Reviews changed code for correctness and style",
			Intelligence: types.IntelligenceHard,
			Prompt: "Review the code under discussion. Flag correctness bugs, " +
				"race conditions, and error-handling gaps first, style second. " +
				"Every finding needs a file, a line, and a concrete fix.",
			Parameters: []Parameter{
				{Name: "focus", Description: "Area to concentrate on", Enum: []string{"correctness", "style", "performance", "all"}, Default: "all"},
			},
			Tools: map[string]ToolPolicy{
				"write_file":  {Permission: PermissionDeny},
				"edit_file":   {Permission: PermissionDeny},
				"delete_file": {Permission: PermissionDeny},
			},
			Timeout:        Duration(defaultTimeout),
			Chainable:      true,
			Parallelizable: true,
			Tags:           []string{"review", "quality"},
			Source:         SourceBuiltin,
		},
		{
			Name:         "test-writer",
			Description:  "Writes table-driven tests for existing code",
			Intelligence: types.IntelligenceMedium,
			Prompt: "Write tests for the named code. Prefer table-driven tests, " +
				"cover the error paths, and keep fixtures in the test file.",
			Parameters: []Parameter{
				{Name: "target", Description: "File or symbol to cover", Required: true},
			},
			Timeout:        Duration(defaultTimeout),
			Chainable:      true,
			Parallelizable: true,
			Tags:           []string{"testing"},
			Source:         SourceBuiltin,
		},
		{
			Name:         "security-auditor",
			Description:  "Audits code for injection, traversal, and secret leaks",
			Intelligence: types.IntelligenceHard,
			ModeOverride: "review",
			Prompt: "Audit the code for security problems: command and SQL " +
				"injection, path traversal, hard-coded credentials, and unsafe " +
				"deserialization. Rate each finding by severity.",
			Tools: map[string]ToolPolicy{
				"run_command": {Permission: PermissionDeny},
				"git":         {Permission: PermissionDeny},
			},
			Timeout:        Duration(defaultTimeout),
			Chainable:      true,
			Parallelizable: true,
			Tags:           []string{"security", "audit"},
			Source:         SourceBuiltin,
		},
	}
}
