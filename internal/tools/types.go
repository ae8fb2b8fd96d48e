// Package tools defines the tool ABI agents use to touch the workspace.
//
// Each tool is a standalone definition registered in the Registry. Agents
// never reach the filesystem or the index directly; every effect flows
// through a Tool, and every mutating tool consults the mode gates before
// acting.
package tools

import (
	"context"
	"fmt"
)

// Category classifies tools for capability filtering.
type Category string

const (
	// CategorySearch covers grep, glob, and tree.
	CategorySearch Category = "/search"

	// CategoryEdit covers rename, extract, and import rewrites.
	CategoryEdit Category = "/edit"

	// CategoryReason covers plan and think.
	CategoryReason Category = "/reason"

	// CategoryGeneral is for tools usable by any agent.
	CategoryGeneral Category = "/general"
)

// DiagnosticKind is the machine-readable failure class on a Diagnostic.
type DiagnosticKind string

const (
	DiagModeViolation      DiagnosticKind = "mode_violation"
	DiagInvalidRange       DiagnosticKind = "invalid_range"
	DiagInvalidGoal        DiagnosticKind = "invalid_goal"
	DiagCircularDependency DiagnosticKind = "circular_dependency"
	DiagParserCreation     DiagnosticKind = "parser_creation_failed"
	DiagParseFailed        DiagnosticKind = "parse_failed"
	DiagQueryUnsupported   DiagnosticKind = "query_unsupported"
	DiagIOError            DiagnosticKind = "io_error"
	DiagValidation         DiagnosticKind = "validation"
	DiagCancelled          DiagnosticKind = "cancelled"
)

// Diagnostic is one structured failure or warning attached to an Output.
type Diagnostic struct {
	Kind    DiagnosticKind `json:"kind"`
	Message string         `json:"message"`
	File    string         `json:"file,omitempty"`
	Line    int            `json:"line,omitempty"`
}

// Output is the uniform result of every tool execution. A failed Output
// always carries at least one diagnostic.
type Output struct {
	Success     bool         `json:"success"`
	Result      any          `json:"result,omitempty"`
	Summary     string       `json:"summary,omitempty"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

// Ok builds a successful output.
func Ok(result any, summary string) *Output {
	return &Output{Success: true, Result: result, Summary: summary}
}

// Fail builds a failed output with a single diagnostic.
func Fail(kind DiagnosticKind, format string, args ...any) *Output {
	return &Output{
		Success:     false,
		Diagnostics: []Diagnostic{{Kind: kind, Message: fmt.Sprintf(format, args...)}},
	}
}

// Property describes a single parameter property for JSON schema.
type Property struct {
	Type        string         `json:"type"`
	Description string         `json:"description"`
	Default     any            `json:"default,omitempty"`
	Enum        []any          `json:"enum,omitempty"`
	Items       *PropertyItems `json:"items,omitempty"`
}

// PropertyItems describes the schema for array elements.
type PropertyItems struct {
	Type string `json:"type"`
}

// Schema defines the expected arguments of a tool.
type Schema struct {
	Required   []string            `json:"required"`
	Properties map[string]Property `json:"properties"`
}

// ExecuteFunc runs a tool. Infrastructure problems (context cancelled,
// broken plumbing) surface as the error; domain failures surface as a
// failed Output with diagnostics.
type ExecuteFunc func(ctx context.Context, args map[string]any) (*Output, error)

// Tool is a registrable tool definition.
type Tool struct {
	// Name is the unique identifier, e.g. "rename_symbol".
	Name string

	// Description explains what the tool does.
	Description string

	// Category classifies the tool for capability filtering.
	Category Category

	// Execute runs the tool with the given arguments.
	Execute ExecuteFunc

	// Schema defines the expected arguments.
	Schema Schema

	// Priority orders tools within a category (default 50).
	Priority int

	// Mutating marks tools that write files or run commands; the
	// orchestrator refuses them to agents without write permission.
	Mutating bool
}

// Validate checks if the tool definition is valid.
func (t *Tool) Validate() error {
	if t.Name == "" {
		return ErrToolNameEmpty
	}
	if t.Execute == nil {
		return ErrToolExecuteNil
	}
	return nil
}

// WithPriority returns a copy of the tool with the given priority.
func (t *Tool) WithPriority(priority int) *Tool {
	copy := *t
	copy.Priority = priority
	return &copy
}

// Tool arguments arrive as map[string]any decoded from JSON, so numbers
// may be float64 even when the schema says integer.

// StringArg reads a string argument with a default.
func StringArg(args map[string]any, key, def string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return def
}

// IntArg reads an integer argument, accepting JSON float64.
func IntArg(args map[string]any, key string, def int) int {
	switch v := args[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// BoolArg reads a boolean argument with a default.
func BoolArg(args map[string]any, key string, def bool) bool {
	if v, ok := args[key].(bool); ok {
		return v
	}
	return def
}

// StringsArg reads a string-array argument ([]string or []any of strings).
func StringsArg(args map[string]any, key string) []string {
	switch v := args[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, e := range v {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
