package core

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"agcodex/internal/logging"
	"agcodex/internal/tools"
)

// ReadFileTool returns a tool for reading file contents. Reads pass in
// every mode.
func ReadFileTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Category:    tools.CategoryGeneral,
		Priority:    90,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeReadFile(ctx, args)
		},
		Schema: tools.Schema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to read",
				},
				"start_line": {
					Type:        "integer",
					Description: "Starting line number (1-indexed, optional)",
				},
				"end_line": {
					Type:        "integer",
					Description: "Ending line number (inclusive, optional)",
				},
			},
		},
	}
}

func executeReadFile(ctx context.Context, args map[string]any) (*tools.Output, error) {
	path := tools.StringArg(args, "path", "")
	if path == "" {
		return tools.Fail(tools.DiagValidation, "path is required"), nil
	}

	logging.ToolsDebug("read_file: path=%s", path)

	content, err := os.ReadFile(path)
	if err != nil {
		return tools.Fail(tools.DiagIOError, "read %s: %v", path, err), nil
	}
	result := string(content)

	startLine := tools.IntArg(args, "start_line", 0)
	endLine := tools.IntArg(args, "end_line", 0)
	if startLine > 0 || endLine > 0 {
		lines := strings.Split(result, "\n")
		if startLine < 1 {
			startLine = 1
		}
		if endLine < 1 || endLine > len(lines) {
			endLine = len(lines)
		}
		if startLine > endLine {
			return tools.Fail(tools.DiagInvalidRange, "start_line %d > end_line %d", startLine, endLine), nil
		}
		result = strings.Join(lines[startLine-1:endLine], "\n")
	}

	return tools.Ok(result, fmt.Sprintf("%d bytes from %s", len(result), path)), nil
}

// WriteFileTool returns a tool for writing a file. The write gate runs
// first; Plan mode refuses, Review mode enforces the size limit.
func WriteFileTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "write_file",
		Description: "Write content to a file, creating parent directories",
		Category:    tools.CategoryEdit,
		Priority:    90,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeWriteFile(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"path", "content"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to write",
				},
				"content": {
					Type:        "string",
					Description: "The full content to write",
				},
			},
		},
	}
}

func executeWriteFile(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	path := tools.StringArg(args, "path", "")
	content, _ := args["content"].(string)
	if path == "" {
		return tools.Fail(tools.DiagValidation, "path is required"), nil
	}

	if err := tb.Modes.ValidateFileWrite(path, len(content)); err != nil {
		return tools.Fail(tools.DiagModeViolation, "%v", err), nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return tools.Fail(tools.DiagIOError, "mkdir %s: %v", dir, err), nil
		}
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return tools.Fail(tools.DiagIOError, "write %s: %v", path, err), nil
	}

	logging.Tools("write_file: %s (%d bytes)", path, len(content))
	return tools.Ok(nil, fmt.Sprintf("wrote %d bytes to %s", len(content), path)), nil
}

// EditFileTool returns a tool replacing an exact substring in a file.
func EditFileTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "edit_file",
		Description: "Replace an exact substring in a file",
		Category:    tools.CategoryEdit,
		Priority:    85,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeEditFile(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"path", "old", "new"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to edit",
				},
				"old": {
					Type:        "string",
					Description: "Exact text to replace",
				},
				"new": {
					Type:        "string",
					Description: "Replacement text",
				},
				"all": {
					Type:        "boolean",
					Description: "Replace every occurrence instead of requiring a unique one",
					Default:     false,
				},
			},
		},
	}
}

func executeEditFile(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	path := tools.StringArg(args, "path", "")
	old, _ := args["old"].(string)
	repl, _ := args["new"].(string)
	all := tools.BoolArg(args, "all", false)

	if path == "" || old == "" {
		return tools.Fail(tools.DiagValidation, "path and old are required"), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return tools.Fail(tools.DiagIOError, "read %s: %v", path, err), nil
	}
	text := string(content)

	count := strings.Count(text, old)
	if count == 0 {
		return tools.Fail(tools.DiagValidation, "text not found in %s", path), nil
	}
	if count > 1 && !all {
		return tools.Fail(tools.DiagValidation, "text occurs %d times in %s; pass all=true", count, path), nil
	}

	updated := strings.Replace(text, old, repl, -1)
	if !all {
		updated = strings.Replace(text, old, repl, 1)
	}

	if err := tb.Modes.ValidateFileWrite(path, len(updated)); err != nil {
		return tools.Fail(tools.DiagModeViolation, "%v", err), nil
	}
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		return tools.Fail(tools.DiagIOError, "write %s: %v", path, err), nil
	}

	replaced := 1
	if all {
		replaced = count
	}
	logging.Tools("edit_file: %s (%d replacements)", path, replaced)
	return tools.Ok(map[string]any{"replacements": replaced}, fmt.Sprintf("%d replacements in %s", replaced, path)), nil
}

// DeleteFileTool returns a tool for removing a file, gated like a write.
func DeleteFileTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "delete_file",
		Description: "Delete a file",
		Category:    tools.CategoryEdit,
		Priority:    40,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			path := tools.StringArg(args, "path", "")
			if path == "" {
				return tools.Fail(tools.DiagValidation, "path is required"), nil
			}
			if err := tb.Modes.ValidateFileWrite(path, 0); err != nil {
				return tools.Fail(tools.DiagModeViolation, "%v", err), nil
			}
			if err := os.Remove(path); err != nil {
				return tools.Fail(tools.DiagIOError, "delete %s: %v", path, err), nil
			}
			logging.Tools("delete_file: %s", path)
			return tools.Ok(nil, "deleted "+path), nil
		},
		Schema: tools.Schema{
			Required: []string{"path"},
			Properties: map[string]tools.Property{
				"path": {
					Type:        "string",
					Description: "The file path to delete",
				},
			},
		},
	}
}
