package codedom

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"agcodex/internal/logging"
	"agcodex/internal/parser"
	"agcodex/internal/tools"
)

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RenameResult reports what a rename touched.
type RenameResult struct {
	FilesChanged      int            `json:"files_changed"`
	TotalReplacements int            `json:"total_replacements"`
	PerFile           map[string]int `json:"per_file"`
	EstimatedSavings  int            `json:"estimated_savings"`
}

// RenameSymbolTool returns the workspace-wide symbol rename tool.
func RenameSymbolTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "rename_symbol",
		Description: "Rename a symbol across a file, directory, or the workspace",
		Category:    tools.CategoryEdit,
		Priority:    80,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeRename(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"old", "new"},
			Properties: map[string]tools.Property{
				"old": {
					Type:        "string",
					Description: "Current symbol name",
				},
				"new": {
					Type:        "string",
					Description: "New symbol name",
				},
				"scope": {
					Type:        "string",
					Description: "Rename scope",
					Default:     "Workspace",
					Enum:        []any{"File", "Directory", "Workspace"},
				},
				"path": {
					Type:        "string",
					Description: "File or directory the scope applies to",
				},
			},
		},
	}
}

func executeRename(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	old := tools.StringArg(args, "old", "")
	newName := tools.StringArg(args, "new", "")
	scope := tools.StringArg(args, "scope", "Workspace")
	path := tools.StringArg(args, "path", tb.Workspace)

	if !identifierRe.MatchString(old) || !identifierRe.MatchString(newName) {
		return tools.Fail(tools.DiagValidation, "old and new must be plain identifiers"), nil
	}
	if old == newName {
		return tools.Fail(tools.DiagValidation, "old and new are identical"), nil
	}

	files, out := scopeFiles(scope, path)
	if out != nil {
		return out, nil
	}

	// Word boundaries keep Foo from matching FooBar.
	re := regexp.MustCompile(`\b` + regexp.QuoteMeta(old) + `\b`)

	result := RenameResult{PerFile: make(map[string]int)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return tools.Fail(tools.DiagCancelled, "rename: %v", err), nil
		}
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		text := string(content)
		locs := re.FindAllStringIndex(text, -1)
		if len(locs) == 0 {
			continue
		}

		// Rewrite in reverse order so earlier offsets stay valid.
		for i := len(locs) - 1; i >= 0; i-- {
			text = text[:locs[i][0]] + newName + text[locs[i][1]:]
		}

		if err := tb.Modes.ValidateFileWrite(file, len(text)); err != nil {
			return tools.Fail(tools.DiagModeViolation, "%v", err), nil
		}
		if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
			return tools.Fail(tools.DiagIOError, "write %s: %v", file, err), nil
		}

		result.FilesChanged++
		result.TotalReplacements += len(locs)
		result.PerFile[file] = len(locs)
	}
	result.EstimatedSavings = result.TotalReplacements * (len(old) - len(newName))

	logging.Tools("rename_symbol: %s -> %s (%d replacements, %d files)", old, newName, result.TotalReplacements, result.FilesChanged)
	summary := fmt.Sprintf("renamed %s to %s in %d files (%d occurrences)", old, newName, result.FilesChanged, result.TotalReplacements)
	return tools.Ok(result, summary), nil
}

// scopeFiles resolves a rename scope to a concrete file list.
func scopeFiles(scope, path string) ([]string, *tools.Output) {
	switch scope {
	case "File":
		if _, err := os.Stat(path); err != nil {
			return nil, tools.Fail(tools.DiagIOError, "stat %s: %v", path, err)
		}
		return []string{path}, nil
	case "Directory":
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, tools.Fail(tools.DiagIOError, "read dir %s: %v", path, err)
		}
		var files []string
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			full := filepath.Join(path, e.Name())
			if _, ok := parser.LanguageForFile(full); ok {
				files = append(files, full)
			}
		}
		return files, nil
	case "Workspace":
		files, err := walkSourceFiles(path)
		if err != nil {
			return nil, tools.Fail(tools.DiagIOError, "walk %s: %v", path, err)
		}
		return files, nil
	default:
		return nil, tools.Fail(tools.DiagValidation, "unknown scope %q", scope)
	}
}

// walkSourceFiles collects every source file with a known grammar under
// root, skipping hidden and vendored directories.
func walkSourceFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" || name == "target") {
				return filepath.SkipDir
			}
			return nil
		}
		if _, ok := parser.LanguageForFile(path); ok {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}
