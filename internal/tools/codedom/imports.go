package codedom

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"agcodex/internal/logging"
	"agcodex/internal/parser"
	"agcodex/internal/tools"
)

// UpdateImportsTool returns the cross-file import rewrite tool. It scans
// every source file under the workspace and rewrites import lines that
// reference the old path.
func UpdateImportsTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "update_imports",
		Description: "Rewrite import lines referencing a moved package",
		Category:    tools.CategoryEdit,
		Priority:    70,
		Mutating:    true,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeUpdateImports(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"old_import", "new_import"},
			Properties: map[string]tools.Property{
				"old_import": {
					Type:        "string",
					Description: "Import path being replaced",
				},
				"new_import": {
					Type:        "string",
					Description: "Replacement import path",
				},
			},
		},
	}
}

func executeUpdateImports(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	oldImport := tools.StringArg(args, "old_import", "")
	newImport := tools.StringArg(args, "new_import", "")
	if oldImport == "" || newImport == "" {
		return tools.Fail(tools.DiagValidation, "old_import and new_import are required"), nil
	}

	files, err := walkSourceFiles(tb.Workspace)
	if err != nil {
		return tools.Fail(tools.DiagIOError, "walk %s: %v", tb.Workspace, err), nil
	}

	perFile := make(map[string]int)
	total := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return tools.Fail(tools.DiagCancelled, "update_imports: %v", err), nil
		}
		lang, _ := parser.LanguageForFile(file)
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}

		lines := strings.Split(string(content), "\n")
		changed := 0
		for i, line := range lines {
			if !importLine(lang, line, oldImport) {
				continue
			}
			lines[i] = strings.ReplaceAll(line, oldImport, newImport)
			changed++
		}
		if changed == 0 {
			continue
		}

		text := strings.Join(lines, "\n")
		if err := tb.Modes.ValidateFileWrite(file, len(text)); err != nil {
			return tools.Fail(tools.DiagModeViolation, "%v", err), nil
		}
		if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
			return tools.Fail(tools.DiagIOError, "write %s: %v", file, err), nil
		}
		perFile[file] = changed
		total += changed
	}

	logging.Tools("update_imports: %s -> %s (%d lines, %d files)", oldImport, newImport, total, len(perFile))
	result := map[string]any{"per_file": perFile, "total": total}
	return tools.Ok(result, fmt.Sprintf("rewrote %d import lines in %d files", total, len(perFile))), nil
}

// importLine reports whether line is an import statement referencing path.
// Only import syntax counts; a mention in a comment or string elsewhere in
// the file does not.
func importLine(lang parser.Language, line, path string) bool {
	if !strings.Contains(line, path) {
		return false
	}
	trimmed := strings.TrimSpace(line)
	quoted := regexp.QuoteMeta(path)

	switch lang {
	case parser.LangGo:
		// Either `import "path"` or a line inside an import block.
		re := regexp.MustCompile(`^(import\s+)?(\w+\s+)?"` + quoted + `"`)
		return re.MatchString(trimmed)
	case parser.LangPython:
		re := regexp.MustCompile(`^(import\s+` + quoted + `(\s|$|\.)|from\s+` + quoted + `(\s|\.))`)
		return re.MatchString(trimmed)
	case parser.LangJavaScript, parser.LangTypeScript:
		re := regexp.MustCompile(`(from\s+['"]` + quoted + `['"]|require\(['"]` + quoted + `['"]\)|import\s+['"]` + quoted + `['"])`)
		return re.MatchString(trimmed)
	case parser.LangRust:
		re := regexp.MustCompile(`^use\s+` + quoted + `(::|;|\s)`)
		return re.MatchString(trimmed)
	default:
		return false
	}
}
