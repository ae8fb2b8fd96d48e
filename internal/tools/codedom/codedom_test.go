package codedom

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"agcodex/internal/mode"
	"agcodex/internal/parser"
	"agcodex/internal/query"
	"agcodex/internal/tools"
)

func newToolbox(t *testing.T, m mode.Mode) *tools.Toolbox {
	t.Helper()
	pe, err := parser.NewEngine(2, 16)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { pe.Close() })
	lib := query.NewLibrary()
	t.Cleanup(lib.Close)
	return &tools.Toolbox{
		Modes:     mode.NewManager(m),
		Parser:    pe,
		Queries:   lib,
		Workspace: t.TempDir(),
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRenameSymbolWordBoundary(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	path := writeFile(t, tb.Workspace, "a.go",
		"package a\n\nfunc Foo() { Foo() }\nfunc FooBar() {}\n")

	out, err := RenameSymbolTool(tb).Execute(context.Background(), map[string]any{
		"old": "Foo", "new": "Quux", "scope": "File", "path": path,
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if !out.Success {
		t.Fatalf("rename failed: %+v", out.Diagnostics)
	}

	result := out.Result.(RenameResult)
	if result.TotalReplacements != 2 || result.FilesChanged != 1 {
		t.Fatalf("result = %+v", result)
	}

	content, _ := os.ReadFile(path)
	text := string(content)
	if !strings.Contains(text, "func Quux() { Quux() }") {
		t.Fatalf("rename missed occurrences: %q", text)
	}
	if !strings.Contains(text, "FooBar") {
		t.Fatalf("word boundary violated, FooBar renamed: %q", text)
	}
}

func TestRenameSymbolWorkspaceScope(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	writeFile(t, tb.Workspace, "a.go", "package a\n\nvar Count int\n")
	writeFile(t, tb.Workspace, "sub/b.go", "package sub\n\nvar Count int\n")
	writeFile(t, tb.Workspace, "c.md", "Count appears here too\n")

	out, err := RenameSymbolTool(tb).Execute(context.Background(), map[string]any{
		"old": "Count", "new": "Total",
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	result := out.Result.(RenameResult)
	if result.FilesChanged != 2 {
		t.Fatalf("expected 2 source files changed, got %+v", result)
	}
	md, _ := os.ReadFile(filepath.Join(tb.Workspace, "c.md"))
	if !strings.Contains(string(md), "Count") {
		t.Fatal("non-source file was rewritten")
	}
}

func TestRenameSymbolGatedInPlanMode(t *testing.T) {
	tb := newToolbox(t, mode.ModePlan)
	path := writeFile(t, tb.Workspace, "a.go", "package a\n\nvar Foo int\n")

	out, err := RenameSymbolTool(tb).Execute(context.Background(), map[string]any{
		"old": "Foo", "new": "Bar", "scope": "File", "path": path,
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagModeViolation {
		t.Fatalf("expected mode_violation, got %+v", out)
	}
}

func TestRenameRejectsNonIdentifier(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	out, err := RenameSymbolTool(tb).Execute(context.Background(), map[string]any{
		"old": "a b", "new": "c",
	})
	if err != nil {
		t.Fatalf("rename: %v", err)
	}
	if out.Success || out.Diagnostics[0].Kind != tools.DiagValidation {
		t.Fatalf("expected validation failure, got %+v", out)
	}
}

func TestExtractFunctionRangeChecks(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	path := writeFile(t, tb.Workspace, "a.go",
		"package a\n\nfunc f() {\n\tx := 1\n\ty := 2\n\t_ = x + y\n}\n")

	tests := []struct {
		name       string
		start, end int
	}{
		{"zero start", 0, 3},
		{"negative start", -1, 2},
		{"negative end", 3, -4},
		{"end past file", 3, 8},
		{"inverted", 5, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ExtractFunctionTool(tb).Execute(context.Background(), map[string]any{
				"file": path, "start_line": tt.start, "end_line": tt.end, "new_name": "helper",
			})
			if err != nil {
				t.Fatalf("extract: %v", err)
			}
			if out.Success || out.Diagnostics[0].Kind != tools.DiagInvalidRange {
				t.Fatalf("expected invalid_range, got %+v", out)
			}
		})
	}
}

func TestExtractFunction(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	path := writeFile(t, tb.Workspace, "a.go",
		"package a\n\nfunc f() {\n\tx := 1\n\ty := 2\n\t_ = x + y\n}\n")

	out, err := ExtractFunctionTool(tb).Execute(context.Background(), map[string]any{
		"file": path, "start_line": 4, "end_line": 6, "new_name": "helper",
	})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if !out.Success {
		t.Fatalf("extract failed: %+v", out.Diagnostics)
	}

	result := out.Result.(ExtractResult)
	if result.LinesMoved != 3 || !result.UnresolvedTag {
		t.Fatalf("result = %+v", result)
	}

	content, _ := os.ReadFile(path)
	text := string(content)
	if !strings.Contains(text, "helper()") {
		t.Fatalf("call site missing: %q", text)
	}
	if !strings.Contains(text, "func helper(") || !strings.Contains(text, "TODO") {
		t.Fatalf("generated function missing TODO slots: %q", text)
	}
}

func TestUpdateImports(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	goFile := writeFile(t, tb.Workspace, "a.go",
		"package a\n\nimport (\n\t\"old/pkg\"\n)\n\n// old/pkg mentioned in a comment\n")
	pyFile := writeFile(t, tb.Workspace, "b.py",
		"import old.pkg\nfrom old.pkg import thing\nx = 'old.pkg'\n")

	out, err := UpdateImportsTool(tb).Execute(context.Background(), map[string]any{
		"old_import": "old/pkg", "new_import": "new/pkg",
	})
	if err != nil {
		t.Fatalf("update_imports: %v", err)
	}
	if !out.Success {
		t.Fatalf("update_imports failed: %+v", out.Diagnostics)
	}

	goText, _ := os.ReadFile(goFile)
	if !strings.Contains(string(goText), "\"new/pkg\"") {
		t.Fatalf("go import not rewritten: %q", goText)
	}
	if !strings.Contains(string(goText), "// old/pkg mentioned in a comment") {
		t.Fatalf("comment was rewritten: %q", goText)
	}

	out, err = UpdateImportsTool(tb).Execute(context.Background(), map[string]any{
		"old_import": "old.pkg", "new_import": "new.pkg",
	})
	if err != nil {
		t.Fatalf("update_imports py: %v", err)
	}
	pyText, _ := os.ReadFile(pyFile)
	if !strings.Contains(string(pyText), "import new.pkg") || !strings.Contains(string(pyText), "from new.pkg import thing") {
		t.Fatalf("python imports not rewritten: %q", pyText)
	}
	if !strings.Contains(string(pyText), "x = 'old.pkg'") {
		t.Fatalf("string literal was rewritten: %q", pyText)
	}
}

func TestGetElements(t *testing.T) {
	tb := newToolbox(t, mode.ModeBuild)
	path := writeFile(t, tb.Workspace, "a.go", `package a

func First() {}

type Thing struct{}

func (t *Thing) Second() {}
`)

	out, err := GetElementsTool(tb).Execute(context.Background(), map[string]any{"file": path})
	if err != nil {
		t.Fatalf("get_elements: %v", err)
	}
	if !out.Success {
		t.Fatalf("get_elements failed: %+v", out.Diagnostics)
	}

	elements := out.Result.([]CodeElement)
	byName := make(map[string]string)
	for _, e := range elements {
		byName[e.Name] = e.Type
	}
	if byName["First"] != "functions" || byName["Thing"] != "classes" || byName["Second"] != "methods" {
		t.Fatalf("elements = %+v", elements)
	}
}
