package core

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"agcodex/internal/index"
	"agcodex/internal/logging"
	"agcodex/internal/parser"
	"agcodex/internal/tools"
)

// GrepMatch is one content match.
type GrepMatch struct {
	File       string   `json:"file"`
	Line       int      `json:"line"` // 1-based
	Column     int      `json:"column"`
	EndLine    int      `json:"end_line"`
	EndColumn  int      `json:"end_column"`
	Text       string   `json:"text"`
	Before     []string `json:"before,omitempty"`
	After      []string `json:"after,omitempty"`
	Confidence float64  `json:"confidence"`
	ByteOffset int      `json:"byte_offset"`
}

// yamlRule is the subset of a YAML search rule grep understands.
type yamlRule struct {
	ID       string `yaml:"id"`
	Language string `yaml:"language"`
	Message  string `yaml:"message"`
	Severity string `yaml:"severity"`
	Rule     struct {
		Pattern string `yaml:"pattern"`
		Regex   string `yaml:"regex"`
	} `yaml:"rule"`
}

// GrepTool returns the content-search tool.
func GrepTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "grep",
		Description: "Search file contents by regex, structured query, or YAML rule",
		Category:    tools.CategorySearch,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeGrep(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Pattern to search for; meaning depends on rule_type",
				},
				"paths": {
					Type:        "array",
					Description: "Files or directories to search (default: workspace root)",
					Items:       &tools.PropertyItems{Type: "string"},
				},
				"language": {
					Type:        "string",
					Description: "Restrict to one language (go, python, rust, javascript, typescript)",
				},
				"rule_type": {
					Type:        "string",
					Description: "How to interpret pattern",
					Default:     "Pattern",
					Enum:        []any{"Pattern", "Query", "YamlRule"},
				},
				"context_lines": {
					Type:        "integer",
					Description: "Lines of context before and after each match",
					Default:     0,
				},
				"case_sensitive": {
					Type:        "boolean",
					Description: "Exact-case matching (default true); false uses a Unicode case fold",
					Default:     true,
				},
				"whole_word": {
					Type:        "boolean",
					Description: "Match on word boundaries only",
					Default:     false,
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of matches",
					Default:     50,
				},
			},
		},
	}
}

func executeGrep(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	pattern := tools.StringArg(args, "pattern", "")
	if pattern == "" {
		return tools.Fail(tools.DiagValidation, "pattern is required"), nil
	}

	ruleType := tools.StringArg(args, "rule_type", "Pattern")
	contextLines := tools.IntArg(args, "context_lines", 0)
	caseSensitive := tools.BoolArg(args, "case_sensitive", true)
	wholeWord := tools.BoolArg(args, "whole_word", false)
	maxResults := tools.IntArg(args, "max_results", 50)
	language := parser.Language(tools.StringArg(args, "language", ""))

	paths := tools.StringsArg(args, "paths")
	if len(paths) == 0 {
		paths = []string{tb.Workspace}
	}

	logging.ToolsDebug("grep: pattern=%q rule_type=%s paths=%v", pattern, ruleType, paths)

	files, err := collectFiles(paths, language)
	if err != nil {
		return tools.Fail(tools.DiagIOError, "collect files: %v", err), nil
	}

	switch ruleType {
	case "Query":
		return grepQuery(ctx, tb, pattern, files, maxResults)
	case "YamlRule":
		rule, out := parseYamlRule(pattern)
		if out != nil {
			return out, nil
		}
		regex := rule.Rule.Regex
		if regex == "" {
			regex = regexp.QuoteMeta(rule.Rule.Pattern)
		}
		if rule.Language != "" {
			files, err = collectFiles(paths, parser.Language(rule.Language))
			if err != nil {
				return tools.Fail(tools.DiagIOError, "collect files: %v", err), nil
			}
		}
		return grepRegex(ctx, regex, files, contextLines, caseSensitive, wholeWord, maxResults, 0.9)
	case "Pattern", "":
		return grepRegex(ctx, pattern, files, contextLines, caseSensitive, wholeWord, maxResults, 1.0)
	default:
		return tools.Fail(tools.DiagValidation, "unknown rule_type %q", ruleType), nil
	}
}

func parseYamlRule(doc string) (*yamlRule, *tools.Output) {
	var rule yamlRule
	if err := yaml.Unmarshal([]byte(doc), &rule); err != nil {
		return nil, tools.Fail(tools.DiagValidation, "invalid YAML rule: %v", err)
	}
	if rule.Rule.Pattern == "" && rule.Rule.Regex == "" {
		return nil, tools.Fail(tools.DiagValidation, "YAML rule has no rule.pattern or rule.regex")
	}
	return &rule, nil
}

// grepRegex is the Pattern path. Go's regexp is Unicode-aware, so the (?i)
// flag gives the required case fold.
func grepRegex(ctx context.Context, pattern string, files []string, contextLines int, caseSensitive, wholeWord bool, maxResults int, confidence float64) (*tools.Output, error) {
	if wholeWord {
		pattern = `\b(?:` + pattern + `)\b`
	}
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return tools.Fail(tools.DiagValidation, "invalid regex: %v", err), nil
	}

	var matches []GrepMatch
scan:
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return tools.Fail(tools.DiagCancelled, "grep: %v", err), nil
		}
		content, err := os.ReadFile(file)
		if err != nil {
			continue // unreadable files are skipped, not fatal
		}
		lines := strings.Split(string(content), "\n")
		offset := 0
		for i, line := range lines {
			for _, loc := range re.FindAllStringIndex(line, -1) {
				matches = append(matches, GrepMatch{
					File:       file,
					Line:       i + 1,
					Column:     loc[0] + 1,
					EndLine:    i + 1,
					EndColumn:  loc[1] + 1,
					Text:       line[loc[0]:loc[1]],
					Before:     contextSlice(lines, i-contextLines, i),
					After:      contextSlice(lines, i+1, i+1+contextLines),
					Confidence: confidence,
					ByteOffset: offset + loc[0],
				})
				if len(matches) >= maxResults {
					break scan
				}
			}
			offset += len(line) + 1
		}
	}

	summary := fmt.Sprintf("%d matches in %d files searched", len(matches), len(files))
	return tools.Ok(matches, summary), nil
}

// grepQuery runs a structured tree query through the AST layer.
func grepQuery(ctx context.Context, tb *tools.Toolbox, pattern string, files []string, maxResults int) (*tools.Output, error) {
	layer := index.NewASTLayer(tb.Parser, tb.Queries)

	var matches []GrepMatch
	for _, file := range files {
		lang, ok := parser.LanguageForFile(file)
		if !ok {
			continue
		}
		content, err := os.ReadFile(file)
		if err != nil {
			continue
		}
		hits, err := layer.QueryPattern(ctx, file, lang, content, pattern)
		if err != nil {
			return tools.Fail(tools.DiagQueryUnsupported, "query %q on %s: %v", pattern, file, err), nil
		}
		for _, h := range hits {
			matches = append(matches, GrepMatch{
				File:       h.Path,
				Line:       h.Line,
				Column:     h.Column,
				EndLine:    h.Line,
				EndColumn:  h.Column + len(h.Text),
				Text:       h.Text,
				Confidence: 1.0,
				ByteOffset: h.Byte,
			})
			if len(matches) >= maxResults {
				return tools.Ok(matches, fmt.Sprintf("%d structured matches", len(matches))), nil
			}
		}
	}
	return tools.Ok(matches, fmt.Sprintf("%d structured matches", len(matches))), nil
}

func contextSlice(lines []string, from, to int) []string {
	if from < 0 {
		from = 0
	}
	if to > len(lines) {
		to = len(lines)
	}
	if from >= to {
		return nil
	}
	out := make([]string, to-from)
	copy(out, lines[from:to])
	return out
}

// collectFiles expands paths into a flat file list, skipping hidden and
// vendored directories, optionally filtered by language.
func collectFiles(paths []string, language parser.Language) ([]string, error) {
	var files []string
	seen := make(map[string]bool)

	add := func(path string) {
		if seen[path] {
			return
		}
		if language != "" {
			if lang, ok := parser.LanguageForFile(path); !ok || lang != language {
				return
			}
		}
		seen[path] = true
		files = append(files, path)
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			add(p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return nil
			}
			if d.IsDir() {
				name := d.Name()
				if path != p && (strings.HasPrefix(name, ".") || name == "node_modules" || name == "vendor" || name == "target") {
					return filepath.SkipDir
				}
				return nil
			}
			add(path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

// FileRecord describes one glob result.
type FileRecord struct {
	Path           string `json:"path"`
	RelPath        string `json:"rel_path"`
	Size           int64  `json:"size"`
	Extension      string `json:"extension"`
	Type           string `json:"type"` // file, dir, symlink, other
	Executable     bool   `json:"executable"`
	EstimatedLines int    `json:"estimated_lines"`
}

// GlobTool returns the file-finding tool.
func GlobTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "glob",
		Description: "Find files matching a glob pattern",
		Category:    tools.CategorySearch,
		Priority:    85,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeGlob(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"pattern"},
			Properties: map[string]tools.Property{
				"pattern": {
					Type:        "string",
					Description: "Glob pattern (e.g. '**/*.go', 'src/*.ts')",
				},
				"base_path": {
					Type:        "string",
					Description: "Base directory for the search (default: workspace root)",
				},
				"follow_symlinks": {
					Type:        "boolean",
					Description: "Resolve symlinks while walking",
					Default:     false,
				},
				"include_hidden": {
					Type:        "boolean",
					Description: "Include dot-files and dot-directories",
					Default:     false,
				},
				"max_results": {
					Type:        "integer",
					Description: "Maximum number of results",
					Default:     100,
				},
			},
		},
	}
}

func executeGlob(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	pattern := tools.StringArg(args, "pattern", "")
	if pattern == "" {
		return tools.Fail(tools.DiagValidation, "pattern is required"), nil
	}
	basePath := tools.StringArg(args, "base_path", tb.Workspace)
	if basePath == "" {
		basePath = "."
	}
	followSymlinks := tools.BoolArg(args, "follow_symlinks", false)
	includeHidden := tools.BoolArg(args, "include_hidden", false)
	maxResults := tools.IntArg(args, "max_results", 100)

	logging.ToolsDebug("glob: pattern=%s base=%s", pattern, basePath)

	var records []FileRecord
	err := filepath.WalkDir(basePath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if len(records) >= maxResults {
			return filepath.SkipAll
		}

		rel, relErr := filepath.Rel(basePath, path)
		if relErr != nil || rel == "." {
			return nil
		}
		if !includeHidden && hiddenComponent(rel) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !matchGlob(pattern, rel) {
			return nil
		}

		rec, ok := statRecord(path, rel, followSymlinks)
		if ok {
			records = append(records, rec)
		}
		return nil
	})
	if err != nil && err != context.Canceled {
		return tools.Fail(tools.DiagIOError, "walk %s: %v", basePath, err), nil
	}

	summary := fmt.Sprintf("%d files matching %s", len(records), pattern)
	return tools.Ok(records, summary), nil
}

func hiddenComponent(rel string) bool {
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// matchGlob extends filepath.Match with ** for directory recursion.
func matchGlob(pattern, rel string) bool {
	rel = filepath.ToSlash(rel)
	pattern = filepath.ToSlash(pattern)

	if !strings.Contains(pattern, "**") {
		matched, _ := filepath.Match(pattern, rel)
		return matched
	}

	parts := strings.SplitN(pattern, "**", 2)
	prefix := strings.TrimSuffix(parts[0], "/")
	suffix := strings.TrimPrefix(parts[1], "/")

	if prefix != "" && !strings.HasPrefix(rel, prefix+"/") && rel != prefix {
		return false
	}
	if suffix == "" {
		return true
	}
	// The suffix may match the basename or any trailing path segment run.
	if matched, _ := filepath.Match(suffix, filepath.Base(rel)); matched {
		return true
	}
	segs := strings.Split(rel, "/")
	for i := range segs {
		if matched, _ := filepath.Match(suffix, strings.Join(segs[i:], "/")); matched {
			return true
		}
	}
	return false
}

func statRecord(path, rel string, followSymlinks bool) (FileRecord, bool) {
	info, err := os.Lstat(path)
	if err != nil {
		return FileRecord{}, false
	}

	typ := "file"
	switch {
	case info.IsDir():
		typ = "dir"
	case info.Mode()&os.ModeSymlink != 0:
		typ = "symlink"
		if followSymlinks {
			if resolved, err := os.Stat(path); err == nil {
				info = resolved
			}
		}
	case !info.Mode().IsRegular():
		typ = "other"
	}

	rec := FileRecord{
		Path:       path,
		RelPath:    rel,
		Size:       info.Size(),
		Extension:  strings.TrimPrefix(filepath.Ext(path), "."),
		Type:       typ,
		Executable: info.Mode()&0o111 != 0,
	}
	rec.EstimatedLines = estimateLines(path, info.Size())
	return rec, true
}

// estimateLines counts newlines for small files and extrapolates for
// large ones.
func estimateLines(path string, size int64) int {
	const exact = 1 << 20
	if size == 0 {
		return 0
	}
	if size <= exact {
		content, err := os.ReadFile(path)
		if err != nil {
			return int(size / 40)
		}
		return strings.Count(string(content), "\n") + 1
	}
	return int(size / 40)
}
