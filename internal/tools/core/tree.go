package core

import (
	"context"
	"errors"
	"os"

	"agcodex/internal/parser"
	"agcodex/internal/tools"
)

// TreeSummary is the parse report for one source blob.
type TreeSummary struct {
	Language   string `json:"language"`
	NodeCount  int    `json:"node_count"`
	ErrorCount int    `json:"error_count"`
	RootKind   string `json:"root_kind"`
	ParseTime  string `json:"parse_time"`
}

// TreeTool returns the parse-summary tool. It accepts either a file path
// or inline code with an explicit language.
func TreeTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "tree",
		Description: "Parse a file or code snippet and report its syntax tree shape",
		Category:    tools.CategorySearch,
		Priority:    70,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeTree(ctx, tb, args)
		},
		Schema: tools.Schema{
			Properties: map[string]tools.Property{
				"file": {
					Type:        "string",
					Description: "Path of the file to parse",
				},
				"code": {
					Type:        "string",
					Description: "Inline source code (requires language)",
				},
				"language": {
					Type:        "string",
					Description: "Language of inline code",
				},
			},
		},
	}
}

func executeTree(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	file := tools.StringArg(args, "file", "")
	code := tools.StringArg(args, "code", "")

	var lang parser.Language
	var source []byte

	switch {
	case file != "":
		var ok bool
		lang, ok = parser.LanguageForFile(file)
		if !ok {
			return tools.Fail(tools.DiagParserCreation, "no grammar for %s", file), nil
		}
		content, err := os.ReadFile(file)
		if err != nil {
			return tools.Fail(tools.DiagIOError, "read %s: %v", file, err), nil
		}
		source = content
	case code != "":
		lang = parser.Language(tools.StringArg(args, "language", ""))
		if !lang.Supported() {
			return tools.Fail(tools.DiagParserCreation, "language %q not supported", lang), nil
		}
		source = []byte(code)
	default:
		return tools.Fail(tools.DiagValidation, "either file or code is required"), nil
	}

	tree, err := tb.Parser.ParseWithCache(ctx, lang, source)
	if err != nil {
		kind := tools.DiagParseFailed
		if errors.Is(err, parser.ErrParserCreation) {
			kind = tools.DiagParserCreation
		}
		return tools.Fail(kind, "parse: %v", err), nil
	}
	defer tree.Release()

	summary := TreeSummary{
		Language:   string(lang),
		NodeCount:  tree.Root.NodeCount,
		ErrorCount: tree.ErrorCount,
		RootKind:   tree.Root.Kind,
		ParseTime:  tree.ParseTime.String(),
	}
	return tools.Ok(summary, summary.RootKind), nil
}
