package codedom

import (
	"context"
	"fmt"
	"os"
	"sort"

	"agcodex/internal/index"
	"agcodex/internal/parser"
	"agcodex/internal/query"
	"agcodex/internal/tools"
)

// CodeElement is one named declaration in a file.
type CodeElement struct {
	Name   string `json:"name"`
	Type   string `json:"type"` // functions, classes, methods
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// GetElementsTool returns a tool listing the named declarations in a file
// via structured tree queries.
func GetElementsTool(tb *tools.Toolbox) *tools.Tool {
	return &tools.Tool{
		Name:        "get_elements",
		Description: "List functions, classes, and methods declared in a file",
		Category:    tools.CategorySearch,
		Priority:    65,
		Execute: func(ctx context.Context, args map[string]any) (*tools.Output, error) {
			return executeGetElements(ctx, tb, args)
		},
		Schema: tools.Schema{
			Required: []string{"file"},
			Properties: map[string]tools.Property{
				"file": {
					Type:        "string",
					Description: "Source file to inspect",
				},
				"type": {
					Type:        "string",
					Description: "Restrict to one element type",
					Enum:        []any{"functions", "classes", "methods"},
				},
			},
		},
	}
}

func executeGetElements(ctx context.Context, tb *tools.Toolbox, args map[string]any) (*tools.Output, error) {
	file := tools.StringArg(args, "file", "")
	only := tools.StringArg(args, "type", "")

	lang, ok := parser.LanguageForFile(file)
	if !ok {
		return tools.Fail(tools.DiagParserCreation, "no grammar for %s", file), nil
	}
	content, err := os.ReadFile(file)
	if err != nil {
		return tools.Fail(tools.DiagIOError, "read %s: %v", file, err), nil
	}

	kinds := []query.Kind{query.KindFunctions, query.KindClasses, query.KindMethods}
	if only != "" {
		kinds = []query.Kind{query.Kind(only)}
	}

	layer := index.NewASTLayer(tb.Parser, tb.Queries)
	var elements []CodeElement
	for _, kind := range kinds {
		matches, err := layer.QueryKind(ctx, file, lang, content, kind)
		if err != nil {
			return tools.Fail(tools.DiagQueryUnsupported, "query %s on %s: %v", kind, file, err), nil
		}
		for _, m := range matches {
			if m.Capture != "name" {
				continue
			}
			elements = append(elements, CodeElement{
				Name:   m.Text,
				Type:   string(kind),
				Line:   m.Line,
				Column: m.Column,
			})
		}
	}

	sort.Slice(elements, func(i, j int) bool {
		return elements[i].Line < elements[j].Line
	})
	return tools.Ok(elements, fmt.Sprintf("%d elements in %s", len(elements), file)), nil
}
