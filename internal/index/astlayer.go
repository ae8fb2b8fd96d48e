package index

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"

	"agcodex/internal/parser"
	"agcodex/internal/query"
)

// ASTMatch is one capture from a structured query run.
type ASTMatch struct {
	Path    string `json:"path"`
	Capture string `json:"capture"`
	Text    string `json:"text"`
	Line    int    `json:"line"`
	Column  int    `json:"column"`
	Byte    int    `json:"byte"`
}

// ASTLayer is the third cascade layer: structured queries over cached
// parse trees.
type ASTLayer struct {
	engine  *parser.Engine
	library *query.Library
}

// NewASTLayer couples a parse engine with a query library.
func NewASTLayer(engine *parser.Engine, library *query.Library) *ASTLayer {
	return &ASTLayer{engine: engine, library: library}
}

// QueryKind runs a catalogue query against one file's source.
func (a *ASTLayer) QueryKind(ctx context.Context, path string, lang parser.Language, source []byte, kind query.Kind) ([]ASTMatch, error) {
	q, err := a.library.Get(lang, kind)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, path, lang, source, q)
}

// QueryPattern runs a free-form pattern (with legacy prefix mapping)
// against one file's source.
func (a *ASTLayer) QueryPattern(ctx context.Context, path string, lang parser.Language, source []byte, pattern string) ([]ASTMatch, error) {
	q, err := a.library.FromPattern(lang, pattern)
	if err != nil {
		return nil, err
	}
	return a.run(ctx, path, lang, source, q)
}

func (a *ASTLayer) run(ctx context.Context, path string, lang parser.Language, source []byte, q *sitter.Query) ([]ASTMatch, error) {
	tree, err := a.engine.ParseWithCache(ctx, lang, source)
	if err != nil {
		return nil, err
	}
	defer tree.Release()

	cursor := sitter.NewQueryCursor()
	defer cursor.Close()
	cursor.Exec(q, tree.RootNode())

	var matches []ASTMatch
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		m = cursor.FilterPredicates(m, source)
		for _, c := range m.Captures {
			matches = append(matches, ASTMatch{
				Path:    path,
				Capture: q.CaptureNameForId(c.Index),
				Text:    c.Node.Content(source),
				Line:    int(c.Node.StartPoint().Row) + 1,
				Column:  int(c.Node.StartPoint().Column) + 1,
				Byte:    int(c.Node.StartByte()),
			})
		}
	}
	return matches, nil
}
