// Package parser hands out grammar-bound tree-sitter parsers from a
// bounded per-language pool and caches parse trees keyed by content hash.
package parser

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Errors surfaced by the pool and cache. Neither is retried internally.
var (
	// ErrParserCreation means the language has no backing grammar.
	ErrParserCreation = errors.New("parser creation failed")

	// ErrParseFailed means the grammar returned no tree.
	ErrParseFailed = errors.New("parse failed")
)

// Language identifies a supported grammar.
type Language string

const (
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
)

// Supported lists every language with a bundled grammar.
func Supported() []Language {
	return []Language{LangGo, LangPython, LangRust, LangJavaScript, LangTypeScript}
}

// Grammar returns the tree-sitter grammar for the language. Unsupported
// languages get ErrParserCreation; there is no fallback grammar, a file we
// cannot parse correctly is better served by the grep layer.
func (l Language) Grammar() (*sitter.Language, error) {
	switch l {
	case LangGo:
		return golang.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("%w: no grammar for language %q", ErrParserCreation, l)
	}
}

// Supported reports whether the language has a grammar.
func (l Language) Supported() bool {
	_, err := l.Grammar()
	return err == nil
}

// LanguageForFile maps a file path to its language by extension.
func LanguageForFile(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".go":
		return LangGo, true
	case ".py", ".pyi":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".js", ".mjs", ".cjs", ".jsx":
		return LangJavaScript, true
	case ".ts", ".tsx":
		return LangTypeScript, true
	default:
		return "", false
	}
}
