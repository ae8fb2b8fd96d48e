package parser

import (
	"sync"
	"time"

	sitter "github.com/smacker/go-tree-sitter"
)

// NodeSummary captures the root node of a parse without exposing the
// underlying tree.
type NodeSummary struct {
	Kind       string `json:"kind"`
	StartByte  uint32 `json:"start_byte"`
	EndByte    uint32 `json:"end_byte"`
	StartRow   uint32 `json:"start_row"`
	StartCol   uint32 `json:"start_col"`
	EndRow     uint32 `json:"end_row"`
	EndCol     uint32 `json:"end_col"`
	ChildCount uint32 `json:"child_count"`
	NodeCount  int    `json:"node_count"`
}

// Tree is a reference-counted parse result. Every handle returned by the
// engine holds one reference; the cache holds another while the entry is
// resident. Call Release when done with a handle — the native tree is
// closed only when the last reference drops, so cache eviction cannot
// invalidate a handle still in use.
type Tree struct {
	Language   Language
	Source     []byte
	Root       NodeSummary
	ErrorCount int
	ParseTime  time.Duration

	mu     sync.Mutex
	refs   int
	closed bool
	tree   *sitter.Tree
}

// RootNode exposes the underlying tree-sitter root for query execution.
// Only valid while the caller's reference is held.
func (t *Tree) RootNode() *sitter.Node {
	return t.tree.RootNode()
}

// Release drops the caller's reference. The native tree is closed when the
// cache and all handles have released theirs. Release after the last drop
// is a no-op.
func (t *Tree) Release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.refs--
	if t.refs <= 0 {
		t.closed = true
		t.tree.Close()
	}
}

// retain takes a new reference. Returns false if the tree already closed,
// which a cache reader treats as a miss.
func (t *Tree) retain() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.refs++
	return true
}

// HasErrors reports whether the grammar flagged any ERROR nodes.
func (t *Tree) HasErrors() bool {
	return t.ErrorCount > 0
}

func newTree(lang Language, source []byte, st *sitter.Tree, elapsed time.Duration) *Tree {
	root := st.RootNode()
	nodeCount, errorCount := countNodes(root)
	return &Tree{
		Language: lang,
		Source:   source,
		Root: NodeSummary{
			Kind:       root.Type(),
			StartByte:  root.StartByte(),
			EndByte:    root.EndByte(),
			StartRow:   root.StartPoint().Row,
			StartCol:   root.StartPoint().Column,
			EndRow:     root.EndPoint().Row,
			EndCol:     root.EndPoint().Column,
			ChildCount: root.ChildCount(),
			NodeCount:  nodeCount,
		},
		ErrorCount: errorCount,
		ParseTime:  elapsed,
		refs:       1,
		tree:       st,
	}
}

func countNodes(root *sitter.Node) (nodes, errors int) {
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		nodes++
		if n.Type() == "ERROR" || n.IsMissing() {
			errors++
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(root)
	return nodes, errors
}
