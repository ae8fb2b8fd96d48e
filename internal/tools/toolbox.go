package tools

import (
	"agcodex/internal/index"
	"agcodex/internal/mode"
	"agcodex/internal/parser"
	"agcodex/internal/query"
)

// Toolbox bundles the shared plumbing tool constructors need: the mode
// gates, the parse engine, the query library, and the index. Tool
// packages take a *Toolbox instead of importing each other.
type Toolbox struct {
	Modes   *mode.Manager
	Parser  *parser.Engine
	Queries *query.Library
	Index   *index.Engine

	// Workspace is the root directory tools operate under.
	Workspace string
}
