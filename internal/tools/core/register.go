package core

import (
	"agcodex/internal/tools"
)

// RegisterAll registers the core search and file tools with the given
// registry.
func RegisterAll(registry *tools.Registry, tb *tools.Toolbox) error {
	allTools := []*tools.Tool{
		// File operations
		ReadFileTool(tb),
		WriteFileTool(tb),
		EditFileTool(tb),
		DeleteFileTool(tb),

		// Search operations
		GrepTool(tb),
		GlobTool(tb),
		TreeTool(tb),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
