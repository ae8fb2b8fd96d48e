package codedom

import (
	"agcodex/internal/tools"
)

// RegisterAll registers all semantic-edit tools with the given registry.
func RegisterAll(registry *tools.Registry, tb *tools.Toolbox) error {
	allTools := []*tools.Tool{
		RenameSymbolTool(tb),
		ExtractFunctionTool(tb),
		UpdateImportsTool(tb),
		GetElementsTool(tb),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
