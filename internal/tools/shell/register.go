package shell

import (
	"agcodex/internal/tools"
)

// RegisterAll registers the command-execution tools with the given
// registry.
func RegisterAll(registry *tools.Registry, tb *tools.Toolbox) error {
	allTools := []*tools.Tool{
		RunCommandTool(tb),
		GitTool(tb),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
