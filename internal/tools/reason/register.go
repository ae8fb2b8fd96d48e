package reason

import (
	"agcodex/internal/tools"
)

// RegisterAll registers the reasoning tools with the given registry.
func RegisterAll(registry *tools.Registry) error {
	allTools := []*tools.Tool{
		PlanTool(),
		ThinkTool(),
	}

	for _, tool := range allTools {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}
	return nil
}
