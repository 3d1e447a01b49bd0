// Package workflows holds the concrete workflow implementations
// registered at startup.
package workflows

import (
	"codegate/internal/registry"
	"codegate/internal/services"
	"codegate/pkg/models"
)

type builder func(services.GenerationClient) (models.WorkflowDefinition, registry.Handler)

var builders = []builder{
	Poem,
	TextAnalyzer,
}

// RegisterAll registers every built-in workflow.
func RegisterAll(reg *registry.Registry, client services.GenerationClient) error {
	for _, build := range builders {
		def, handler := build(client)
		if err := reg.Register(def, handler); err != nil {
			return err
		}
	}
	return nil
}
