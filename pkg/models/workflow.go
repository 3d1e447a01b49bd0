package models

import (
	"codegate/pkg/schema"
)

// WorkflowDefinition describes a registered workflow: its unique name,
// what it does, and the shape of input it accepts. Definitions are
// registered once at startup and immutable afterward.
type WorkflowDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema *schema.Schema `json:"input_schema"`
}
