// Package schema describes and validates workflow input objects.
//
// A Schema is a stable, JSON-serializable description of the object a
// workflow accepts. It covers the subset any renderer needs to build a
// form: field types, required fields, enumerations, numeric ranges,
// string length bounds and patterns.
package schema

// Type is the set of value types a property may declare.
type Type string

const (
	TypeString  Type = "string"
	TypeInteger Type = "integer"
	TypeNumber  Type = "number"
	TypeBoolean Type = "boolean"
	TypeArray   Type = "array"
)

// Property describes a single input field.
type Property struct {
	Type        Type      `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []string  `json:"enum,omitempty"`
	Minimum     *float64  `json:"minimum,omitempty"`
	Maximum     *float64  `json:"maximum,omitempty"`
	MinLength   *int      `json:"minLength,omitempty"`
	MaxLength   *int      `json:"maxLength,omitempty"`
	Pattern     string    `json:"pattern,omitempty"`
	Items       *Property `json:"items,omitempty"`
	Default     any       `json:"default,omitempty"`
}

// Schema describes the input object of a workflow.
type Schema struct {
	Type        string               `json:"type"`
	Description string               `json:"description,omitempty"`
	Properties  map[string]*Property `json:"properties"`
	Required    []string             `json:"required,omitempty"`
}

// Object returns a schema for an object with the given properties.
func Object(props map[string]*Property, required ...string) *Schema {
	return &Schema{Type: "object", Properties: props, Required: required}
}

// IntPtr and FloatPtr are small helpers for building property bounds.
func IntPtr(v int) *int           { return &v }
func FloatPtr(v float64) *float64 { return &v }
