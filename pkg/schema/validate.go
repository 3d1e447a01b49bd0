package schema

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// FieldError is a single validation problem, addressed to one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Field + ": " + e.Message
}

// ValidationError carries every problem found in one pass, so the caller
// can correct all fields in a single round trip.
type ValidationError struct {
	Problems []FieldError `json:"problems"`
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return "invalid input: " + strings.Join(msgs, "; ")
}

// Validate checks input against the schema and returns nil or a
// *ValidationError listing every violation. Unknown fields are ignored
// unless strict is set, in which case each one is reported.
func Validate(s *Schema, input map[string]any, strict bool) error {
	var problems []FieldError

	for _, name := range s.Required {
		if _, ok := input[name]; !ok {
			problems = append(problems, FieldError{Field: name, Message: "required field is missing"})
		}
	}

	// Stable iteration keeps the problem list deterministic.
	names := make([]string, 0, len(input))
	for name := range input {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop, ok := s.Properties[name]
		if !ok {
			if strict {
				problems = append(problems, FieldError{Field: name, Message: "unknown field"})
			}
			continue
		}
		problems = append(problems, checkProperty(name, prop, input[name])...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func checkProperty(name string, prop *Property, value any) []FieldError {
	var problems []FieldError

	switch prop.Type {
	case TypeString:
		s, ok := value.(string)
		if !ok {
			return []FieldError{{Field: name, Message: "must be a string"}}
		}
		problems = append(problems, checkString(name, prop, s)...)

	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return []FieldError{{Field: name, Message: "must be a boolean"}}
		}

	case TypeInteger:
		n, ok := asNumber(value)
		if !ok || n != math.Trunc(n) {
			return []FieldError{{Field: name, Message: "must be an integer"}}
		}
		problems = append(problems, checkRange(name, prop, n)...)

	case TypeNumber:
		n, ok := asNumber(value)
		if !ok {
			return []FieldError{{Field: name, Message: "must be a number"}}
		}
		problems = append(problems, checkRange(name, prop, n)...)

	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return []FieldError{{Field: name, Message: "must be an array"}}
		}
		if prop.Items != nil {
			for i, item := range items {
				elem := fmt.Sprintf("%s[%d]", name, i)
				problems = append(problems, checkProperty(elem, prop.Items, item)...)
			}
		}

	default:
		problems = append(problems, FieldError{
			Field:   name,
			Message: fmt.Sprintf("schema declares unsupported type %q", prop.Type),
		})
	}

	return problems
}

func checkString(name string, prop *Property, s string) []FieldError {
	var problems []FieldError
	length := utf8.RuneCountInString(s)

	if prop.MinLength != nil && length < *prop.MinLength {
		problems = append(problems, FieldError{
			Field:   name,
			Message: fmt.Sprintf("must be at least %d characters", *prop.MinLength),
		})
	}
	if prop.MaxLength != nil && length > *prop.MaxLength {
		problems = append(problems, FieldError{
			Field:   name,
			Message: fmt.Sprintf("must be at most %d characters", *prop.MaxLength),
		})
	}
	if len(prop.Enum) > 0 {
		found := false
		for _, allowed := range prop.Enum {
			if s == allowed {
				found = true
				break
			}
		}
		if !found {
			problems = append(problems, FieldError{
				Field:   name,
				Message: "must be one of: " + strings.Join(prop.Enum, ", "),
			})
		}
	}
	if prop.Pattern != "" {
		re, err := regexp.Compile(prop.Pattern)
		if err != nil {
			problems = append(problems, FieldError{Field: name, Message: "schema pattern is invalid"})
		} else if !re.MatchString(s) {
			problems = append(problems, FieldError{Field: name, Message: "does not match pattern " + prop.Pattern})
		}
	}
	return problems
}

func checkRange(name string, prop *Property, n float64) []FieldError {
	var problems []FieldError
	if prop.Minimum != nil && n < *prop.Minimum {
		problems = append(problems, FieldError{
			Field:   name,
			Message: fmt.Sprintf("must be >= %v", *prop.Minimum),
		})
	}
	if prop.Maximum != nil && n > *prop.Maximum {
		problems = append(problems, FieldError{
			Field:   name,
			Message: fmt.Sprintf("must be <= %v", *prop.Maximum),
		})
	}
	return problems
}

// asNumber accepts the numeric types json.Unmarshal and handler code
// produce for map[string]any values.
func asNumber(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}
