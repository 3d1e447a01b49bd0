package workflows

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"codegate/internal/registry"
	"codegate/internal/services"
	"codegate/pkg/models"
	"codegate/pkg/schema"
)

var poemStyles = []string{"classical", "modern", "free verse", "haiku", "sonnet"}
var poemLengths = []string{"short", "medium", "long"}

// Poem builds the poem generation workflow: theme in, generated poem
// with title and a short writer's note out.
func Poem(client services.GenerationClient) (models.WorkflowDefinition, registry.Handler) {
	def := models.WorkflowDefinition{
		Name:        "poem",
		Description: "Generate a poem on a given theme",
		InputSchema: schema.Object(map[string]*schema.Property{
			"theme": {
				Type:        schema.TypeString,
				Description: "Theme of the poem",
				MinLength:   schema.IntPtr(1),
				MaxLength:   schema.IntPtr(100),
			},
			"style": {
				Type:        schema.TypeString,
				Description: "Poetic style",
				Enum:        poemStyles,
				Default:     "modern",
			},
			"length": {
				Type:        schema.TypeString,
				Description: "Approximate poem length",
				Enum:        poemLengths,
				Default:     "medium",
			},
		}, "theme"),
	}

	handler := func(ctx context.Context, input map[string]any) (*registry.Result, error) {
		theme, _ := input["theme"].(string)
		style := stringOr(input, "style", "modern")
		length := stringOr(input, "length", "medium")

		completion, err := client.Complete(ctx, poemSystemPrompt, buildPoemPrompt(theme, style, length))
		if err != nil {
			return nil, fmt.Errorf("poem generation: %w", err)
		}

		output := parsePoemOutput(completion.Content, theme)
		poem, _ := output["poem"].(string)
		output["metadata"] = map[string]any{
			"theme":      theme,
			"style":      style,
			"length":     length,
			"line_count": countLines(poem),
			"char_count": utf8.RuneCountInString(poem),
		}

		return &registry.Result{Output: output, TokensUsed: completion.TokensUsed}, nil
	}

	return def, handler
}

const poemSystemPrompt = "You are an accomplished poet. Always answer with a single valid JSON object and nothing else."

func buildPoemPrompt(theme, style, length string) string {
	lengthGuide := map[string]string{
		"short":  "4-8 lines",
		"medium": "12-20 lines",
		"long":   "24-40 lines",
	}
	return fmt.Sprintf(`Write a %s poem of %s on the theme %q.

Return JSON in this exact shape:
{"title": "...", "poem": "poem text with \n between lines", "analysis": "one or two sentences on the approach"}`,
		style, lengthGuide[length], theme)
}

// parsePoemOutput expects the JSON shape the prompt asks for, but models
// drift; fall back to treating the whole response as the poem body.
func parsePoemOutput(content, theme string) map[string]any {
	cleaned := stripCodeFence(content)

	var parsed struct {
		Title    string `json:"title"`
		Poem     string `json:"poem"`
		Analysis string `json:"analysis"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err == nil && parsed.Poem != "" {
		if parsed.Title == "" {
			parsed.Title = theme
		}
		return map[string]any{
			"title":    parsed.Title,
			"poem":     normalizeLines(parsed.Poem),
			"analysis": parsed.Analysis,
		}
	}

	return map[string]any{
		"title":    theme,
		"poem":     normalizeLines(cleaned),
		"analysis": "",
	}
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

func normalizeLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return strings.Join(lines, "\n")
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	return len(strings.Split(s, "\n"))
}

func stringOr(input map[string]any, key, fallback string) string {
	if v, ok := input[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
