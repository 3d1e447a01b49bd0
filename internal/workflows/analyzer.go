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

var analysisTypes = []string{"statistics", "keywords", "sentiment", "summary", "full"}

// TextAnalyzer builds the text analysis workflow. Basic statistics are
// computed locally; keywords, sentiment and summary come from the
// generation API.
func TextAnalyzer(client services.GenerationClient) (models.WorkflowDefinition, registry.Handler) {
	def := models.WorkflowDefinition{
		Name:        "text_analyzer",
		Description: "Analyze a text: statistics, keywords, sentiment and summary",
		InputSchema: schema.Object(map[string]*schema.Property{
			"text": {
				Type:        schema.TypeString,
				Description: "Text to analyze",
				MinLength:   schema.IntPtr(1),
				MaxLength:   schema.IntPtr(10000),
			},
			"analysis_type": {
				Type:        schema.TypeString,
				Description: "Which analysis to run",
				Enum:        analysisTypes,
				Default:     "full",
			},
			"max_summary_length": {
				Type:        schema.TypeInteger,
				Description: "Upper bound for the summary, in characters",
				Minimum:     schema.FloatPtr(50),
				Maximum:     schema.FloatPtr(500),
				Default:     200,
			},
		}, "text"),
	}

	handler := func(ctx context.Context, input map[string]any) (*registry.Result, error) {
		text, _ := input["text"].(string)
		analysisType := stringOr(input, "analysis_type", "full")
		maxSummary := intOr(input, "max_summary_length", 200)

		output := map[string]any{}
		if analysisType == "statistics" || analysisType == "full" {
			output["basic_stats"] = basicStats(text)
		}

		tokens := 0
		if analysisType != "statistics" {
			completion, err := client.Complete(ctx, analyzerSystemPrompt,
				buildAnalyzerPrompt(text, analysisType, maxSummary))
			if err != nil {
				return nil, fmt.Errorf("text analysis: %w", err)
			}
			tokens = completion.TokensUsed
			mergeAnalysis(output, completion.Content, analysisType)
		}

		return &registry.Result{Output: output, TokensUsed: tokens}, nil
	}

	return def, handler
}

const analyzerSystemPrompt = "You are a careful text analyst. Always answer with a single valid JSON object and nothing else."

func buildAnalyzerPrompt(text, analysisType string, maxSummary int) string {
	var want []string
	if analysisType == "keywords" || analysisType == "full" {
		want = append(want, `"keywords": up to 10 key terms as a JSON array of strings`)
	}
	if analysisType == "sentiment" || analysisType == "full" {
		want = append(want, `"sentiment": one of "positive", "negative", "neutral", "mixed"`)
	}
	if analysisType == "summary" || analysisType == "full" {
		want = append(want, fmt.Sprintf(`"summary": a summary of at most %d characters`, maxSummary))
	}
	return fmt.Sprintf("Analyze the following text and return a JSON object with %s.\n\nText:\n%s",
		strings.Join(want, ", "), text)
}

func mergeAnalysis(output map[string]any, content, analysisType string) {
	var parsed struct {
		Keywords  []string `json:"keywords"`
		Sentiment string   `json:"sentiment"`
		Summary   string   `json:"summary"`
	}
	if err := json.Unmarshal([]byte(stripCodeFence(content)), &parsed); err != nil {
		// Unparseable analysis degrades to a raw summary rather than failing
		// the whole execution.
		output["summary"] = strings.TrimSpace(content)
		return
	}
	if len(parsed.Keywords) > 0 && (analysisType == "keywords" || analysisType == "full") {
		output["keywords"] = parsed.Keywords
	}
	if parsed.Sentiment != "" && (analysisType == "sentiment" || analysisType == "full") {
		output["sentiment"] = parsed.Sentiment
	}
	if parsed.Summary != "" && (analysisType == "summary" || analysisType == "full") {
		output["summary"] = parsed.Summary
	}
}

func basicStats(text string) map[string]any {
	words := strings.Fields(text)
	sentences := 0
	for _, r := range text {
		if r == '.' || r == '!' || r == '?' {
			sentences++
		}
	}
	paragraphs := 0
	for _, p := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(p) != "" {
			paragraphs++
		}
	}
	return map[string]any{
		"char_count":      utf8.RuneCountInString(text),
		"word_count":      len(words),
		"sentence_count":  sentences,
		"paragraph_count": paragraphs,
	}
}

func intOr(input map[string]any, key string, fallback int) int {
	switch v := input[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return fallback
	}
}
